// ChatAlytics - Realtime Chat Analytics Relay
// Copyright 2026 OpenChatAlytics
// SPDX-License-Identifier: Apache-2.0
// https://github.com/OpenChatAlytics/ChatAlytics

// Package config loads and validates process configuration.
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (CHAT_TOKEN, RELAY_PORT, ...)
//   - Config file (chatalytics.yaml)
//   - Built-in defaults
//
// The resulting Config is treated as immutable input by every component.
package config

import (
	"time"
)

// Config is the root configuration for both the compute and web tiers.
type Config struct {
	Chat     ChatConfig     `koanf:"chat"`
	Relay    RelayConfig    `koanf:"relay"`
	Server   ServerConfig   `koanf:"server"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Logging  LoggingConfig  `koanf:"logging"`
	CORS     CORSConfig     `koanf:"cors"`
}

// ChatConfig configures the upstream chat feed connection.
type ChatConfig struct {
	// APIURL is the base URL of the chat service REST API.
	APIURL string `koanf:"api_url" validate:"omitempty,url"`

	// Token authenticates directory and realtime-URL lookups.
	Token string `koanf:"token"`

	// StartDate, when set, drops any message timestamped at or before it.
	// RFC3339.
	StartDate string `koanf:"start_date" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`

	// ConnectRetryInterval is the base interval of the capped linear
	// backoff used while establishing the realtime connection.
	ConnectRetryInterval time.Duration `koanf:"connect_retry_interval" validate:"gt=0"`

	// ConnectBackoffMax caps a single retry sleep.
	ConnectBackoffMax time.Duration `koanf:"connect_backoff_max" validate:"gt=0"`

	// ConnectDeadline bounds the whole connection attempt. Once elapsed
	// the connector fails permanently.
	ConnectDeadline time.Duration `koanf:"connect_deadline" validate:"gt=0"`
}

// StartDateTime parses StartDate, returning ok=false when unset.
func (c ChatConfig) StartDateTime() (time.Time, bool) {
	if c.StartDate == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, c.StartDate)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// RelayConfig locates the relay broker from the compute tier's side.
type RelayConfig struct {
	Host string `koanf:"host" validate:"required"`
	Port int    `koanf:"port" validate:"gte=1,lte=65535"`
}

// ServerConfig configures the web tier's HTTP listener.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// PipelineConfig configures the compute tier's processing loop.
type PipelineConfig struct {
	// PollInterval is how often the pipeline drains the connector queue.
	PollInterval time.Duration `koanf:"poll_interval" validate:"gt=0"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal disabled"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// CORSConfig lists the dashboard origins allowed to reach the web tier.
type CORSConfig struct {
	Origins []string `koanf:"origins"`
}

// defaultConfig returns a Config with all sensible default values.
// These defaults are applied first, then overridden by config file and env.
func defaultConfig() *Config {
	return &Config{
		Chat: ChatConfig{
			APIURL:               "https://slack.com/api",
			Token:                "",
			StartDate:            "",
			ConnectRetryInterval: 1 * time.Second,
			ConnectBackoffMax:    30 * time.Second,
			ConnectDeadline:      5 * time.Minute,
		},
		Relay: RelayConfig{
			Host: "localhost",
			Port: 9000,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    9000,
			Timeout: 30 * time.Second,
		},
		Pipeline: PipelineConfig{
			PollInterval: 100 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		CORS: CORSConfig{
			Origins: []string{"*"},
		},
	}
}
