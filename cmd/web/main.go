// ChatAlytics - Realtime Chat Analytics Relay
// Copyright 2026 OpenChatAlytics
// SPDX-License-Identifier: Apache-2.0
// https://github.com/OpenChatAlytics/ChatAlytics

// Package main is the entry point for the ChatAlytics web tier.
//
// The web process runs the relay broker: the compute tier publishes
// analytics events to /relay/publisher, and dashboard clients subscribe on
// /relay/subscriber. Subscribers are only admitted while a producer is
// connected. Health and Prometheus metrics endpoints ride on the same
// listener.
//
// Shutdown is graceful on SIGINT and SIGTERM.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/OpenChatAlytics/ChatAlytics/internal/config"
	"github.com/OpenChatAlytics/ChatAlytics/internal/logging"
	"github.com/OpenChatAlytics/ChatAlytics/internal/relay/broker"
	"github.com/OpenChatAlytics/ChatAlytics/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load configuration")
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Msg("chatalytics web starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := broker.New()
	server := broker.NewServer(cfg.Server, cfg.CORS, b)

	tree := supervisor.NewTree("chatalytics-web", supervisor.DefaultTreeConfig())
	tree.Add(supervisor.Service{Name: "relay-server", Run: server.Serve})

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Err(err).Msg("web tier stopped")
		os.Exit(1)
	}
	logging.Info().Msg("web tier shut down")
}
