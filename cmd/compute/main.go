// ChatAlytics - Realtime Chat Analytics Relay
// Copyright 2026 OpenChatAlytics
// SPDX-License-Identifier: Apache-2.0
// https://github.com/OpenChatAlytics/ChatAlytics

// Package main is the entry point for the ChatAlytics compute tier.
//
// The compute process connects to the chat provider's realtime feed,
// enriches every inbound message with user and room directory data,
// extracts mention and emoji analytics entities, and publishes them to
// the relay broker run by the web tier.
//
// Startup order:
//
//  1. Configuration: environment variables, config file, defaults (Koanf v2)
//  2. Chat directory: one-shot fetch of the user and room listings
//  3. Relay publisher: a single dial to the broker, fatal on failure
//  4. Supervisor tree: the feed connector and the extraction pipeline
//
// The feed connector retries its initial connection with capped linear
// backoff up to CHAT_CONNECT_DEADLINE. After that, or after an established
// connection drops, the process exits; restarts belong to the host's
// process manager.
//
// Shutdown is graceful on SIGINT and SIGTERM: the pipeline flushes its last
// batch and the broker connection is closed.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/OpenChatAlytics/ChatAlytics/internal/chatapi"
	"github.com/OpenChatAlytics/ChatAlytics/internal/config"
	"github.com/OpenChatAlytics/ChatAlytics/internal/connector"
	"github.com/OpenChatAlytics/ChatAlytics/internal/logging"
	"github.com/OpenChatAlytics/ChatAlytics/internal/pipeline"
	"github.com/OpenChatAlytics/ChatAlytics/internal/relay/publisher"
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
	logging.Info().Msg("chatalytics compute starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	directory := chatapi.NewDirectory(chatapi.NewClient(cfg.Chat.APIURL, cfg.Chat.Token))
	if err := directory.Refresh(ctx); err != nil {
		logging.Fatal().Err(err).Msg("load chat directory")
	}

	opts := connector.Options{
		RetryInterval: cfg.Chat.ConnectRetryInterval,
		BackoffMax:    cfg.Chat.ConnectBackoffMax,
		Deadline:      cfg.Chat.ConnectDeadline,
	}
	if start, ok := cfg.Chat.StartDateTime(); ok {
		opts.StartDate = start
		logging.Info().Time("start_date", start).Msg("message start date filter active")
	}
	conn := connector.New(directory, &connector.WebSocketDialer{}, opts)

	pub, err := publisher.Dial(ctx, cfg.Relay.Host, cfg.Relay.Port)
	if err != nil {
		logging.Fatal().Err(err).Msg("connect to relay broker")
	}
	defer pub.Close()

	runner := pipeline.NewRunner(
		conn,
		pub,
		pipeline.NewExtractor(directory.GetUsers),
		cfg.Pipeline.PollInterval,
	)

	tree := supervisor.NewTree("chatalytics-compute", supervisor.DefaultTreeConfig())
	tree.Add(supervisor.NewConnectorService(conn))
	tree.Add(runner)

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Err(err).Msg("compute tier stopped")
		pub.Close()
		os.Exit(1)
	}
	logging.Info().Msg("compute tier shut down")
}
