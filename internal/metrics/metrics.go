// ChatAlytics - Realtime Chat Analytics Relay
// Copyright 2026 OpenChatAlytics
// SPDX-License-Identifier: Apache-2.0
// https://github.com/OpenChatAlytics/ChatAlytics

// Package metrics provides Prometheus instrumentation for the relay
// pipeline: connector ingestion, publisher throughput, and broker fan-out.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Source connector metrics

	ConnectorMessagesEnriched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "connector_messages_enriched_total",
			Help: "Total number of inbound messages enriched and queued",
		},
	)

	ConnectorMessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_messages_dropped_total",
			Help: "Total number of inbound messages dropped before enqueue",
		},
		[]string{"reason"}, // "unknown_user", "decode", "filtered"
	)

	ConnectorQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "connector_queue_depth",
			Help: "Current number of enriched messages awaiting drain",
		},
	)

	ConnectorConnectAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "connector_connect_attempts_total",
			Help: "Total number of realtime connection attempts",
		},
	)

	// Relay publisher metrics

	PublisherEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publisher_events_published_total",
			Help: "Total number of events published to the relay broker",
		},
		[]string{"type"},
	)

	PublisherEventsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "publisher_events_skipped_total",
			Help: "Total number of non-publishable values skipped",
		},
	)

	PublisherPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "publisher_publish_failures_total",
			Help: "Total number of encode or send failures while publishing",
		},
	)

	// Relay broker metrics

	BrokerConsumerSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broker_consumer_sessions",
			Help: "Current number of tracked consumer sessions",
		},
	)

	BrokerConsumersRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broker_consumers_rejected_total",
			Help: "Total number of consumer connections rejected while no producer was live",
		},
	)

	BrokerEventsBroadcast = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_events_broadcast_total",
			Help: "Total number of events fanned out to consumer sessions",
		},
		[]string{"type"},
	)

	BrokerEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broker_events_dropped_total",
			Help: "Total number of per-session sends dropped (dead or stalled consumer)",
		},
	)

	PipelineEntitiesExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_entities_extracted_total",
			Help: "Total number of analytics entities extracted from enriched messages",
		},
		[]string{"type"},
	)

	PipelineBatchesDrained = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_batches_drained_total",
			Help: "Total number of non-empty batches drained from the connector queue",
		},
	)
)
