// ChatAlytics - Realtime Chat Analytics Relay
// Copyright 2026 OpenChatAlytics
// SPDX-License-Identifier: Apache-2.0
// https://github.com/OpenChatAlytics/ChatAlytics

package pipeline

import (
	"context"
	"time"

	"github.com/OpenChatAlytics/ChatAlytics/internal/logging"
	"github.com/OpenChatAlytics/ChatAlytics/internal/metrics"
	"github.com/OpenChatAlytics/ChatAlytics/internal/models"
)

// Source yields batches of enriched messages. Drain never blocks.
type Source interface {
	Drain() []models.FatMessage
}

// Sink receives extracted analytics entities.
type Sink interface {
	Publish(v any)
}

// Runner polls the source and publishes every entity extracted from each
// drained batch. It implements suture's Service.
type Runner struct {
	source    Source
	sink      Sink
	extractor *Extractor
	interval  time.Duration
}

func NewRunner(source Source, sink Sink, extractor *Extractor, interval time.Duration) *Runner {
	return &Runner{
		source:    source,
		sink:      sink,
		extractor: extractor,
		interval:  interval,
	}
}

func (r *Runner) String() string { return "pipeline-runner" }

// Serve polls until ctx is canceled. A final drain on shutdown flushes
// whatever the connector queued since the last tick.
func (r *Runner) Serve(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	logging.Info().Dur("interval", r.interval).Msg("pipeline runner started")
	for {
		select {
		case <-ticker.C:
			r.processBatch()
		case <-ctx.Done():
			r.processBatch()
			logging.Info().Msg("pipeline runner stopped")
			return ctx.Err()
		}
	}
}

func (r *Runner) processBatch() {
	batch := r.source.Drain()
	if len(batch) == 0 {
		return
	}
	metrics.PipelineBatchesDrained.Inc()

	var mentions, emojis int
	for _, fm := range batch {
		for _, entity := range r.extractor.Mentions(fm) {
			r.sink.Publish(entity)
			mentions++
		}
		for _, entity := range r.extractor.Emojis(fm) {
			r.sink.Publish(entity)
			emojis++
		}
	}
	metrics.PipelineEntitiesExtracted.WithLabelValues("chat_entity").Add(float64(mentions))
	metrics.PipelineEntitiesExtracted.WithLabelValues("emoji_entity").Add(float64(emojis))

	logging.Debug().
		Int("messages", len(batch)).
		Int("mentions", mentions).
		Int("emojis", emojis).
		Msg("batch processed")
}
