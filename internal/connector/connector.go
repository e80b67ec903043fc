// ChatAlytics - Realtime Chat Analytics Relay
// Copyright 2026 OpenChatAlytics
// SPDX-License-Identifier: Apache-2.0
// https://github.com/OpenChatAlytics/ChatAlytics

// Package connector maintains the resilient connection to the upstream chat
// realtime feed, enriches inbound messages with user and room directory
// records, and exposes the result as a pull-based queue to the pipeline.
//
// The inbound side runs on the transport's read goroutine; the pull side is
// driven by the pipeline's poll loop. The two only share the internally
// synchronized message queue.
package connector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/OpenChatAlytics/ChatAlytics/internal/logging"
	"github.com/OpenChatAlytics/ChatAlytics/internal/metrics"
	"github.com/OpenChatAlytics/ChatAlytics/internal/models"
)

// ChatAPI is the chat service collaborator the connector depends on:
// directory lookups consulted per inbound message, and discovery of the
// realtime connection target.
type ChatAPI interface {
	// GetUsers returns the user directory keyed by user id.
	GetUsers() map[string]models.User

	// GetRooms returns the room directory keyed by room id.
	GetRooms() map[string]models.Room

	// RealtimeURL returns the websocket URL of the realtime feed.
	RealtimeURL(ctx context.Context) (string, error)
}

// Options configures the connector's resilient connect behavior and
// message filtering.
type Options struct {
	// RetryInterval is the base interval of the capped linear backoff.
	RetryInterval time.Duration

	// BackoffMax caps a single retry sleep.
	BackoffMax time.Duration

	// Deadline bounds the whole connection attempt in wall-clock time.
	Deadline time.Duration

	// StartDate, when non-zero, drops messages timestamped at or before it.
	StartDate time.Time
}

// Connector owns the realtime feed connection and the enrichment queue.
type Connector struct {
	api    ChatAPI
	dialer Dialer
	opts   Options

	connMu sync.Mutex
	conn   Conn

	queue messageQueue
}

// New returns a connector that is not yet connected; call Connect.
func New(api ChatAPI, dialer Dialer, opts Options) *Connector {
	return &Connector{
		api:    api,
		dialer: dialer,
		opts:   opts,
	}
}

// Connect establishes the realtime connection, retrying with capped linear
// backoff (sleep = min(BackoffMax, attempt*RetryInterval)) until Deadline
// wall-clock time has elapsed since the first attempt. Exceeding the
// deadline is a permanent failure: the connector cannot start. No further
// reconnection happens after a successful handshake.
func (c *Connector) Connect(ctx context.Context) error {
	start := time.Now()
	attempt := 0

	for {
		metrics.ConnectorConnectAttempts.Inc()

		url, err := c.api.RealtimeURL(ctx)
		if err == nil {
			var conn Conn
			if conn, err = c.dialer.Dial(ctx, url); err == nil {
				c.connMu.Lock()
				c.conn = conn
				c.connMu.Unlock()
				logging.Info().Int("attempts", attempt+1).Msg("realtime feed connected")
				return nil
			}
		}

		attempt++
		elapsed := time.Since(start)
		if elapsed > c.opts.Deadline {
			return fmt.Errorf("connect to realtime feed: deadline %s exceeded after %d attempts: %w",
				c.opts.Deadline, attempt, err)
		}

		sleep := time.Duration(attempt) * c.opts.RetryInterval
		if sleep > c.opts.BackoffMax {
			sleep = c.opts.BackoffMax
		}
		logging.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("sleep", sleep).
			Dur("remaining", c.opts.Deadline-elapsed).
			Msg("realtime connect failed, retrying")

		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Run reads inbound events until the context is canceled or the connection
// fails. A read failure after startup is not retried; it is returned to the
// caller as the connector's terminal error.
func (c *Connector) Run(ctx context.Context) error {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return fmt.Errorf("connector is not connected")
	}

	// ReadMessage blocks indefinitely on an idle feed; closing the
	// connection on cancellation is what unblocks it.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("realtime feed read: %w", err)
		}
		c.handleInbound(data)
	}
}

// handleInbound decodes one raw inbound event and hands it to enrichment.
// It never propagates an error to the transport.
func (c *Connector) handleInbound(data []byte) {
	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		logging.Warn().Err(err).Msg("failed to decode inbound event")
		metrics.ConnectorMessagesDropped.WithLabelValues("decode").Inc()
		return
	}
	c.handleMessage(msg)
}

// handleMessage filters, enriches, and enqueues one inbound message.
func (c *Connector) handleMessage(msg models.Message) {
	if c.filterMessage(msg) {
		logging.Debug().Time("message_time", msg.Time).Msg("filtering message before start date")
		metrics.ConnectorMessagesDropped.WithLabelValues("filtered").Inc()
		return
	}

	users := c.api.GetUsers()
	rooms := c.api.GetRooms()

	fromUser, ok := users[msg.FromUserID]
	if !ok {
		if !msg.IsBot() {
			logging.Warn().Str("user_id", msg.FromUserID).Msg("can't find user, skipping message")
			metrics.ConnectorMessagesDropped.WithLabelValues("unknown_user").Inc()
			return
		}
		fromUser = models.PlaceholderUser(msg.FromUserID, msg.FromName)
	}

	var room *models.Room
	if msg.RoomID != "" {
		if r, found := rooms[msg.RoomID]; found {
			room = &r
		} else {
			placeholder := models.PlaceholderRoom(msg.RoomID)
			room = &placeholder
		}
	}

	c.queue.append(models.FatMessage{Message: msg, User: fromUser, Room: room})
	metrics.ConnectorMessagesEnriched.Inc()
	metrics.ConnectorQueueDepth.Set(float64(c.queue.depth()))
}

// filterMessage reports whether the message falls at or before the
// configured start date.
func (c *Connector) filterMessage(msg models.Message) bool {
	if c.opts.StartDate.IsZero() {
		return false
	}
	return !msg.Time.After(c.opts.StartDate)
}

// Drain removes and returns all currently queued enriched messages in FIFO
// order. Returns nil immediately when the queue is empty; never blocks.
func (c *Connector) Drain() []models.FatMessage {
	drained := c.queue.drain()
	metrics.ConnectorQueueDepth.Set(float64(c.queue.depth()))
	return drained
}

// QueueDepth returns the number of enriched messages awaiting drain.
func (c *Connector) QueueDepth() int {
	return c.queue.depth()
}

// Close closes the upstream connection. A close failure is logged, not
// escalated.
func (c *Connector) Close() {
	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()

	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		logging.Warn().Err(err).Msg("realtime connection did not close cleanly")
		return
	}
	logging.Info().Msg("realtime connection closed")
}
