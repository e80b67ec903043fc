// ChatAlytics - Realtime Chat Analytics Relay
// Copyright 2026 OpenChatAlytics
// SPDX-License-Identifier: Apache-2.0
// https://github.com/OpenChatAlytics/ChatAlytics

// Package publisher pushes analytics events from the compute process to the
// relay broker's producer endpoint. Delivery is fire-and-forget: a publish
// failure is logged and the event is gone.
package publisher

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/OpenChatAlytics/ChatAlytics/internal/logging"
	"github.com/OpenChatAlytics/ChatAlytics/internal/metrics"
	"github.com/OpenChatAlytics/ChatAlytics/internal/relay"
)

const dialTimeout = 10 * time.Second

// Publisher holds a single websocket connection to the broker's producer
// endpoint. The connection is dialed exactly once; there is no reconnect.
type Publisher struct {
	connMu sync.Mutex
	conn   *websocket.Conn
}

// Dial connects to the broker at host:port. A dial failure is fatal to the
// caller: it is returned, never retried.
func Dial(ctx context.Context, host string, port int) (*Publisher, error) {
	u := url.URL{
		Scheme: "ws",
		Host:   fmt.Sprintf("%s:%d", host, port),
		Path:   relay.PublisherPath,
	}

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial relay broker %s: %w (status %d)", u.String(), err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial relay broker %s: %w", u.String(), err)
	}

	logging.Info().Str("url", u.String()).Msg("connected to relay broker")
	return &Publisher{conn: conn}, nil
}

// Publish wraps v in a relay event and writes it to the broker. Values that
// carry no type label are skipped with a warning. Write failures are logged
// and the connection is kept; later publishes may still succeed.
func (p *Publisher) Publish(v any) {
	payload, ok := v.(relay.Payload)
	if !ok {
		metrics.PublisherEventsSkipped.Inc()
		logging.Warn().
			Str("go_type", fmt.Sprintf("%T", v)).
			Msg("value has no event type label, not publishing")
		return
	}

	ev := relay.NewEvent(payload)
	data, err := json.Marshal(ev)
	if err != nil {
		metrics.PublisherPublishFailures.Inc()
		logging.Err(err).Str("type", ev.Type).Msg("encode relay event")
		return
	}

	p.connMu.Lock()
	if p.conn == nil {
		p.connMu.Unlock()
		metrics.PublisherPublishFailures.Inc()
		logging.Warn().Str("type", ev.Type).Msg("publish after close, event lost")
		return
	}
	err = p.conn.WriteMessage(websocket.TextMessage, data)
	p.connMu.Unlock()
	if err != nil {
		metrics.PublisherPublishFailures.Inc()
		logging.Err(err).Str("type", ev.Type).Msg("publish relay event")
		return
	}
	metrics.PublisherEventsPublished.WithLabelValues(ev.Type).Inc()
}

// Close closes the broker connection. A close failure is logged, not
// escalated.
func (p *Publisher) Close() {
	p.connMu.Lock()
	defer p.connMu.Unlock()
	if p.conn == nil {
		return
	}
	if err := p.conn.Close(); err != nil {
		logging.Warn().Err(err).Msg("relay broker connection did not close cleanly")
	}
	p.conn = nil
}
