// ChatAlytics - Realtime Chat Analytics Relay
// Copyright 2026 OpenChatAlytics
// SPDX-License-Identifier: Apache-2.0
// https://github.com/OpenChatAlytics/ChatAlytics

// Package broker fans analytics events out from a single producer connection
// to any number of consumer websockets. Consumers are only admitted while a
// producer is connected, and a slow or broken consumer is dropped without
// affecting the rest.
package broker

import (
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/OpenChatAlytics/ChatAlytics/internal/logging"
	"github.com/OpenChatAlytics/ChatAlytics/internal/metrics"
	"github.com/OpenChatAlytics/ChatAlytics/internal/relay"
)

// noProducerReason is the close reason sent to consumers rejected because no
// producer is connected.
const noProducerReason = "compute producer is not connected"

// Broker relays events from the producer endpoint to consumer sessions.
type Broker struct {
	producerUp atomic.Bool

	mu       sync.Mutex
	sessions map[string]*session
}

func New() *Broker {
	return &Broker{sessions: make(map[string]*session)}
}

// ProducerConnected reports whether a producer is currently attached.
func (b *Broker) ProducerConnected() bool {
	return b.producerUp.Load()
}

// HandleProducer serves one producer connection: it marks the producer live,
// relays every decoded event to the consumers, and marks the producer down
// when the connection ends. A second producer connection re-asserts
// liveness rather than being rejected.
func (b *Broker) HandleProducer(conn *websocket.Conn) {
	b.producerUp.Store(true)
	logging.Info().Str("remote", conn.RemoteAddr().String()).Msg("producer connected")

	defer func() {
		b.producerUp.Store(false)
		conn.Close()
		logging.Info().Msg("producer disconnected")
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Warn().Err(err).Msg("producer connection lost")
			}
			return
		}

		var ev relay.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			logging.Warn().Err(err).Msg("malformed producer frame dropped")
			continue
		}
		b.broadcast(ev)
	}
}

// HandleConsumer serves one consumer connection. Admission requires a live
// producer; otherwise the consumer is closed immediately with an explicit
// reason. Admitted consumers receive every event broadcast after their
// admission until they disconnect or fall too far behind.
func (b *Broker) HandleConsumer(conn *websocket.Conn) {
	if !b.producerUp.Load() {
		metrics.BrokerConsumersRejected.Inc()
		logging.Info().Str("remote", conn.RemoteAddr().String()).Msg("consumer rejected, no producer")
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, noProducerReason)
		conn.WriteMessage(websocket.CloseMessage, msg)
		conn.Close()
		return
	}

	s := newSession(conn)
	b.admit(s)
	log := logging.With().Str("session_id", s.id).Logger()
	log.Info().Msg("consumer admitted")

	go s.writePump()

	// Consumers send nothing meaningful; reading only detects disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.close(websocket.CloseNormalClosure, "")
	b.remove(s.id)
	log.Info().Msg("consumer disconnected")
}

// admit registers a session, first sweeping out any sessions that closed
// since the last broadcast.
func (b *Broker) admit(s *session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, old := range b.sessions {
		if old.closed() {
			delete(b.sessions, id)
		}
	}
	b.sessions[s.id] = s
	metrics.BrokerConsumerSessions.Set(float64(len(b.sessions)))
}

func (b *Broker) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, id)
	metrics.BrokerConsumerSessions.Set(float64(len(b.sessions)))
}

// broadcast strips producer-side metadata from the event and offers it to
// every current session. The session set is copied under the lock so a slow
// send never holds up admission, and each failed session is dropped without
// touching the others.
func (b *Broker) broadcast(ev relay.Event) {
	out := ev.StripMetadata()
	data, err := json.Marshal(out)
	if err != nil {
		logging.Err(err).Str("type", out.Type).Msg("encode broadcast frame")
		return
	}

	b.mu.Lock()
	targets := make([]*session, 0, len(b.sessions))
	for _, s := range b.sessions {
		targets = append(targets, s)
	}
	b.mu.Unlock()

	for _, s := range targets {
		if s.enqueue(data) {
			continue
		}
		metrics.BrokerEventsDropped.Inc()
		logging.Warn().Str("session_id", s.id).Msg("consumer too slow, dropping session")
		s.close(websocket.ClosePolicyViolation, "consumer not keeping up")
		b.remove(s.id)
	}
	metrics.BrokerEventsBroadcast.WithLabelValues(out.Type).Inc()
}

// SessionCount returns the number of registered consumer sessions.
func (b *Broker) SessionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}
