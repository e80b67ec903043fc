// ChatAlytics - Realtime Chat Analytics Relay
// Copyright 2026 OpenChatAlytics
// SPDX-License-Identifier: Apache-2.0
// https://github.com/OpenChatAlytics/ChatAlytics

package broker

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/OpenChatAlytics/ChatAlytics/internal/logging"
)

const (
	// sendBuffer is the per-consumer outbound queue. A consumer that falls
	// this far behind the broadcast stream is disconnected.
	sendBuffer = 256

	writeWait = 10 * time.Second
)

// session is one connected consumer. Frames are queued on send and written
// by a dedicated pump goroutine so a slow consumer never blocks broadcast.
type session struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newSession(conn *websocket.Conn) *session {
	return &session{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// writePump drains the send queue onto the wire. It exits on the first write
// failure or when the session is closed.
func (s *session) writePump() {
	defer s.conn.Close()

	for {
		select {
		case data, ok := <-s.send:
			if !ok {
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logging.Debug().Err(err).Str("session_id", s.id).Msg("consumer write failed")
				s.close(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-s.done:
			return
		}
	}
}

// enqueue offers one frame without blocking. It reports false when the
// session's queue is full or the session is closed.
func (s *session) enqueue(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// close sends a close control frame with the given reason and tears the
// session down. Safe to call more than once.
func (s *session) close(code int, reason string) {
	s.closeOnce.Do(func() {
		close(s.done)
		msg := websocket.FormatCloseMessage(code, reason)
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		s.conn.WriteMessage(websocket.CloseMessage, msg)
		s.conn.Close()
	})
}

// closed reports whether the session has been torn down.
func (s *session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
