// ChatAlytics - Realtime Chat Analytics Relay
// Copyright 2026 OpenChatAlytics
// SPDX-License-Identifier: Apache-2.0
// https://github.com/OpenChatAlytics/ChatAlytics

package publisher

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/OpenChatAlytics/ChatAlytics/internal/logging"
	"github.com/OpenChatAlytics/ChatAlytics/internal/models"
	"github.com/OpenChatAlytics/ChatAlytics/internal/relay"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

// startBroker runs a websocket endpoint that forwards every received frame
// to frames. It returns the host and port to dial.
func startBroker(t *testing.T, frames chan<- []byte) (string, int) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != relay.PublisherPath {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frames <- data
		}
	}))
	t.Cleanup(srv.Close)

	host, portStr, err := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	return host, port
}

func TestDial_Failure(t *testing.T) {
	_, err := Dial(context.Background(), "127.0.0.1", 1)
	if err == nil {
		t.Fatal("Dial() against a closed port must fail")
	}
}

func TestPublish_WrapsPayload(t *testing.T) {
	frames := make(chan []byte, 4)
	host, port := startBroker(t, frames)

	p, err := Dial(context.Background(), host, port)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer p.Close()

	p.Publish(models.ChatEntity{
		Username:    "giannis",
		RoomName:    "general",
		Value:       "@sam",
		Occurrences: 2,
	})

	select {
	case data := <-frames:
		var ev struct {
			Timestamp time.Time         `json:"timestamp"`
			Type      string            `json:"type"`
			Clazz     string            `json:"clazz"`
			Payload   models.ChatEntity `json:"payload"`
		}
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if ev.Type != "chat_entity" {
			t.Errorf("type = %q, want chat_entity", ev.Type)
		}
		if ev.Timestamp.Location() != time.UTC {
			t.Errorf("timestamp zone = %v, want UTC", ev.Timestamp.Location())
		}
		if ev.Clazz == "" {
			t.Error("producer-side frame must carry clazz metadata")
		}
		if ev.Payload.Value != "@sam" || ev.Payload.Occurrences != 2 {
			t.Errorf("payload = %+v", ev.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
	}
}

func TestPublish_SkipsUnlabeledValues(t *testing.T) {
	frames := make(chan []byte, 4)
	host, port := startBroker(t, frames)

	p, err := Dial(context.Background(), host, port)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer p.Close()

	p.Publish("just a string")
	p.Publish(models.EmojiEntity{Value: "shipit", Occurrences: 1})

	select {
	case data := <-frames:
		var ev relay.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if ev.Type != "emoji_entity" {
			t.Errorf("type = %q, want emoji_entity (string publish must be skipped)", ev.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
	}

	select {
	case data := <-frames:
		t.Fatalf("unexpected extra frame: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublish_FailureDoesNotPanic(t *testing.T) {
	frames := make(chan []byte, 4)
	host, port := startBroker(t, frames)

	p, err := Dial(context.Background(), host, port)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}

	p.Close()
	// Writing on a closed connection is logged, not escalated.
	p.Publish(models.ChatEntity{Value: "@sam"})
	// Double close is a no-op.
	p.Close()
}
