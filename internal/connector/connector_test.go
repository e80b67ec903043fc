// ChatAlytics - Realtime Chat Analytics Relay
// Copyright 2026 OpenChatAlytics
// SPDX-License-Identifier: Apache-2.0
// https://github.com/OpenChatAlytics/ChatAlytics

package connector

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/OpenChatAlytics/ChatAlytics/internal/logging"
	"github.com/OpenChatAlytics/ChatAlytics/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

// fakeAPI is an in-memory ChatAPI.
type fakeAPI struct {
	users  map[string]models.User
	rooms  map[string]models.Room
	url    string
	urlErr error
}

func (f *fakeAPI) GetUsers() map[string]models.User { return f.users }
func (f *fakeAPI) GetRooms() map[string]models.Room { return f.rooms }
func (f *fakeAPI) RealtimeURL(context.Context) (string, error) {
	return f.url, f.urlErr
}

// fakeConn feeds canned frames to the connector's read loop.
type fakeConn struct {
	frames   chan []byte
	closeErr error
	closed   bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan []byte, 16)}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	data, ok := <-c.frames
	if !ok {
		return 0, nil, io.EOF
	}
	return 1, data, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return c.closeErr
}

// failNDialer fails the first n dial attempts, then returns conn.
type failNDialer struct {
	n        int
	attempts int
	conn     Conn
}

func (d *failNDialer) Dial(context.Context, string) (Conn, error) {
	d.attempts++
	if d.attempts <= d.n {
		return nil, errors.New("connection refused")
	}
	return d.conn, nil
}

func defaultAPI() *fakeAPI {
	return &fakeAPI{
		url: "ws://chat.example.com/rtm",
		users: map[string]models.User{
			"U1": {ID: "U1", Name: "giannis", MentionName: "giannis"},
		},
		rooms: map[string]models.Room{
			"R1": {ID: "R1", Name: "general"},
		},
	}
}

func fastOptions() Options {
	return Options{
		RetryInterval: time.Millisecond,
		BackoffMax:    5 * time.Millisecond,
		Deadline:      time.Second,
	}
}

func TestConnect_SucceedsAfterRetries(t *testing.T) {
	dialer := &failNDialer{n: 3, conn: newFakeConn()}
	c := New(defaultAPI(), dialer, fastOptions())

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if dialer.attempts != 4 {
		t.Errorf("dial attempts = %d, want 4", dialer.attempts)
	}
}

func TestConnect_DeadlineExceeded(t *testing.T) {
	dialer := &failNDialer{n: 1 << 30, conn: nil}
	opts := Options{
		RetryInterval: 5 * time.Millisecond,
		BackoffMax:    5 * time.Millisecond,
		Deadline:      20 * time.Millisecond,
	}
	c := New(defaultAPI(), dialer, opts)

	err := c.Connect(context.Background())
	if err == nil {
		t.Fatal("Connect() succeeded, want deadline error")
	}
	if !strings.Contains(err.Error(), "deadline") {
		t.Errorf("error = %v, want deadline mention", err)
	}
}

func TestConnect_RealtimeURLFailureRetried(t *testing.T) {
	api := defaultAPI()
	api.urlErr = errors.New("rtm.connect: 503")
	c := New(api, &failNDialer{conn: newFakeConn()}, Options{
		RetryInterval: time.Millisecond,
		BackoffMax:    2 * time.Millisecond,
		Deadline:      15 * time.Millisecond,
	})

	err := c.Connect(context.Background())
	if err == nil {
		t.Fatal("Connect() succeeded despite URL discovery failing")
	}
	if !errors.Is(err, api.urlErr) {
		t.Errorf("error = %v, want wrapped %v", err, api.urlErr)
	}
}

func TestConnect_ContextCanceledDuringBackoff(t *testing.T) {
	dialer := &failNDialer{n: 1 << 30}
	opts := Options{
		RetryInterval: time.Hour,
		BackoffMax:    time.Hour,
		Deadline:      2 * time.Hour,
	}
	c := New(defaultAPI(), dialer, opts)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := c.Connect(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Connect() error = %v, want context.Canceled", err)
	}
}

func TestHandleMessage_EnrichmentTotality(t *testing.T) {
	api := defaultAPI()
	c := New(api, nil, Options{})

	c.handleMessage(models.Message{
		ID:         "m1",
		FromUserID: "U1",
		RoomID:     "R1",
		Time:       time.Now(),
		Type:       models.MessageTypeMessage,
		Text:       "hello",
	})

	got := c.Drain()
	if len(got) != 1 {
		t.Fatalf("drained %d messages, want 1", len(got))
	}
	if got[0].User != api.users["U1"] {
		t.Errorf("user = %+v, want exact directory entry", got[0].User)
	}
	if got[0].Room == nil || *got[0].Room != api.rooms["R1"] {
		t.Errorf("room = %+v, want exact directory entry", got[0].Room)
	}
}

func TestHandleMessage_BotPlaceholder(t *testing.T) {
	c := New(defaultAPI(), nil, Options{})

	c.handleMessage(models.Message{
		ID:         "m1",
		FromUserID: "B404",
		FromName:   "deploybot",
		Time:       time.Now(),
		Type:       models.MessageTypeBotMessage,
	})

	got := c.Drain()
	if len(got) != 1 {
		t.Fatalf("drained %d messages, want 1", len(got))
	}
	u := got[0].User
	if !u.Bot {
		t.Error("placeholder user not marked bot")
	}
	if u.ID != "B404" || u.Name != "deploybot" {
		t.Errorf("placeholder user = %+v", u)
	}
}

func TestHandleMessage_UnknownNonBotDropped(t *testing.T) {
	c := New(defaultAPI(), nil, Options{})

	c.handleMessage(models.Message{
		ID:         "m1",
		FromUserID: "U404",
		FromName:   "ghost",
		Time:       time.Now(),
		Type:       models.MessageTypeMessage,
	})

	if got := c.Drain(); len(got) != 0 {
		t.Errorf("drained %d messages, want 0 (unknown non-bot sender)", len(got))
	}
}

func TestHandleMessage_RoomPlaceholder(t *testing.T) {
	c := New(defaultAPI(), nil, Options{})

	c.handleMessage(models.Message{
		ID:         "m1",
		FromUserID: "U1",
		RoomID:     "r9",
		Time:       time.Now(),
		Type:       models.MessageTypeMessage,
	})

	got := c.Drain()
	if len(got) != 1 {
		t.Fatalf("drained %d messages, want 1", len(got))
	}
	room := got[0].Room
	if room == nil {
		t.Fatal("room is nil, want placeholder")
	}
	if room.ID != "r9" || room.Name != "r9" || !room.Private {
		t.Errorf("placeholder room = %+v, want id/name r9, private", room)
	}
}

func TestHandleMessage_NoRoomID(t *testing.T) {
	c := New(defaultAPI(), nil, Options{})

	c.handleMessage(models.Message{
		ID:         "m1",
		FromUserID: "U1",
		Time:       time.Now(),
		Type:       models.MessageTypeMessage,
	})

	got := c.Drain()
	if len(got) != 1 {
		t.Fatalf("drained %d messages, want 1", len(got))
	}
	if got[0].Room != nil {
		t.Errorf("room = %+v, want nil when message carries no room id", got[0].Room)
	}
}

func TestHandleMessage_StartDateFilter(t *testing.T) {
	start := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	c := New(defaultAPI(), nil, Options{StartDate: start})

	base := models.Message{ID: "m", FromUserID: "U1", Type: models.MessageTypeMessage}

	atFilter := base
	atFilter.Time = start
	c.handleMessage(atFilter)
	if got := c.Drain(); len(got) != 0 {
		t.Errorf("message timestamped exactly at the filter date should be dropped, got %d", len(got))
	}

	before := base
	before.Time = start.Add(-time.Hour)
	c.handleMessage(before)
	if got := c.Drain(); len(got) != 0 {
		t.Errorf("message before the filter date should be dropped, got %d", len(got))
	}

	after := base
	after.Time = start.Add(time.Millisecond)
	c.handleMessage(after)
	if got := c.Drain(); len(got) != 1 {
		t.Errorf("message 1ms after the filter date should be kept, got %d", len(got))
	}
}

func TestDrain_FIFOAndEmpty(t *testing.T) {
	c := New(defaultAPI(), nil, Options{})

	for _, id := range []string{"m1", "m2", "m3"} {
		c.handleMessage(models.Message{
			ID:         id,
			FromUserID: "U1",
			Time:       time.Now(),
			Type:       models.MessageTypeMessage,
		})
	}

	got := c.Drain()
	if len(got) != 3 {
		t.Fatalf("drained %d messages, want 3", len(got))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if got[i].Message.ID != want {
			t.Errorf("drain[%d].ID = %q, want %q", i, got[i].Message.ID, want)
		}
	}

	if second := c.Drain(); len(second) != 0 {
		t.Errorf("second immediate Drain() returned %d messages, want 0", len(second))
	}
}

func TestRun_ReadsAndEnqueues(t *testing.T) {
	conn := newFakeConn()
	dialer := &failNDialer{conn: conn}
	c := New(defaultAPI(), dialer, fastOptions())

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	msg := models.Message{
		ID:         "m1",
		FromUserID: "U1",
		RoomID:     "R1",
		Time:       time.Now(),
		Type:       models.MessageTypeMessage,
		Text:       "hello",
	}
	frame, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	conn.frames <- frame
	conn.frames <- []byte("{not json")
	close(conn.frames)

	runErr := c.Run(context.Background())
	if runErr == nil {
		t.Fatal("Run() returned nil, want terminal read error")
	}
	if !errors.Is(runErr, io.EOF) {
		t.Errorf("Run() error = %v, want io.EOF", runErr)
	}

	got := c.Drain()
	if len(got) != 1 {
		t.Fatalf("drained %d messages, want 1 (malformed frame dropped)", len(got))
	}
	if got[0].Message.ID != "m1" {
		t.Errorf("message id = %q, want m1", got[0].Message.ID)
	}
}

// idleConn models a healthy but silent feed: ReadMessage blocks until the
// connection is closed.
type idleConn struct {
	closeOnce sync.Once
	closed    chan struct{}
}

func newIdleConn() *idleConn {
	return &idleConn{closed: make(chan struct{})}
}

func (c *idleConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, net.ErrClosed
}

func (c *idleConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func TestRun_CancellationUnblocksIdleRead(t *testing.T) {
	conn := newIdleConn()
	dialer := &failNDialer{conn: conn}
	c := New(defaultAPI(), dialer, fastOptions())

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

	// Let Run park in ReadMessage before canceling.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-runErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() still blocked after cancellation with no inbound traffic")
	}

	select {
	case <-conn.closed:
	default:
		t.Error("upstream connection left open after cancellation")
	}
}

func TestRun_NotConnected(t *testing.T) {
	c := New(defaultAPI(), nil, Options{})
	if err := c.Run(context.Background()); err == nil {
		t.Fatal("Run() on an unconnected connector must fail")
	}
}

func TestClose_ToleratesCloseFailure(t *testing.T) {
	conn := newFakeConn()
	conn.closeErr = errors.New("broken pipe")
	dialer := &failNDialer{conn: conn}
	c := New(defaultAPI(), dialer, fastOptions())

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	// Must not panic or escalate.
	c.Close()
	if !conn.closed {
		t.Error("underlying connection not closed")
	}

	// Second close is a no-op.
	c.Close()
}
