// ChatAlytics - Realtime Chat Analytics Relay
// Copyright 2026 OpenChatAlytics
// SPDX-License-Identifier: Apache-2.0
// https://github.com/OpenChatAlytics/ChatAlytics

// Package relay defines the wire format of the realtime event relay: the
// Event envelope sent from the compute tier to the broker and on to
// subscribed dashboard clients, and the Payload capability that application
// types implement to be publishable.
//
// The relay has two logical endpoint paths under one listening service:
// PublisherPath accepts the single compute-side producer connection and
// SubscriberPath accepts any number of dashboard consumer connections.
package relay

import (
	"fmt"
	"time"
)

const (
	// PublisherPath is the broker endpoint the compute tier publishes to.
	PublisherPath = "/relay/publisher"
	// SubscriberPath is the broker endpoint dashboard clients subscribe on.
	SubscriberPath = "/relay/subscriber"
)

// Payload is the capability an application type needs to travel through the
// relay. TypeLabel returns the event type string exposed to consumers, by
// convention the lower-snake-case name of the concrete kind
// (e.g. ChatEntity -> "chat_entity").
type Payload interface {
	TypeLabel() string
}

// Event is the relay envelope around an application payload.
//
// Clazz carries the payload's concrete Go type for compute-side debugging
// and is cleared by the broker before fan-out; consumers only ever see the
// declared type label and the payload's own fields.
type Event struct {
	Time    time.Time   `json:"timestamp"`
	Type    string      `json:"type"`
	Clazz   string      `json:"clazz,omitempty"`
	Payload interface{} `json:"payload"`
}

// NewEvent wraps a payload in an Event stamped with the current UTC time.
func NewEvent(p Payload) Event {
	return Event{
		Time:    time.Now().UTC(),
		Type:    p.TypeLabel(),
		Clazz:   fmt.Sprintf("%T", p),
		Payload: p,
	}
}

// StripMetadata returns a copy of the event with internal type metadata
// cleared, the shape consumers are allowed to see.
func (e Event) StripMetadata() Event {
	e.Clazz = ""
	return e
}
