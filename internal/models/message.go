// ChatAlytics - Realtime Chat Analytics Relay
// Copyright 2026 OpenChatAlytics
// SPDX-License-Identifier: Apache-2.0
// https://github.com/OpenChatAlytics/ChatAlytics

// Package models defines the data types shared across the ChatAlytics
// pipeline: raw chat messages as received from the upstream feed, directory
// records for users and rooms, enriched (fat) messages, and the extracted
// entity payloads relayed to dashboards.
package models

import "time"

// MessageType tags the kind of an inbound chat message.
type MessageType string

const (
	// MessageTypeMessage is a regular user-authored chat message.
	MessageTypeMessage MessageType = "message"
	// MessageTypeBotMessage is a message authored by a bot integration.
	MessageTypeBotMessage MessageType = "bot_message"
	// MessageTypeChannelJoin marks a user joining a room.
	MessageTypeChannelJoin MessageType = "channel_join"
	// MessageTypeMessageChanged marks an edit of a previous message.
	MessageTypeMessageChanged MessageType = "message_changed"
	// MessageTypeUnknown is any event kind this pipeline does not model.
	MessageTypeUnknown MessageType = "unknown"
)

// Message is a raw chat message as received from the upstream realtime feed.
// Immutable once decoded.
type Message struct {
	ID         string      `json:"id"`
	FromUserID string      `json:"from_user_id"`
	FromName   string      `json:"from_name,omitempty"`
	RoomID     string      `json:"room_id,omitempty"`
	Time       time.Time   `json:"time"`
	Type       MessageType `json:"type"`
	Text       string      `json:"text"`
}

// IsBot reports whether the message was authored by a bot integration.
func (m Message) IsBot() bool {
	return m.Type == MessageTypeBotMessage
}
