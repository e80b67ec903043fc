// ChatAlytics - Realtime Chat Analytics Relay
// Copyright 2026 OpenChatAlytics
// SPDX-License-Identifier: Apache-2.0
// https://github.com/OpenChatAlytics/ChatAlytics

package models

import "time"

// ChatEntity is an entity mentioned in a chat message, attributed to the
// sending user and room. These are the primary analytics payloads relayed to
// dashboard clients.
type ChatEntity struct {
	Username    string    `json:"username"`
	RoomName    string    `json:"room_name,omitempty"`
	MentionTime time.Time `json:"mention_time"`
	Value       string    `json:"value"`
	Occurrences int       `json:"occurrences"`
	Bot         bool      `json:"bot"`
}

// TypeLabel implements the relay payload capability.
func (ChatEntity) TypeLabel() string { return "chat_entity" }

// EmojiEntity is an emoji occurrence extracted from a chat message.
type EmojiEntity struct {
	Username    string    `json:"username"`
	RoomName    string    `json:"room_name,omitempty"`
	MentionTime time.Time `json:"mention_time"`
	Value       string    `json:"value"`
	Occurrences int       `json:"occurrences"`
	Bot         bool      `json:"bot"`
}

// TypeLabel implements the relay payload capability.
func (EmojiEntity) TypeLabel() string { return "emoji_entity" }
