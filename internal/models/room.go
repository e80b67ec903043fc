// ChatAlytics - Realtime Chat Analytics Relay
// Copyright 2026 OpenChatAlytics
// SPDX-License-Identifier: Apache-2.0
// https://github.com/OpenChatAlytics/ChatAlytics

package models

import "time"

// Room is a chat room directory record.
type Room struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Topic    string    `json:"topic,omitempty"`
	Created  time.Time `json:"created,omitempty"`
	Private  bool      `json:"private"`
	Archived bool      `json:"archived"`
}

// PlaceholderRoom returns a synthetic room minted for a room id that is
// present on a message but absent from the directory. Both id and name are
// set to the raw room id and the room is marked private.
func PlaceholderRoom(id string) Room {
	return Room{
		ID:      id,
		Name:    id,
		Private: true,
		Created: time.Now().UTC(),
	}
}
