// ChatAlytics - Realtime Chat Analytics Relay
// Copyright 2026 OpenChatAlytics
// SPDX-License-Identifier: Apache-2.0
// https://github.com/OpenChatAlytics/ChatAlytics

package models

// FatMessage is a raw chat message joined with its resolved sender and room
// records. The user is always present; the room is nil when the raw message
// carried no room id. Constructed once by the source connector and never
// mutated afterwards.
type FatMessage struct {
	Message Message `json:"message"`
	User    User    `json:"user"`
	Room    *Room   `json:"room,omitempty"`
}

// RoomName returns the resolved room name, or "" when the message has no room.
func (f FatMessage) RoomName() string {
	if f.Room == nil {
		return ""
	}
	return f.Room.Name
}
