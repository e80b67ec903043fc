// ChatAlytics - Realtime Chat Analytics Relay
// Copyright 2026 OpenChatAlytics
// SPDX-License-Identifier: Apache-2.0
// https://github.com/OpenChatAlytics/ChatAlytics

package models

import "time"

// User is a chat user directory record.
type User struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	MentionName string    `json:"mention_name,omitempty"`
	Email       string    `json:"email,omitempty"`
	Timezone    string    `json:"timezone,omitempty"`
	Bot         bool      `json:"bot"`
	Deleted     bool      `json:"deleted"`
	Created     time.Time `json:"created,omitempty"`
}

// PlaceholderUser returns a synthetic bot user minted for a sender id that is
// absent from the directory. Only the id, display name, and bot flag are
// populated; the name is copied from the raw message's sender name field.
func PlaceholderUser(id, name string) User {
	return User{
		ID:          id,
		Name:        name,
		MentionName: name,
		Bot:         true,
		Created:     time.Now().UTC(),
	}
}
