// ChatAlytics - Realtime Chat Analytics Relay
// Copyright 2026 OpenChatAlytics
// SPDX-License-Identifier: Apache-2.0
// https://github.com/OpenChatAlytics/ChatAlytics

// Package pipeline turns enriched chat messages into analytics entities and
// pushes them to the relay.
package pipeline

import (
	"regexp"
	"strings"

	"github.com/OpenChatAlytics/ChatAlytics/internal/models"
)

var (
	// <@U123ABC> is the encoded form, @handle the plain one.
	mentionPattern = regexp.MustCompile(`<@([A-Z0-9]+)>|@([A-Za-z][A-Za-z0-9._-]*)`)
	emojiPattern   = regexp.MustCompile(`:([a-z0-9_+-]+):`)
)

// Extractor pulls mention and emoji occurrences out of message text. The
// user directory resolves encoded mentions to handles.
type Extractor struct {
	users func() map[string]models.User
}

func NewExtractor(users func() map[string]models.User) *Extractor {
	return &Extractor{users: users}
}

// Mentions returns one entity per distinct mention target in the message,
// with the number of times that target appears.
func (e *Extractor) Mentions(fm models.FatMessage) []models.ChatEntity {
	matches := mentionPattern.FindAllStringSubmatch(fm.Message.Text, -1)
	if len(matches) == 0 {
		return nil
	}

	directory := e.users()
	counts := make(map[string]int)
	order := make([]string, 0, len(matches))
	for _, m := range matches {
		target := m[2]
		if m[1] != "" {
			target = m[1]
			if u, ok := directory[m[1]]; ok && u.MentionName != "" {
				target = u.MentionName
			}
		}
		if counts[target] == 0 {
			order = append(order, target)
		}
		counts[target]++
	}

	entities := make([]models.ChatEntity, 0, len(order))
	for _, target := range order {
		entities = append(entities, models.ChatEntity{
			Username:    fm.User.MentionName,
			RoomName:    fm.RoomName(),
			MentionTime: fm.Message.Time.UTC(),
			Value:       target,
			Occurrences: counts[target],
			Bot:         fm.User.Bot,
		})
	}
	return entities
}

// Emojis returns one entity per distinct emoji name in the message.
func (e *Extractor) Emojis(fm models.FatMessage) []models.EmojiEntity {
	matches := emojiPattern.FindAllStringSubmatch(fm.Message.Text, -1)
	if len(matches) == 0 {
		return nil
	}

	counts := make(map[string]int)
	order := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		if counts[name] == 0 {
			order = append(order, name)
		}
		counts[name]++
	}

	entities := make([]models.EmojiEntity, 0, len(order))
	for _, name := range order {
		entities = append(entities, models.EmojiEntity{
			Username:    fm.User.MentionName,
			RoomName:    fm.RoomName(),
			MentionTime: fm.Message.Time.UTC(),
			Value:       name,
			Occurrences: counts[name],
			Bot:         fm.User.Bot,
		})
	}
	return entities
}
