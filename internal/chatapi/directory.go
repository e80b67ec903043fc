// ChatAlytics - Realtime Chat Analytics Relay
// Copyright 2026 OpenChatAlytics
// SPDX-License-Identifier: Apache-2.0
// https://github.com/OpenChatAlytics/ChatAlytics

package chatapi

import (
	"context"
	"fmt"
	"sync"

	"github.com/OpenChatAlytics/ChatAlytics/internal/logging"
	"github.com/OpenChatAlytics/ChatAlytics/internal/models"
)

// Directory caches the user and room listings so that per-message enrichment
// never touches the network. Refresh replaces both maps atomically.
type Directory struct {
	client *Client

	mu    sync.RWMutex
	users map[string]models.User
	rooms map[string]models.Room
}

// NewDirectory returns an empty Directory backed by client. Call Refresh
// before use.
func NewDirectory(client *Client) *Directory {
	return &Directory{
		client: client,
		users:  make(map[string]models.User),
		rooms:  make(map[string]models.Room),
	}
}

// Refresh re-fetches both listings. On failure the previous snapshot is kept.
func (d *Directory) Refresh(ctx context.Context) error {
	users, err := d.client.Users(ctx)
	if err != nil {
		return fmt.Errorf("refresh user directory: %w", err)
	}
	rooms, err := d.client.Rooms(ctx)
	if err != nil {
		return fmt.Errorf("refresh room directory: %w", err)
	}

	d.mu.Lock()
	d.users = users
	d.rooms = rooms
	d.mu.Unlock()

	logging.Info().
		Int("users", len(users)).
		Int("rooms", len(rooms)).
		Msg("chat directory refreshed")
	return nil
}

// GetUsers returns the cached user directory.
func (d *Directory) GetUsers() map[string]models.User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.users
}

// GetRooms returns the cached room directory.
func (d *Directory) GetRooms() map[string]models.Room {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rooms
}

// RealtimeURL delegates to the underlying client; the handshake must be
// repeated for every dial, so nothing is cached.
func (d *Directory) RealtimeURL(ctx context.Context) (string, error) {
	return d.client.RealtimeURL(ctx)
}
