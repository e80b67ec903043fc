// ChatAlytics - Realtime Chat Analytics Relay
// Copyright 2026 OpenChatAlytics
// SPDX-License-Identifier: Apache-2.0
// https://github.com/OpenChatAlytics/ChatAlytics

// Package chatapi talks to the chat provider's REST API: the user and room
// directories used for message enrichment, and the realtime endpoint
// discovery handshake.
package chatapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/OpenChatAlytics/ChatAlytics/internal/models"
)

const defaultRequestTimeout = 10 * time.Second

// Client is a minimal REST client for a Slack-compatible API surface.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient returns a Client rooted at baseURL, authenticating every request
// with token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: defaultRequestTimeout},
	}
}

type apiEnvelope struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error"`
	Metadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

type userRecord struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsBot   bool   `json:"is_bot"`
	Deleted bool   `json:"deleted"`
	TZ      string `json:"tz"`
	Updated int64  `json:"updated"`
	Profile struct {
		RealName string `json:"real_name"`
		Email    string `json:"email"`
	} `json:"profile"`
}

type roomRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Private  bool   `json:"is_private"`
	Archived bool   `json:"is_archived"`
	Created  int64  `json:"created"`
	Topic    struct {
		Value string `json:"value"`
	} `json:"topic"`
}

// Users fetches the full user directory, following cursor pagination.
func (c *Client) Users(ctx context.Context) (map[string]models.User, error) {
	users := make(map[string]models.User)
	cursor := ""
	for {
		var page struct {
			apiEnvelope
			Members []userRecord `json:"members"`
		}
		if err := c.call(ctx, "users.list", cursor, &page); err != nil {
			return nil, err
		}
		for _, m := range page.Members {
			u := models.User{
				ID:          m.ID,
				Name:        m.Profile.RealName,
				MentionName: m.Name,
				Email:       m.Profile.Email,
				Timezone:    m.TZ,
				Bot:         m.IsBot,
				Deleted:     m.Deleted,
				Created:     time.Unix(m.Updated, 0).UTC(),
			}
			if u.Name == "" {
				u.Name = m.Name
			}
			users[u.ID] = u
		}
		cursor = page.Metadata.NextCursor
		if cursor == "" {
			return users, nil
		}
	}
}

// Rooms fetches the full room directory, following cursor pagination.
func (c *Client) Rooms(ctx context.Context) (map[string]models.Room, error) {
	rooms := make(map[string]models.Room)
	cursor := ""
	for {
		var page struct {
			apiEnvelope
			Channels []roomRecord `json:"channels"`
		}
		if err := c.call(ctx, "conversations.list", cursor, &page); err != nil {
			return nil, err
		}
		for _, ch := range page.Channels {
			rooms[ch.ID] = models.Room{
				ID:       ch.ID,
				Name:     ch.Name,
				Topic:    ch.Topic.Value,
				Created:  time.Unix(ch.Created, 0).UTC(),
				Private:  ch.Private,
				Archived: ch.Archived,
			}
		}
		cursor = page.Metadata.NextCursor
		if cursor == "" {
			return rooms, nil
		}
	}
}

// RealtimeURL performs the realtime handshake and returns the websocket URL
// to dial. The URL is single-use and must be re-fetched for every dial.
func (c *Client) RealtimeURL(ctx context.Context) (string, error) {
	var resp struct {
		apiEnvelope
		URL string `json:"url"`
	}
	if err := c.call(ctx, "rtm.connect", "", &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", fmt.Errorf("rtm.connect: response carried no url")
	}
	return resp.URL, nil
}

// call performs one GET against the named API method and decodes the
// response into out, which must embed apiEnvelope.
func (c *Client) call(ctx context.Context, method, cursor string, out any) error {
	endpoint := c.baseURL + "/" + method
	if cursor != "" {
		endpoint += "?cursor=" + url.QueryEscape(cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", method, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", method, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}

	env := envelopeOf(out)
	if env != nil && !env.OK {
		return fmt.Errorf("%s: api error: %s", method, env.Error)
	}
	return nil
}

type enveloped interface{ envelope() *apiEnvelope }

func (e *apiEnvelope) envelope() *apiEnvelope { return e }

func envelopeOf(out any) *apiEnvelope {
	if e, ok := out.(enveloped); ok {
		return e.envelope()
	}
	return nil
}
