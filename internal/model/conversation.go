// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sort"
	"time"

	"github.com/catachess/catchat-tui/internal/util"
)

// Conversation is a direct thread between the current user and one peer.
// The server keeps at most one per pair, so creating one is get-or-create.
type Conversation struct {
	ID            string     `json:"id"`
	OtherUserID   string     `json:"other_user_id"`
	OtherUsername string     `json:"other_username,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// SortKey returns the later of LastMessageAt and CreatedAt.
func (c Conversation) SortKey() time.Time {
	return latest(c.LastMessageAt, c.CreatedAt)
}

// DisplayName returns the peer's username, or an abbreviated user id when
// the username has not been learned yet.
func (c Conversation) DisplayName() string {
	if c.OtherUsername != "" {
		return c.OtherUsername
	}
	return util.ShortID(c.OtherUserID)
}

// MergeConversation combines a locally known conversation with a fresh copy
// from the server. Server fields win, except OtherUsername which keeps the
// local value when the server omitted it.
func MergeConversation(local, server Conversation) Conversation {
	merged := server
	if merged.OtherUsername == "" {
		merged.OtherUsername = local.OtherUsername
	}
	return merged
}

// MergeConversations applies MergeConversation across a fresh server list,
// carrying usernames forward from local by id. The result contains exactly
// the server's conversations.
func MergeConversations(local, server []Conversation) []Conversation {
	known := make(map[string]Conversation, len(local))
	for _, c := range local {
		known[c.ID] = c
	}
	out := make([]Conversation, len(server))
	for i, c := range server {
		if prev, ok := known[c.ID]; ok {
			c = MergeConversation(prev, c)
		}
		out[i] = c
	}
	return out
}

// SortConversations orders conversations most recently active first.
// The sort is stable so equal keys keep their relative order between
// refreshes.
func SortConversations(convs []Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].SortKey().After(convs[j].SortKey())
	})
}

func latest(t *time.Time, fallback time.Time) time.Time {
	if t != nil && t.After(fallback) {
		return *t
	}
	return fallback
}
