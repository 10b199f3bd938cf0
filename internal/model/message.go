// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// Message is an entry in a direct conversation. Immutable once created.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	SenderName     *string   `json:"sender_name"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// GroupMessage is an entry in a group thread. The server always fills
// SenderName.
type GroupMessage struct {
	ID         string    `json:"id"`
	GroupID    string    `json:"group_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// Broadcast is an entry in the global announcement feed.
type Broadcast struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	SenderName *string   `json:"sender_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// =============================================================================
// THREAD MESSAGE
// =============================================================================

// ThreadKind identifies which kind of thread a message belongs to.
type ThreadKind int

const (
	ThreadDirect ThreadKind = iota
	ThreadGroup
	ThreadBroadcast
)

// String returns the string representation of the thread kind.
func (k ThreadKind) String() string {
	switch k {
	case ThreadDirect:
		return "direct"
	case ThreadGroup:
		return "group"
	case ThreadBroadcast:
		return "broadcast"
	default:
		return "unknown"
	}
}

// ThreadMessage is the common view of Message, GroupMessage and Broadcast
// that the sync engine and thread view work with.
type ThreadMessage struct {
	ID         string
	Kind       ThreadKind
	ThreadID   string // conversation or group id; empty for broadcasts
	SenderID   string
	SenderName string
	Content    string
	CreatedAt  time.Time
}

// Thread converts a direct message.
func (m Message) Thread() ThreadMessage {
	return ThreadMessage{
		ID:         m.ID,
		Kind:       ThreadDirect,
		ThreadID:   m.ConversationID,
		SenderID:   m.SenderID,
		SenderName: deref(m.SenderName),
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
	}
}

// Thread converts a group message.
func (m GroupMessage) Thread() ThreadMessage {
	return ThreadMessage{
		ID:         m.ID,
		Kind:       ThreadGroup,
		ThreadID:   m.GroupID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
	}
}

// Thread converts a broadcast.
func (b Broadcast) Thread() ThreadMessage {
	return ThreadMessage{
		ID:         b.ID,
		Kind:       ThreadBroadcast,
		SenderID:   b.SenderID,
		SenderName: deref(b.SenderName),
		Content:    b.Content,
		CreatedAt:  b.CreatedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
