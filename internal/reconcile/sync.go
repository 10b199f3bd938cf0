// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/catachess/catchat-tui/internal/model"
	"github.com/catachess/catchat-tui/internal/route"
)

// =============================================================================
// THREAD RESOLUTION
// =============================================================================

// Resolve turns the ticket's target into a concrete thread: a username into
// a conversation (get-or-create), a group id into a group. On success it
// returns the ticket with ThreadID filled in.
//
// A non-nil error other than ErrStale means the target cannot be shown and
// the caller should redirect home; the error is not meant for display.
func (e *Engine) Resolve(ctx context.Context, t Ticket) (Ticket, error) {
	switch t.Target.Kind {
	case route.Broadcast:
		e.mu.Lock()
		defer e.mu.Unlock()
		if !e.currentLocked(t) {
			return t, ErrStale
		}
		return e.ticketLocked(), nil

	case route.Direct:
		conv, err := e.resolvePeer(ctx, t.Target.Peer)

		e.mu.Lock()
		defer e.mu.Unlock()
		if !e.currentLocked(t) {
			return t, ErrStale
		}
		if err != nil {
			e.loading = false
			return t, err
		}
		e.upsertConversationLocked(conv)
		e.threadID = conv.ID
		e.resolved = true
		return e.ticketLocked(), nil

	case route.Group:
		g, err := e.backend.GetGroup(ctx, t.Target.GroupID)

		e.mu.Lock()
		defer e.mu.Unlock()
		if !e.currentLocked(t) {
			return t, ErrStale
		}
		if err != nil {
			e.loading = false
			return t, fmt.Errorf("load group: %w", err)
		}
		e.upsertGroupLocked(*g)
		e.threadID = g.ID
		e.resolved = true
		return e.ticketLocked(), nil

	default:
		return t, ErrNoThread
	}
}

// resolvePeer looks up the username and gets-or-creates the conversation,
// returning it enriched with the username.
func (e *Engine) resolvePeer(ctx context.Context, peer string) (model.Conversation, error) {
	user, err := e.backend.UserByUsername(ctx, peer)
	if err != nil {
		return model.Conversation{}, fmt.Errorf("look up %s: %w", peer, err)
	}
	conv, err := e.backend.GetOrCreateConversation(ctx, user.ID)
	if err != nil {
		return model.Conversation{}, fmt.Errorf("open conversation: %w", err)
	}
	enriched := *conv
	enriched.OtherUsername = user.Username
	return enriched, nil
}

// =============================================================================
// HISTORY & POLLING
// =============================================================================

// fetchWindow fetches the newest HistoryLimit messages of the ticket's
// thread and returns them oldest first.
func (e *Engine) fetchWindow(ctx context.Context, t Ticket) ([]model.ThreadMessage, error) {
	limit := e.Options().HistoryLimit

	var out []model.ThreadMessage
	switch t.Target.Kind {
	case route.Direct:
		msgs, err := e.backend.ListMessages(ctx, t.ThreadID, limit)
		if err != nil {
			return nil, err
		}
		out = make([]model.ThreadMessage, len(msgs))
		for i, m := range msgs {
			out[len(msgs)-1-i] = m.Thread()
		}
	case route.Group:
		msgs, err := e.backend.ListGroupMessages(ctx, t.ThreadID, limit)
		if err != nil {
			return nil, err
		}
		out = make([]model.ThreadMessage, len(msgs))
		for i, m := range msgs {
			out[len(msgs)-1-i] = m.Thread()
		}
	case route.Broadcast:
		msgs, err := e.backend.ListBroadcasts(ctx, limit)
		if err != nil {
			return nil, err
		}
		out = make([]model.ThreadMessage, len(msgs))
		for i, m := range msgs {
			out[len(msgs)-1-i] = m.Thread()
		}
	default:
		return nil, ErrNoThread
	}
	return out, nil
}

// LoadHistory replaces the active thread's messages with the newest window
// from the server. On failure the thread is left empty.
func (e *Engine) LoadHistory(ctx context.Context, t Ticket) error {
	if !t.Target.IsThread() || (t.Target.Kind != route.Broadcast && t.ThreadID == "") {
		return ErrNoThread
	}

	msgs, err := e.fetchWindow(ctx, t)

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.currentLocked(t) {
		return ErrStale
	}
	e.loading = false
	e.messages = nil
	e.messageIDs = make(map[string]struct{})
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	e.appendLocked(msgs)
	return nil
}

// Poll re-fetches the active thread's window and appends messages not
// already present. It reads the current target when it starts and again
// when the response arrives. Polling with nothing new is a no-op.
func (e *Engine) Poll(ctx context.Context) (int, error) {
	e.mu.Lock()
	if !e.resolved || !e.target.IsThread() {
		e.mu.Unlock()
		return 0, nil
	}
	t := e.ticketLocked()
	e.mu.Unlock()

	msgs, err := e.fetchWindow(ctx, t)

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.currentLocked(t) {
		return 0, ErrStale
	}
	e.recordBackgroundLocked(err)
	if err != nil {
		return 0, err
	}
	return e.appendLocked(msgs), nil
}

// appendLocked adds the messages whose ids are not yet present, keeping
// their order. It returns how many were added.
func (e *Engine) appendLocked(msgs []model.ThreadMessage) int {
	added := 0
	for _, m := range msgs {
		if _, seen := e.messageIDs[m.ID]; seen {
			continue
		}
		e.messageIDs[m.ID] = struct{}{}
		e.messages = append(e.messages, m)
		added++
	}
	return added
}

// =============================================================================
// LIST REFRESH
// =============================================================================

// RefreshLists re-fetches conversations and groups and replaces the local
// lists wholesale. Usernames learned locally are carried over. Entries
// created or removed locally after the refresh started are kept as they
// are, since the snapshot predates them.
//
// Failures leave the current lists untouched.
func (e *Engine) RefreshLists(ctx context.Context) error {
	e.mu.Lock()
	startRev := e.rev
	epoch := e.epoch
	e.mu.Unlock()

	convs, convErr := e.backend.ListConversations(ctx)
	groups, groupErr := e.backend.ListGroups(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.sameSessionLocked(epoch) {
		return ErrSignedOut
	}

	e.listsLoaded = true
	if convErr == nil {
		e.conversations = e.mergeConversationsLocked(convs, startRev)
	}
	if groupErr == nil {
		e.groups = e.mergeGroupsLocked(groups, startRev)
	}

	err := convErr
	if err == nil {
		err = groupErr
	}
	e.recordBackgroundLocked(err)
	if err != nil {
		return fmt.Errorf("refresh lists: %w", err)
	}
	return nil
}

func (e *Engine) mergeConversationsLocked(server []model.Conversation, startRev uint64) []model.Conversation {
	merged := model.MergeConversations(e.conversations, server)

	inSnapshot := make(map[string]bool, len(server))
	for i, c := range merged {
		inSnapshot[c.ID] = true
		if e.touched[c.ID] > startRev {
			if j := e.conversationIndexLocked(c.ID); j >= 0 {
				merged[i] = e.conversations[j]
			}
		}
	}
	for _, c := range e.conversations {
		if !inSnapshot[c.ID] && e.touched[c.ID] > startRev {
			merged = append(merged, c)
		}
	}
	model.SortConversations(merged)
	return merged
}

func (e *Engine) mergeGroupsLocked(server []model.Group, startRev uint64) []model.Group {
	merged := make([]model.Group, 0, len(server))
	inSnapshot := make(map[string]bool, len(server))
	for _, g := range server {
		inSnapshot[g.ID] = true
		if e.removed[g.ID] > startRev {
			continue
		}
		if e.touched[g.ID] > startRev {
			if i := e.groupIndexLocked(g.ID); i >= 0 {
				merged = append(merged, e.groups[i])
				continue
			}
		}
		merged = append(merged, copyGroup(g))
	}
	for _, g := range e.groups {
		if !inSnapshot[g.ID] && e.touched[g.ID] > startRev {
			merged = append(merged, g)
		}
	}
	model.SortGroups(merged)
	return merged
}

// =============================================================================
// SEND
// =============================================================================

// Send posts content to the active thread. On success the server's message
// is appended (unless a poll already delivered it), and the thread's list
// entry is bumped to the top. If the user navigated away meanwhile, only
// the list bump applies. Failed sends are not retried.
func (e *Engine) Send(ctx context.Context, content string) (model.ThreadMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return model.ThreadMessage{}, ErrEmptyMessage
	}

	e.mu.Lock()
	if !e.resolved || !e.target.IsThread() {
		e.mu.Unlock()
		return model.ThreadMessage{}, ErrNoThread
	}
	t := e.ticketLocked()
	epoch := e.epoch
	e.mu.Unlock()

	var msg model.ThreadMessage
	switch t.Target.Kind {
	case route.Direct:
		m, err := e.backend.SendMessage(ctx, t.ThreadID, content)
		if err != nil {
			return model.ThreadMessage{}, err
		}
		msg = m.Thread()
	case route.Group:
		m, err := e.backend.SendGroupMessage(ctx, t.ThreadID, content)
		if err != nil {
			return model.ThreadMessage{}, err
		}
		msg = m.Thread()
	case route.Broadcast:
		m, err := e.backend.PostBroadcast(ctx, content)
		if err != nil {
			return model.ThreadMessage{}, err
		}
		msg = m.Thread()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.sameSessionLocked(epoch) {
		return msg, ErrSignedOut
	}
	e.bumpLocked(t, msg.CreatedAt)
	if e.currentLocked(t) {
		e.appendLocked([]model.ThreadMessage{msg})
	}
	return msg, nil
}

// bumpLocked moves the ticket's thread to the top of its list.
func (e *Engine) bumpLocked(t Ticket, at time.Time) {
	switch t.Target.Kind {
	case route.Direct:
		if i := e.conversationIndexLocked(t.ThreadID); i >= 0 {
			c := e.conversations[i]
			c.LastMessageAt = &at
			e.upsertConversationLocked(c)
		}
	case route.Group:
		if i := e.groupIndexLocked(t.ThreadID); i >= 0 {
			g := e.groups[i]
			g.LastMessageAt = &at
			e.upsertGroupLocked(g)
		}
	}
}

// =============================================================================
// SEARCH
// =============================================================================

// SearchUser looks up a username. Not-found and failures both report
// found=false; the UI distinguishes nothing else.
func (e *Engine) SearchUser(ctx context.Context, username string) (model.UserLookup, bool) {
	username = strings.TrimSpace(username)
	if username == "" {
		return model.UserLookup{}, false
	}
	u, err := e.backend.UserByUsername(ctx, username)
	if err != nil || u == nil {
		return model.UserLookup{}, false
	}
	return *u, true
}
