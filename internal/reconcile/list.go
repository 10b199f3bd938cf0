// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"time"

	"github.com/catachess/catchat-tui/internal/model"
	"github.com/catachess/catchat-tui/internal/route"
	"github.com/catachess/catchat-tui/internal/util"
)

// BroadcastTitle is the list label of the broadcast feed.
const BroadcastTitle = "Broadcasts"

// ItemKind is the variant of a list Item.
type ItemKind int

const (
	ItemBroadcast ItemKind = iota
	ItemConversation
	ItemGroup
)

// Item is one row of the unified thread list.
type Item struct {
	Kind         ItemKind
	Conversation model.Conversation
	Group        model.Group
}

// Title returns the row label.
func (it Item) Title() string {
	switch it.Kind {
	case ItemConversation:
		return it.Conversation.DisplayName()
	case ItemGroup:
		return it.Group.Name
	default:
		return BroadcastTitle
	}
}

// SortKey returns the row's recency key; zero for the broadcast row.
func (it Item) SortKey() time.Time {
	switch it.Kind {
	case ItemConversation:
		return it.Conversation.SortKey()
	case ItemGroup:
		return it.Group.SortKey()
	default:
		return time.Time{}
	}
}

// LastActivity returns when the thread last had a message, if known.
func (it Item) LastActivity() *time.Time {
	switch it.Kind {
	case ItemConversation:
		return it.Conversation.LastMessageAt
	case ItemGroup:
		return it.Group.LastMessageAt
	default:
		return nil
	}
}

// Target returns where selecting the row navigates. ok is false for a
// conversation whose peer username is not known yet.
func (it Item) Target() (route.Target, bool) {
	switch it.Kind {
	case ItemConversation:
		if it.Conversation.OtherUsername == "" {
			return route.Home, false
		}
		return route.DirectTo(it.Conversation.OtherUsername), true
	case ItemGroup:
		return route.GroupOf(it.Group.ID), true
	default:
		return route.BroadcastFeed(), true
	}
}

// Matches reports whether the row is the given target.
func (it Item) Matches(t route.Target) bool {
	want, ok := it.Target()
	return ok && want.Key() == t.Key()
}

// Items returns the unified list: the broadcast feed first, then
// conversations and groups interleaved, most recently active first.
func (e *Engine) Items() []Item {
	e.mu.Lock()
	convs := append([]model.Conversation(nil), e.conversations...)
	groups := make([]model.Group, len(e.groups))
	for i, g := range e.groups {
		groups[i] = copyGroup(g)
	}
	e.mu.Unlock()

	return interleave(convs, groups)
}

// FilterItems returns Items whose title contains query, ignoring case and
// Unicode normalisation form. An empty query returns everything.
func (e *Engine) FilterItems(query string) []Item {
	items := e.Items()
	if util.Fold(query) == "" {
		return items
	}
	out := items[:0]
	for _, it := range items {
		if util.ContainsFold(it.Title(), query) {
			out = append(out, it)
		}
	}
	return out
}

// interleave merges two lists already sorted by recency. Conversations win
// ties.
func interleave(convs []model.Conversation, groups []model.Group) []Item {
	out := make([]Item, 0, 1+len(convs)+len(groups))
	out = append(out, Item{Kind: ItemBroadcast})

	i, j := 0, 0
	for i < len(convs) || j < len(groups) {
		takeConv := j >= len(groups) ||
			(i < len(convs) && !groups[j].SortKey().After(convs[i].SortKey()))
		if takeConv {
			out = append(out, Item{Kind: ItemConversation, Conversation: convs[i]})
			i++
		} else {
			out = append(out, Item{Kind: ItemGroup, Group: groups[j]})
			j++
		}
	}
	return out
}
