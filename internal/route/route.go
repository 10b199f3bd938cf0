// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package route turns location strings into the thread the user wants to
// see.
//
// Locations have the same shapes as the web client's paths:
//
//	/                 home, no thread selected
//	/chat/{peer}      direct conversation with a username
//	/group/{id}       group thread
//	/broadcast        the broadcast feed
//	/login            sign-in screen
//
// Parse is the only function that inspects location strings; everything
// else works with Target.
package route

import (
	"net/url"
	"strings"
)

// Kind is the variant of a Target.
type Kind int

const (
	None Kind = iota
	Direct
	Group
	Broadcast
	Login
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Direct:
		return "direct"
	case Group:
		return "group"
	case Broadcast:
		return "broadcast"
	case Login:
		return "login"
	default:
		return "unknown"
	}
}

// Target is what a location points at. Peer is set for Direct, GroupID for
// Group.
type Target struct {
	Kind    Kind
	Peer    string
	GroupID string
}

// Home is the default thread-less target.
var Home = Target{Kind: None}

// DirectTo returns the target for a conversation with peer.
func DirectTo(peer string) Target { return Target{Kind: Direct, Peer: peer} }

// GroupOf returns the target for a group.
func GroupOf(id string) Target { return Target{Kind: Group, GroupID: id} }

// BroadcastFeed returns the broadcast target.
func BroadcastFeed() Target { return Target{Kind: Broadcast} }

// LoginScreen returns the sign-in target.
func LoginScreen() Target { return Target{Kind: Login} }

// IsThread reports whether the target selects a thread.
func (t Target) IsThread() bool {
	return t.Kind == Direct || t.Kind == Group || t.Kind == Broadcast
}

// Key identifies the thread for staleness checks: two targets with the same
// key show the same thread.
func (t Target) Key() string {
	switch t.Kind {
	case Direct:
		return "chat:" + strings.ToLower(t.Peer)
	case Group:
		return "group:" + t.GroupID
	case Broadcast:
		return "broadcast"
	case Login:
		return "login"
	default:
		return ""
	}
}

// Location renders the target back to its canonical location.
func (t Target) Location() string {
	switch t.Kind {
	case Direct:
		return "/chat/" + url.PathEscape(t.Peer)
	case Group:
		return "/group/" + url.PathEscape(t.GroupID)
	case Broadcast:
		return "/broadcast"
	case Login:
		return "/login"
	default:
		return "/"
	}
}

// String returns the target's location.
func (t Target) String() string {
	return t.Location()
}

// Parse maps a location to a Target. Unknown or malformed locations map to
// Home, matching how the web client's catch-all route redirects.
func Parse(location string) Target {
	path := location
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return Home
	}

	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 1 && parts[0] == "broadcast":
		return BroadcastFeed()
	case len(parts) == 1 && parts[0] == "login":
		return LoginScreen()
	case len(parts) == 2 && parts[0] == "chat":
		if peer := unescape(parts[1]); peer != "" {
			return DirectTo(peer)
		}
	case len(parts) == 2 && parts[0] == "group":
		if id := unescape(parts[1]); id != "" {
			return GroupOf(id)
		}
	}
	return Home
}

// ExtractToken pulls a `token` query parameter out of location. It returns
// the location with the parameter removed, and the token if one was present.
// The cleaned location is what gets displayed and kept in history.
func ExtractToken(location string) (clean, token string) {
	u, err := url.Parse(location)
	if err != nil {
		return location, ""
	}
	q := u.Query()
	token = q.Get("token")
	if !q.Has("token") {
		return location, ""
	}
	q.Del("token")
	u.RawQuery = q.Encode()
	clean = u.String()
	if clean == "" {
		clean = "/"
	}
	return clean, token
}

func unescape(s string) string {
	out, err := url.PathUnescape(s)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}
