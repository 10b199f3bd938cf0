// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the background sync clocks of a signed-in session.
//
// Two clocks run while a user is signed in: the active-thread poll
// (default 3s) and the conversation/group list refresh (default 8s). Both
// are long-lived; they do not restart on navigation. Each tick carries the
// generation it was scheduled under, so changing an interval or stopping
// the session neutralises ticks already in flight instead of doubling the
// chain.
//
// # Key Types
//
//   - Manager: the two clocks
//   - PollTickMsg, ListTickMsg: Bubble Tea messages delivered on each tick
//
// # Usage
//
//	mgr := session.NewManager(session.Config{
//	    PollInterval: cfg.Sync.PollInterval(),
//	    ListRefresh:  cfg.Sync.ListRefresh(),
//	})
//	cmd := mgr.Start()
//
//	// in Update:
//	case session.PollTickMsg:
//	    if next, ok := mgr.HandlePoll(msg); ok {
//	        return m, tea.Batch(next, pollCmd)
//	    }
package session
