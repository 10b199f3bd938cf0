// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reconcile keeps catchat's local copies of conversations, groups
// and the open thread in step with the server.
//
// The Engine owns three collections: the conversation list, the group list
// (both ordered most recently active first) and the active thread's
// messages (chronological). Callers drive it from timers and user actions:
//
//	t := eng.Navigate(route.DirectTo("bob"))  // on every location change
//	t, err := eng.Resolve(ctx, t)              // peer -> conversation
//	err = eng.LoadHistory(ctx, t)              // full replace, newest 50
//	added, err := eng.Poll(ctx)                // every 3s, append-only
//	err = eng.RefreshLists(ctx)                // every 8s, wholesale
//	msg, err := eng.Send(ctx, "hello")         // append + bump + re-sort
//
// # Staleness
//
// Requests are never cancelled. Instead each navigation bumps a generation
// counter stored next to the current target, and every result re-reads that
// cell when it arrives. A result issued for a target that is no longer
// current is dropped and the call returns ErrStale.
//
// # Deduplication
//
// Every merge into the active thread filters incoming messages against the
// ids already present, so overlapping polls and sends never double-insert.
//
// All methods are safe for concurrent use; network calls are made without
// holding the engine lock.
package reconcile
