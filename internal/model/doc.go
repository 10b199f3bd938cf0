// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the wire types exchanged with the catchat REST API
// and the small amount of client-side logic attached to them.
//
// All entities are owned by the server. The client holds read-through copies
// that are replaced on refresh or merged by id.
//
// # Key Types
//
//   - Conversation: a two-party direct thread
//   - Group, GroupMember, Role: multi-party threads and their roster
//   - Message, GroupMessage, Broadcast: immutable thread entries
//   - ThreadMessage: the unified view of the three message shapes
//   - CurrentUser, UserLookup: identity and username search results
//
// # Roles
//
// Roles form a strict order owner > admin > member. The Can* functions
// decide which group actions the UI offers; the server remains the
// authority.
//
//	if model.CanRemove(me.Role, target.Role, me.UserID == target.UserID) {
//	    // offer "Remove from group"
//	}
package model
