// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import "errors"

var (
	// ErrStale means the result arrived for a target that is no longer
	// active and was discarded.
	ErrStale = errors.New("result no longer applies to the active thread")

	// ErrSignedOut means the engine was reset while the request was in
	// flight; its result was discarded.
	ErrSignedOut = errors.New("signed out before the result arrived")

	// ErrNoThread means the operation needs an open, resolved thread.
	ErrNoThread = errors.New("no active thread")

	// ErrEmptyMessage means the content was empty after trimming; nothing
	// was sent.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrNotPermitted means the signed-in user's role does not allow the
	// action. No request was sent.
	ErrNotPermitted = errors.New("not permitted for your role")

	// ErrNotConfirmed means an irreversible action was requested without
	// confirmation.
	ErrNotConfirmed = errors.New("confirmation required")

	// ErrUnknownGroup means the group is not in the local group list.
	ErrUnknownGroup = errors.New("unknown group")

	// ErrNoMembers means a group was requested without any members.
	ErrNoMembers = errors.New("select at least one member")

	// ErrNameTooLong means a group name exceeds MaxGroupNameLength.
	ErrNameTooLong = errors.New("group name is too long")

	// ErrNotSignedIn means the current user has not been loaded yet.
	ErrNotSignedIn = errors.New("current user not loaded")
)
