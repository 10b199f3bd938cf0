// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/catachess/catchat-tui/internal/model"
	"github.com/catachess/catchat-tui/internal/route"
)

// =============================================================================
// INTENT MESSAGES
// =============================================================================

// NavigateMsg asks to open a location.
type NavigateMsg struct {
	Target route.Target
}

// LoginSubmitMsg carries the login form.
type LoginSubmitMsg struct {
	Identifier string
	Password   string
	Remember   bool
}

// SendMsg asks to post to the open thread.
type SendMsg struct {
	Content string
}

// SearchPurpose says which dialog a username search is for.
type SearchPurpose int

const (
	SearchForChat SearchPurpose = iota
	SearchForGroup
)

// SearchUserMsg asks to look up a username.
type SearchUserMsg struct {
	Username string
	Purpose  SearchPurpose
}

// CreateGroupMsg asks to create a group. An empty name lets the server
// derive one from the members.
type CreateGroupMsg struct {
	Name    string
	Members []model.UserLookup
}

// RenameGroupMsg asks to rename a group.
type RenameGroupMsg struct {
	GroupID string
	Name    string
}

// AddMemberMsg asks to add a user to a group by username.
type AddMemberMsg struct {
	GroupID  string
	Username string
}

// RemoveMemberMsg asks to remove a member.
type RemoveMemberMsg struct {
	GroupID string
	UserID  string
}

// ChangeRoleMsg asks to promote or demote a member.
type ChangeRoleMsg struct {
	GroupID string
	UserID  string
	Role    model.Role
}

// LeaveGroupMsg asks to leave a group.
type LeaveGroupMsg struct {
	GroupID string
}

// DissolveGroupMsg asks to delete a group. Confirmed is set only after the
// confirmation step.
type DissolveGroupMsg struct {
	GroupID   string
	Confirmed bool
}

// CloseDialogMsg closes the open dialog or panel.
type CloseDialogMsg struct{}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}
