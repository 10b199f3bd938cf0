// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/catachess/catchat-tui/internal/api"
	"github.com/catachess/catchat-tui/internal/model"
)

// AddOutcome is the result of adding a member by username.
type AddOutcome int

const (
	AddedMember AddOutcome = iota
	AlreadyMember
	UserNotFound
	AddFailed
)

// Message returns the inline text shown for the outcome.
func (o AddOutcome) Message() string {
	switch o {
	case AddedMember:
		return "Member added"
	case AlreadyMember:
		return "Already a member"
	case UserNotFound:
		return "User not found"
	default:
		return "Could not add member"
	}
}

// myRoleLocked returns the signed-in user's role in a locally known group.
func (e *Engine) myRoleLocked(groupID string) (model.Group, model.Role, error) {
	if e.me == nil {
		return model.Group{}, "", ErrNotSignedIn
	}
	i := e.groupIndexLocked(groupID)
	if i < 0 {
		return model.Group{}, "", ErrUnknownGroup
	}
	g := copyGroup(e.groups[i])
	return g, g.RoleOf(e.me.ID), nil
}

func (e *Engine) groupRole(groupID string) (model.Group, model.Role, string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, role, err := e.myRoleLocked(groupID)
	if err != nil {
		return g, role, "", err
	}
	return g, role, e.me.ID, nil
}

// CreateGroup creates a group with the given members. The name is optional
// (the server derives one) and limited to MaxGroupNameLength characters.
func (e *Engine) CreateGroup(ctx context.Context, name string, members []model.UserLookup) (model.Group, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxGroupNameLength {
		return model.Group{}, ErrNameTooLong
	}
	if len(members) == 0 {
		return model.Group{}, ErrNoMembers
	}
	epoch := e.sessionEpoch()

	payload := make([]model.NewMember, len(members))
	for i, m := range members {
		payload[i] = model.NewMember{UserID: m.ID, Username: m.Username}
	}

	g, err := e.backend.CreateGroup(ctx, name, payload)
	if err != nil {
		return model.Group{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.sameSessionLocked(epoch) {
		return model.Group{}, ErrSignedOut
	}
	e.upsertGroupLocked(*g)
	return copyGroup(*g), nil
}

// RenameGroup renames a group. Empty or unchanged names are ignored and no
// request is sent; changed reports whether a rename happened.
func (e *Engine) RenameGroup(ctx context.Context, groupID, name string) (changed bool, err error) {
	epoch := e.sessionEpoch()
	g, role, _, err := e.groupRole(groupID)
	if err != nil {
		return false, err
	}
	name = strings.TrimSpace(name)
	if name == "" || name == g.Name {
		return false, nil
	}
	if utf8.RuneCountInString(name) > MaxGroupNameLength {
		return false, ErrNameTooLong
	}
	if !model.CanRename(role) {
		return false, ErrNotPermitted
	}

	updated, err := e.backend.RenameGroup(ctx, groupID, name)
	if err != nil {
		return false, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.sameSessionLocked(epoch) {
		return false, ErrSignedOut
	}
	e.upsertGroupLocked(*updated)
	return true, nil
}

// AddMember adds a user by username and reports one of four outcomes. The
// error is only set for AddFailed and permission failures.
func (e *Engine) AddMember(ctx context.Context, groupID, username string) (AddOutcome, error) {
	epoch := e.sessionEpoch()
	g, role, _, err := e.groupRole(groupID)
	if err != nil {
		return AddFailed, err
	}
	if !model.CanAddMember(role) {
		return AddFailed, ErrNotPermitted
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return AddFailed, fmt.Errorf("username required")
	}
	if g.HasUsername(username) {
		return AlreadyMember, nil
	}

	user, err := e.backend.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return UserNotFound, nil
		}
		return AddFailed, err
	}

	updated, err := e.backend.AddMember(ctx, groupID, model.NewMember{UserID: user.ID, Username: user.Username})
	if err != nil {
		switch {
		case errors.Is(err, api.ErrConflict):
			return AlreadyMember, nil
		case errors.Is(err, api.ErrNotFound):
			return UserNotFound, nil
		}
		return AddFailed, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.sameSessionLocked(epoch) {
		return AddFailed, ErrSignedOut
	}
	e.upsertGroupLocked(*updated)
	return AddedMember, nil
}

// RemoveMember removes another member. Allowed only when the signed-in
// user outranks the target.
func (e *Engine) RemoveMember(ctx context.Context, groupID, userID string) error {
	epoch := e.sessionEpoch()
	g, role, me, err := e.groupRole(groupID)
	if err != nil {
		return err
	}
	target, ok := g.Member(userID)
	if !ok {
		return fmt.Errorf("user %s is not a member", userID)
	}
	if !model.CanRemove(role, target.Role, userID == me) {
		return ErrNotPermitted
	}

	if err := e.backend.RemoveMember(ctx, groupID, userID); err != nil {
		return err
	}
	return e.applyRoster(epoch, groupID, func(g model.Group) model.Group { return g.WithoutMember(userID) })
}

// ChangeRole promotes or demotes a member. Owner only; the owner's own role
// never changes and only admin/member are assignable.
func (e *Engine) ChangeRole(ctx context.Context, groupID, userID string, newRole model.Role) error {
	if newRole != model.RoleAdmin && newRole != model.RoleMember {
		return fmt.Errorf("cannot assign role %q", newRole)
	}
	epoch := e.sessionEpoch()
	g, role, me, err := e.groupRole(groupID)
	if err != nil {
		return err
	}
	target, ok := g.Member(userID)
	if !ok {
		return fmt.Errorf("user %s is not a member", userID)
	}
	if !model.CanChangeRole(role, target.Role, userID == me) {
		return ErrNotPermitted
	}
	if target.Role == newRole {
		return nil
	}

	if err := e.backend.ChangeRole(ctx, groupID, userID, newRole); err != nil {
		return err
	}
	return e.applyRoster(epoch, groupID, func(g model.Group) model.Group { return g.WithRole(userID, newRole) })
}

// LeaveGroup removes the signed-in user from a group. The owner cannot
// leave.
func (e *Engine) LeaveGroup(ctx context.Context, groupID string) error {
	epoch := e.sessionEpoch()
	_, role, me, err := e.groupRole(groupID)
	if err != nil {
		return err
	}
	if !model.CanLeave(role) {
		return ErrNotPermitted
	}
	if err := e.backend.RemoveMember(ctx, groupID, me); err != nil {
		return err
	}
	return e.dropGroup(epoch, groupID)
}

// DissolveGroup deletes a group. Owner only, and confirmed must be true.
func (e *Engine) DissolveGroup(ctx context.Context, groupID string, confirmed bool) error {
	epoch := e.sessionEpoch()
	_, role, _, err := e.groupRole(groupID)
	if err != nil {
		return err
	}
	if !model.CanDissolve(role) {
		return ErrNotPermitted
	}
	if !confirmed {
		return ErrNotConfirmed
	}
	if err := e.backend.DeleteGroup(ctx, groupID); err != nil {
		return err
	}
	return e.dropGroup(epoch, groupID)
}

func (e *Engine) applyRoster(epoch uint64, groupID string, edit func(model.Group) model.Group) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.sameSessionLocked(epoch) {
		return ErrSignedOut
	}
	if i := e.groupIndexLocked(groupID); i >= 0 {
		e.upsertGroupLocked(edit(e.groups[i]))
	}
	return nil
}

func (e *Engine) dropGroup(epoch uint64, groupID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.sameSessionLocked(epoch) {
		return ErrSignedOut
	}
	e.removeGroupLocked(groupID)
	return nil
}
