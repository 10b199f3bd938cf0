// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sort"
	"strings"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role is a member's standing within a group.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Rank returns 3 for owner, 2 for admin, 1 for member and 0 for anything
// the client does not recognise.
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleAdmin:
		return 2
	case RoleMember:
		return 1
	default:
		return 0
	}
}

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Badge returns the label shown next to a member in the roster.
func (r Role) Badge() string {
	switch r {
	case RoleOwner:
		return "Owner"
	case RoleAdmin:
		return "Admin"
	case RoleMember:
		return "Member"
	default:
		return string(r)
	}
}

// =============================================================================
// PERMISSIONS
// =============================================================================

// CanRemove reports whether actor may remove target from a group. Rank must
// be strictly greater and nobody removes themselves this way (see CanLeave).
func CanRemove(actor, target Role, self bool) bool {
	if self {
		return false
	}
	return actor.Rank() > target.Rank()
}

// CanChangeRole reports whether actor may move target between admin and
// member. Only the owner may, and the owner role itself never changes.
func CanChangeRole(actor, target Role, self bool) bool {
	if self {
		return false
	}
	return actor == RoleOwner && target != RoleOwner && target.Valid()
}

// CanRename reports whether actor may rename the group.
func CanRename(actor Role) bool {
	return actor.Rank() >= RoleAdmin.Rank()
}

// CanAddMember reports whether actor may add members by username.
func CanAddMember(actor Role) bool {
	return actor.Rank() >= RoleAdmin.Rank()
}

// CanDissolve reports whether actor may delete the group outright.
func CanDissolve(actor Role) bool {
	return actor == RoleOwner
}

// CanLeave reports whether actor may remove themselves. The owner cannot
// leave; they dissolve instead.
func CanLeave(actor Role) bool {
	return actor.Valid() && actor != RoleOwner
}

// =============================================================================
// GROUP TYPES
// =============================================================================

// GroupMember is one entry of a group's roster.
type GroupMember struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// Group is a multi-party thread.
type Group struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	CreatedBy     string        `json:"created_by"`
	CreatedAt     time.Time     `json:"created_at"`
	LastMessageAt *time.Time    `json:"last_message_at"`
	Members       []GroupMember `json:"members"`
}

// SortKey returns the later of LastMessageAt and CreatedAt.
func (g Group) SortKey() time.Time {
	return latest(g.LastMessageAt, g.CreatedAt)
}

// Member returns the roster entry for userID.
func (g Group) Member(userID string) (GroupMember, bool) {
	for _, m := range g.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return GroupMember{}, false
}

// RoleOf returns userID's role, or the empty role when they are not a
// member.
func (g Group) RoleOf(userID string) Role {
	m, _ := g.Member(userID)
	return m.Role
}

// HasUsername reports whether a member with the given username (case
// insensitive) is already in the roster.
func (g Group) HasUsername(username string) bool {
	for _, m := range g.Members {
		if strings.EqualFold(m.Username, username) {
			return true
		}
	}
	return false
}

// SortedMembers returns a copy of the roster ordered by role rank, highest
// first, then by username.
func (g Group) SortedMembers() []GroupMember {
	out := make([]GroupMember, len(g.Members))
	copy(out, g.Members)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Role.Rank(), out[j].Role.Rank()
		if ri != rj {
			return ri > rj
		}
		return strings.ToLower(out[i].Username) < strings.ToLower(out[j].Username)
	})
	return out
}

// WithoutMember returns a copy of g with userID removed from the roster.
func (g Group) WithoutMember(userID string) Group {
	members := make([]GroupMember, 0, len(g.Members))
	for _, m := range g.Members {
		if m.UserID != userID {
			members = append(members, m)
		}
	}
	g.Members = members
	return g
}

// WithRole returns a copy of g with userID's role replaced.
func (g Group) WithRole(userID string, role Role) Group {
	members := make([]GroupMember, len(g.Members))
	for i, m := range g.Members {
		if m.UserID == userID {
			m.Role = role
		}
		members[i] = m
	}
	g.Members = members
	return g
}

// SortGroups orders groups most recently active first.
func SortGroups(groups []Group) {
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].SortKey().After(groups[j].SortKey())
	})
}

// NewMember is the shape sent when creating a group or adding a member.
type NewMember struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}
