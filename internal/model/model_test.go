// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"testing"
	"time"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func tsp(s string) *time.Time {
	t := ts(s)
	return &t
}

// =============================================================================
// ROLE TESTS
// =============================================================================

func TestRole_Rank(t *testing.T) {
	tests := []struct {
		role Role
		want int
	}{
		{RoleOwner, 3},
		{RoleAdmin, 2},
		{RoleMember, 1},
		{Role("guest"), 0},
	}
	for _, tc := range tests {
		if got := tc.role.Rank(); got != tc.want {
			t.Errorf("%q.Rank() = %d, want %d", tc.role, got, tc.want)
		}
	}
}

func TestCanRemove_AllPairs(t *testing.T) {
	roles := []Role{RoleOwner, RoleAdmin, RoleMember}
	for _, actor := range roles {
		for _, target := range roles {
			for _, self := range []bool{false, true} {
				want := !self && actor.Rank() > target.Rank()
				if got := CanRemove(actor, target, self); got != want {
					t.Errorf("CanRemove(%s, %s, self=%v) = %v, want %v", actor, target, self, got, want)
				}
			}
		}
	}
}

func TestCanChangeRole_AllPairs(t *testing.T) {
	roles := []Role{RoleOwner, RoleAdmin, RoleMember}
	for _, actor := range roles {
		for _, target := range roles {
			want := actor == RoleOwner && target != RoleOwner
			if got := CanChangeRole(actor, target, false); got != want {
				t.Errorf("CanChangeRole(%s, %s) = %v, want %v", actor, target, got, want)
			}
		}
	}
	if CanChangeRole(RoleOwner, RoleAdmin, true) {
		t.Error("owner should not change own role")
	}
}

func TestGroupActionPermissions(t *testing.T) {
	tests := []struct {
		role                         Role
		rename, add, dissolve, leave bool
	}{
		{RoleOwner, true, true, true, false},
		{RoleAdmin, true, true, false, true},
		{RoleMember, false, false, false, true},
		{Role(""), false, false, false, false},
	}
	for _, tc := range tests {
		if got := CanRename(tc.role); got != tc.rename {
			t.Errorf("CanRename(%q) = %v", tc.role, got)
		}
		if got := CanAddMember(tc.role); got != tc.add {
			t.Errorf("CanAddMember(%q) = %v", tc.role, got)
		}
		if got := CanDissolve(tc.role); got != tc.dissolve {
			t.Errorf("CanDissolve(%q) = %v", tc.role, got)
		}
		if got := CanLeave(tc.role); got != tc.leave {
			t.Errorf("CanLeave(%q) = %v", tc.role, got)
		}
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_SortKey(t *testing.T) {
	c := Conversation{CreatedAt: ts("2025-01-01T10:00:00Z")}
	if !c.SortKey().Equal(c.CreatedAt) {
		t.Error("nil last_message_at should fall back to created_at")
	}
	c.LastMessageAt = tsp("2025-01-02T10:00:00Z")
	if !c.SortKey().Equal(*c.LastMessageAt) {
		t.Error("later last_message_at should win")
	}
	c.LastMessageAt = tsp("2024-12-31T10:00:00Z")
	if !c.SortKey().Equal(c.CreatedAt) {
		t.Error("earlier last_message_at should lose to created_at")
	}
}

func TestMergeConversation(t *testing.T) {
	local := Conversation{ID: "c1", OtherUserID: "u2", OtherUsername: "bob"}
	server := Conversation{ID: "c1", OtherUserID: "u2", LastMessageAt: tsp("2025-01-02T10:00:00Z")}

	got := MergeConversation(local, server)
	if got.OtherUsername != "bob" {
		t.Errorf("OtherUsername = %q, want local value kept", got.OtherUsername)
	}
	if got.LastMessageAt == nil {
		t.Error("server LastMessageAt should win")
	}

	server.OtherUsername = "robert"
	if got := MergeConversation(local, server); got.OtherUsername != "robert" {
		t.Errorf("OtherUsername = %q, want server value", got.OtherUsername)
	}
}

func TestMergeConversations_ReplacesWholesale(t *testing.T) {
	local := []Conversation{
		{ID: "c1", OtherUsername: "bob"},
		{ID: "gone", OtherUsername: "carol"},
	}
	server := []Conversation{{ID: "c1"}, {ID: "c3"}}

	got := MergeConversations(local, server)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].OtherUsername != "bob" {
		t.Errorf("enrichment not carried: %+v", got[0])
	}
	if got[1].ID != "c3" {
		t.Errorf("got[1].ID = %q", got[1].ID)
	}
}

func TestSortConversations(t *testing.T) {
	convs := []Conversation{
		{ID: "old", CreatedAt: ts("2025-01-01T00:00:00Z")},
		{ID: "active", CreatedAt: ts("2024-06-01T00:00:00Z"), LastMessageAt: tsp("2025-03-01T00:00:00Z")},
		{ID: "new", CreatedAt: ts("2025-02-01T00:00:00Z")},
	}
	SortConversations(convs)

	want := []string{"active", "new", "old"}
	for i, id := range want {
		if convs[i].ID != id {
			t.Errorf("convs[%d] = %q, want %q", i, convs[i].ID, id)
		}
	}
	for i := 1; i < len(convs); i++ {
		if convs[i].SortKey().After(convs[i-1].SortKey()) {
			t.Errorf("order not non-increasing at %d", i)
		}
	}
}

func TestConversation_DisplayName(t *testing.T) {
	c := Conversation{OtherUserID: "3f2a9c01-1111-2222"}
	if got := c.DisplayName(); got != "3f2a9c01…" {
		t.Errorf("DisplayName = %q", got)
	}
	c.OtherUsername = "bob"
	if got := c.DisplayName(); got != "bob" {
		t.Errorf("DisplayName = %q", got)
	}
}

func TestConversation_JSON(t *testing.T) {
	raw := `{"id":"c1","other_user_id":"u2","last_message_at":null,"created_at":"2025-01-01T10:00:00Z"}`
	var c Conversation
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if c.LastMessageAt != nil {
		t.Error("null last_message_at should decode to nil")
	}
	if c.OtherUsername != "" {
		t.Error("missing other_username should be empty")
	}
}

// =============================================================================
// GROUP TESTS
// =============================================================================

func testGroup() Group {
	return Group{
		ID:   "g1",
		Name: "Team",
		Members: []GroupMember{
			{UserID: "u3", Username: "carol", Role: RoleMember},
			{UserID: "u1", Username: "alice", Role: RoleOwner},
			{UserID: "u4", Username: "Bob", Role: RoleMember},
			{UserID: "u2", Username: "dave", Role: RoleAdmin},
		},
	}
}

func TestGroup_SortedMembers(t *testing.T) {
	g := testGroup()
	got := g.SortedMembers()
	want := []string{"alice", "dave", "Bob", "carol"}
	for i, name := range want {
		if got[i].Username != name {
			t.Errorf("SortedMembers()[%d] = %q, want %q", i, got[i].Username, name)
		}
	}
	if g.Members[0].Username != "carol" {
		t.Error("SortedMembers must not reorder the receiver")
	}
}

func TestGroup_RosterEdits(t *testing.T) {
	g := testGroup()

	if g.RoleOf("u2") != RoleAdmin {
		t.Errorf("RoleOf(u2) = %q", g.RoleOf("u2"))
	}
	if g.RoleOf("nobody") != "" {
		t.Error("non-member should have empty role")
	}
	if !g.HasUsername("bob") {
		t.Error("HasUsername should be case-insensitive")
	}

	promoted := g.WithRole("u3", RoleAdmin)
	if promoted.RoleOf("u3") != RoleAdmin {
		t.Error("WithRole did not apply")
	}
	if g.RoleOf("u3") != RoleMember {
		t.Error("WithRole mutated receiver")
	}

	removed := g.WithoutMember("u3")
	if len(removed.Members) != 3 {
		t.Errorf("len = %d, want 3", len(removed.Members))
	}
	if _, ok := removed.Member("u3"); ok {
		t.Error("member still present")
	}
}

// =============================================================================
// MESSAGE / USER TESTS
// =============================================================================

func TestThreadConversion(t *testing.T) {
	name := "bob"
	m := Message{ID: "m1", ConversationID: "c1", SenderID: "u2", SenderName: &name, Content: "hi"}
	tm := m.Thread()
	if tm.Kind != ThreadDirect || tm.ThreadID != "c1" || tm.SenderName != "bob" {
		t.Errorf("Message.Thread() = %+v", tm)
	}

	b := Broadcast{ID: "b1", SenderID: "u1", Content: "notice"}
	if tb := b.Thread(); tb.Kind != ThreadBroadcast || tb.SenderName != "" {
		t.Errorf("Broadcast.Thread() = %+v", tb)
	}

	gm := GroupMessage{ID: "gm1", GroupID: "g1", SenderName: "carol"}
	if tg := gm.Thread(); tg.Kind != ThreadGroup || tg.ThreadID != "g1" {
		t.Errorf("GroupMessage.Thread() = %+v", tg)
	}
}

func TestCurrentUser(t *testing.T) {
	u := CurrentUser{ID: "u1", Identifier: "alice@example.com", Role: "user"}
	if u.DisplayName() != "alice@example.com" {
		t.Errorf("DisplayName = %q", u.DisplayName())
	}
	if u.IsAdmin() {
		t.Error("plain user reported as admin")
	}

	name := "alice"
	u.Username = &name
	u.Role = "admin"
	if u.DisplayName() != "alice" || !u.IsAdmin() {
		t.Errorf("unexpected %q / %v", u.DisplayName(), u.IsAdmin())
	}
}
