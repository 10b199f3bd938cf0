// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catachess/catchat-tui/internal/api"
	"github.com/catachess/catchat-tui/internal/apitest"
	"github.com/catachess/catchat-tui/internal/auth"
	"github.com/catachess/catchat-tui/internal/model"
	"github.com/catachess/catchat-tui/internal/route"
)

// hookedBackend lets a test act while a request is in flight: the hook runs
// after the server answered but before the engine sees the result.
type hookedBackend struct {
	*api.Client
	afterListMessages func()
	afterGetGroup     func()
	afterListGroups   func()
	afterCreateGroup  func()
}

func (h *hookedBackend) ListMessages(ctx context.Context, id string, limit int) ([]model.Message, error) {
	msgs, err := h.Client.ListMessages(ctx, id, limit)
	if h.afterListMessages != nil {
		h.afterListMessages()
	}
	return msgs, err
}

func (h *hookedBackend) GetGroup(ctx context.Context, id string) (*model.Group, error) {
	g, err := h.Client.GetGroup(ctx, id)
	if h.afterGetGroup != nil {
		h.afterGetGroup()
	}
	return g, err
}

func (h *hookedBackend) ListGroups(ctx context.Context) ([]model.Group, error) {
	groups, err := h.Client.ListGroups(ctx)
	if h.afterListGroups != nil {
		h.afterListGroups()
	}
	return groups, err
}

func (h *hookedBackend) CreateGroup(ctx context.Context, name string, members []model.NewMember) (*model.Group, error) {
	g, err := h.Client.CreateGroup(ctx, name, members)
	if h.afterCreateGroup != nil {
		h.afterCreateGroup()
	}
	return g, err
}

type fixture struct {
	srv     *apitest.Server
	backend *hookedBackend
	eng     *Engine
	alice   model.UserLookup
	bob     model.UserLookup
	carol   model.UserLookup
	ctx     context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := apitest.New(t)
	f := &fixture{
		srv:   srv,
		alice: srv.AddUser("alice", "pw", "user"),
		bob:   srv.AddUser("bob", "pw", "user"),
		carol: srv.AddUser("carol", "pw", "user"),
		ctx:   context.Background(),
	}

	store := auth.NewMemoryStore()
	require.NoError(t, store.Save(srv.TokenFor(f.alice.ID), true))
	client := api.New(store).WithBaseURL(srv.URL).WithRateLimit(0, 0)
	f.backend = &hookedBackend{Client: client}
	f.eng = New(f.backend, Options{})

	me, err := client.Profile(f.ctx)
	require.NoError(t, err)
	f.eng.SetMe(*me)
	return f
}

// open navigates to target and runs resolution and history load.
func (f *fixture) open(t *testing.T, target route.Target) Ticket {
	t.Helper()
	ticket := f.eng.Navigate(target)
	ticket, err := f.eng.Resolve(f.ctx, ticket)
	require.NoError(t, err)
	require.NoError(t, f.eng.LoadHistory(f.ctx, ticket))
	return ticket
}

func ids(msgs []model.ThreadMessage) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

// =============================================================================
// RESOLUTION & HISTORY
// =============================================================================

func TestResolve_DirectEnrichesUsername(t *testing.T) {
	f := newFixture(t)

	ticket := f.open(t, route.DirectTo("bob"))
	assert.NotEmpty(t, ticket.ThreadID)

	conv, ok := f.eng.ActiveConversation()
	require.True(t, ok)
	assert.Equal(t, "bob", conv.OtherUsername, "server omits other_username; the known username is attached")
	assert.Equal(t, f.bob.ID, conv.OtherUserID)
	assert.False(t, f.eng.Loading())
}

func TestResolve_GetOrCreateIdempotent(t *testing.T) {
	f := newFixture(t)

	first := f.open(t, route.DirectTo("bob"))
	f.eng.Navigate(route.Home)
	second := f.open(t, route.DirectTo("Bob"))

	assert.Equal(t, first.ThreadID, second.ThreadID)
	assert.Len(t, f.eng.Conversations(), 1)
}

func TestResolve_UnknownPeerFailsSoft(t *testing.T) {
	f := newFixture(t)

	ticket := f.eng.Navigate(route.DirectTo("nobody"))
	_, err := f.eng.Resolve(f.ctx, ticket)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrStale))
	assert.True(t, errors.Is(err, api.ErrNotFound))
	assert.False(t, f.eng.Loading())
	assert.Empty(t, f.eng.Conversations())
}

func TestResolve_GroupNotMember(t *testing.T) {
	f := newFixture(t)

	ticket := f.eng.Navigate(route.GroupOf("does-not-exist"))
	_, err := f.eng.Resolve(f.ctx, ticket)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrStale))
}

func TestResolve_StaleAfterNavigation(t *testing.T) {
	f := newFixture(t)
	g, err := f.eng.CreateGroup(f.ctx, "Team", []model.UserLookup{f.bob})
	require.NoError(t, err)

	ticket := f.eng.Navigate(route.GroupOf(g.ID))
	f.backend.afterGetGroup = func() { f.eng.Navigate(route.BroadcastFeed()) }

	_, err = f.eng.Resolve(f.ctx, ticket)
	assert.True(t, errors.Is(err, ErrStale))
	assert.Equal(t, route.Broadcast, f.eng.Current().Target.Kind)
	_, ok := f.eng.ActiveGroup()
	assert.False(t, ok)
}

func TestLoadHistory_ChronologicalFullReplace(t *testing.T) {
	f := newFixture(t)
	ticket := f.open(t, route.DirectTo("bob"))

	m1 := f.srv.InjectMessage(ticket.ThreadID, f.bob.ID, "one")
	m2 := f.srv.InjectMessage(ticket.ThreadID, f.alice.ID, "two")

	require.NoError(t, f.eng.LoadHistory(f.ctx, ticket))
	assert.Equal(t, []string{m1.ID, m2.ID}, ids(f.eng.Messages()))

	// Reloading replaces rather than appends
	require.NoError(t, f.eng.LoadHistory(f.ctx, ticket))
	assert.Len(t, f.eng.Messages(), 2)
}

func TestLoadHistory_StaleResultDiscarded(t *testing.T) {
	f := newFixture(t)
	bobTicket := f.open(t, route.DirectTo("bob"))
	f.srv.InjectMessage(bobTicket.ThreadID, f.bob.ID, "for bob's thread")

	carolTicket := f.open(t, route.DirectTo("carol"))
	carolMsg := f.srv.InjectMessage(carolTicket.ThreadID, f.carol.ID, "for carol's thread")
	require.NoError(t, f.eng.LoadHistory(f.ctx, carolTicket))

	err := f.eng.LoadHistory(f.ctx, bobTicket)
	assert.True(t, errors.Is(err, ErrStale))
	assert.Equal(t, []string{carolMsg.ID}, ids(f.eng.Messages()))
}

func TestLoadHistory_BroadcastOldestFirst(t *testing.T) {
	f := newFixture(t)
	b1 := f.srv.InjectBroadcast(f.bob.ID, "first")
	b2 := f.srv.InjectBroadcast(f.bob.ID, "second")

	f.open(t, route.BroadcastFeed())
	assert.Equal(t, []string{b1.ID, b2.ID}, ids(f.eng.Messages()))
}

// =============================================================================
// POLLING
// =============================================================================

func TestPoll_IdempotentMerge(t *testing.T) {
	f := newFixture(t)
	ticket := f.open(t, route.DirectTo("bob"))
	f.srv.InjectMessage(ticket.ThreadID, f.bob.ID, "hi")

	added, err := f.eng.Poll(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	before := ids(f.eng.Messages())

	added, err = f.eng.Poll(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Equal(t, before, ids(f.eng.Messages()))
}

func TestPoll_AppendsOnlyNew(t *testing.T) {
	f := newFixture(t)
	ticket := f.open(t, route.DirectTo("bob"))
	m1 := f.srv.InjectMessage(ticket.ThreadID, f.bob.ID, "one")
	f.eng.Poll(f.ctx)

	m2 := f.srv.InjectMessage(ticket.ThreadID, f.bob.ID, "two")
	m3 := f.srv.InjectMessage(ticket.ThreadID, f.bob.ID, "three")
	added, err := f.eng.Poll(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, []string{m1.ID, m2.ID, m3.ID}, ids(f.eng.Messages()))
}

func TestPoll_NoThreadIsNoop(t *testing.T) {
	f := newFixture(t)
	f.eng.Navigate(route.Home)
	f.srv.ResetRequests()

	added, err := f.eng.Poll(f.ctx)
	assert.NoError(t, err)
	assert.Zero(t, added)
	assert.Empty(t, f.srv.Requests())
}

func TestPoll_StaleAfterNavigation(t *testing.T) {
	f := newFixture(t)
	bobTicket := f.open(t, route.DirectTo("bob"))
	f.srv.InjectMessage(bobTicket.ThreadID, f.bob.ID, "late")

	f.backend.afterListMessages = func() {
		f.backend.afterListMessages = nil
		f.eng.Navigate(route.BroadcastFeed())
	}
	_, err := f.eng.Poll(f.ctx)
	assert.True(t, errors.Is(err, ErrStale))
	assert.Empty(t, f.eng.Messages(), "bob's message must not land in the broadcast thread")
}

func TestPoll_DegradedAfterConsecutiveFailures(t *testing.T) {
	f := newFixture(t)
	ticket := f.open(t, route.DirectTo("bob"))
	path := "/api/catchat/conversations/" + ticket.ThreadID + "/messages"

	for i := 0; i < DefaultDegradedAfter; i++ {
		assert.False(t, f.eng.Degraded())
		f.srv.FailNext(http.MethodGet, path, http.StatusBadGateway, "")
		_, err := f.eng.Poll(f.ctx)
		require.Error(t, err)
	}
	assert.True(t, f.eng.Degraded())

	_, err := f.eng.Poll(f.ctx)
	require.NoError(t, err)
	assert.False(t, f.eng.Degraded())
	assert.Zero(t, f.eng.Failures())
}

// =============================================================================
// SEND
// =============================================================================

func TestSend_HelloScenario(t *testing.T) {
	f := newFixture(t)

	c1 := f.open(t, route.DirectTo("bob"))
	m1 := f.srv.InjectMessage(c1.ThreadID, f.bob.ID, "m1")
	m2 := f.srv.InjectMessage(c1.ThreadID, f.alice.ID, "m2")

	c2 := f.open(t, route.DirectTo("carol"))
	f.srv.InjectMessage(c2.ThreadID, f.carol.ID, "newer")
	require.NoError(t, f.eng.RefreshLists(f.ctx))
	require.Equal(t, c2.ThreadID, f.eng.Conversations()[0].ID)

	f.open(t, route.DirectTo("bob"))
	require.Equal(t, []string{m1.ID, m2.ID}, ids(f.eng.Messages()))

	m3, err := f.eng.Send(f.ctx, "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", m3.Content)

	msgs := f.eng.Messages()
	assert.Equal(t, []string{m1.ID, m2.ID, m3.ID}, ids(msgs))
	assert.Equal(t, "hello", msgs[2].Content)
	assert.Equal(t, c1.ThreadID, f.eng.Conversations()[0].ID, "c1 moves to the top")
}

func TestSend_NoDuplicateWithPoll(t *testing.T) {
	f := newFixture(t)
	f.open(t, route.DirectTo("bob"))

	msg, err := f.eng.Send(f.ctx, "hello")
	require.NoError(t, err)

	_, err = f.eng.Poll(f.ctx)
	require.NoError(t, err)

	count := 0
	for _, m := range f.eng.Messages() {
		if m.ID == msg.ID {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestSend_EmptyNotSent(t *testing.T) {
	f := newFixture(t)
	f.open(t, route.DirectTo("bob"))
	f.srv.ResetRequests()

	_, err := f.eng.Send(f.ctx, "   ")
	assert.True(t, errors.Is(err, ErrEmptyMessage))
	assert.Empty(t, f.srv.Requests())
}

func TestSend_NoThread(t *testing.T) {
	f := newFixture(t)
	f.eng.Navigate(route.Home)
	_, err := f.eng.Send(f.ctx, "hello")
	assert.True(t, errors.Is(err, ErrNoThread))
}

func TestSend_GroupBumpsList(t *testing.T) {
	f := newFixture(t)
	old, err := f.eng.CreateGroup(f.ctx, "Old", []model.UserLookup{f.bob})
	require.NoError(t, err)
	_, err = f.eng.CreateGroup(f.ctx, "New", []model.UserLookup{f.carol})
	require.NoError(t, err)
	require.Equal(t, "New", f.eng.Groups()[0].Name)

	f.open(t, route.GroupOf(old.ID))
	_, err = f.eng.Send(f.ctx, "bump")
	require.NoError(t, err)
	assert.Equal(t, old.ID, f.eng.Groups()[0].ID)
}

func TestSend_BroadcastRejectedForNonAdmin(t *testing.T) {
	f := newFixture(t)
	f.open(t, route.BroadcastFeed())

	_, err := f.eng.Send(f.ctx, "hello all")
	require.Error(t, err)
	assert.Empty(t, f.eng.Messages())
}

// =============================================================================
// LISTS
// =============================================================================

func TestRefreshLists_OrderingInvariant(t *testing.T) {
	f := newFixture(t)

	bobConv := f.open(t, route.DirectTo("bob"))
	g, err := f.eng.CreateGroup(f.ctx, "Team", []model.UserLookup{f.bob})
	require.NoError(t, err)
	carolConv := f.open(t, route.DirectTo("carol"))
	f.srv.InjectMessage(bobConv.ThreadID, f.bob.ID, "ping")
	f.srv.InjectGroupMessage(g.ID, f.bob.ID, "team ping")

	require.NoError(t, f.eng.RefreshLists(f.ctx))
	items := f.eng.Items()

	require.Len(t, items, 4)
	assert.Equal(t, ItemBroadcast, items[0].Kind, "broadcast is always first")
	assert.Equal(t, g.ID, items[1].Group.ID)
	assert.Equal(t, bobConv.ThreadID, items[2].Conversation.ID)
	assert.Equal(t, carolConv.ThreadID, items[3].Conversation.ID)

	for i := 2; i < len(items); i++ {
		assert.False(t, items[i].SortKey().After(items[i-1].SortKey()),
			"items[%d] is newer than items[%d]", i, i-1)
	}
}

func TestRefreshLists_KeepsEnrichment(t *testing.T) {
	f := newFixture(t)
	f.open(t, route.DirectTo("bob"))

	require.NoError(t, f.eng.RefreshLists(f.ctx))
	convs := f.eng.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, "bob", convs[0].OtherUsername)
	assert.True(t, f.eng.ListsLoaded())
}

func TestRefreshLists_FailureKeepsLists(t *testing.T) {
	f := newFixture(t)
	f.open(t, route.DirectTo("bob"))

	f.srv.FailNext(http.MethodGet, "/api/catchat/conversations", http.StatusInternalServerError, "boom")
	err := f.eng.RefreshLists(f.ctx)
	require.Error(t, err)
	assert.Len(t, f.eng.Conversations(), 1)
	assert.Equal(t, 1, f.eng.Failures())
}

func TestRefreshLists_OlderSnapshotDoesNotUndoLocalEdits(t *testing.T) {
	f := newFixture(t)
	doomed, err := f.eng.CreateGroup(f.ctx, "Doomed", []model.UserLookup{f.bob})
	require.NoError(t, err)

	var created model.Group
	f.backend.afterListGroups = func() {
		f.backend.afterListGroups = nil
		// Both edits land after the snapshot was taken
		require.NoError(t, f.eng.DissolveGroup(f.ctx, doomed.ID, true))
		created, err = f.eng.CreateGroup(f.ctx, "Fresh", []model.UserLookup{f.carol})
		require.NoError(t, err)
	}
	require.NoError(t, f.eng.RefreshLists(f.ctx))

	groups := f.eng.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, created.ID, groups[0].ID)
}

func TestFilterItems(t *testing.T) {
	f := newFixture(t)
	f.open(t, route.DirectTo("bob"))
	f.open(t, route.DirectTo("carol"))
	_, err := f.eng.CreateGroup(f.ctx, "Bobsled team", []model.UserLookup{f.bob})
	require.NoError(t, err)

	assert.Len(t, f.eng.FilterItems(""), 4)

	got := f.eng.FilterItems("BOB")
	require.Len(t, got, 2)
	for _, it := range got {
		assert.Contains(t, []ItemKind{ItemConversation, ItemGroup}, it.Kind)
	}

	assert.Empty(t, f.eng.FilterItems("zed"))
	assert.Len(t, f.eng.FilterItems("broad"), 1)
}

func TestItem_Target(t *testing.T) {
	it := Item{Kind: ItemConversation, Conversation: model.Conversation{OtherUserID: "u2"}}
	_, ok := it.Target()
	assert.False(t, ok, "unknown username cannot be navigated to")

	it.Conversation.OtherUsername = "bob"
	target, ok := it.Target()
	assert.True(t, ok)
	assert.True(t, it.Matches(route.DirectTo("BOB")))
	assert.Equal(t, "/chat/bob", target.Location())
}

func TestSearchUser(t *testing.T) {
	f := newFixture(t)

	u, found := f.eng.SearchUser(f.ctx, "bob")
	assert.True(t, found)
	assert.Equal(t, f.bob.ID, u.ID)

	_, found = f.eng.SearchUser(f.ctx, "nobody")
	assert.False(t, found)

	f.srv.FailNext(http.MethodGet, "/user/by-username/bob", http.StatusInternalServerError, "boom")
	_, found = f.eng.SearchUser(f.ctx, "bob")
	assert.False(t, found, "errors collapse to not found")
}

func TestReset(t *testing.T) {
	f := newFixture(t)
	f.open(t, route.DirectTo("bob"))
	f.eng.Reset()

	assert.Empty(t, f.eng.Conversations())
	assert.Empty(t, f.eng.Messages())
	_, ok := f.eng.Me()
	assert.False(t, ok)
	assert.Equal(t, route.None, f.eng.Current().Target.Kind)
}

func TestReset_DropsInFlightRefresh(t *testing.T) {
	f := newFixture(t)
	f.open(t, route.DirectTo("bob"))
	f.backend.afterListGroups = func() {
		f.backend.afterListGroups = nil
		f.eng.Reset()
	}

	err := f.eng.RefreshLists(f.ctx)

	assert.ErrorIs(t, err, ErrSignedOut)
	assert.Empty(t, f.eng.Conversations())
	assert.Empty(t, f.eng.Groups())
	assert.False(t, f.eng.ListsLoaded())
	assert.Zero(t, f.eng.Failures())
}

func TestReset_DropsInFlightGroupEdits(t *testing.T) {
	f := newFixture(t)
	f.backend.afterCreateGroup = func() {
		f.backend.afterCreateGroup = nil
		f.eng.Reset()
	}

	_, err := f.eng.CreateGroup(f.ctx, "Late", []model.UserLookup{f.bob})
	assert.ErrorIs(t, err, ErrSignedOut)
	assert.Empty(t, f.eng.Groups())

	// The next session is unaffected.
	g, err := f.eng.CreateGroup(f.ctx, "On time", []model.UserLookup{f.bob})
	require.NoError(t, err)
	require.Len(t, f.eng.Groups(), 1)
	assert.Equal(t, g.ID, f.eng.Groups()[0].ID)
}
