// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"context"
	"sync"

	"github.com/catachess/catchat-tui/internal/model"
	"github.com/catachess/catchat-tui/internal/route"
)

// Defaults for Options.
const (
	DefaultHistoryLimit  = 50
	DefaultDegradedAfter = 3

	// MaxGroupNameLength bounds group names, in characters.
	MaxGroupNameLength = 100
)

// Backend is the subset of the API client the engine uses.
type Backend interface {
	UserByUsername(ctx context.Context, username string) (*model.UserLookup, error)

	ListConversations(ctx context.Context) ([]model.Conversation, error)
	GetOrCreateConversation(ctx context.Context, userID string) (*model.Conversation, error)
	ListMessages(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
	SendMessage(ctx context.Context, conversationID, content string) (*model.Message, error)

	ListGroups(ctx context.Context) ([]model.Group, error)
	CreateGroup(ctx context.Context, name string, members []model.NewMember) (*model.Group, error)
	GetGroup(ctx context.Context, groupID string) (*model.Group, error)
	RenameGroup(ctx context.Context, groupID, name string) (*model.Group, error)
	DeleteGroup(ctx context.Context, groupID string) error
	AddMember(ctx context.Context, groupID string, member model.NewMember) (*model.Group, error)
	ChangeRole(ctx context.Context, groupID, userID string, role model.Role) error
	RemoveMember(ctx context.Context, groupID, userID string) error
	ListGroupMessages(ctx context.Context, groupID string, limit int) ([]model.GroupMessage, error)
	SendGroupMessage(ctx context.Context, groupID, content string) (*model.GroupMessage, error)

	ListBroadcasts(ctx context.Context, limit int) ([]model.Broadcast, error)
	PostBroadcast(ctx context.Context, content string) (*model.Broadcast, error)
}

// Options tunes the engine.
type Options struct {
	// HistoryLimit is the message window fetched on load and on every poll.
	HistoryLimit int
	// DegradedAfter is how many consecutive background failures flip
	// Degraded to true.
	DegradedAfter int
}

// Ticket identifies one navigation. It is handed to the calls that serve
// that navigation and checked when their results arrive.
type Ticket struct {
	Gen    uint64
	Target route.Target
	// ThreadID is the conversation or group id once resolved. Empty for
	// broadcasts and before resolution.
	ThreadID string
}

// Engine is the client-side reconciliation state. Create with New.
type Engine struct {
	backend Backend
	opts    Options

	mu sync.Mutex

	// epoch counts Resets. Writes that started before a Reset are dropped.
	epoch uint64

	// current target cell
	gen      uint64
	target   route.Target
	threadID string
	resolved bool

	me *model.CurrentUser

	conversations []model.Conversation
	groups        []model.Group
	listsLoaded   bool

	// rev counts local list edits; touched/removed record the rev at which
	// an id was last upserted or deleted locally so an older snapshot does
	// not undo the edit.
	rev     uint64
	touched map[string]uint64
	removed map[string]uint64

	messages   []model.ThreadMessage
	messageIDs map[string]struct{}
	loading    bool

	failures int
}

// New creates an engine with no active thread.
func New(backend Backend, opts Options) *Engine {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.DegradedAfter <= 0 {
		opts.DegradedAfter = DefaultDegradedAfter
	}
	return &Engine{
		backend:    backend,
		opts:       opts,
		target:     route.Home,
		touched:    make(map[string]uint64),
		removed:    make(map[string]uint64),
		messageIDs: make(map[string]struct{}),
	}
}

// Options returns the engine's effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// SetOptions updates tunables at runtime, e.g. after a config reload.
// Zero fields keep their current value.
func (e *Engine) SetOptions(opts Options) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if opts.HistoryLimit > 0 {
		e.opts.HistoryLimit = opts.HistoryLimit
	}
	if opts.DegradedAfter > 0 {
		e.opts.DegradedAfter = opts.DegradedAfter
	}
}

// =============================================================================
// NAVIGATION
// =============================================================================

// Navigate makes target current. It bumps the generation, which neutralises
// every in-flight result for the previous target, and clears the thread.
// Broadcast needs no resolution so it is resolved immediately.
func (e *Engine) Navigate(target route.Target) Ticket {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.gen++
	e.target = target
	e.threadID = ""
	e.resolved = target.Kind == route.Broadcast
	e.messages = nil
	e.messageIDs = make(map[string]struct{})
	e.loading = target.IsThread()

	return e.ticketLocked()
}

// Current returns a ticket for the current target cell.
func (e *Engine) Current() Ticket {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticketLocked()
}

// Resolved reports whether the current thread has been resolved.
func (e *Engine) Resolved() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolved
}

func (e *Engine) ticketLocked() Ticket {
	return Ticket{Gen: e.gen, Target: e.target, ThreadID: e.threadID}
}

func (e *Engine) currentLocked(t Ticket) bool {
	return t.Gen == e.gen
}

// sessionEpoch returns the epoch to hand back to sameSessionLocked once a
// request returns.
func (e *Engine) sessionEpoch() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epoch
}

func (e *Engine) sameSessionLocked(epoch uint64) bool {
	return epoch == e.epoch
}

// Reset drops all state, as on sign-out.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.epoch++
	e.gen++
	e.target = route.Home
	e.threadID = ""
	e.resolved = false
	e.me = nil
	e.conversations = nil
	e.groups = nil
	e.listsLoaded = false
	e.touched = make(map[string]uint64)
	e.removed = make(map[string]uint64)
	e.messages = nil
	e.messageIDs = make(map[string]struct{})
	e.loading = false
	e.failures = 0
}

// =============================================================================
// ACCESSORS
// =============================================================================

// SetMe records the signed-in user.
func (e *Engine) SetMe(u model.CurrentUser) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.me = &u
}

// Me returns the signed-in user, if loaded.
func (e *Engine) Me() (model.CurrentUser, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.me == nil {
		return model.CurrentUser{}, false
	}
	return *e.me, true
}

// Conversations returns a copy of the conversation list.
func (e *Engine) Conversations() []model.Conversation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.Conversation(nil), e.conversations...)
}

// Groups returns a copy of the group list.
func (e *Engine) Groups() []model.Group {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.Group, len(e.groups))
	for i, g := range e.groups {
		out[i] = copyGroup(g)
	}
	return out
}

// Messages returns a copy of the active thread's messages, oldest first.
func (e *Engine) Messages() []model.ThreadMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.ThreadMessage(nil), e.messages...)
}

// Loading reports whether the active thread's history is being loaded.
func (e *Engine) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

// ListsLoaded reports whether the first list refresh has completed.
func (e *Engine) ListsLoaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.listsLoaded
}

// ActiveConversation returns the resolved direct conversation, if the
// current target is one.
func (e *Engine) ActiveConversation() (model.Conversation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.target.Kind != route.Direct || !e.resolved {
		return model.Conversation{}, false
	}
	if i := e.conversationIndexLocked(e.threadID); i >= 0 {
		return e.conversations[i], true
	}
	return model.Conversation{}, false
}

// ActiveGroup returns the resolved group, if the current target is one.
func (e *Engine) ActiveGroup() (model.Group, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.target.Kind != route.Group || !e.resolved {
		return model.Group{}, false
	}
	if i := e.groupIndexLocked(e.threadID); i >= 0 {
		return copyGroup(e.groups[i]), true
	}
	return model.Group{}, false
}

// Degraded reports whether background refreshes have failed at least
// DegradedAfter times in a row.
func (e *Engine) Degraded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failures >= e.opts.DegradedAfter
}

// Failures returns the current run of consecutive background failures.
func (e *Engine) Failures() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failures
}

func (e *Engine) recordBackgroundLocked(err error) {
	if err == nil {
		e.failures = 0
		return
	}
	e.failures++
}

// =============================================================================
// LIST HELPERS
// =============================================================================

func (e *Engine) conversationIndexLocked(id string) int {
	for i, c := range e.conversations {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) groupIndexLocked(id string) int {
	for i, g := range e.groups {
		if g.ID == id {
			return i
		}
	}
	return -1
}

// upsertConversationLocked merges c into the list and re-sorts.
func (e *Engine) upsertConversationLocked(c model.Conversation) {
	e.rev++
	e.touched[c.ID] = e.rev
	delete(e.removed, c.ID)
	if i := e.conversationIndexLocked(c.ID); i >= 0 {
		e.conversations[i] = model.MergeConversation(e.conversations[i], c)
	} else {
		e.conversations = append(e.conversations, c)
	}
	model.SortConversations(e.conversations)
}

func (e *Engine) upsertGroupLocked(g model.Group) {
	e.rev++
	e.touched[g.ID] = e.rev
	delete(e.removed, g.ID)
	if i := e.groupIndexLocked(g.ID); i >= 0 {
		e.groups[i] = copyGroup(g)
	} else {
		e.groups = append(e.groups, copyGroup(g))
	}
	model.SortGroups(e.groups)
}

func (e *Engine) removeGroupLocked(id string) {
	e.rev++
	e.removed[id] = e.rev
	delete(e.touched, id)
	if i := e.groupIndexLocked(id); i >= 0 {
		e.groups = append(e.groups[:i:i], e.groups[i+1:]...)
	}
}

func copyGroup(g model.Group) model.Group {
	g.Members = append([]model.GroupMember(nil), g.Members...)
	return g
}
