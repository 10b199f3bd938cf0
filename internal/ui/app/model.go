// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/catachess/catchat-tui/internal/auth"
	"github.com/catachess/catchat-tui/internal/config"
	"github.com/catachess/catchat-tui/internal/model"
	"github.com/catachess/catchat-tui/internal/reconcile"
	"github.com/catachess/catchat-tui/internal/route"
	"github.com/catachess/catchat-tui/internal/session"
	"github.com/catachess/catchat-tui/internal/ui/components"
	"github.com/catachess/catchat-tui/internal/ui/styles"
)

// Session is the part of the API client the app calls directly. Everything
// else goes through the engine.
type Session interface {
	Login(ctx context.Context, identifier, password string) (*model.LoginResponse, error)
	Profile(ctx context.Context) (*model.CurrentUser, error)
}

// Deps are the app's collaborators.
type Deps struct {
	Config  *config.Config
	Store   auth.Store
	Session Session
	Engine  *reconcile.Engine
	// Clipboard writes text to the system clipboard; defaults to
	// atotto/clipboard.
	Clipboard func(string) error
}

type overlayKind int

const (
	overlayNone overlayKind = iota
	overlayNewChat
	overlayNewGroup
	overlaySettings
)

type focusArea int

const (
	focusSidebar focusArea = iota
	focusThread
)

// Model is the root model.
type Model struct {
	deps    Deps
	cfg     *config.Config
	engine  *reconcile.Engine
	history *route.History
	sched   *session.Manager
	keys    KeyMap
	theme   *styles.Theme

	login    *components.LoginForm
	sidebar  *components.Sidebar
	thread   *components.ThreadView
	status   *components.StatusBar
	newChat  *components.NewChatDialog
	newGroup *components.CreateGroupDialog
	settings *components.GroupSettings

	overlay overlayKind
	focus   focusArea
	authed  bool
	// pending is where to go after signing in.
	pending route.Target

	width  int
	height int
}

// New creates the root model. start is the initial location's target; a
// token in the location must already have been extracted and saved.
func New(deps Deps, start route.Target) Model {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
		deps.Config = cfg
	}
	if deps.Clipboard == nil {
		deps.Clipboard = clipboard.WriteAll
	}

	theme := styles.NewTheme(styles.ParseMode(cfg.UI.Theme))
	eng := deps.Engine
	eng.SetOptions(reconcile.Options{
		HistoryLimit:  cfg.Sync.HistoryLimit,
		DegradedAfter: cfg.Sync.DegradedAfter,
	})

	m := Model{
		deps:    deps,
		cfg:     cfg,
		engine:  eng,
		history: route.NewHistory(start, 0),
		sched: session.NewManager(session.Config{
			PollInterval: cfg.Sync.PollInterval(),
			ListRefresh:  cfg.Sync.ListRefresh(),
		}),
		keys:    DefaultKeyMap(),
		theme:   theme,
		login:   components.NewLoginForm(theme),
		sidebar: components.NewSidebar(theme, eng.FilterItems),
		thread:  components.NewThreadView(theme),
		status:  components.NewStatusBar(theme),
		pending: route.Home,
	}
	m.thread.SetMarkdown(cfg.UI.RenderMarkdown, theme.GlamourStyle())
	m.thread.SetCompact(cfg.UI.CompactMode)

	_, m.authed = deps.Store.Get()
	if !m.authed {
		if start.IsThread() {
			m.pending = start
		}
		m.history.Reset(route.LoginScreen())
	}
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the session when a credential is already stored.
func (m Model) Init() tea.Cmd {
	if !m.authed {
		return nil
	}
	return tea.Batch(
		m.fetchProfile(),
		m.sched.Start(),
		m.refreshLists(),
		func() tea.Msg { return startMsg{} },
	)
}

// Authenticated reports whether a user is signed in.
func (m Model) Authenticated() bool { return m.authed }

// Location returns the current location, as shown to the user.
func (m Model) Location() string { return m.history.Current().Location() }

// =============================================================================
// STATE HELPERS
// =============================================================================

func (m *Model) meID() string {
	if me, ok := m.engine.Me(); ok {
		return me.ID
	}
	id, _ := m.deps.Store.UserID()
	return id
}

func (m *Model) isAdmin() bool {
	me, ok := m.engine.Me()
	return ok && me.IsAdmin()
}

// group returns a locally known group.
func (m *Model) group(id string) (model.Group, bool) {
	for _, g := range m.engine.Groups() {
		if g.ID == id {
			return g, true
		}
	}
	return model.Group{}, false
}
