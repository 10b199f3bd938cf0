// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/catachess/catchat-tui/internal/config"
	"github.com/catachess/catchat-tui/internal/model"
	"github.com/catachess/catchat-tui/internal/reconcile"
	"github.com/catachess/catchat-tui/internal/ui/components"
)

// =============================================================================
// EXTERNAL MESSAGES
// =============================================================================

// UnauthorizedMsg is sent by the API client's 401 hook. The credential is
// already cleared; the app drops to the login screen.
type UnauthorizedMsg struct{}

// ConfigReloadedMsg carries a reloaded configuration from the file watcher.
type ConfigReloadedMsg struct {
	Config *config.Config
	Err    error
}

// =============================================================================
// RESULT MESSAGES
// =============================================================================

// startMsg opens the initial location once the loop is running.
type startMsg struct{}

type profileMsg struct {
	user *model.CurrentUser
	err  error
}

type loginResultMsg struct {
	user *model.CurrentUser
	err  error
}

type resolvedMsg struct {
	ticket reconcile.Ticket
	err    error
}

type historyMsg struct {
	ticket reconcile.Ticket
	err    error
}

type pollMsg struct {
	added int
	err   error
}

type listsMsg struct {
	err error
}

type sendResultMsg struct {
	err error
}

type searchResultMsg struct {
	purpose components.SearchPurpose
	user    model.UserLookup
	found   bool
}

type groupCreatedMsg struct {
	group model.Group
	err   error
}

type groupAction int

const (
	actRename groupAction = iota
	actAdd
	actRemove
	actRole
	actLeave
	actDissolve
)

type groupActionMsg struct {
	action  groupAction
	groupID string
	outcome reconcile.AddOutcome
	err     error
}

type copiedMsg struct {
	err error
}

// =============================================================================
// COMMANDS
// =============================================================================

// call runs fn off the event loop with the configured request timeout.
func (m *Model) call(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	timeout := m.cfg.API.Timeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return fn(ctx)
	}
}

func (m *Model) fetchProfile() tea.Cmd {
	return m.call(func(ctx context.Context) tea.Msg {
		u, err := m.deps.Session.Profile(ctx)
		return profileMsg{user: u, err: err}
	})
}

func (m *Model) signIn(msg components.LoginSubmitMsg) tea.Cmd {
	store := m.deps.Store
	sess := m.deps.Session
	return m.call(func(ctx context.Context) tea.Msg {
		resp, err := sess.Login(ctx, msg.Identifier, msg.Password)
		if err != nil {
			return loginResultMsg{err: err}
		}
		if err := store.Save(resp.AccessToken, msg.Remember); err != nil {
			return loginResultMsg{err: err}
		}
		u, err := sess.Profile(ctx)
		if err != nil {
			return loginResultMsg{err: err}
		}
		_ = store.SetUserID(u.ID)
		return loginResultMsg{user: u}
	})
}

func (m *Model) resolve(t reconcile.Ticket) tea.Cmd {
	eng := m.engine
	return m.call(func(ctx context.Context) tea.Msg {
		nt, err := eng.Resolve(ctx, t)
		return resolvedMsg{ticket: nt, err: err}
	})
}

func (m *Model) loadHistory(t reconcile.Ticket) tea.Cmd {
	eng := m.engine
	return m.call(func(ctx context.Context) tea.Msg {
		return historyMsg{ticket: t, err: eng.LoadHistory(ctx, t)}
	})
}

func (m *Model) poll() tea.Cmd {
	eng := m.engine
	return m.call(func(ctx context.Context) tea.Msg {
		n, err := eng.Poll(ctx)
		return pollMsg{added: n, err: err}
	})
}

func (m *Model) refreshLists() tea.Cmd {
	eng := m.engine
	return m.call(func(ctx context.Context) tea.Msg {
		return listsMsg{err: eng.RefreshLists(ctx)}
	})
}

func (m *Model) send(content string) tea.Cmd {
	eng := m.engine
	return m.call(func(ctx context.Context) tea.Msg {
		_, err := eng.Send(ctx, content)
		return sendResultMsg{err: err}
	})
}

func (m *Model) search(msg components.SearchUserMsg) tea.Cmd {
	eng := m.engine
	return m.call(func(ctx context.Context) tea.Msg {
		u, found := eng.SearchUser(ctx, msg.Username)
		return searchResultMsg{purpose: msg.Purpose, user: u, found: found}
	})
}

func (m *Model) createGroup(msg components.CreateGroupMsg) tea.Cmd {
	eng := m.engine
	return m.call(func(ctx context.Context) tea.Msg {
		g, err := eng.CreateGroup(ctx, msg.Name, msg.Members)
		return groupCreatedMsg{group: g, err: err}
	})
}

func (m *Model) groupAction(action groupAction, groupID string, fn func(ctx context.Context) (reconcile.AddOutcome, error)) tea.Cmd {
	return m.call(func(ctx context.Context) tea.Msg {
		out, err := fn(ctx)
		return groupActionMsg{action: action, groupID: groupID, outcome: out, err: err}
	})
}

func (m *Model) copyText(text string) tea.Cmd {
	cp := m.deps.Clipboard
	return func() tea.Msg {
		return copiedMsg{err: cp(text)}
	}
}
