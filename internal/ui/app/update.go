// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/catachess/catchat-tui/internal/api"
	"github.com/catachess/catchat-tui/internal/config"
	"github.com/catachess/catchat-tui/internal/model"
	"github.com/catachess/catchat-tui/internal/reconcile"
	"github.com/catachess/catchat-tui/internal/route"
	"github.com/catachess/catchat-tui/internal/session"
	"github.com/catachess/catchat-tui/internal/ui/components"
	"github.com/catachess/catchat-tui/internal/ui/styles"
)

const sessionExpiredNote = "Your session has expired. Please sign in again."

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if !m.authed && sessionResult(msg) {
		// Requests from before the sign-out.
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.authed && m.overlay == overlayNone {
			var cmd tea.Cmd
			m.thread, cmd = m.thread.Update(msg)
			return m, cmd
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.thread, cmd = m.thread.Update(msg)
		return m, cmd

	case components.ToastTickMsg:
		return m, m.status.Update(msg)

	case startMsg:
		return m, m.navigate(m.history.Current(), false)

	case UnauthorizedMsg:
		if !m.authed {
			return m, nil
		}
		return m, m.signOut(sessionExpiredNote)

	case ConfigReloadedMsg:
		return m.handleConfigReload(msg)

	// Sync clocks.
	case session.PollTickMsg:
		next, ok := m.sched.HandlePoll(msg)
		if !ok {
			return m, nil
		}
		return m, tea.Batch(next, m.poll())

	case session.ListTickMsg:
		next, ok := m.sched.HandleList(msg)
		if !ok {
			return m, nil
		}
		return m, tea.Batch(next, m.refreshLists())

	// Results.
	case profileMsg:
		return m.handleProfile(msg)
	case loginResultMsg:
		return m.handleLoginResult(msg)
	case resolvedMsg:
		return m.handleResolved(msg)
	case historyMsg:
		return m.handleHistory(msg)
	case pollMsg:
		return m.handlePoll(msg)
	case listsMsg:
		return m.handleLists(msg)
	case sendResultMsg:
		return m.handleSendResult(msg)
	case searchResultMsg:
		return m.handleSearchResult(msg)
	case groupCreatedMsg:
		return m.handleGroupCreated(msg)
	case groupActionMsg:
		return m.handleGroupAction(msg)
	case copiedMsg:
		if msg.err != nil {
			log.Printf("clipboard: %v", msg.err)
			return m, m.status.NotifyError("Clipboard unavailable")
		}
		return m, m.status.Notify("Copied to clipboard")

	// Intents.
	case components.NavigateMsg:
		return m, m.open(msg.Target)
	case components.LoginSubmitMsg:
		return m, m.signIn(msg)
	case components.SendMsg:
		if m.thread.Sending() {
			return m, nil
		}
		m.thread.SetSending(true)
		return m, m.send(msg.Content)
	case components.SearchUserMsg:
		return m, m.search(msg)
	case components.CreateGroupMsg:
		return m, m.createGroup(msg)
	case components.RenameGroupMsg:
		return m, m.groupIntent(msg)
	case components.AddMemberMsg:
		return m, m.groupIntent(msg)
	case components.RemoveMemberMsg:
		return m, m.groupIntent(msg)
	case components.ChangeRoleMsg:
		return m, m.groupIntent(msg)
	case components.LeaveGroupMsg:
		return m, m.groupIntent(msg)
	case components.DissolveGroupMsg:
		return m, m.groupIntent(msg)
	case components.CloseDialogMsg:
		return m, m.closeOverlay()
	}
	return m, nil
}

// sessionResult reports results that belong to a signed-in session.
func sessionResult(msg tea.Msg) bool {
	switch msg.(type) {
	case profileMsg, resolvedMsg, historyMsg, pollMsg, listsMsg,
		sendResultMsg, searchResultMsg, groupCreatedMsg, groupActionMsg:
		return true
	}
	return false
}

// =============================================================================
// NAVIGATION
// =============================================================================

// open navigates to t unless it is already the open thread.
func (m *Model) open(t route.Target) tea.Cmd {
	cur := m.history.Current()
	if cur.Kind == t.Kind && cur.Key() == t.Key() && t.IsThread() {
		return m.focusThread()
	}
	return m.navigate(t, true)
}

// navigate is the dispatcher: every location change goes through here.
func (m *Model) navigate(t route.Target, push bool) tea.Cmd {
	if t.Kind == route.Login {
		if !m.authed {
			m.showLogin("")
			return nil
		}
		t = route.Home
	}
	if !m.authed {
		m.pending = t
		m.history.Reset(route.LoginScreen())
		m.showLogin("")
		return nil
	}

	if push {
		m.history.Push(t)
	} else {
		m.history.Replace(t)
	}

	ticket := m.engine.Navigate(t)
	m.sidebar.SetActive(t)
	m.thread.SetMessages(nil, m.meID())
	m.syncThreadChrome()
	loading := m.thread.SetLoading(m.engine.Loading())

	if !t.IsThread() {
		m.focusSidebar()
		return loading
	}
	return tea.Batch(loading, m.focusThread(), m.resolve(ticket))
}

// syncThreadChrome refreshes the thread header and composer for the
// current target.
func (m *Model) syncThreadChrome() {
	t := m.history.Current()
	switch t.Kind {
	case route.Direct:
		m.thread.SetThread(route.Direct, t.Peer, "Direct message")
	case route.Group:
		if g, ok := m.engine.ActiveGroup(); ok {
			role := g.RoleOf(m.meID())
			sub := fmt.Sprintf("%d members", len(g.Members))
			if role.Valid() {
				sub += " · " + role.Badge()
			}
			m.thread.SetThread(route.Group, g.Name, sub)
		} else {
			m.thread.SetThread(route.Group, "Group", "")
		}
	case route.Broadcast:
		m.thread.SetThread(route.Broadcast, reconcile.BroadcastTitle, "Announcements")
	default:
		m.thread.SetThread(route.None, "", "")
	}

	if t.Kind == route.Broadcast && !m.isAdmin() {
		m.thread.SetCanPost(false, "Only admins can post broadcasts")
	} else {
		m.thread.SetCanPost(true, "")
	}
}

func (m *Model) syncList() {
	m.sidebar.SetItems(m.engine.Items(), m.engine.ListsLoaded())
	m.sidebar.SetActive(m.history.Current())
}

func (m *Model) syncMessages() {
	m.thread.SetMessages(m.engine.Messages(), m.meID())
}

// =============================================================================
// FOCUS AND OVERLAYS
// =============================================================================

func (m *Model) focusSidebar() {
	m.focus = focusSidebar
	m.thread.Blur()
	m.sidebar.Focus()
	m.updateHints()
}

func (m *Model) focusThread() tea.Cmd {
	if !m.history.Current().IsThread() {
		return nil
	}
	m.focus = focusThread
	m.sidebar.Blur()
	cmd := m.thread.Focus()
	m.updateHints()
	return cmd
}

func (m *Model) closeOverlay() tea.Cmd {
	m.overlay = overlayNone
	m.newChat, m.newGroup, m.settings = nil, nil, nil
	if m.focus == focusThread {
		return m.focusThread()
	}
	m.focusSidebar()
	return nil
}

func (m *Model) openSettings() tea.Cmd {
	cur := m.history.Current()
	if cur.Kind != route.Group {
		return nil
	}
	g, ok := m.group(cur.GroupID)
	if !ok {
		return m.status.Notify("Group is still loading")
	}
	m.settings = components.NewGroupSettings(m.theme, g, m.meID())
	m.overlay = overlaySettings
	return nil
}

func (m *Model) showLogin(note string) {
	m.login.Reset()
	if note != "" {
		m.login.SetError(note)
	}
	m.login.SetSize(m.width, m.height)
}

// signOut drops the session. note is shown on the login screen.
func (m *Model) signOut(note string) tea.Cmd {
	if note != "" {
		m.pending = m.history.Current()
	} else {
		m.pending = route.Home
	}
	if err := m.deps.Store.Clear(); err != nil {
		log.Printf("sign out: clear credentials: %v", err)
	}
	m.authed = false
	m.engine.Reset()
	m.sched.Stop()
	m.overlay = overlayNone
	m.newChat, m.newGroup, m.settings = nil, nil, nil
	m.history.Reset(route.LoginScreen())
	m.sidebar.SetItems(nil, false)
	m.sidebar.SetMe("")
	m.thread.SetThread(route.None, "", "")
	m.thread.SetMessages(nil, "")
	m.thread.SetSending(false)
	m.status.SetUser("")
	m.status.SetDegraded(false)
	m.showLogin(note)
	return nil
}

// authFailed reports whether err is a 401 and, if so, signs out.
func (m *Model) authFailed(err error) (tea.Cmd, bool) {
	if !api.IsUnauthorized(err) {
		return nil, false
	}
	if !m.authed {
		return nil, true
	}
	return m.signOut(sessionExpiredNote), true
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	if !m.authed {
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	switch m.overlay {
	case overlayNewChat:
		m.newChat, cmd = m.newChat.Update(msg)
		return m, cmd
	case overlayNewGroup:
		m.newGroup, cmd = m.newGroup.Update(msg)
		return m, cmd
	case overlaySettings:
		m.settings, cmd = m.settings.Update(msg)
		return m, cmd
	}

	if m.focus == focusSidebar && m.sidebar.Filtering() {
		m.sidebar, cmd = m.sidebar.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.NewChat):
		m.newChat = components.NewNewChatDialog(m.theme)
		m.overlay = overlayNewChat
		return m, nil

	case key.Matches(msg, m.keys.NewGroup):
		m.newGroup = components.NewCreateGroupDialog(m.theme, m.meID())
		m.overlay = overlayNewGroup
		return m, nil

	case key.Matches(msg, m.keys.GroupInfo):
		return m, m.openSettings()

	case key.Matches(msg, m.keys.Broadcasts):
		return m, m.open(route.BroadcastFeed())

	case key.Matches(msg, m.keys.Copy):
		msgs := m.engine.Messages()
		if len(msgs) == 0 {
			return m, m.status.Notify("Nothing to copy")
		}
		return m, m.copyText(msgs[len(msgs)-1].Content)

	case key.Matches(msg, m.keys.Back):
		if t, ok := m.history.Back(); ok {
			return m, m.navigate(t, false)
		}
		return m, nil

	case key.Matches(msg, m.keys.SignOut):
		return m, m.signOut("")

	case key.Matches(msg, m.keys.SwitchFocus):
		if m.focus == focusSidebar {
			return m, m.focusThread()
		}
		m.focusSidebar()
		return m, nil

	case key.Matches(msg, m.keys.Blur) && m.focus == focusThread:
		m.focusSidebar()
		return m, nil
	}

	if m.focus == focusThread {
		m.thread, cmd = m.thread.Update(msg)
	} else {
		m.sidebar, cmd = m.sidebar.Update(msg)
	}
	return m, cmd
}

// =============================================================================
// RESULT HANDLERS
// =============================================================================

func (m Model) handleProfile(msg profileMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if cmd, ok := m.authFailed(msg.err); ok {
			return m, cmd
		}
		log.Printf("profile: %v", msg.err)
		return m, m.status.NotifyError("Could not load your profile")
	}
	m.setMe(*msg.user)
	return m, nil
}

func (m *Model) setMe(u model.CurrentUser) {
	m.engine.SetMe(u)
	if err := m.deps.Store.SetUserID(u.ID); err != nil {
		log.Printf("cache user id: %v", err)
	}
	m.status.SetUser(u.DisplayName())
	m.sidebar.SetMe(u.DisplayName())
	m.syncThreadChrome()
	m.syncMessages()
}

func (m Model) handleLoginResult(msg loginResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		log.Printf("login failed: %v", msg.err)
		m.login.SetError(api.LoginMessage(msg.err))
		return m, nil
	}

	m.authed = true
	m.login.Reset()
	m.setMe(*msg.user)

	target := m.pending
	m.pending = route.Home
	m.history.Reset(target)
	return m, tea.Batch(
		m.sched.Start(),
		m.refreshLists(),
		m.navigate(target, false),
	)
}

func (m Model) handleResolved(msg resolvedMsg) (tea.Model, tea.Cmd) {
	if errors.Is(msg.err, reconcile.ErrStale) {
		return m, nil
	}
	if msg.err != nil {
		if cmd, ok := m.authFailed(msg.err); ok {
			return m, cmd
		}
		// Unresolvable targets fall back home without an error.
		log.Printf("resolve %s: %v", msg.ticket.Target, msg.err)
		return m, m.navigate(route.Home, false)
	}
	m.syncThreadChrome()
	m.syncList()
	return m, m.loadHistory(msg.ticket)
}

func (m Model) handleHistory(msg historyMsg) (tea.Model, tea.Cmd) {
	if errors.Is(msg.err, reconcile.ErrStale) {
		return m, nil
	}
	m.syncMessages()
	m.thread.SetLoading(false)
	if msg.err != nil {
		if cmd, ok := m.authFailed(msg.err); ok {
			return m, cmd
		}
		log.Printf("history %s: %v", msg.ticket.Target, msg.err)
		return m, m.status.NotifyError("Could not load messages")
	}
	return m, nil
}

func (m Model) handlePoll(msg pollMsg) (tea.Model, tea.Cmd) {
	if errors.Is(msg.err, reconcile.ErrStale) {
		return m, nil
	}
	if cmd, ok := m.authFailed(msg.err); ok {
		return m, cmd
	}
	if msg.err != nil {
		log.Printf("poll: %v", msg.err)
	}
	m.status.SetDegraded(m.engine.Degraded())
	if msg.added > 0 {
		m.syncMessages()
	}
	return m, nil
}

func (m Model) handleLists(msg listsMsg) (tea.Model, tea.Cmd) {
	if errors.Is(msg.err, reconcile.ErrSignedOut) {
		return m, nil
	}
	if cmd, ok := m.authFailed(msg.err); ok {
		return m, cmd
	}
	if msg.err != nil {
		log.Printf("lists: %v", msg.err)
	}
	m.status.SetDegraded(m.engine.Degraded())
	m.syncList()
	m.syncThreadChrome()

	if m.overlay == overlaySettings {
		if g, ok := m.group(m.settings.GroupID()); ok {
			m.settings.SetGroup(g)
		} else {
			return m, tea.Batch(m.closeOverlay(), m.status.Notify("This group is no longer available"))
		}
	}
	return m, nil
}

func (m Model) handleSendResult(msg sendResultMsg) (tea.Model, tea.Cmd) {
	m.thread.SetSending(false)
	switch {
	case msg.err == nil:
		m.thread.ClearInput()
		m.syncMessages()
		m.syncList()
		return m, nil
	case errors.Is(msg.err, reconcile.ErrEmptyMessage), errors.Is(msg.err, reconcile.ErrNoThread),
		errors.Is(msg.err, reconcile.ErrSignedOut):
		return m, nil
	}
	if cmd, ok := m.authFailed(msg.err); ok {
		return m, cmd
	}
	log.Printf("send: %v", msg.err)
	return m, m.status.NotifyError("Failed to send message")
}

func (m Model) handleSearchResult(msg searchResultMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.purpose == components.SearchForChat && m.newChat != nil:
		m.newChat.SetResult(msg.user, msg.found)
	case msg.purpose == components.SearchForGroup && m.newGroup != nil:
		m.newGroup.AddResult(msg.user, msg.found)
	}
	return m, nil
}

func (m Model) handleGroupCreated(msg groupCreatedMsg) (tea.Model, tea.Cmd) {
	if errors.Is(msg.err, reconcile.ErrSignedOut) {
		return m, nil
	}
	if msg.err != nil {
		if cmd, ok := m.authFailed(msg.err); ok {
			return m, cmd
		}
		log.Printf("create group: %v", msg.err)
		if m.newGroup != nil {
			m.newGroup.SetError(createGroupError(msg.err))
		}
		return m, nil
	}
	m.overlay = overlayNone
	m.newGroup = nil
	m.syncList()
	return m, tea.Batch(
		m.navigate(route.GroupOf(msg.group.ID), true),
		m.status.Notify("Group created"),
	)
}

func createGroupError(err error) string {
	switch {
	case errors.Is(err, reconcile.ErrNoMembers):
		return "Add at least one member"
	case errors.Is(err, reconcile.ErrNameTooLong):
		return "Group name is too long"
	default:
		return "Could not create group"
	}
}

// =============================================================================
// GROUP MANAGEMENT
// =============================================================================

func (m *Model) groupIntent(msg tea.Msg) tea.Cmd {
	eng := m.engine
	switch msg := msg.(type) {
	case components.RenameGroupMsg:
		return m.groupAction(actRename, msg.GroupID, func(ctx context.Context) (reconcile.AddOutcome, error) {
			_, err := eng.RenameGroup(ctx, msg.GroupID, msg.Name)
			return reconcile.AddedMember, err
		})
	case components.AddMemberMsg:
		return m.groupAction(actAdd, msg.GroupID, func(ctx context.Context) (reconcile.AddOutcome, error) {
			return eng.AddMember(ctx, msg.GroupID, msg.Username)
		})
	case components.RemoveMemberMsg:
		return m.groupAction(actRemove, msg.GroupID, func(ctx context.Context) (reconcile.AddOutcome, error) {
			return reconcile.AddedMember, eng.RemoveMember(ctx, msg.GroupID, msg.UserID)
		})
	case components.ChangeRoleMsg:
		return m.groupAction(actRole, msg.GroupID, func(ctx context.Context) (reconcile.AddOutcome, error) {
			return reconcile.AddedMember, eng.ChangeRole(ctx, msg.GroupID, msg.UserID, msg.Role)
		})
	case components.LeaveGroupMsg:
		return m.groupAction(actLeave, msg.GroupID, func(ctx context.Context) (reconcile.AddOutcome, error) {
			return reconcile.AddedMember, eng.LeaveGroup(ctx, msg.GroupID)
		})
	case components.DissolveGroupMsg:
		return m.groupAction(actDissolve, msg.GroupID, func(ctx context.Context) (reconcile.AddOutcome, error) {
			return reconcile.AddedMember, eng.DissolveGroup(ctx, msg.GroupID, msg.Confirmed)
		})
	}
	return nil
}

var groupActionFailures = map[groupAction]string{
	actRename:   "Failed to rename",
	actRemove:   "Could not remove member",
	actRole:     "Could not change role",
	actLeave:    "Could not leave group",
	actDissolve: "Could not dissolve group",
}

func (m Model) handleGroupAction(msg groupActionMsg) (tea.Model, tea.Cmd) {
	if errors.Is(msg.err, reconcile.ErrSignedOut) {
		return m, nil
	}
	if cmd, ok := m.authFailed(msg.err); ok {
		return m, cmd
	}
	if msg.err != nil {
		log.Printf("group %s action %d: %v", msg.groupID, msg.action, msg.err)
	}

	open := m.settings != nil && m.settings.GroupID() == msg.groupID
	m.syncList()
	m.syncThreadChrome()

	switch msg.action {
	case actLeave, actDissolve:
		if msg.err != nil {
			if open {
				m.settings.SetActionError(groupActionFailures[msg.action])
			}
			return m, nil
		}
		note := "You left the group"
		if msg.action == actDissolve {
			note = "Group dissolved"
		}
		var cmds []tea.Cmd
		if open {
			m.overlay = overlayNone
			m.settings = nil
		}
		if cur := m.history.Current(); cur.Kind == route.Group && cur.GroupID == msg.groupID {
			cmds = append(cmds, m.navigate(route.Home, false))
		}
		cmds = append(cmds, m.status.Notify(note))
		return m, tea.Batch(cmds...)
	}

	if !open {
		return m, nil
	}
	if g, ok := m.group(msg.groupID); ok {
		m.settings.SetGroup(g)
	}
	switch msg.action {
	case actRename:
		if msg.err != nil {
			m.settings.SetRenameResult(groupActionFailures[actRename])
		} else {
			m.settings.SetRenameResult("")
		}
	case actAdd:
		m.settings.SetAddOutcome(msg.outcome.Message(), msg.err == nil && msg.outcome == reconcile.AddedMember)
	default:
		if msg.err != nil {
			m.settings.SetActionError(groupActionFailures[msg.action])
		} else {
			m.settings.SetBusy(false)
		}
	}
	return m, nil
}

// =============================================================================
// CONFIG RELOAD
// =============================================================================

func (m Model) handleConfigReload(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		log.Printf("config reload: %v", msg.Err)
		return m, m.status.NotifyError("Config reload failed")
	}
	return m, tea.Batch(m.applyConfig(msg.Config), m.status.Notify("Configuration reloaded"))
}

// applyConfig applies settings that take effect without a restart: sync
// periods and window, theme, and message rendering.
func (m *Model) applyConfig(cfg *config.Config) tea.Cmd {
	m.cfg = cfg
	m.engine.SetOptions(reconcile.Options{
		HistoryLimit:  cfg.Sync.HistoryLimit,
		DegradedAfter: cfg.Sync.DegradedAfter,
	})
	cmd := m.sched.SetIntervals(session.Config{
		PollInterval: cfg.Sync.PollInterval(),
		ListRefresh:  cfg.Sync.ListRefresh(),
	})

	// Components share the theme pointer, so restyling in place reaches
	// all of them.
	*m.theme = *styles.NewTheme(styles.ParseMode(cfg.UI.Theme))
	m.thread.SetMarkdown(cfg.UI.RenderMarkdown, m.theme.GlamourStyle())
	m.thread.SetCompact(cfg.UI.CompactMode)
	m.resize()
	return cmd
}
