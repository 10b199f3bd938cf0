// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/catachess/catchat-tui/internal/route"
	"github.com/catachess/catchat-tui/internal/ui/components"
	"github.com/catachess/catchat-tui/internal/ui/styles"
)

const statusBarHeight = 1

// View renders the screen.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}
	if !m.authed {
		return m.login.View()
	}

	body := m.renderBody()
	if ov := m.overlayView(); ov != "" {
		body = lipgloss.Place(m.width, m.bodyHeight(), lipgloss.Center, lipgloss.Center, ov)
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.status.View())
}

func (m Model) renderBody() string {
	if m.theme.GetLayoutMode() == styles.LayoutNarrow {
		// One pane at a time.
		if m.focus == focusThread && m.history.Current().IsThread() {
			return m.thread.View()
		}
		return m.sidebar.View()
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), m.thread.View())
}

func (m Model) overlayView() string {
	switch m.overlay {
	case overlayNewChat:
		return m.newChat.View()
	case overlayNewGroup:
		return m.newGroup.View()
	case overlaySettings:
		return m.settings.View()
	}
	return ""
}

func (m Model) bodyHeight() int {
	return max(m.height-statusBarHeight, 1)
}

// resize lays the panes out for the current window size.
func (m *Model) resize() {
	m.theme.SetSize(m.width, m.height)
	h := m.bodyHeight()

	if m.theme.GetLayoutMode() == styles.LayoutNarrow {
		m.sidebar.SetSize(m.width, h)
		m.thread.SetSize(m.width, h)
	} else {
		sw := m.theme.SidebarWidth()
		m.sidebar.SetSize(sw, h)
		m.thread.SetSize(m.width-sw, h)
	}
	m.login.SetSize(m.width, m.height)
	m.status.SetWidth(m.width)
	m.updateHints()
}

// updateHints sets the status bar key hints for the focused pane.
func (m *Model) updateHints() {
	k := m.keys
	var hints []components.Hint
	if m.focus == focusThread {
		hints = []components.Hint{
			{Key: "Enter", Desc: "send"},
			{Key: "M-Enter", Desc: "newline"},
			hint(k.Blur),
			hint(k.Copy),
		}
		if m.history.Current().Kind == route.Group {
			hints = append(hints, hint(k.GroupInfo))
		}
		hints = append(hints, hint(k.Back), hint(k.Quit))
	} else {
		hints = []components.Hint{
			{Key: "Enter", Desc: "open"},
			{Key: "/", Desc: "search"},
			hint(k.NewChat),
			hint(k.NewGroup),
			hint(k.SwitchFocus),
			hint(k.Broadcasts),
			hint(k.SignOut),
			hint(k.Quit),
		}
	}
	m.status.SetHints(hints)
}
