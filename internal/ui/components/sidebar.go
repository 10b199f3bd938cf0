// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/catachess/catchat-tui/internal/reconcile"
	"github.com/catachess/catchat-tui/internal/route"
	"github.com/catachess/catchat-tui/internal/ui/styles"
	"github.com/catachess/catchat-tui/internal/util"
)

// FilterFunc narrows the list for a search query.
type FilterFunc func(query string) []reconcile.Item

// Sidebar is the unified conversation list.
type Sidebar struct {
	items     []reconcile.Item
	filter    textinput.Model
	filtering bool
	filterFn  FilterFunc
	cursor    int
	offset    int
	active    route.Target
	me        string
	loaded    bool
	focused   bool
	now       func() time.Time
	width     int
	height    int
	theme     *styles.Theme
}

// NewSidebar creates an empty sidebar. filterFn supplies the filtered rows;
// the engine's FilterItems fits.
func NewSidebar(theme *styles.Theme, filterFn FilterFunc) *Sidebar {
	in := textinput.New()
	in.Placeholder = "Search"
	in.Prompt = "/ "
	in.CharLimit = 64
	return &Sidebar{
		filter:   in,
		filterFn: filterFn,
		now:      time.Now,
		theme:    theme,
	}
}

// SetSize sets the outer size.
func (s *Sidebar) SetSize(width, height int) {
	s.width, s.height = width, height
	s.filter.Width = max(width-8, 4)
}

// SetItems replaces the rows. loaded is false until the first list fetch
// settles, which shows the loading state instead of the empty state.
func (s *Sidebar) SetItems(items []reconcile.Item, loaded bool) {
	s.loaded = loaded
	if q := s.filter.Value(); q != "" && s.filterFn != nil {
		items = s.filterFn(q)
	}
	s.items = items
	s.clampCursor()
}

// SetActive marks the open thread.
func (s *Sidebar) SetActive(t route.Target) {
	s.active = t
	for i, it := range s.items {
		if it.Matches(t) {
			s.cursor = i
			break
		}
	}
	s.clampCursor()
}

// SetMe sets the footer user name.
func (s *Sidebar) SetMe(name string) { s.me = name }

// Focus gives the sidebar keyboard focus.
func (s *Sidebar) Focus() { s.focused = true }

// Blur removes keyboard focus.
func (s *Sidebar) Blur() {
	s.focused = false
	s.stopFiltering()
}

// Focused reports keyboard focus.
func (s *Sidebar) Focused() bool { return s.focused }

// Filtering reports whether the search field has the keyboard.
func (s *Sidebar) Filtering() bool { return s.filtering }

// Items returns the displayed rows.
func (s *Sidebar) Items() []reconcile.Item { return s.items }

// Selected returns the row under the cursor.
func (s *Sidebar) Selected() (reconcile.Item, bool) {
	if s.cursor < 0 || s.cursor >= len(s.items) {
		return reconcile.Item{}, false
	}
	return s.items[s.cursor], true
}

func (s *Sidebar) stopFiltering() {
	s.filtering = false
	s.filter.Blur()
}

func (s *Sidebar) applyFilter() {
	if s.filterFn != nil {
		s.items = s.filterFn(s.filter.Value())
	}
	s.cursor = 0
	s.offset = 0
}

func (s *Sidebar) clampCursor() {
	if s.cursor >= len(s.items) {
		s.cursor = len(s.items) - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

// Update handles keys while focused.
func (s *Sidebar) Update(msg tea.Msg) (*Sidebar, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok || !s.focused {
		return s, nil
	}

	if s.filtering {
		switch {
		case key.Matches(km, keys.Cancel):
			s.filter.Reset()
			s.stopFiltering()
			s.applyFilter()
			return s, nil
		case key.Matches(km, keys.Select), km.Type == tea.KeyDown, km.Type == tea.KeyUp:
			s.stopFiltering()
			if km.Type == tea.KeyEnter {
				return s, s.open()
			}
		default:
			var cmd tea.Cmd
			s.filter, cmd = s.filter.Update(msg)
			s.applyFilter()
			return s, cmd
		}
	}

	switch {
	case key.Matches(km, keys.Filter):
		s.filtering = true
		return s, s.filter.Focus()
	case key.Matches(km, keys.Up):
		if s.cursor > 0 {
			s.cursor--
		}
	case key.Matches(km, keys.Down):
		if s.cursor < len(s.items)-1 {
			s.cursor++
		}
	case key.Matches(km, keys.Select):
		return s, s.open()
	}
	return s, nil
}

func (s *Sidebar) open() tea.Cmd {
	it, ok := s.Selected()
	if !ok {
		return nil
	}
	t, ok := it.Target()
	if !ok {
		return nil
	}
	return emit(NavigateMsg{Target: t})
}

// View renders the sidebar.
func (s *Sidebar) View() string {
	t := s.theme
	inner := max(s.width-4, 8)

	head := []string{
		t.HeaderTitle.Render("catchat"),
		s.filter.View(),
		"",
	}
	foot := []string{"", t.Muted.Render(util.TruncateWidth("@"+s.me, inner))}

	listHeight := max(s.height-2-len(head)-len(foot), 1)
	body := s.renderRows(inner, listHeight)

	frame := t.Sidebar
	if s.focused {
		frame = t.SidebarFocused
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		append(append(head, body...), foot...)...)
	return frame.Width(max(s.width-2, 1)).Height(max(s.height-2, 1)).Render(content)
}

func (s *Sidebar) renderRows(width, height int) []string {
	t := s.theme
	if !s.loaded && len(s.items) <= 1 {
		return []string{t.SidebarEmpty.Render("Loading...")}
	}
	if len(s.items) == 0 {
		return []string{t.SidebarEmpty.Render("No results")}
	}

	if s.cursor < s.offset {
		s.offset = s.cursor
	}
	if s.cursor >= s.offset+height {
		s.offset = s.cursor - height + 1
	}

	now := s.now()
	var rows []string
	for i := s.offset; i < len(s.items) && len(rows) < height; i++ {
		rows = append(rows, s.renderRow(s.items[i], i, width, now))
	}
	if s.filter.Value() == "" && len(s.items) == 1 && s.items[0].Kind == reconcile.ItemBroadcast {
		rows = append(rows, "", t.SidebarEmpty.Render("No conversations yet"))
	}
	return rows
}

func (s *Sidebar) renderRow(it reconcile.Item, i, width int, now time.Time) string {
	t := s.theme

	var marker string
	switch it.Kind {
	case reconcile.ItemBroadcast:
		marker = t.BroadcastMarker.Render("!")
	case reconcile.ItemGroup:
		marker = t.GroupMarker.Render("#")
	default:
		marker = t.Muted.Render("@")
	}

	meta := ""
	if at := it.LastActivity(); at != nil {
		meta = RelativeTime(*at, now)
	}
	row := fitRow(it.Title(), meta, width-2)

	style := t.SidebarItem
	switch {
	case s.focused && i == s.cursor:
		style = t.SidebarItemSelected
	case it.Matches(s.active):
		style = t.SidebarItemActive
	}
	return marker + " " + style.Render(row)
}
