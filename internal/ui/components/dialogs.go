// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/catachess/catchat-tui/internal/model"
	"github.com/catachess/catchat-tui/internal/route"
	"github.com/catachess/catchat-tui/internal/ui/styles"
)

// MaxGroupNameLength bounds group names.
const MaxGroupNameLength = 100

func newSearchInput(placeholder string) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.Prompt = "@ "
	in.CharLimit = 64
	in.Width = 30
	return in
}

// =============================================================================
// NEW CHAT
// =============================================================================

// NewChatDialog looks up a username and opens a direct conversation.
type NewChatDialog struct {
	input     textinput.Model
	found     *model.UserLookup
	notFound  bool
	searching bool
	theme     *styles.Theme
}

// NewNewChatDialog creates the dialog with the search field focused.
func NewNewChatDialog(theme *styles.Theme) *NewChatDialog {
	d := &NewChatDialog{input: newSearchInput("username"), theme: theme}
	d.input.Focus()
	return d
}

// SetResult shows the outcome of a search.
func (d *NewChatDialog) SetResult(user model.UserLookup, found bool) {
	d.searching = false
	if found {
		d.found = &user
		d.notFound = false
		return
	}
	d.found = nil
	d.notFound = true
}

// Update handles input.
func (d *NewChatDialog) Update(msg tea.Msg) (*NewChatDialog, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keys.Cancel):
			return d, emit(CloseDialogMsg{})
		case key.Matches(km, keys.Select):
			return d, d.submit()
		}
	}
	before := d.input.Value()
	var cmd tea.Cmd
	d.input, cmd = d.input.Update(msg)
	if d.input.Value() != before {
		d.found = nil
		d.notFound = false
	}
	return d, cmd
}

func (d *NewChatDialog) submit() tea.Cmd {
	if d.found != nil {
		return tea.Batch(
			emit(CloseDialogMsg{}),
			emit(NavigateMsg{Target: route.DirectTo(d.found.Username)}),
		)
	}
	name := strings.TrimSpace(d.input.Value())
	if name == "" || d.searching {
		return nil
	}
	d.searching = true
	return emit(SearchUserMsg{Username: name, Purpose: SearchForChat})
}

// View renders the dialog.
func (d *NewChatDialog) View() string {
	t := d.theme
	rows := []string{
		t.DialogTitle.Render("New chat"),
		t.DialogLabel.Render("Find a user by username"),
		t.InputContainerFocused.Width(36).Render(d.input.View()),
	}
	switch {
	case d.searching:
		rows = append(rows, t.Muted.Render("Searching..."))
	case d.found != nil:
		rows = append(rows,
			t.SearchResult.Render(styles.StatusIndicators.Success+" "+d.found.Username),
			t.DialogHint.Render("Enter to start chatting"))
	case d.notFound:
		rows = append(rows, t.SearchMissing.Render("User not found"))
	default:
		rows = append(rows, t.DialogHint.Render("Enter to search, Esc to close"))
	}
	return t.Dialog.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// =============================================================================
// CREATE GROUP
// =============================================================================

const (
	groupFieldName = iota
	groupFieldSearch
	groupFieldCreate
	groupFieldCount
)

// CreateGroupDialog collects a name and members for a new group.
type CreateGroupDialog struct {
	name       textinput.Model
	search     textinput.Model
	selected   []model.UserLookup
	meID       string
	focus      int
	searching  bool
	notice     string
	err        string
	submitting bool
	theme      *styles.Theme
}

// NewCreateGroupDialog creates the dialog. meID is excluded from members.
func NewCreateGroupDialog(theme *styles.Theme, meID string) *CreateGroupDialog {
	name := textinput.New()
	name.Placeholder = "Group name (optional)"
	name.Prompt = ""
	name.CharLimit = MaxGroupNameLength
	name.Width = 34

	d := &CreateGroupDialog{
		name:   name,
		search: newSearchInput("add member by username"),
		meID:   meID,
		theme:  theme,
	}
	d.setFocus(groupFieldName)
	return d
}

// Selected returns the chosen members.
func (d *CreateGroupDialog) Selected() []model.UserLookup { return d.selected }

// AddResult applies a member search result.
func (d *CreateGroupDialog) AddResult(user model.UserLookup, found bool) {
	d.searching = false
	switch {
	case !found:
		d.notice = "User not found"
	case user.ID == d.meID:
		d.notice = "You are added automatically"
	case d.has(user.ID):
		d.notice = user.Username + " is already added"
	default:
		d.selected = append(d.selected, user)
		d.notice = ""
		d.err = ""
		d.search.Reset()
	}
}

// SetError shows a failure from the create request.
func (d *CreateGroupDialog) SetError(msg string) {
	d.err = msg
	d.submitting = false
}

func (d *CreateGroupDialog) has(id string) bool {
	for _, u := range d.selected {
		if u.ID == id {
			return true
		}
	}
	return false
}

func (d *CreateGroupDialog) setFocus(i int) {
	d.focus = (i + groupFieldCount) % groupFieldCount
	d.name.Blur()
	d.search.Blur()
	switch d.focus {
	case groupFieldName:
		d.name.Focus()
	case groupFieldSearch:
		d.search.Focus()
	}
}

// Update handles input.
func (d *CreateGroupDialog) Update(msg tea.Msg) (*CreateGroupDialog, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keys.Cancel):
			return d, emit(CloseDialogMsg{})
		case key.Matches(km, keys.Next):
			d.setFocus(d.focus + 1)
			return d, nil
		case key.Matches(km, keys.Prev):
			d.setFocus(d.focus - 1)
			return d, nil
		case key.Matches(km, keys.Submit):
			return d, d.create()
		case key.Matches(km, keys.Select):
			switch d.focus {
			case groupFieldName:
				d.setFocus(groupFieldSearch)
				return d, nil
			case groupFieldSearch:
				return d, d.lookup()
			default:
				return d, d.create()
			}
		case km.Type == tea.KeyBackspace && d.focus == groupFieldSearch &&
			d.search.Value() == "" && len(d.selected) > 0:
			d.selected = d.selected[:len(d.selected)-1]
			return d, nil
		}
	}

	var cmd tea.Cmd
	switch d.focus {
	case groupFieldName:
		d.name, cmd = d.name.Update(msg)
	case groupFieldSearch:
		d.search, cmd = d.search.Update(msg)
	}
	return d, cmd
}

func (d *CreateGroupDialog) lookup() tea.Cmd {
	name := strings.TrimSpace(d.search.Value())
	if name == "" || d.searching {
		return nil
	}
	d.searching = true
	d.notice = ""
	return emit(SearchUserMsg{Username: name, Purpose: SearchForGroup})
}

func (d *CreateGroupDialog) create() tea.Cmd {
	if d.submitting {
		return nil
	}
	if len(d.selected) == 0 {
		d.err = "Add at least one member"
		d.setFocus(groupFieldSearch)
		return nil
	}
	d.err = ""
	d.submitting = true
	members := append([]model.UserLookup(nil), d.selected...)
	return emit(CreateGroupMsg{Name: strings.TrimSpace(d.name.Value()), Members: members})
}

// View renders the dialog.
func (d *CreateGroupDialog) View() string {
	t := d.theme
	field := func(in textinput.Model, i int) string {
		st := t.InputContainer
		if d.focus == i {
			st = t.InputContainerFocused
		}
		return st.Width(38).Render(in.View())
	}

	chips := make([]string, len(d.selected))
	for i, u := range d.selected {
		chips[i] = t.Chip.Render(u.Username)
	}
	members := t.Muted.Render("No members yet")
	if len(chips) > 0 {
		members = lipgloss.JoinHorizontal(lipgloss.Top, chips...)
	}

	button := t.Button.Render("Create")
	if d.focus == groupFieldCreate {
		button = t.ButtonActive.Render("Create")
	}
	if d.submitting {
		button = t.Button.Render("Creating...")
	}

	rows := []string{
		t.DialogTitle.Render("Create group"),
		t.DialogLabel.Render("Name"),
		field(d.name, groupFieldName),
		t.DialogLabel.Render("Members"),
		members,
		field(d.search, groupFieldSearch),
	}
	switch {
	case d.searching:
		rows = append(rows, t.Muted.Render("Searching..."))
	case d.notice != "":
		rows = append(rows, t.SearchMissing.Render(d.notice))
	}
	rows = append(rows, "", button)
	if d.err != "" {
		rows = append(rows, t.DialogError.Render(d.err))
	}
	rows = append(rows, t.DialogHint.Render("Enter to search, Ctrl+S to create, Esc to close"))
	return t.Dialog.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
