// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/catachess/catchat-tui/internal/model"
	"github.com/catachess/catchat-tui/internal/ui/styles"
)

type settingsMode int

const (
	settingsBrowse settingsMode = iota
	settingsRename
	settingsAdd
	settingsConfirm
)

// GroupSettings is the group info panel.
type GroupSettings struct {
	group   model.Group
	meID    string
	members []model.GroupMember
	cursor  int
	mode    settingsMode

	rename textinput.Model
	add    textinput.Model

	busy      bool
	renameErr string
	addNote   string
	addOK     bool
	actionErr string

	theme *styles.Theme
}

// NewGroupSettings creates the panel for g as seen by meID.
func NewGroupSettings(theme *styles.Theme, g model.Group, meID string) *GroupSettings {
	rename := textinput.New()
	rename.Prompt = ""
	rename.CharLimit = MaxGroupNameLength
	rename.Width = 30

	add := newSearchInput("Enter username...")

	p := &GroupSettings{
		meID:   meID,
		rename: rename,
		add:    add,
		theme:  theme,
	}
	p.SetGroup(g)
	return p
}

// SetGroup refreshes the roster, keeping the cursor on the same member.
func (p *GroupSettings) SetGroup(g model.Group) {
	var keep string
	if p.cursor < len(p.members) {
		keep = p.members[p.cursor].UserID
	}
	p.group = g
	p.members = g.SortedMembers()
	p.cursor = 0
	for i, m := range p.members {
		if m.UserID == keep {
			p.cursor = i
		}
	}
}

// GroupID returns the group shown.
func (p *GroupSettings) GroupID() string { return p.group.ID }

// MyRole returns the viewer's role.
func (p *GroupSettings) MyRole() model.Role { return p.group.RoleOf(p.meID) }

// SetAddOutcome shows the inline result of an add.
func (p *GroupSettings) SetAddOutcome(msg string, ok bool) {
	p.busy = false
	p.addNote, p.addOK = msg, ok
	if ok {
		p.add.Reset()
	}
}

// SetRenameResult ends a rename; an empty err closes the editor.
func (p *GroupSettings) SetRenameResult(err string) {
	p.busy = false
	p.renameErr = err
	if err == "" {
		p.setMode(settingsBrowse)
	}
}

// SetActionError shows a failed member action.
func (p *GroupSettings) SetActionError(err string) {
	p.busy = false
	p.actionErr = err
	if p.mode == settingsConfirm {
		p.setMode(settingsBrowse)
	}
}

// SetBusy marks a request in flight.
func (p *GroupSettings) SetBusy(b bool) { p.busy = b }

func (p *GroupSettings) setMode(m settingsMode) {
	p.mode = m
	p.rename.Blur()
	p.add.Blur()
	switch m {
	case settingsRename:
		p.rename.SetValue(p.group.Name)
		p.rename.CursorEnd()
		p.rename.Focus()
		p.renameErr = ""
	case settingsAdd:
		p.add.Focus()
		p.addNote = ""
	}
}

func (p *GroupSettings) selected() (model.GroupMember, bool) {
	if p.cursor < 0 || p.cursor >= len(p.members) {
		return model.GroupMember{}, false
	}
	return p.members[p.cursor], true
}

// Update handles input.
func (p *GroupSettings) Update(msg tea.Msg) (*GroupSettings, tea.Cmd) {
	km, isKey := msg.(tea.KeyMsg)

	switch p.mode {
	case settingsRename:
		if isKey {
			switch {
			case key.Matches(km, keys.Cancel):
				p.setMode(settingsBrowse)
				return p, nil
			case key.Matches(km, keys.Select):
				return p, p.submitRename()
			}
		}
		var cmd tea.Cmd
		p.rename, cmd = p.rename.Update(msg)
		return p, cmd

	case settingsAdd:
		if isKey {
			switch {
			case key.Matches(km, keys.Cancel):
				p.setMode(settingsBrowse)
				return p, nil
			case key.Matches(km, keys.Select):
				return p, p.submitAdd()
			}
		}
		before := p.add.Value()
		var cmd tea.Cmd
		p.add, cmd = p.add.Update(msg)
		if p.add.Value() != before {
			p.addNote = ""
		}
		return p, cmd

	case settingsConfirm:
		if !isKey {
			return p, nil
		}
		switch km.String() {
		case "enter", "y":
			return p, p.confirmExit()
		case "esc", "n":
			p.setMode(settingsBrowse)
		}
		return p, nil
	}

	if !isKey {
		return p, nil
	}
	mine := p.MyRole()
	switch {
	case key.Matches(km, keys.Cancel):
		return p, emit(CloseDialogMsg{})
	case key.Matches(km, keys.Up):
		if p.cursor > 0 {
			p.cursor--
		}
	case key.Matches(km, keys.Down):
		if p.cursor < len(p.members)-1 {
			p.cursor++
		}
	case km.String() == "r" && model.CanRename(mine):
		p.setMode(settingsRename)
	case (km.String() == "+" || km.String() == "n") && model.CanAddMember(mine):
		p.setMode(settingsAdd)
	case km.String() == "a":
		return p, p.toggleAdmin()
	case km.String() == "x" || km.Type == tea.KeyDelete:
		return p, p.remove()
	case km.String() == "d" && (model.CanLeave(mine) || model.CanDissolve(mine)):
		p.actionErr = ""
		p.setMode(settingsConfirm)
	}
	return p, nil
}

func (p *GroupSettings) submitRename() tea.Cmd {
	if p.busy {
		return nil
	}
	name := strings.TrimSpace(p.rename.Value())
	if name == "" || name == p.group.Name {
		p.setMode(settingsBrowse)
		return nil
	}
	p.busy = true
	return emit(RenameGroupMsg{GroupID: p.group.ID, Name: name})
}

func (p *GroupSettings) submitAdd() tea.Cmd {
	name := strings.TrimSpace(p.add.Value())
	if name == "" || p.busy {
		return nil
	}
	p.busy = true
	return emit(AddMemberMsg{GroupID: p.group.ID, Username: name})
}

func (p *GroupSettings) toggleAdmin() tea.Cmd {
	m, ok := p.selected()
	if !ok || p.busy || !model.CanChangeRole(p.MyRole(), m.Role, m.UserID == p.meID) {
		return nil
	}
	role := model.RoleAdmin
	if m.Role == model.RoleAdmin {
		role = model.RoleMember
	}
	p.actionErr = ""
	return emit(ChangeRoleMsg{GroupID: p.group.ID, UserID: m.UserID, Role: role})
}

func (p *GroupSettings) remove() tea.Cmd {
	m, ok := p.selected()
	if !ok || p.busy || !model.CanRemove(p.MyRole(), m.Role, m.UserID == p.meID) {
		return nil
	}
	p.actionErr = ""
	return emit(RemoveMemberMsg{GroupID: p.group.ID, UserID: m.UserID})
}

func (p *GroupSettings) confirmExit() tea.Cmd {
	if p.busy {
		return nil
	}
	p.busy = true
	if model.CanDissolve(p.MyRole()) {
		return emit(DissolveGroupMsg{GroupID: p.group.ID, Confirmed: true})
	}
	return emit(LeaveGroupMsg{GroupID: p.group.ID})
}

// memberActions lists what the viewer may do to m.
func (p *GroupSettings) memberActions(m model.GroupMember) []string {
	mine := p.MyRole()
	self := m.UserID == p.meID
	var out []string
	if model.CanChangeRole(mine, m.Role, self) {
		switch m.Role {
		case model.RoleMember:
			out = append(out, "a: Make Admin")
		case model.RoleAdmin:
			out = append(out, "a: Remove Admin")
		}
	}
	if model.CanRemove(mine, m.Role, self) {
		out = append(out, "x: Remove from group")
	}
	return out
}

func (p *GroupSettings) roleStyle(r model.Role) lipgloss.Style {
	switch r {
	case model.RoleOwner:
		return p.theme.RoleOwner
	case model.RoleAdmin:
		return p.theme.RoleAdmin
	default:
		return p.theme.RoleMember
	}
}

// View renders the panel.
func (p *GroupSettings) View() string {
	t := p.theme
	mine := p.MyRole()

	count := fmt.Sprintf("%d member", len(p.members))
	if len(p.members) != 1 {
		count += "s"
	}

	rows := []string{t.DialogTitle.Render("Group Info")}
	if p.mode == settingsRename {
		rows = append(rows, t.InputContainerFocused.Width(34).Render(p.rename.View()))
		if p.renameErr != "" {
			rows = append(rows, t.DialogError.Render(p.renameErr))
		}
	} else {
		name := t.Bold.Render(p.group.Name)
		if model.CanRename(mine) {
			name += " " + t.Muted.Render("(r to rename)")
		}
		rows = append(rows, name)
	}
	rows = append(rows, t.Muted.Render(count), "", t.DialogLabel.Render("Members"))

	if model.CanAddMember(mine) {
		if p.mode == settingsAdd {
			rows = append(rows, t.InputContainerFocused.Width(34).Render(p.add.View()))
		} else {
			rows = append(rows, t.Muted.Render("+ Add member (n)"))
		}
		if p.addNote != "" {
			st := t.DialogError
			if p.addOK {
				st = t.SuccessText
			}
			rows = append(rows, st.Render(p.addNote))
		}
	}

	for i, m := range p.members {
		line := styles.TreePrefix(i == len(p.members)-1) + m.Username
		if m.UserID == p.meID {
			line += " " + t.Muted.Render("you")
		}
		line += "  " + p.roleStyle(m.Role).Render(m.Role.Badge())
		if p.mode == settingsBrowse && i == p.cursor {
			line = t.SidebarItemSelected.Render(line)
		}
		rows = append(rows, line)
	}
	if m, ok := p.selected(); ok && p.mode == settingsBrowse {
		if acts := p.memberActions(m); len(acts) > 0 {
			rows = append(rows, t.DialogHint.Render(strings.Join(acts, "  ")))
		}
	}
	if p.actionErr != "" {
		rows = append(rows, t.DialogError.Render(p.actionErr))
	}

	rows = append(rows, "")
	switch {
	case p.mode == settingsConfirm && model.CanDissolve(mine):
		rows = append(rows,
			t.DialogError.Render("Dissolve this group for everyone?"),
			t.Button.Render("Cancel (Esc)")+" "+t.ButtonDanger.Render("Dissolve (Enter)"))
	case p.mode == settingsConfirm:
		rows = append(rows,
			t.DialogError.Render("Leave this group?"),
			t.Button.Render("Cancel (Esc)")+" "+t.ButtonDanger.Render("Leave (Enter)"))
	case model.CanDissolve(mine):
		rows = append(rows, t.ErrorText.Render("d: Dissolve group"))
	case model.CanLeave(mine):
		rows = append(rows, t.ErrorText.Render("d: Leave group"))
	}
	rows = append(rows, t.DialogHint.Render("Esc to close"))
	return t.Dialog.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
