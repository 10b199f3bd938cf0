// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/catachess/catchat-tui/internal/ui/styles"
)

// Login form fields, in tab order.
const (
	loginIdentifier = iota
	loginPassword
	loginRemember
	loginSubmit
	loginFieldCount
)

// LoginForm is the sign-in screen.
type LoginForm struct {
	identifier textinput.Model
	password   textinput.Model
	remember   bool
	focus      int
	err        string
	submitting bool
	width      int
	height     int
	theme      *styles.Theme
}

// NewLoginForm creates the form with "keep me signed in" on.
func NewLoginForm(theme *styles.Theme) *LoginForm {
	id := textinput.New()
	id.Placeholder = "username or email"
	id.CharLimit = 254
	id.Width = 32
	id.Prompt = ""

	pw := textinput.New()
	pw.Placeholder = "password"
	pw.EchoMode = textinput.EchoPassword
	pw.EchoCharacter = '*'
	pw.CharLimit = 256
	pw.Width = 32
	pw.Prompt = ""

	f := &LoginForm{
		identifier: id,
		password:   pw,
		remember:   true,
		theme:      theme,
	}
	f.identifier.Focus()
	return f
}

// SetSize sets the area the form is centered in.
func (f *LoginForm) SetSize(width, height int) {
	f.width, f.height = width, height
}

// SetError shows an inline error and ends the submitting state.
func (f *LoginForm) SetError(msg string) {
	f.err = msg
	f.submitting = false
}

// SetSubmitting marks a request in flight.
func (f *LoginForm) SetSubmitting(v bool) {
	f.submitting = v
}

// Reset clears the password and error, keeping the identifier.
func (f *LoginForm) Reset() {
	f.password.Reset()
	f.err = ""
	f.submitting = false
	f.setFocus(loginIdentifier)
}

// Remember reports the toggle state.
func (f *LoginForm) Remember() bool { return f.remember }

func (f *LoginForm) setFocus(i int) {
	f.focus = (i + loginFieldCount) % loginFieldCount
	f.identifier.Blur()
	f.password.Blur()
	switch f.focus {
	case loginIdentifier:
		f.identifier.Focus()
	case loginPassword:
		f.password.Focus()
	}
}

// Update handles input.
func (f *LoginForm) Update(msg tea.Msg) (*LoginForm, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keys.Next), key.Matches(km, keys.Down) && km.String() == "down":
			f.setFocus(f.focus + 1)
			return f, nil
		case key.Matches(km, keys.Prev), key.Matches(km, keys.Up) && km.String() == "up":
			f.setFocus(f.focus - 1)
			return f, nil
		case key.Matches(km, keys.Toggle) && f.focus == loginRemember:
			f.remember = !f.remember
			return f, nil
		case key.Matches(km, keys.Select):
			return f, f.submit()
		}
	}

	var cmd tea.Cmd
	switch f.focus {
	case loginIdentifier:
		f.identifier, cmd = f.identifier.Update(msg)
	case loginPassword:
		f.password, cmd = f.password.Update(msg)
	}
	return f, cmd
}

func (f *LoginForm) submit() tea.Cmd {
	if f.submitting {
		return nil
	}
	if f.focus == loginRemember {
		f.remember = !f.remember
		return nil
	}
	id := strings.TrimSpace(f.identifier.Value())
	if id == "" {
		f.err = "Enter your username or email"
		f.setFocus(loginIdentifier)
		return nil
	}
	if f.password.Value() == "" {
		f.err = "Enter your password"
		f.setFocus(loginPassword)
		return nil
	}
	f.err = ""
	f.submitting = true
	return emit(LoginSubmitMsg{Identifier: id, Password: f.password.Value(), Remember: f.remember})
}

// View renders the form centered in its area.
func (f *LoginForm) View() string {
	t := f.theme
	label := func(s string, i int) string {
		if f.focus == i {
			return t.InputPrompt.Render("> " + s)
		}
		return t.DialogLabel.Render("  " + s)
	}
	box := func(in textinput.Model, i int) string {
		st := t.InputContainer
		if f.focus == i {
			st = t.InputContainerFocused
		}
		return st.Width(36).Render(in.View())
	}

	check := "[ ]"
	if f.remember {
		check = "[x]"
	}
	remember := check + " Keep me signed in"
	if f.focus == loginRemember {
		remember = t.InputPrompt.Render("> " + remember)
	} else {
		remember = t.DialogLabel.Render("  " + remember)
	}

	button := t.Button.Render("Sign in")
	if f.focus == loginSubmit {
		button = t.ButtonActive.Render("Sign in")
	}
	if f.submitting {
		button = t.Button.Render("Signing in...")
	}

	rows := []string{
		t.DialogTitle.Render("catchat"),
		label("Username or email", loginIdentifier),
		box(f.identifier, loginIdentifier),
		label("Password", loginPassword),
		box(f.password, loginPassword),
		"",
		remember,
		"",
		button,
	}
	if f.err != "" {
		rows = append(rows, "", t.DialogError.Render(f.err))
	}
	rows = append(rows, "", t.DialogHint.Render("Tab to move, Enter to sign in, Ctrl+C to quit"))

	form := t.Dialog.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	if f.width == 0 || f.height == 0 {
		return form
	}
	return lipgloss.Place(f.width, f.height, lipgloss.Center, lipgloss.Center, form)
}
