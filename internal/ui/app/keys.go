// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/catachess/catchat-tui/internal/ui/components"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap holds the global bindings. Component-local keys live with the
// components.
type KeyMap struct {
	Quit        key.Binding
	NewChat     key.Binding
	NewGroup    key.Binding
	GroupInfo   key.Binding
	Broadcasts  key.Binding
	Copy        key.Binding
	SwitchFocus key.Binding
	Back        key.Binding
	Blur        key.Binding
	SignOut     key.Binding
}

// DefaultKeyMap returns the default global bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-q", "quit"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new chat"),
		),
		NewGroup: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("C-g", "new group"),
		),
		GroupInfo: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("C-e", "group info"),
		),
		Broadcasts: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("C-b", "broadcasts"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "copy last"),
		),
		SwitchFocus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "focus"),
		),
		Back: key.NewBinding(
			key.WithKeys("alt+left", "ctrl+o"),
			key.WithHelp("C-o", "back"),
		),
		Blur: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "list"),
		),
		SignOut: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "sign out"),
		),
	}
}

func hint(b key.Binding) components.Hint {
	h := b.Help()
	return components.Hint{Key: h.Key, Desc: h.Desc}
}
