// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the catchat TUI.

# Color System (colors.go)

Every color is a Lip Gloss AdaptiveColor. Which half is used follows the
theme mode: "dark" and "light" force it, "auto" asks the terminal.

  - Accent (cyan) - Brand, focus ring, selected conversation
  - Violet - Group conversations and role badges
  - Emerald - Online/connected, success toasts
  - Amber - Degraded badge, warnings
  - Rose - Errors and destructive buttons

Own messages and peer messages have separate bubble colors so the two
sides of a conversation are distinguishable without alignment.

# Theme (theme.go)

Theme holds every lipgloss.Style the components render with. Create one
per program with NewTheme and rebuild it when the configured mode changes.

	theme := styles.NewTheme(styles.ParseMode(cfg.UI.Theme))
	theme.SetSize(msg.Width, msg.Height)

GlamourStyle returns the matching glamour standard style name for message
markdown rendering.

# Animations (animations.go)

Spinner frame sets are ASCII only, for terminals without Unicode fonts.
*/
package styles
