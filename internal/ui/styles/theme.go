// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Mode selects the light or dark half of every AdaptiveColor.
type Mode int

const (
	ModeAuto Mode = iota
	ModeDark
	ModeLight
)

// ParseMode maps a config value to a Mode. Unknown values are ModeAuto.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dark":
		return ModeDark
	case "light":
		return ModeLight
	default:
		return ModeAuto
	}
}

// String returns the config spelling of the mode.
func (m Mode) String() string {
	switch m {
	case ModeDark:
		return "dark"
	case ModeLight:
		return "light"
	default:
		return "auto"
	}
}

// Theme holds all the styled components for the application.
type Theme struct {
	Mode         Mode
	IsDark       bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	App lipgloss.Style

	// Header
	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// Sidebar
	Sidebar             lipgloss.Style
	SidebarFocused      lipgloss.Style
	SidebarTitle        lipgloss.Style
	SidebarItem         lipgloss.Style
	SidebarItemSelected lipgloss.Style
	SidebarItemActive   lipgloss.Style
	SidebarMeta         lipgloss.Style
	SidebarEmpty        lipgloss.Style
	GroupMarker         lipgloss.Style
	BroadcastMarker     lipgloss.Style

	// Thread
	ThreadHeader   lipgloss.Style
	ThreadTitle    lipgloss.Style
	ThreadSubtitle lipgloss.Style
	OwnBubble      lipgloss.Style
	PeerBubble     lipgloss.Style
	BroadcastItem  lipgloss.Style
	Sender         lipgloss.Style
	OwnSender      lipgloss.Style
	Timestamp      lipgloss.Style
	EmptyThread    lipgloss.Style

	// Input
	InputContainer        lipgloss.Style
	InputContainerFocused lipgloss.Style
	InputPrompt           lipgloss.Style
	CharCount             lipgloss.Style
	CharCountWarning      lipgloss.Style

	// Status bar
	StatusBar     lipgloss.Style
	ShortcutKey   lipgloss.Style
	ShortcutDesc  lipgloss.Style
	OnlineBadge   lipgloss.Style
	DegradedBadge lipgloss.Style
	UserBadge     lipgloss.Style

	// Dialogs
	Dialog        lipgloss.Style
	DialogTitle   lipgloss.Style
	DialogLabel   lipgloss.Style
	DialogHint    lipgloss.Style
	DialogError   lipgloss.Style
	Button        lipgloss.Style
	ButtonActive  lipgloss.Style
	ButtonDanger  lipgloss.Style
	Chip          lipgloss.Style
	RoleOwner     lipgloss.Style
	RoleAdmin     lipgloss.Style
	RoleMember    lipgloss.Style
	SearchResult  lipgloss.Style
	SearchMissing lipgloss.Style

	// Toasts
	ToastInfo  lipgloss.Style
	ToastError lipgloss.Style

	// Text
	Spinner     lipgloss.Style
	Muted       lipgloss.Style
	ErrorText   lipgloss.Style
	SuccessText lipgloss.Style
	Bold        lipgloss.Style
}

// NewTheme creates a theme for mode. ModeAuto asks the terminal for its
// background color.
func NewTheme(mode Mode) *Theme {
	isDark := true
	switch mode {
	case ModeLight:
		isDark = false
	case ModeAuto:
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		Mode:         mode,
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

// GlamourStyle returns the glamour standard style matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle()

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Accent)
	t.HeaderSubtitle = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)

	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.SidebarFocused = t.Sidebar.BorderForeground(Accent)
	t.SidebarTitle = lipgloss.NewStyle().Bold(true).Foreground(TextSecondary).MarginBottom(1)
	t.SidebarItem = lipgloss.NewStyle().Foreground(TextPrimary)
	t.SidebarItemSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(AccentDeep).
		Bold(true)
	t.SidebarItemActive = lipgloss.NewStyle().Foreground(Accent).Bold(true)
	t.SidebarMeta = lipgloss.NewStyle().Foreground(TextMuted)
	t.SidebarEmpty = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.GroupMarker = lipgloss.NewStyle().Foreground(Violet)
	t.BroadcastMarker = lipgloss.NewStyle().Foreground(Amber)

	t.ThreadHeader = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.ThreadTitle = lipgloss.NewStyle().Bold(true).Foreground(TextPrimary)
	t.ThreadSubtitle = lipgloss.NewStyle().Foreground(TextSecondary)

	t.OwnBubble = lipgloss.NewStyle().
		Foreground(OwnBubbleFg).
		Background(OwnBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(OwnBubbleBorder).
		Padding(0, 1)
	t.PeerBubble = lipgloss.NewStyle().
		Foreground(PeerBubbleFg).
		Background(PeerBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(PeerBubbleBorder).
		Padding(0, 1)
	t.BroadcastItem = lipgloss.NewStyle().
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(BroadcastBorder).
		PaddingLeft(1)
	t.Sender = lipgloss.NewStyle().Bold(true).Foreground(Violet)
	t.OwnSender = lipgloss.NewStyle().Bold(true).Foreground(Accent)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)
	t.EmptyThread = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true).
		Align(lipgloss.Center)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputContainerFocused = t.InputContainer.BorderForeground(Accent)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Accent).Bold(true)
	t.CharCount = lipgloss.NewStyle().Foreground(TextMuted)
	t.CharCountWarning = lipgloss.NewStyle().Foreground(Amber)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.ShortcutKey = lipgloss.NewStyle().Foreground(Accent).Bold(true)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(TextMuted)
	t.OnlineBadge = lipgloss.NewStyle().Foreground(Emerald)
	t.DegradedBadge = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Amber).
		Bold(true).
		Padding(0, 1)
	t.UserBadge = lipgloss.NewStyle().Foreground(TextPrimary).Bold(true)

	t.Dialog = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Accent).
		Background(Surface).
		Padding(1, 2)
	t.DialogTitle = lipgloss.NewStyle().Bold(true).Foreground(Accent).MarginBottom(1)
	t.DialogLabel = lipgloss.NewStyle().Foreground(TextSecondary)
	t.DialogHint = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.DialogError = lipgloss.NewStyle().Foreground(Rose)
	t.Button = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(Overlay).
		Padding(0, 2)
	t.ButtonActive = t.Button.Foreground(TextInverse).Background(Accent).Bold(true)
	t.ButtonDanger = t.Button.Foreground(TextInverse).Background(Rose).Bold(true)
	t.Chip = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SurfaceBright).
		Padding(0, 1).
		MarginRight(1)
	t.RoleOwner = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	t.RoleAdmin = lipgloss.NewStyle().Foreground(Violet)
	t.RoleMember = lipgloss.NewStyle().Foreground(TextMuted)
	t.SearchResult = lipgloss.NewStyle().Foreground(Emerald)
	t.SearchMissing = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)

	t.ToastInfo = lipgloss.NewStyle().Foreground(Emerald)
	t.ToastError = lipgloss.NewStyle().Foreground(Rose).Bold(true)

	t.Spinner = lipgloss.NewStyle().Foreground(Accent)
	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)
	t.ErrorText = lipgloss.NewStyle().Foreground(Rose)
	t.SuccessText = lipgloss.NewStyle().Foreground(Emerald)
	t.Bold = lipgloss.NewStyle().Bold(true)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// SidebarWidth is the sidebar's outer width for the current layout. In the
// narrow layout the sidebar and thread take turns filling the screen.
func (t *Theme) SidebarWidth() int {
	switch t.GetLayoutMode() {
	case LayoutNarrow:
		return t.Width
	case LayoutMedium:
		return 28
	default:
		return 34
	}
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // >= 100 columns
)
