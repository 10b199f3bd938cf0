// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Accent - Brand color, focus ring, selection
var Accent = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// AccentDeep - Selected row background
var AccentDeep = lipgloss.AdaptiveColor{Light: "#CFFAFE", Dark: "#164E63"}

// Violet - Groups and role badges
var Violet = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// Emerald - Connected, success
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Amber - Degraded, warnings
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// Rose - Errors, destructive actions
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// =============================================================================
// SURFACES AND TEXT
// =============================================================================

var Surface = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}
var SurfaceBright = lipgloss.AdaptiveColor{Light: "#FAFAFA", Dark: "#313244"}
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}
var OverlayDim = lipgloss.AdaptiveColor{Light: "#D4D4D4", Dark: "#45475A"}

var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}
var TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}
var TextInverse = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}

// =============================================================================
// MESSAGE BUBBLES
// =============================================================================

// Own messages
var OwnBubbleBg = lipgloss.AdaptiveColor{Light: "#DBEAFE", Dark: "#1E3A8A"}
var OwnBubbleFg = lipgloss.AdaptiveColor{Light: "#1E40AF", Dark: "#E0F2FE"}
var OwnBubbleBorder = lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#3B82F6"}

// Everyone else
var PeerBubbleBg = lipgloss.AdaptiveColor{Light: "#F3F4F6", Dark: "#2A2A3C"}
var PeerBubbleFg = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#E5E7EB"}
var PeerBubbleBorder = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#45475A"}

// Broadcast feed
var BroadcastBorder = lipgloss.AdaptiveColor{Light: "#F59E0B", Dark: "#F59E0B"}

// =============================================================================
// STATUS INDICATORS
// =============================================================================

// StatusIndicatorSet contains text indicators that carry meaning without color.
type StatusIndicatorSet struct {
	Success  string
	Error    string
	Warning  string
	Info     string
	Pending  string
	Active   string
	Degraded string
}

// StatusIndicators is ASCII only.
var StatusIndicators = StatusIndicatorSet{
	Success:  "[OK]",
	Error:    "[X]",
	Warning:  "[!]",
	Info:     "[i]",
	Pending:  "[ ]",
	Active:   "[*]",
	Degraded: "[~]",
}

// RenderSuccess renders a success message with its indicator.
func RenderSuccess(message string) string {
	return lipgloss.NewStyle().Foreground(Emerald).Bold(true).
		Render(StatusIndicators.Success + " " + message)
}

// RenderError renders an error message with its indicator.
func RenderError(message string) string {
	return lipgloss.NewStyle().Foreground(Rose).Bold(true).
		Render(StatusIndicators.Error + " " + message)
}

// RenderWarning renders a warning message with its indicator.
func RenderWarning(message string) string {
	return lipgloss.NewStyle().Foreground(Amber).Bold(true).
		Render(StatusIndicators.Warning + " " + message)
}

// RenderInfo renders an info message with its indicator.
func RenderInfo(message string) string {
	return lipgloss.NewStyle().Foreground(Accent).
		Render(StatusIndicators.Info + " " + message)
}
