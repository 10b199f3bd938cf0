// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// LineSpinner - Simple line rotation, for loading a thread
var LineSpinner = SpinnerConfig{
	Frames: []string{"|", "/", "-", "\\"},
	FPS:    10,
}

// DotsSpinner - Three-dot animation, for sending
var DotsSpinner = SpinnerConfig{
	Frames: []string{".  ", ".. ", "...", " ..", "  .", "   "},
	FPS:    6,
}

// SpinnerConfig holds the configuration for a spinner animation.
type SpinnerConfig struct {
	Frames []string
	FPS    int
}

// Duration returns the duration for each frame.
func (s SpinnerConfig) Duration() time.Duration {
	if s.FPS <= 0 {
		return time.Second
	}
	return time.Second / time.Duration(s.FPS)
}

// Bubble converts the config to a bubbles spinner definition.
func (s SpinnerConfig) Bubble() spinner.Spinner {
	return spinner.Spinner{Frames: s.Frames, FPS: s.Duration()}
}

// TreeChars draws member lists in the group settings panel.
var TreeChars = struct {
	Branch   string
	Last     string
	Vertical string
}{
	Branch:   "|-- ",
	Last:     "`-- ",
	Vertical: "|   ",
}

// TreePrefix returns the branch marker for a list item.
func TreePrefix(isLast bool) string {
	if isLast {
		return TreeChars.Last
	}
	return TreeChars.Branch
}
