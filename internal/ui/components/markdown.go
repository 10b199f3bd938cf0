// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders message content. A nil *Markdown, or one whose renderer
// could not be built, returns content wrapped as plain text.
type Markdown struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

// NewMarkdown creates a renderer for a glamour standard style ("dark" or
// "light") and wrap width.
func NewMarkdown(style string, width int) *Markdown {
	m := &Markdown{style: style, width: width}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		m.renderer = r
	}
	return m
}

// Matches reports whether the renderer was built for style and width.
func (m *Markdown) Matches(style string, width int) bool {
	return m != nil && m.style == style && m.width == width
}

// Render returns content as terminal output.
func (m *Markdown) Render(content string, width int) string {
	if m == nil || m.renderer == nil {
		return wrapPlain(content, width)
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return wrapPlain(content, width)
	}
	return strings.Trim(out, "\n")
}
