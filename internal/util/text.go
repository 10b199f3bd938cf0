// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/unicode/norm"
)

// UNICODE: Width-aware truncation keeps CJK names and emoji intact in
// fixed-width sidebar rows.

// TruncateWidth truncates s to at most maxWidth display columns, ending with
// an ellipsis when anything was cut.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return "…"
	}
	return runewidth.Truncate(s, maxWidth, "…")
}

// PadRight pads s with spaces to exactly width display columns, truncating
// when it is wider.
func PadRight(s string, width int) string {
	s = TruncateWidth(s, width)
	return runewidth.FillRight(s, width)
}

// StringWidth returns the number of terminal columns s occupies.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// ShortID abbreviates an opaque identifier for display, e.g. a peer whose
// username is not known yet: "3f2a9c01…".
func ShortID(id string) string {
	if utf8.RuneCountInString(id) <= 8 {
		return id
	}
	return string([]rune(id)[:8]) + "…"
}

// Initial returns the upper-cased first letter of name, used as the avatar
// glyph in list rows.
func Initial(name string) string {
	r, _ := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}

// Hue derives a stable 0-359 colour hue from a name so the same user always
// gets the same avatar colour.
func Hue(name string) int {
	sum := 0
	for _, r := range name {
		sum += int(r)
	}
	return sum % 360
}

// Fold prepares text for case-insensitive matching: NFC normalised and lower
// cased, so "Zoë" typed with a combining diaeresis still matches "zoë".
func Fold(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}

// ContainsFold reports whether needle occurs in haystack ignoring case and
// Unicode normalisation form. An empty needle matches everything.
func ContainsFold(haystack, needle string) bool {
	n := Fold(needle)
	if n == "" {
		return true
	}
	return strings.Contains(Fold(haystack), n)
}
