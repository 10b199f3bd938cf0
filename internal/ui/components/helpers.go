// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"math"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/catachess/catchat-tui/internal/util"
)

// RelativeTime formats t for list rows: the clock time today, "Yesterday",
// the weekday within the last week, else the month and day.
func RelativeTime(t, now time.Time) string {
	t = t.In(now.Location())
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	today := time.Date(y2, m2, d2, 0, 0, 0, 0, now.Location())
	day := time.Date(y1, m1, d1, 0, 0, 0, 0, now.Location())

	switch days := int(math.Round(today.Sub(day).Hours() / 24)); {
	case days <= 0:
		return t.Format("15:04")
	case days == 1:
		return "Yesterday"
	case days < 7:
		return t.Format("Monday")
	default:
		return t.Format("Jan 2")
	}
}

// ClockTime formats a message timestamp.
func ClockTime(t time.Time) string {
	return t.Local().Format("15:04")
}

// fitRow lays out left and right within width, truncating left.
func fitRow(left, right string, width int) string {
	rw := util.StringWidth(right)
	if rw > 0 {
		rw++
	}
	left = util.TruncateWidth(left, width-rw)
	gap := width - util.StringWidth(left) - util.StringWidth(right)
	if gap < 0 {
		gap = 0
	}
	return left + strings.Repeat(" ", gap) + right
}

// wrapPlain wraps plain text to width, keeping existing line breaks.
func wrapPlain(text string, width int) string {
	if width < 8 {
		width = 8
	}
	var b strings.Builder
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		cur := 0
		for j, word := range strings.Fields(line) {
			w := util.StringWidth(word)
			if j > 0 && cur+1+w > width {
				b.WriteByte('\n')
				cur = 0
			} else if j > 0 {
				b.WriteByte(' ')
				cur++
			}
			for w > width {
				head := runewidth.Truncate(word, width, "")
				b.WriteString(head)
				b.WriteByte('\n')
				word = strings.TrimPrefix(word, head)
				w = util.StringWidth(word)
			}
			b.WriteString(word)
			cur += w
		}
	}
	return b.String()
}
