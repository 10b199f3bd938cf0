// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"
)

// validCommands lists every command name and alias ParseArgs accepts.
var validCommands = []string{
	"tui",
	"open",
	"chat",
	"dm",
	"group",
	"broadcast",
	"broadcasts",
	"login",
	"signin",
	"logout",
	"signout",
	"whoami",
	"me",
	"config",
	"doctor",
	"diag",
	"version",
	"help",
}

// SuggestCommand returns the closest known command to input, or "" when
// nothing is within a few edits.
func SuggestCommand(input string) string {
	input = strings.ToLower(input)
	if len(input) < 2 {
		return ""
	}

	maxDistance := 1
	switch {
	case len(input) > 8:
		maxDistance = 3
	case len(input) >= 4:
		maxDistance = 2
	}

	best, bestDistance := "", maxDistance+1
	for _, cmd := range validCommands {
		d := editDistance(input, cmd)
		if d == 0 {
			return ""
		}
		if d < bestDistance {
			best, bestDistance = cmd, d
		}
	}
	return best
}

// editDistance is the Levenshtein distance between a and b, by rune.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
