// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package route

// History is a back-stack of targets, like a browser's session history
// without forward navigation.
type History struct {
	stack []Target
	max   int
}

// NewHistory creates a history starting at initial. max bounds the stack;
// zero means 100.
func NewHistory(initial Target, max int) *History {
	if max <= 0 {
		max = 100
	}
	return &History{stack: []Target{initial}, max: max}
}

// Current returns the target on top of the stack.
func (h *History) Current() Target {
	return h.stack[len(h.stack)-1]
}

// Push navigates to t. Pushing the current target again is a no-op.
func (h *History) Push(t Target) {
	if h.Current().Key() == t.Key() && h.Current().Kind == t.Kind {
		return
	}
	h.stack = append(h.stack, t)
	if len(h.stack) > h.max {
		h.stack = h.stack[len(h.stack)-h.max:]
	}
}

// Replace swaps the current entry, as redirects do.
func (h *History) Replace(t Target) {
	h.stack[len(h.stack)-1] = t
}

// Back pops the current entry and returns the new current one. It reports
// false when there is nothing to go back to.
func (h *History) Back() (Target, bool) {
	if len(h.stack) <= 1 {
		return h.Current(), false
	}
	h.stack = h.stack[:len(h.stack)-1]
	return h.Current(), true
}

// Reset clears history to a single entry.
func (h *History) Reset(t Target) {
	h.stack = []Target{t}
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.stack)
}
