// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/catachess/catchat-tui/internal/ui/styles"
)

// =============================================================================
// TOASTS
// =============================================================================

// ToastKind selects toast styling and lifetime.
type ToastKind int

const (
	ToastInfo ToastKind = iota
	ToastError
)

const (
	DefaultToastDuration = 4 * time.Second
	ErrorToastDuration   = 8 * time.Second
)

// Toast is a transient notice shown in the status bar.
type Toast struct {
	ID        int
	Message   string
	Kind      ToastKind
	CreatedAt time.Time
	Duration  time.Duration
}

// Expired reports whether the toast should be dropped at now.
func (t Toast) Expired(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= t.Duration
}

// ToastManager keeps the newest toasts, up to a small cap.
type ToastManager struct {
	mu     sync.Mutex
	toasts []Toast
	nextID int
	max    int
	now    func() time.Time
}

// NewToastManager creates an empty manager.
func NewToastManager() *ToastManager {
	return &ToastManager{nextID: 1, max: 3, now: time.Now}
}

// Add queues a toast and returns its id.
func (m *ToastManager) Add(message string, kind ToastKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := DefaultToastDuration
	if kind == ToastError {
		d = ErrorToastDuration
	}
	t := Toast{ID: m.nextID, Message: message, Kind: kind, CreatedAt: m.now(), Duration: d}
	m.nextID++

	m.toasts = append([]Toast{t}, m.toasts...)
	if len(m.toasts) > m.max {
		m.toasts = m.toasts[:m.max]
	}
	return t.ID
}

// Tick drops expired toasts and reports whether any remain.
func (m *ToastManager) Tick() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	active := m.toasts[:0]
	for _, t := range m.toasts {
		if !t.Expired(now) {
			active = append(active, t)
		}
	}
	m.toasts = active
	return len(m.toasts) > 0
}

// Current returns the newest toast.
func (m *ToastManager) Current() (Toast, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.toasts) == 0 {
		return Toast{}, false
	}
	return m.toasts[0], true
}

// Clear drops every toast.
func (m *ToastManager) Clear() {
	m.mu.Lock()
	m.toasts = nil
	m.mu.Unlock()
}

// ToastTickMsg drives toast expiry.
type ToastTickMsg struct {
	Time time.Time
}

// ToastTickCmd ticks toasts twice a second.
func ToastTickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return ToastTickMsg{Time: t}
	})
}

// =============================================================================
// STATUS BAR
// =============================================================================

// Hint is one key/description pair in the status bar.
type Hint struct {
	Key  string
	Desc string
}

// StatusBar is the bottom line: who is signed in, sync state, key hints and
// the current toast.
type StatusBar struct {
	Width    int
	User     string
	Degraded bool
	Hints    []Hint

	Toasts *ToastManager
	theme  *styles.Theme
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{Toasts: NewToastManager(), theme: theme}
}

// SetWidth sets the render width.
func (s *StatusBar) SetWidth(w int) { s.Width = w }

// SetUser sets the signed-in display name.
func (s *StatusBar) SetUser(name string) { s.User = name }

// SetDegraded toggles the sync warning badge.
func (s *StatusBar) SetDegraded(d bool) { s.Degraded = d }

// SetHints replaces the key hints.
func (s *StatusBar) SetHints(h []Hint) { s.Hints = h }

// Notify shows an info toast and returns the tick command that expires it.
func (s *StatusBar) Notify(msg string) tea.Cmd {
	s.Toasts.Add(msg, ToastInfo)
	return ToastTickCmd()
}

// NotifyError shows an error toast.
func (s *StatusBar) NotifyError(msg string) tea.Cmd {
	s.Toasts.Add(msg, ToastError)
	return ToastTickCmd()
}

// Update handles toast ticks.
func (s *StatusBar) Update(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(ToastTickMsg); ok {
		if s.Toasts.Tick() {
			return ToastTickCmd()
		}
	}
	return nil
}

// View renders the bar.
func (s *StatusBar) View() string {
	t := s.theme
	var left []string
	if s.Degraded {
		left = append(left, t.DegradedBadge.Render(styles.StatusIndicators.Degraded+" reconnecting"))
	} else {
		left = append(left, t.OnlineBadge.Render(styles.StatusIndicators.Success))
	}
	if s.User != "" {
		left = append(left, t.UserBadge.Render("@"+s.User))
	}

	var right string
	if toast, ok := s.Toasts.Current(); ok {
		st := t.ToastInfo
		if toast.Kind == ToastError {
			st = t.ToastError
		}
		right = st.Render(toast.Message)
	} else {
		right = s.renderHints()
	}

	l := strings.Join(left, " ")
	gap := max(s.Width-2-lipgloss.Width(l)-lipgloss.Width(right), 1)
	return t.StatusBar.Width(s.Width).MaxHeight(1).Render(l + strings.Repeat(" ", gap) + right)
}

func (s *StatusBar) renderHints() string {
	hints := s.Hints
	switch {
	case s.Width < 60:
		hints = hints[:min(len(hints), 2)]
	case s.Width < 100:
		hints = hints[:min(len(hints), 4)]
	}
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, s.theme.ShortcutKey.Render(h.Key)+" "+s.theme.ShortcutDesc.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}
