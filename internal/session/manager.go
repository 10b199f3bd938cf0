// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager schedules the poll and list-refresh ticks.
type Manager struct {
	mu sync.Mutex

	pollInterval time.Duration
	listInterval time.Duration

	// Bumped whenever a chain must die: Stop, or an interval change.
	pollGen uint64
	listGen uint64

	running   bool
	startTime time.Time
	lastPoll  time.Time
	lastList  time.Time
	polls     int
	refreshes int

	tick func(time.Duration, func(time.Time) tea.Msg) tea.Cmd
}

// Config holds the clock periods.
type Config struct {
	// PollInterval is the active-thread poll period (default: 3 seconds)
	PollInterval time.Duration

	// ListRefresh is the list refresh period (default: 8 seconds)
	ListRefresh time.Duration
}

// DefaultConfig returns the default periods.
func DefaultConfig() Config {
	return Config{
		PollInterval: 3 * time.Second,
		ListRefresh:  8 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.ListRefresh <= 0 {
		c.ListRefresh = d.ListRefresh
	}
	return c
}

// NewManager creates a stopped manager. Zero periods take the defaults.
func NewManager(cfg Config) *Manager {
	cfg = cfg.withDefaults()
	return &Manager{
		pollInterval: cfg.PollInterval,
		listInterval: cfg.ListRefresh,
		tick:         tea.Tick,
	}
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// PollTickMsg asks for an active-thread poll.
type PollTickMsg struct {
	Gen  uint64
	Time time.Time
}

// ListTickMsg asks for a list refresh.
type ListTickMsg struct {
	Gen  uint64
	Time time.Time
}

func (m *Manager) pollCmdLocked() tea.Cmd {
	gen := m.pollGen
	return m.tick(m.pollInterval, func(t time.Time) tea.Msg {
		return PollTickMsg{Gen: gen, Time: t}
	})
}

func (m *Manager) listCmdLocked() tea.Cmd {
	gen := m.listGen
	return m.tick(m.listInterval, func(t time.Time) tea.Msg {
		return ListTickMsg{Gen: gen, Time: t}
	})
}

// Start begins both clocks. Starting a running manager restarts them,
// dropping the old chains.
func (m *Manager) Start() tea.Cmd {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pollGen++
	m.listGen++
	m.running = true
	m.startTime = time.Now()
	return tea.Batch(m.pollCmdLocked(), m.listCmdLocked())
}

// Stop halts both clocks, as on sign-out. Ticks in flight are ignored when
// they arrive.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pollGen++
	m.listGen++
	m.running = false
}

// Running reports whether the clocks are active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// HandlePoll accepts a poll tick. ok is false for a tick from a dead chain,
// which the caller drops. Otherwise next schedules the following tick.
func (m *Manager) HandlePoll(msg PollTickMsg) (next tea.Cmd, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running || msg.Gen != m.pollGen {
		return nil, false
	}
	m.lastPoll = msg.Time
	m.polls++
	return m.pollCmdLocked(), true
}

// HandleList accepts a list tick; see HandlePoll.
func (m *Manager) HandleList(msg ListTickMsg) (next tea.Cmd, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running || msg.Gen != m.listGen {
		return nil, false
	}
	m.lastList = msg.Time
	m.refreshes++
	return m.listCmdLocked(), true
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// SetIntervals applies new periods, e.g. after a config reload. A clock
// whose period changed is restarted; the returned command starts the new
// chains and is nil when nothing changed or the manager is stopped.
func (m *Manager) SetIntervals(cfg Config) tea.Cmd {
	cfg = cfg.withDefaults()

	m.mu.Lock()
	defer m.mu.Unlock()

	var cmds []tea.Cmd
	if cfg.PollInterval != m.pollInterval {
		m.pollInterval = cfg.PollInterval
		m.pollGen++
		if m.running {
			cmds = append(cmds, m.pollCmdLocked())
		}
	}
	if cfg.ListRefresh != m.listInterval {
		m.listInterval = cfg.ListRefresh
		m.listGen++
		if m.running {
			cmds = append(cmds, m.listCmdLocked())
		}
	}
	return tea.Batch(cmds...)
}

// Intervals returns the current periods.
func (m *Manager) Intervals() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Config{PollInterval: m.pollInterval, ListRefresh: m.listInterval}
}

// =============================================================================
// SESSION STATUS
// =============================================================================

// Status is a snapshot of the clocks.
type Status struct {
	Running      bool
	StartTime    time.Time
	PollInterval time.Duration
	ListRefresh  time.Duration
	LastPoll     time.Time
	LastList     time.Time
	Polls        int
	Refreshes    int
}

// GetStatus returns the current status.
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Running:      m.running,
		StartTime:    m.startTime,
		PollInterval: m.pollInterval,
		ListRefresh:  m.listInterval,
		LastPoll:     m.lastPoll,
		LastList:     m.lastList,
		Polls:        m.polls,
		Refreshes:    m.refreshes,
	}
}
