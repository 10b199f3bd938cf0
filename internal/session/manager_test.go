// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// fakeTicks records scheduled ticks instead of sleeping.
type fakeTicks struct {
	scheduled []time.Duration
	fns       []func(time.Time) tea.Msg
}

func (f *fakeTicks) tick(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd {
	f.scheduled = append(f.scheduled, d)
	f.fns = append(f.fns, fn)
	return func() tea.Msg { return fn(time.Unix(0, 0)) }
}

// fire delivers the i'th scheduled tick.
func (f *fakeTicks) fire(i int) tea.Msg {
	return f.fns[i](time.Now())
}

func newTestManager(cfg Config) (*Manager, *fakeTicks) {
	m := NewManager(cfg)
	ft := &fakeTicks{}
	m.tick = ft.tick
	return m, ft
}

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.PollInterval != 3*time.Second {
		t.Errorf("PollInterval = %v, want 3s", cfg.PollInterval)
	}
	if cfg.ListRefresh != 8*time.Second {
		t.Errorf("ListRefresh = %v, want 8s", cfg.ListRefresh)
	}
}

func TestNewManager_ZeroTakesDefaults(t *testing.T) {
	m := NewManager(Config{PollInterval: time.Second})
	got := m.Intervals()
	if got.PollInterval != time.Second || got.ListRefresh != 8*time.Second {
		t.Errorf("Intervals = %+v", got)
	}
	if m.Running() {
		t.Error("new manager should be stopped")
	}
}

// =============================================================================
// TICK TESTS
// =============================================================================

func TestStart_SchedulesBothClocks(t *testing.T) {
	m, ft := newTestManager(DefaultConfig())
	if cmd := m.Start(); cmd == nil {
		t.Fatal("Start returned nil")
	}
	if len(ft.scheduled) != 2 {
		t.Fatalf("scheduled %d ticks, want 2", len(ft.scheduled))
	}

	poll, ok := ft.fire(0).(PollTickMsg)
	if !ok {
		t.Fatalf("first tick = %T", ft.fire(0))
	}
	next, ok := m.HandlePoll(poll)
	if !ok || next == nil {
		t.Fatal("live poll tick should be accepted and rescheduled")
	}

	list := ft.fire(1).(ListTickMsg)
	if _, ok := m.HandleList(list); !ok {
		t.Error("live list tick should be accepted")
	}

	st := m.GetStatus()
	if st.Polls != 1 || st.Refreshes != 1 || !st.Running {
		t.Errorf("status = %+v", st)
	}
}

func TestStop_DropsInFlightTicks(t *testing.T) {
	m, ft := newTestManager(DefaultConfig())
	m.Start()
	poll := ft.fire(0).(PollTickMsg)
	list := ft.fire(1).(ListTickMsg)

	m.Stop()
	if _, ok := m.HandlePoll(poll); ok {
		t.Error("poll tick after Stop should be dropped")
	}
	if _, ok := m.HandleList(list); ok {
		t.Error("list tick after Stop should be dropped")
	}
}

func TestRestart_KillsOldChain(t *testing.T) {
	m, ft := newTestManager(DefaultConfig())
	m.Start()
	old := ft.fire(0).(PollTickMsg)

	m.Start()
	if _, ok := m.HandlePoll(old); ok {
		t.Error("tick from the previous chain should be dropped")
	}
	fresh := ft.fire(2).(PollTickMsg)
	if _, ok := m.HandlePoll(fresh); !ok {
		t.Error("tick from the new chain should be accepted")
	}
}

func TestSetIntervals(t *testing.T) {
	m, ft := newTestManager(DefaultConfig())
	m.Start()
	oldPoll := ft.fire(0).(PollTickMsg)
	oldList := ft.fire(1).(ListTickMsg)

	if cmd := m.SetIntervals(DefaultConfig()); cmd != nil {
		t.Error("unchanged intervals should not schedule anything")
	}

	cmd := m.SetIntervals(Config{PollInterval: 5 * time.Second, ListRefresh: 8 * time.Second})
	if cmd == nil {
		t.Fatal("changed poll interval should restart the poll clock")
	}
	if got := ft.scheduled[len(ft.scheduled)-1]; got != 5*time.Second {
		t.Errorf("rescheduled at %v, want 5s", got)
	}
	if _, ok := m.HandlePoll(oldPoll); ok {
		t.Error("old poll chain should be dead")
	}
	if _, ok := m.HandleList(oldList); !ok {
		t.Error("list chain should survive a poll interval change")
	}
}

func TestSetIntervals_WhileStopped(t *testing.T) {
	m, ft := newTestManager(DefaultConfig())
	if cmd := m.SetIntervals(Config{PollInterval: time.Second}); cmd != nil {
		t.Error("stopped manager should not schedule")
	}
	m.Start()
	if ft.scheduled[0] != time.Second {
		t.Errorf("Start used %v, want the updated 1s", ft.scheduled[0])
	}
}
