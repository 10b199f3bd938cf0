// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/catachess/catchat-tui/internal/util"
)

// SessionTier is a Tier scoped to the current terminal session. Values live
// in a JSON file whose name carries the session id; another terminal has a
// different id and so a different (usually absent) file.
type SessionTier struct {
	mu   sync.Mutex
	dir  string
	id   int
	path string
}

// NewSessionTier creates a session tier rooted at dir for the calling
// process's terminal session.
func NewSessionTier(dir string) *SessionTier {
	return NewSessionTierWithID(dir, SessionID())
}

// NewSessionTierWithID creates a session tier for an explicit session id.
// Tests use it to simulate opening a new terminal.
func NewSessionTierWithID(dir string, id int) *SessionTier {
	return &SessionTier{
		dir:  dir,
		id:   id,
		path: filepath.Join(dir, "session-"+strconv.Itoa(id)+".json"),
	}
}

// DefaultSessionDir returns $XDG_RUNTIME_DIR/catchat when set, else a
// per-user directory under the system temp dir.
func DefaultSessionDir() string {
	if rt := os.Getenv("XDG_RUNTIME_DIR"); rt != "" {
		return filepath.Join(rt, "catchat")
	}
	return filepath.Join(os.TempDir(), "catchat-"+strconv.Itoa(os.Getuid()))
}

// Path returns the backing file for this session.
func (s *SessionTier) Path() string {
	return s.path
}

// Get implements Tier.
func (s *SessionTier) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := data[key]
	return v, ok, nil
}

// Set implements Tier.
func (s *SessionTier) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	data[key] = value
	return s.save(data)
}

// Remove implements Tier. The file is deleted once it holds no keys.
func (s *SessionTier) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	if len(data) == 0 {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove session file: %w", err)
		}
		return nil
	}
	return s.save(data)
}

func (s *SessionTier) load() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	data := make(map[string]string)
	if err := json.Unmarshal(raw, &data); err != nil {
		// A corrupt session file is treated as empty; it will be rewritten.
		return make(map[string]string), nil
	}
	return data, nil
}

func (s *SessionTier) save(data map[string]string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode session data: %w", err)
	}
	// SECURITY: owner-only; the file holds a bearer credential
	return util.AtomicWriteFileWithDir(s.path, raw, 0o600, 0o700)
}

// PruneStale removes session files left behind by terminal sessions that no
// longer exist. It returns the number of files removed.
func PruneStale(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	self := SessionID()
	removed := 0
	for _, e := range entries {
		var id int
		if _, err := fmt.Sscanf(e.Name(), "session-%d.json", &id); err != nil {
			continue
		}
		if id == self || sessionAlive(id) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}
