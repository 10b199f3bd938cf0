// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"sync"
)

// ErrClosed is returned by tiers used after Close.
var ErrClosed = errors.New("storage: tier closed")

// Tier is a string key/value store with a particular durability.
type Tier interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
}

// =============================================================================
// MEMORY TIER
// =============================================================================

// MemoryTier is an in-process Tier. The zero value is ready to use.
type MemoryTier struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryTier creates an empty MemoryTier.
func NewMemoryTier() *MemoryTier {
	return &MemoryTier{data: make(map[string]string)}
}

// Get implements Tier.
func (m *MemoryTier) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

// Set implements Tier.
func (m *MemoryTier) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string]string)
	}
	m.data[key] = value
	return nil
}

// Remove implements Tier.
func (m *MemoryTier) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryTier) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
