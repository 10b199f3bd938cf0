// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth holds the bearer credential catchat sends with every request.
//
// The credential lives in one of two durability tiers chosen at login: the
// persistent tier ("keep me signed in") or the session tier. Reads check the
// persistent tier first. The store never inspects the credential; the API
// client learns it is invalid from a 401 and calls Clear.
package auth

import (
	"errors"
	"fmt"
	"log"

	"github.com/catachess/catchat-tui/internal/storage"
)

// Fixed storage keys.
const (
	TokenKey  = "catachess_token"
	UserIDKey = "catachess_user_id"
)

// Store is the credential store shared by the API client and the UI.
type Store interface {
	// Get returns the stored token, persistent tier first.
	Get() (string, bool)
	// Save stores token in the persistent tier when persist is true, else in
	// the session tier.
	Save(token string, persist bool) error
	// Clear removes the token and cached user id from both tiers.
	Clear() error
	// UserID returns the cached id of the signed-in user.
	UserID() (string, bool)
	// SetUserID caches the signed-in user's id next to the token.
	SetUserID(id string) error
}

// TieredStore implements Store over a persistent and a session Tier.
type TieredStore struct {
	persistent storage.Tier
	session    storage.Tier
}

// NewTieredStore creates a store over the given tiers.
func NewTieredStore(persistent, session storage.Tier) *TieredStore {
	return &TieredStore{persistent: persistent, session: session}
}

// NewMemoryStore creates a store backed by two in-memory tiers, for tests
// and one-shot commands.
func NewMemoryStore() *TieredStore {
	return NewTieredStore(storage.NewMemoryTier(), storage.NewMemoryTier())
}

// Get implements Store.
func (s *TieredStore) Get() (string, bool) {
	return s.lookup(TokenKey)
}

// Save implements Store.
func (s *TieredStore) Save(token string, persist bool) error {
	tier := s.session
	if persist {
		tier = s.persistent
	}
	if err := tier.Set(TokenKey, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Clear implements Store. Every key is attempted even if one removal fails.
func (s *TieredStore) Clear() error {
	var errs []error
	for _, tier := range []storage.Tier{s.persistent, s.session} {
		for _, key := range []string{TokenKey, UserIDKey} {
			if err := tier.Remove(key); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// UserID implements Store.
func (s *TieredStore) UserID() (string, bool) {
	return s.lookup(UserIDKey)
}

// SetUserID implements Store. The id goes in whichever tier currently holds
// the token so the two expire together.
func (s *TieredStore) SetUserID(id string) error {
	tier := s.session
	if _, ok, _ := s.persistent.Get(TokenKey); ok {
		tier = s.persistent
	}
	return tier.Set(UserIDKey, id)
}

// Persistent reports whether the current token lives in the persistent tier.
func (s *TieredStore) Persistent() bool {
	_, ok, _ := s.persistent.Get(TokenKey)
	return ok
}

func (s *TieredStore) lookup(key string) (string, bool) {
	for _, tier := range []storage.Tier{s.persistent, s.session} {
		v, ok, err := tier.Get(key)
		if err != nil {
			log.Printf("auth: read %s: %v", key, err)
			continue
		}
		if ok && v != "" {
			return v, true
		}
	}
	return "", false
}
