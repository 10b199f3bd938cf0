// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catachess/catchat-tui/internal/storage"
)

func TestTieredStore_SaveRemember(t *testing.T) {
	persistent, session := storage.NewMemoryTier(), storage.NewMemoryTier()
	s := NewTieredStore(persistent, session)

	require.NoError(t, s.Save("tok", true))

	got, ok := s.Get()
	assert.True(t, ok)
	assert.Equal(t, "tok", got)
	assert.True(t, s.Persistent())
	assert.Equal(t, 0, session.Len())
}

func TestTieredStore_SaveSessionOnly(t *testing.T) {
	persistent, session := storage.NewMemoryTier(), storage.NewMemoryTier()
	s := NewTieredStore(persistent, session)

	require.NoError(t, s.Save("tok", false))

	got, ok := s.Get()
	assert.True(t, ok)
	assert.Equal(t, "tok", got)
	assert.False(t, s.Persistent())
	assert.Equal(t, 0, persistent.Len())
}

func TestTieredStore_PersistentTierWins(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Save("session-tok", false))
	require.NoError(t, s.Save("persistent-tok", true))

	got, _ := s.Get()
	assert.Equal(t, "persistent-tok", got)
}

func TestTieredStore_ClearBothTiers(t *testing.T) {
	persistent, session := storage.NewMemoryTier(), storage.NewMemoryTier()
	s := NewTieredStore(persistent, session)

	require.NoError(t, s.Save("a", true))
	require.NoError(t, s.Save("b", false))
	require.NoError(t, s.SetUserID("u1"))

	require.NoError(t, s.Clear())

	_, ok := s.Get()
	assert.False(t, ok)
	_, ok = s.UserID()
	assert.False(t, ok)
	assert.Equal(t, 0, persistent.Len())
	assert.Equal(t, 0, session.Len())
}

func TestTieredStore_UserIDFollowsToken(t *testing.T) {
	persistent, session := storage.NewMemoryTier(), storage.NewMemoryTier()
	s := NewTieredStore(persistent, session)

	require.NoError(t, s.Save("tok", false))
	require.NoError(t, s.SetUserID("u1"))

	_, ok, _ := session.Get(UserIDKey)
	assert.True(t, ok, "user id should be stored in the session tier")

	id, ok := s.UserID()
	assert.True(t, ok)
	assert.Equal(t, "u1", id)
}

// Logging in without "remember", then reopening in the same terminal
// session keeps the user signed in; a new terminal session does not.
func TestTieredStore_RememberFalseAcrossSessions(t *testing.T) {
	stateDir := t.TempDir()
	sessionDir := t.TempDir()

	open := func(sessionID int) (*TieredStore, func()) {
		persistent, err := storage.OpenSQLiteTier(filepath.Join(stateDir, "state.db"))
		require.NoError(t, err)
		s := NewTieredStore(persistent, storage.NewSessionTierWithID(sessionDir, sessionID))
		return s, func() { persistent.Close() }
	}

	first, closeFirst := open(500)
	require.NoError(t, first.Save("tok", false))
	closeFirst()

	reopened, closeReopened := open(500)
	got, ok := reopened.Get()
	closeReopened()
	assert.True(t, ok, "same session should still be authenticated")
	assert.Equal(t, "tok", got)

	fresh, closeFresh := open(501)
	defer closeFresh()
	_, ok = fresh.Get()
	assert.False(t, ok, "new session should not be authenticated")
}

type failingTier struct{ storage.MemoryTier }

func (*failingTier) Get(string) (string, bool, error) { return "", false, errors.New("disk gone") }
func (*failingTier) Remove(string) error              { return errors.New("disk gone") }

func TestTieredStore_TierErrors(t *testing.T) {
	session := storage.NewMemoryTier()
	s := NewTieredStore(&failingTier{}, session)

	require.NoError(t, s.Save("tok", false))
	got, ok := s.Get()
	assert.True(t, ok, "a failing persistent tier should fall through to session")
	assert.Equal(t, "tok", got)

	err := s.Clear()
	assert.Error(t, err)
	assert.Equal(t, 0, session.Len(), "session tier should still be cleared")
}
