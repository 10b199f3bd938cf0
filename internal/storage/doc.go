// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the small key/value tiers catchat keeps client
// state in.
//
// Two durability tiers exist, mirroring what a browser offers:
//
//   - SQLiteTier: survives restarts. A single key/value table in
//     ~/.catchat/state.db.
//   - SessionTier: lives as long as the terminal session. A 0600 JSON file
//     in the runtime directory named after the session id, so a new
//     terminal does not see it.
//
// MemoryTier implements the same interface for tests.
//
// # Usage
//
//	persistent, err := storage.OpenSQLiteTier(filepath.Join(dir, "state.db"))
//	if err != nil {
//	    return err
//	}
//	defer persistent.Close()
//
//	session := storage.NewSessionTier(storage.DefaultSessionDir())
//	err = session.Set("catachess_token", tok)
package storage
