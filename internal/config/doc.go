// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for catchat.
//
// Configuration is read from ~/.catchat/config.toml (or config.json), with
// built-in defaults and environment overrides, and is validated after load.
//
// # Key Types
//
//   - Config: Main configuration structure
//   - APIConfig: Backend base URL, timeout and request pacing
//   - SyncConfig: Poll and list refresh cadence, history window
//   - Watcher: Reloads the file when it changes on disk
//
// # Configuration Precedence
//
//   - Environment variables (CATCHAT_*)
//   - ~/.catchat/config.toml
//   - ~/.catchat/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	interval := cfg.Sync.PollInterval()
package config
