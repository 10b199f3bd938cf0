// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-interactive
// commands of catchat.
//
// # Key Types
//
//   - Command: Enumeration of the CLI commands
//   - Args: Parsed global flags and command arguments
//   - Runtime: Config, credential store and API client for one process
//   - JSONResponse: Machine-readable output for --json
//
// # Commands Overview
//
//   - tui, open, chat, group, broadcast: start the terminal UI at a location
//   - login, logout, whoami: manage the stored credential
//   - config: show, get and set configuration keys
//   - doctor: check configuration, storage and backend reachability
//
// Most commands accept --json.
package cli
