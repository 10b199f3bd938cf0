// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the root Bubble Tea model of the catchat TUI.
//
// It is the single consumer of navigation: every location change goes
// through the dispatcher, which moves the reconciliation engine to the new
// target and schedules resolution and history load as commands. Results
// come back as messages carrying the engine ticket they were issued under;
// the engine discards results for a target that is no longer active.
//
// Components under ui/components render state and emit intent messages.
// This package turns intents into engine calls and feeds the outcomes back.
package app
