// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the catchat TUI.
//
// Components render what they are given and report what the user asked
// for as intent messages (intents.go). They never talk to the backend; the
// app model turns intents into engine calls and feeds results back with
// the Set* methods.
//
// # Components
//
//   - LoginForm: identifier, masked password, keep-me-signed-in toggle
//   - Sidebar: filterable unified conversation list
//   - ThreadView: header, message list, composer
//   - NewChatDialog, CreateGroupDialog: username search dialogs
//   - GroupSettings: rename, roster with role actions, leave or dissolve
//   - StatusBar: signed-in user, connection state, hints, toasts
package components
