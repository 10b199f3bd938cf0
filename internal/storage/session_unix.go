// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !windows

package storage

import (
	"os"

	"golang.org/x/sys/unix"
)

// SessionID returns the id of the calling process's terminal session. All
// processes started from the same shell share it.
func SessionID() int {
	sid, err := unix.Getsid(0)
	if err != nil {
		return os.Getppid()
	}
	return sid
}

// sessionAlive reports whether the session leader still exists.
func sessionAlive(sid int) bool {
	if sid <= 0 {
		return false
	}
	err := unix.Kill(sid, 0)
	return err == nil || err == unix.EPERM
}
