// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build windows

package storage

import (
	"os"

	"golang.org/x/sys/windows"
)

// SessionID returns the parent process id, which is the console shell that
// launched catchat.
func SessionID() int {
	return os.Getppid()
}

// sessionAlive reports whether the shell process still exists.
func sessionAlive(pid int) bool {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	windows.CloseHandle(h)
	return true
}
