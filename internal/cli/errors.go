// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/catachess/catchat-tui/internal/api"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitAuthError    = 4
	ExitNetworkError = 5
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // e.g. "config"
	Action  string // e.g. "set"
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// UsageError is an invalid command line.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// ConfigError wraps a configuration failure.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "config: " + e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

// ErrNotLoggedIn is returned by commands that need a stored credential.
var ErrNotLoggedIn = errors.New("not logged in (run \"catchat login\")")

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError prints err to stderr, or as a JSON error response.
func DisplayError(command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		_ = NewJSONErrorResponse(command, err).Print()
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), err.Error())
	var ue *UsageError
	if errors.As(err, &ue) {
		fmt.Fprintln(os.Stderr, MutedStyle.Render("Run \"catchat help\" for usage."))
	}
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ue *UsageError
	var ce *ConfigError
	switch {
	case errors.As(err, &ue):
		return ExitUsageError
	case errors.As(err, &ce):
		return ExitConfigError
	case errors.Is(err, ErrNotLoggedIn), api.IsUnauthorized(err):
		return ExitAuthError
	case isNetworkError(err):
		return ExitNetworkError
	}
	return ExitGeneralError
}

// isNetworkError reports an API failure where no response arrived.
func isNetworkError(err error) bool {
	var apiErr *api.Error
	return errors.As(err, &apiErr) && apiErr.Status == 0 && apiErr.Err != nil
}

// HandleErrorAndExit displays err and exits with its code. It returns
// normally when err is nil.
func HandleErrorAndExit(command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	DisplayError(command, err, jsonMode)
	os.Exit(ExitCode(err))
}
