// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies API failures the way callers branch on them.
type Kind int

const (
	// KindGeneric covers every other non-success status and network failures.
	KindGeneric Kind = iota
	// KindUnauthorized is a 401. The credential store has already been cleared.
	KindUnauthorized
	// KindNotFound is a 404.
	KindNotFound
	// KindConflict is a 409.
	KindConflict
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "generic"
	}
}

// Sentinel errors for errors.Is checks against *Error.
var (
	ErrUnauthorized = errors.New("UNAUTHORIZED")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Error is returned by every Client method that fails.
type Error struct {
	Kind    Kind
	Status  int    // 0 when no response was received
	Message string // human readable, from the response body when available
	Err     error  // underlying transport error, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying transport error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the package sentinels by kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Kind == KindUnauthorized
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrConflict:
		return e.Kind == KindConflict
	}
	return false
}

// KindOf returns the Kind of err, or KindGeneric when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindGeneric
}

// IsUnauthorized reports whether err is (or wraps) a 401 from the API.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	default:
		return KindGeneric
	}
}

// errorBody is the subset of error payloads the backend produces. detail is
// a string for application errors and a list of objects for validation
// errors.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

// handleErrorResponse converts a non-success, non-401 response into an
// *Error, taking the message from the body when one can be found.
func handleErrorResponse(status int, body []byte) *Error {
	return &Error{
		Kind:    kindForStatus(status),
		Status:  status,
		Message: errorMessage(status, body),
	}
}

func errorMessage(status int, body []byte) string {
	fallback := fmt.Sprintf("HTTP %d", status)

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return fallback
	}

	if len(eb.Detail) > 0 {
		var s string
		if err := json.Unmarshal(eb.Detail, &s); err == nil && strings.TrimSpace(s) != "" {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(eb.Detail, &items); err == nil && len(items) > 0 && items[0].Msg != "" {
			return items[0].Msg
		}
	}
	if eb.Message != "" {
		return eb.Message
	}
	if eb.Error != "" {
		return eb.Error
	}
	return fallback
}

// LoginMessage returns the text shown when a login attempt fails. A 401
// from the login endpoint means the credentials were wrong.
func LoginMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case IsUnauthorized(err):
		return "Invalid credentials"
	default:
		return err.Error()
	}
}
