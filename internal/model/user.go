// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// CurrentUser is the signed-in account as returned by the profile endpoint.
type CurrentUser struct {
	ID         string  `json:"id"`
	Username   *string `json:"username"`
	Identifier string  `json:"identifier"`
	Role       string  `json:"role"`
}

// DisplayName returns the username when set, else the login identifier.
func (u CurrentUser) DisplayName() string {
	if u.Username != nil && *u.Username != "" {
		return *u.Username
	}
	return u.Identifier
}

// IsAdmin reports whether the account may post broadcasts. This only hides
// UI; the server enforces it.
func (u CurrentUser) IsAdmin() bool {
	return u.Role == "admin"
}

// UserLookup is the result of a username search.
type UserLookup struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// LoginRequest is the body of the JSON login endpoint.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// LoginResponse carries the issued bearer credential.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}
