// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the display subset of a bearer token's payload.
type Claims struct {
	Subject   string
	ExpiresAt time.Time // zero when the token carries no exp
	IssuedAt  time.Time
}

// Expired reports whether the token's exp has passed. Informational only.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// TokenClaims decodes the payload of a JWT bearer token WITHOUT verifying
// its signature. It exists so `catchat whoami` can show the subject and
// expiry; it must never be used to decide whether a token is valid. Only a
// 401 from the server does that.
func TokenClaims(token string) (Claims, error) {
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &rc); err != nil {
		return Claims{}, fmt.Errorf("token is not a readable JWT: %w", err)
	}

	out := Claims{Subject: rc.Subject}
	if rc.ExpiresAt != nil {
		out.ExpiresAt = rc.ExpiresAt.Time
	}
	if rc.IssuedAt != nil {
		out.IssuedAt = rc.IssuedAt.Time
	}
	return out, nil
}
