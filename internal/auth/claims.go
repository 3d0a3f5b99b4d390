// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"time"

	"github.com/google/uuid"
)

// Lifetime is how long an issued token stays valid.
const Lifetime = 7 * 24 * time.Hour

// Claims is the identity carried by a session token.
//
// Claims are produced by TokenService.Issue and returned by value from
// TokenService.Validate. ExpiresAt is always IssuedAt plus Lifetime.
type Claims struct {
	SubjectID uuid.UUID
	Email     string
	IssuedAt  int64
	ExpiresAt int64
}

// Expired reports whether the claims are past their expiry at now.
func (c Claims) Expired(now time.Time) bool {
	return now.Unix() > c.ExpiresAt
}
