// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

// Package auth implements the identity domain of the Ohana SSO service:
// user accounts, server-side sessions, and the operations the two HTTP
// surfaces are built on.
//
// # Architecture
//
// Entities in this package represent the "Truth" of the system.
// They have no dependencies on outer layers (like databases or routers),
// which keeps the core logic highly testable and resilient to technology
// changes. Storage access goes through the repository ports in store.go.
package auth

import (
	"strings"
	"time"

	"github.com/ohanahq/ohana/internal/platform/sec"
)

// User represents a registered account in the Ohana identity store.
//
// # Rules
//   - Email is unique case-insensitively; NormalizeEmail is applied before
//     every lookup and write.
//   - PasswordHash is generated via bcrypt exclusively by the auth Service.
//   - IDs are database-assigned integers and appear in tokens as `userId`.
type User struct {
	ID           int64        `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Explicitly omitted from JSON for security.
	Role         sec.UserRole `json:"role"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// PublicUser is the wire representation of an account, embedded in API
// envelopes as `user`. The field names are part of the cross-service
// contract and must not drift.
type PublicUser struct {
	UserID int64        `json:"userId"`
	Email  string       `json:"email"`
	Role   sec.UserRole `json:"role"`
}

// Public returns the wire representation of the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
	}
}

// Identity returns the compact resolved-caller form attached to contexts.
func (u *User) Identity() *sec.Identity {
	return &sec.Identity{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
	}
}

// NormalizeEmail trims surrounding whitespace and lowercases the address.
// Every comparison, lookup, and write uses the normalized form.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
