// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

package auth

import (
	"time"

	"github.com/ohanahq/ohana/internal/platform/constants"
	"github.com/ohanahq/ohana/internal/platform/sec"
)

// Session represents a server-side login session.
//
// # Security Concept
//
// Bearer tokens are stateless and cannot be revoked before they expire. To
// mitigate this, every sign-in also creates a database-backed session whose
// random identifier travels in its own cookie. Destroying the row revokes
// access for cookie-based clients immediately; password changes destroy all
// of a user's rows at once.
//
// A session has no expires_at column. Its lifetime is a deployment policy
// applied at read time: a row older than the configured lifetime is treated
// as absent, so shortening the policy retroactively shortens live sessions.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a session with a fresh random identifier.
func NewSession(userID int64, ipAddress, userAgent string) (*Session, error) {
	id, err := sec.GenerateSecureToken(constants.SessionIDBytes)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:        id,
		UserID:    userID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}, nil
}
