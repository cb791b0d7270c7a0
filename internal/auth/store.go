// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

package auth

import (
	"context"
	"time"

	"github.com/ohanahq/ohana/internal/platform/sec"
	"github.com/ohanahq/ohana/pkg/pagination"
)

// ListFilter narrows the admin user directory.
type ListFilter struct {
	// Search matches a substring of the email, case-insensitively.
	Search string
	// Role restricts results to one role when non-empty.
	Role sec.UserRole
}

// UserRepository defines the data access contract for user accounts.
//
// # Review Process
//
// This interface is placed in a separate file from user.go so entity changes
// and storage-contract changes can be reviewed independently by the team.
//
// # Implementations
//
// The canonical implementation is PostgreSQL (store_postgres.go); tests use
// in-memory fakes.
type UserRepository interface {
	// Create persists a brand-new account and fills in the assigned ID and
	// timestamps.
	//
	// Returns [ErrDuplicateEmail] if the email already exists under
	// case-insensitive comparison.
	Create(ctx context.Context, user *User) error

	// FindByID returns the account with the given ID.
	//
	// Returns [apperr.NotFound] if the account does not exist.
	FindByID(ctx context.Context, id int64) (*User, error)

	// FindByEmail returns the account with the given email, compared
	// case-insensitively against the normalized stored form.
	//
	// Returns [apperr.NotFound] if no user is registered with this email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// UpdateRole replaces the account's role.
	UpdateRole(ctx context.Context, id int64, role sec.UserRole) error

	// UpdatePassword replaces only the user's password hash.
	// This is separate from role updates to prevent accidental overwrites.
	UpdatePassword(ctx context.Context, id int64, newHash string) error

	// Delete removes the account. The sessions foreign key cascades, so the
	// user's sessions disappear in the same statement.
	Delete(ctx context.Context, id int64) error

	// List returns one page of accounts matching the filter, newest first,
	// along with the total match count for pagination metadata.
	List(ctx context.Context, filter ListFilter, page pagination.Params) ([]*User, int, error)
}

// SessionRepository defines the data access contract for login sessions.
//
// # Domain Ownership
//
// This is kept alongside [UserRepository] because sessions are owned
// entirely by the identity domain, despite serving authentication security.
type SessionRepository interface {
	// Create persists a new session for an authenticated login.
	Create(ctx context.Context, session *Session) error

	// Find returns the session with the given identifier.
	//
	// Returns [apperr.NotFound] if the session does not exist OR if its
	// created_at is older than the configured session lifetime. A stale row
	// must be indistinguishable from a missing one.
	Find(ctx context.Context, id string) (*Session, error)

	// Delete removes one session. Deleting a session that does not exist is
	// not an error; sign-out is idempotent.
	Delete(ctx context.Context, id string) error

	// DeleteForUser removes every session belonging to the user and reports
	// how many were destroyed. Crucial for security event responses
	// (password change, admin termination).
	DeleteForUser(ctx context.Context, userID int64) (int64, error)

	// ListForUser returns the user's sessions, newest first. Used by the
	// admin detail view.
	ListForUser(ctx context.Context, userID int64) ([]*Session, error)

	// SweepExpired physically removes sessions created before the cutoff.
	// Called by the periodic background cleanup worker to reclaim storage;
	// correctness never depends on it because Find is lifetime-aware.
	SweepExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// ResetTokenRepository defines the contract for storing volatile password
// reset tokens. The canonical implementation is Redis (store_redis.go).
type ResetTokenRepository interface {
	// Set stores a reset token associated with a userID for a limited duration.
	Set(ctx context.Context, token string, userID int64, ttl time.Duration) error

	// Get retrieves the userID associated with a given reset token.
	//
	// Returns [apperr.NotFound] for unknown or expired tokens.
	Get(ctx context.Context, token string) (int64, error)

	// Delete removes a reset token after successful use.
	Delete(ctx context.Context, token string) error
}
