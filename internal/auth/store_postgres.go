// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

// PostgreSQL implementations of the repository ports.
//
// # Error Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to domain-friendly
// [apperr.AppError] types at this boundary to avoid leaking storage
// implementation details.
//
// # Retry
//
// Statements that fail before reaching the server (connection handed out of
// the pool had died) are retried once. Anything past that is surfaced; the
// service layer does not see transient connection churn.

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ohanahq/ohana/internal/platform/apperr"
	"github.com/ohanahq/ohana/internal/platform/dberr"
	"github.com/ohanahq/ohana/internal/platform/sec"
	"github.com/ohanahq/ohana/pkg/pagination"
)

// ErrDuplicateEmail is returned by [UserRepository.Create] when the
// normalized email already exists.
var ErrDuplicateEmail = errors.New("auth: email already registered")

// storeRetryAttempts bounds how often a safe-to-retry statement is replayed.
const storeRetryAttempts = 2

// withRetry replays fn when the driver confirms the statement never reached
// the server. Everything else fails on the first attempt.
func withRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < storeRetryAttempts; attempt++ {
		err = fn()
		if err == nil || !dberr.Retryable(err) {
			return err
		}
	}
	return err
}

// ── User Repository ──────────────────────────────────────────────────────────

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates the PostgreSQL implementation of UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = "id, email, password_hash, role, created_at, updated_at"

// scanUser reads one user row in userColumns order.
func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create persists a new account and fills in the database-assigned fields.
//
// # Duplicate Detection
//
// The unique index on lower(email) raises SQLSTATE 23505 when two accounts
// collide, including under concurrent sign-up; that is surfaced as
// [ErrDuplicateEmail] regardless of which racer loses.
func (repository *PostgresUserRepository) Create(ctx context.Context, user *User) error {
	const query = `
		INSERT INTO users (email, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	user.Email = NormalizeEmail(user.Email)
	if user.Role == "" {
		user.Role = sec.RoleUser
	}

	err := withRetry(func() error {
		return repository.pool.QueryRow(ctx, query,
			user.Email,
			user.PasswordHash,
			user.Role,
		).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	})

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return dberr.Wrap(err, "user_create")
	}

	return nil
}

// FindByEmail retrieves an account by normalized email.
//
// # Returns
//
// Returns [*User] if found, or [apperr.NotFound] if no account exists.
func (repository *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE lower(email) = lower($1)`

	var user *User
	err := withRetry(func() error {
		var scanErr error
		user, scanErr = scanUser(repository.pool.QueryRow(ctx, query, NormalizeEmail(email)))
		return scanErr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, dberr.Wrap(err, "user_find_by_email")
	}

	return user, nil
}

// FindByID retrieves an account by its integer ID.
func (repository *PostgresUserRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`

	var user *User
	err := withRetry(func() error {
		var scanErr error
		user, scanErr = scanUser(repository.pool.QueryRow(ctx, query, id))
		return scanErr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, dberr.Wrap(err, "user_find_by_id")
	}

	return user, nil
}

// UpdateRole replaces the account's role.
func (repository *PostgresUserRepository) UpdateRole(ctx context.Context, id int64, role sec.UserRole) error {
	const query = `
		UPDATE users
		SET role = $2, updated_at = now()
		WHERE id = $1`

	err := withRetry(func() error {
		tag, execErr := repository.pool.Exec(ctx, query, id, role)
		if execErr != nil {
			return execErr
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("User")
		}
		return dberr.Wrap(err, "user_update_role")
	}

	return nil
}

// UpdatePassword updates only the password hash for a specific user.
func (repository *PostgresUserRepository) UpdatePassword(ctx context.Context, id int64, newHash string) error {
	const query = `
		UPDATE users
		SET password_hash = $2, updated_at = now()
		WHERE id = $1`

	err := withRetry(func() error {
		tag, execErr := repository.pool.Exec(ctx, query, id, newHash)
		if execErr != nil {
			return execErr
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("User")
		}
		return dberr.Wrap(err, "user_update_password")
	}

	return nil
}

// Delete removes the account row. The sessions foreign key is declared
// ON DELETE CASCADE, so the user's sessions vanish atomically with the row.
func (repository *PostgresUserRepository) Delete(ctx context.Context, id int64) error {
	const query = "DELETE FROM users WHERE id = $1"

	err := withRetry(func() error {
		tag, execErr := repository.pool.Exec(ctx, query, id)
		if execErr != nil {
			return execErr
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("User")
		}
		return dberr.Wrap(err, "user_delete")
	}

	return nil
}

// List returns one page of accounts matching the filter, newest first, plus
// the total match count.
func (repository *PostgresUserRepository) List(ctx context.Context, filter ListFilter, page pagination.Params) ([]*User, int, error) {
	where, args := buildUserFilter(filter)

	countQuery := "SELECT count(*) FROM users" + where

	var total int
	err := withRetry(func() error {
		return repository.pool.QueryRow(ctx, countQuery, args...).Scan(&total)
	})
	if err != nil {
		return nil, 0, dberr.Wrap(err, "user_list_count")
	}

	listQuery := fmt.Sprintf(
		"SELECT %s FROM users%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		userColumns, where, len(args)+1, len(args)+2,
	)
	listArgs := append(args, page.Limit, page.Offset())

	var users []*User
	err = withRetry(func() error {
		rows, queryErr := repository.pool.Query(ctx, listQuery, listArgs...)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		users = users[:0]
		for rows.Next() {
			user, scanErr := scanUser(rows)
			if scanErr != nil {
				return scanErr
			}
			users = append(users, user)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, dberr.Wrap(err, "user_list")
	}

	return users, total, nil
}

// buildUserFilter renders the WHERE clause shared by the count and page
// queries so the two can never disagree.
func buildUserFilter(filter ListFilter) (string, []any) {
	var conditions []string
	var args []any

	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		conditions = append(conditions, fmt.Sprintf("lower(email) LIKE $%d", len(args)))
	}
	if filter.Role != "" {
		args = append(args, filter.Role)
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// ── Session Repository ───────────────────────────────────────────────────────

// PostgresSessionRepository implements the SessionRepository interface.
//
// The configured session lifetime is baked into the repository instead of
// being passed per call: every reader of sessions must apply the same
// policy, and the construction site is where the policy is decided.
type PostgresSessionRepository struct {
	pool     *pgxpool.Pool
	lifetime time.Duration
}

// NewSessionRepository creates the PostgreSQL implementation of SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool, lifetime time.Duration) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool, lifetime: lifetime}
}

const sessionColumns = "id, user_id, ip_address, user_agent, created_at, updated_at"

// scanSession reads one session row in sessionColumns order.
func scanSession(row pgx.Row) (*Session, error) {
	session := &Session{}
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.IPAddress,
		&session.UserAgent,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Create persists a new session record.
func (repository *PostgresSessionRepository) Create(ctx context.Context, session *Session) error {
	const query = `
		INSERT INTO sessions (id, user_id, ip_address, user_agent)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	err := withRetry(func() error {
		return repository.pool.QueryRow(ctx, query,
			session.ID,
			session.UserID,
			session.IPAddress,
			session.UserAgent,
		).Scan(&session.CreatedAt, &session.UpdatedAt)
	})

	if err != nil {
		return dberr.Wrap(err, "session_create")
	}

	return nil
}

// Find retrieves a session by ID, excluding rows older than the lifetime.
// A stale row and a missing row are deliberately the same NotFound.
func (repository *PostgresSessionRepository) Find(ctx context.Context, id string) (*Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE id = $1 AND created_at > $2`

	cutoff := time.Now().Add(-repository.lifetime)

	var session *Session
	err := withRetry(func() error {
		var scanErr error
		session, scanErr = scanSession(repository.pool.QueryRow(ctx, query, id, cutoff))
		return scanErr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Session")
		}
		return nil, dberr.Wrap(err, "session_find")
	}

	return session, nil
}

// Delete removes one session. Missing rows are fine; sign-out is idempotent.
func (repository *PostgresSessionRepository) Delete(ctx context.Context, id string) error {
	const query = "DELETE FROM sessions WHERE id = $1"

	err := withRetry(func() error {
		_, execErr := repository.pool.Exec(ctx, query, id)
		return execErr
	})
	if err != nil {
		return dberr.Wrap(err, "session_delete")
	}
	return nil
}

// DeleteForUser removes every session belonging to the user.
func (repository *PostgresSessionRepository) DeleteForUser(ctx context.Context, userID int64) (int64, error) {
	const query = "DELETE FROM sessions WHERE user_id = $1"

	var destroyed int64
	err := withRetry(func() error {
		tag, execErr := repository.pool.Exec(ctx, query, userID)
		if execErr != nil {
			return execErr
		}
		destroyed = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, dberr.Wrap(err, "session_delete_for_user")
	}
	return destroyed, nil
}

// ListForUser returns the user's sessions, newest first. The lifetime filter
// applies here too so the admin view never shows sessions that can no longer
// authenticate anyone.
func (repository *PostgresSessionRepository) ListForUser(ctx context.Context, userID int64) ([]*Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND created_at > $2
		ORDER BY created_at DESC`

	cutoff := time.Now().Add(-repository.lifetime)

	var sessions []*Session
	err := withRetry(func() error {
		rows, queryErr := repository.pool.Query(ctx, query, userID, cutoff)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		sessions = sessions[:0]
		for rows.Next() {
			session, scanErr := scanSession(rows)
			if scanErr != nil {
				return scanErr
			}
			sessions = append(sessions, session)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, dberr.Wrap(err, "session_list_for_user")
	}

	return sessions, nil
}

// SweepExpired permanently removes sessions created before the cutoff.
func (repository *PostgresSessionRepository) SweepExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = "DELETE FROM sessions WHERE created_at <= $1"

	var removed int64
	err := withRetry(func() error {
		tag, execErr := repository.pool.Exec(ctx, query, cutoff)
		if execErr != nil {
			return execErr
		}
		removed = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, dberr.Wrap(err, "session_sweep_expired")
	}
	return removed, nil
}
