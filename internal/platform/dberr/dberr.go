// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ohanahq/ohana/internal/platform/apperr"
)

// ErrNotFound is the standard error returned when a queried row doesn't exist.
var ErrNotFound = apperr.NotFound("Resource")

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	// 2. Constraint violations surface as conflicts
	if IsUniqueViolation(err) {
		return apperr.Conflict("Resource already exists")
	}

	// 3. Connection-class failures mean the store, not the request, is broken
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgerrcode.IsConnectionException(pgErr.Code) {
		unavailable := apperr.ServiceUnavailable("Storage temporarily unavailable")
		unavailable.Cause = err
		return unavailable
	}

	// 4. Everything else becomes an internal error carrying the action for logs
	internal := apperr.Internal(err)
	internal.Cause = errors.Join(errors.New("db action: "+action), err)
	return internal
}

// IsUniqueViolation reports whether err is a Postgres 23505 unique-index
// violation (the duplicate-email signal).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Retryable reports whether a statement that failed with err may be retried
// safely. True only for connection-class failures where the driver confirms
// the statement never reached the server.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return pgconn.SafeToRetry(err)
}
