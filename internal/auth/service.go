// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ohanahq/ohana/internal/platform/apperr"
	"github.com/ohanahq/ohana/internal/platform/constants"
	"github.com/ohanahq/ohana/internal/platform/sec"
	"github.com/ohanahq/ohana/internal/platform/validate"
	"github.com/ohanahq/ohana/pkg/pagination"
)

// Mailer delivers password-reset messages. Actual delivery is outside this
// service; deployments plug in their provider, development wires a logger.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// Service implements the identity use cases behind both HTTP surfaces.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, sign-in,
// or session logic must be reviewed by the security team.
//
// # Concurrency
//
// The service holds no mutable state of its own; all shared state lives in
// the stores. Any number of requests may run concurrently, and bcrypt work
// never happens under a lock.
type Service struct {
	users       UserRepository
	sessions    SessionRepository
	resetTokens ResetTokenRepository
	codec       *sec.TokenCodec
	mailer      Mailer
}

// NewService constructs the auth [Service] with its dependencies.
func NewService(
	users UserRepository,
	sessions SessionRepository,
	resetTokens ResetTokenRepository,
	codec *sec.TokenCodec,
	mailer Mailer,
) *Service {
	return &Service{
		users:       users,
		sessions:    sessions,
		resetTokens: resetTokens,
		codec:       codec,
		mailer:      mailer,
	}
}

// Result is the outcome of any operation that signs a user in: the account,
// the server-side session, and a bearer token for header-based clients.
type Result struct {
	User    *User
	Session *Session
	Token   string
}

// Credentials is the sign-up / sign-in input.
type Credentials struct {
	Email     string
	Password  string
	IPAddress string
	UserAgent string
}

// SignUp validates, hashes, and persists a brand new account, then signs it in.
//
// # Returns
//   - A [*Result] with the created user, a fresh session, and a token.
//   - [apperr.ValidationError] for malformed email or short password.
//   - EmailTaken (409) if the normalized email already exists.
//
// # Business Rules
//   - Emails are unique case-insensitively.
//   - New accounts always get the 'user' role; there is no privileged sign-up.
func (service *Service) SignUp(ctx context.Context, input Credentials) (*Result, error) {
	email := NormalizeEmail(input.Email)

	// ── 1. Validation ─────────────────────────────────────────────────────
	v := &validate.Validator{}
	v.Required("email", email).Email("email", email)
	v.Custom("password", len(input.Password) < sec.MinPasswordLength,
		fmt.Sprintf("Minimum %d characters", sec.MinPasswordLength))
	if err := v.Err(); err != nil {
		return nil, err
	}

	// ── 2. Security ───────────────────────────────────────────────────────

	// Prevent storing plain-text passwords. Default cost is used for balance
	// between security and CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// ── 3. Persistence ────────────────────────────────────────────────────

	// No pre-flight existence check: the unique index is the arbiter, which
	// also settles concurrent sign-ups for the same address.
	user := &User{
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         sec.RoleUser,
	}
	if err := service.users.Create(ctx, user); err != nil {
		if err == ErrDuplicateEmail {
			return nil, apperr.Conflict("Email is already registered").WithCode("EmailTaken")
		}
		return nil, err
	}

	// ── 4. Session & Token ────────────────────────────────────────────────

	return service.establish(ctx, user, input.IPAddress, input.UserAgent)
}

// SignIn validates credentials and establishes a session.
//
// # Enumeration Resistance
//
// Unknown email and wrong password return the identical InvalidCredentials
// error, and the unknown-email path still performs one bcrypt comparison
// against a fixed dummy digest so the two failures cost the same.
func (service *Service) SignIn(ctx context.Context, input Credentials) (*Result, error) {

	// ── 1. Fetch Account ──────────────────────────────────────────────────
	user, err := service.users.FindByEmail(ctx, NormalizeEmail(input.Email))
	if err != nil {
		// Burn the same bcrypt work the happy path would.
		sec.CheckPasswordHash(input.Password, sec.DummyDigest)
		return nil, apperr.InvalidCredentials()
	}

	// ── 2. Verify Password ────────────────────────────────────────────────
	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperr.InvalidCredentials()
	}

	// ── 3. Session & Token ────────────────────────────────────────────────
	return service.establish(ctx, user, input.IPAddress, input.UserAgent)
}

// establish creates the session row and issues the bearer token.
func (service *Service) establish(ctx context.Context, user *User, ipAddress, userAgent string) (*Result, error) {
	session, err := NewSession(user.ID, ipAddress, userAgent)
	if err != nil {
		return nil, fmt.Errorf("auth_service_session_id_failed: %w", err)
	}
	if err := service.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("auth_service_session_creation_failed: %w", err)
	}

	token, err := service.codec.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_issue_failed: %w", err)
	}

	return &Result{User: user, Session: session, Token: token}, nil
}

// SignOut destroys the session. Signing out an unknown or already-destroyed
// session succeeds; the operation is idempotent by design.
//
// Bearer tokens already issued stay valid until they expire. Immediate
// revocation only exists for the session channel.
func (service *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return service.sessions.Delete(ctx, sessionID)
}

// Refresh verifies a still-valid token and reissues it with a fresh window.
//
// # Returns
//   - A [*Result] carrying the new token and the current account (Session is
//     nil; refresh does not touch session state).
//   - Unauthenticated for any verification failure.
//   - UserGone (401) when the token is valid but the account was deleted.
func (service *Service) Refresh(ctx context.Context, token string) (*Result, error) {
	claims, err := service.codec.Verify(token)
	if err != nil {
		return nil, apperr.Unauthenticated("Invalid or expired token")
	}

	// Confirm the account behind the token still exists.
	user, err := service.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperr.Unauthenticated("Account no longer exists").WithCode("UserGone")
	}

	fresh, err := service.codec.Refresh(claims)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_refresh_failed: %w", err)
	}

	return &Result{User: user, Token: fresh}, nil
}

// ── Identity Resolution (middleware port) ────────────────────────────────────

// ResolveFromToken verifies a bearer token and loads the live account.
// Returns nil for any failure; the middleware treats all failures alike.
//
// The role comes from the database, not the token, so a role change takes
// effect on the next request instead of at token expiry.
func (service *Service) ResolveFromToken(ctx context.Context, token string) *sec.Identity {
	claims, err := service.codec.Verify(token)
	if err != nil {
		return nil
	}
	user, err := service.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil
	}
	return user.Identity()
}

// ResolveFromSession loads a live session and its owning account.
// Returns nil for unknown, expired, or orphaned sessions.
func (service *Service) ResolveFromSession(ctx context.Context, sessionID string) *sec.Identity {
	session, err := service.sessions.Find(ctx, sessionID)
	if err != nil {
		return nil
	}
	user, err := service.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil
	}
	return user.Identity()
}

// ── Account Maintenance ──────────────────────────────────────────────────────

// ChangePassword verifies the old password and replaces it, then destroys
// every session the user holds. Other devices must present credentials
// again; a compromised session does not survive the change.
func (service *Service) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if !sec.CheckPasswordHash(oldPassword, user.PasswordHash) {
		return apperr.InvalidCredentials()
	}

	newHash, err := sec.HashPassword(newPassword)
	if err != nil {
		if err == sec.ErrWeakPassword {
			return validate.RequiredError("password",
				fmt.Sprintf("Minimum %d characters", sec.MinPasswordLength))
		}
		return fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	if err := service.users.UpdatePassword(ctx, userID, newHash); err != nil {
		return err
	}

	_, err = service.sessions.DeleteForUser(ctx, userID)
	return err
}

// ── Admin Operations ─────────────────────────────────────────────────────────

// errSelfModification builds the 403 for admin self-modification attempts.
func errSelfModification(message string) error {
	return apperr.Forbidden(message).WithCode("CannotModifySelf")
}

// ToggleRole flips the target between 'user' and 'admin'.
//
// # Self-Protection
//
// An admin can never toggle their own role, which makes it impossible to
// demote the last admin by accident and lock the console.
func (service *Service) ToggleRole(ctx context.Context, targetID, actorID int64) (*User, error) {
	if targetID == actorID {
		return nil, errSelfModification("Cannot modify your own role")
	}

	user, err := service.users.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	user.Role = user.Role.Toggled()
	if err := service.users.UpdateRole(ctx, targetID, user.Role); err != nil {
		return nil, err
	}

	return user, nil
}

// DeleteUser removes the target account. Sessions cascade with the row.
// The same self-protection as [ToggleRole] applies.
func (service *Service) DeleteUser(ctx context.Context, targetID, actorID int64) error {
	if targetID == actorID {
		return errSelfModification("Cannot delete your own account")
	}
	return service.users.Delete(ctx, targetID)
}

// TerminateSessions destroys all of the target's sessions and reports how
// many were destroyed. Admin incident response for a compromised account.
func (service *Service) TerminateSessions(ctx context.Context, targetID int64) (int64, error) {
	if _, err := service.users.FindByID(ctx, targetID); err != nil {
		return 0, err
	}
	return service.sessions.DeleteForUser(ctx, targetID)
}

// GetUser loads one account.
func (service *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return service.users.FindByID(ctx, id)
}

// UserSessions lists the target's live sessions for the admin detail view.
func (service *Service) UserSessions(ctx context.Context, userID int64) ([]*Session, error) {
	return service.sessions.ListForUser(ctx, userID)
}

// ListUsers returns one page of the user directory with pagination metadata.
func (service *Service) ListUsers(ctx context.Context, filter ListFilter, page pagination.Params) ([]*User, pagination.Meta, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, pagination.Meta{}, validate.RequiredError("role",
			fmt.Sprintf("Must be one of: %s, %s", sec.RoleUser, sec.RoleAdmin))
	}

	users, total, err := service.users.List(ctx, filter, page)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return users, pagination.NewMeta(page.Page, page.Limit, total), nil
}

// ── Password Reset ───────────────────────────────────────────────────────────

// RequestPasswordReset mints a volatile reset token and hands it to the
// mailer. Unknown emails succeed silently; the endpoint never confirms
// whether an address has an account.
func (service *Service) RequestPasswordReset(ctx context.Context, logger *slog.Logger, email string) error {
	user, err := service.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		// Same outward behavior as the happy path.
		return nil
	}

	token, err := sec.GenerateSecureToken(constants.SessionIDBytes)
	if err != nil {
		return fmt.Errorf("auth_service_reset_token_failed: %w", err)
	}

	if err := service.resetTokens.Set(ctx, token, user.ID, constants.ResetTokenLifetime); err != nil {
		return err
	}

	if err := service.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		// The token stays valid; delivery can be retried by the user.
		logger.ErrorContext(ctx, "password_reset_mail_failed",
			slog.Int64("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	return nil
}

// ResetPassword consumes a reset token, installs the new password, and
// destroys every session the account holds.
func (service *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	userID, err := service.resetTokens.Get(ctx, token)
	if err != nil {
		return apperr.Unauthenticated("Reset token is invalid or expired")
	}

	newHash, err := sec.HashPassword(newPassword)
	if err != nil {
		if err == sec.ErrWeakPassword {
			return validate.RequiredError("password",
				fmt.Sprintf("Minimum %d characters", sec.MinPasswordLength))
		}
		return fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	if err := service.users.UpdatePassword(ctx, userID, newHash); err != nil {
		return err
	}

	// Single-use: the token dies with the reset.
	if err := service.resetTokens.Delete(ctx, token); err != nil {
		return err
	}

	_, err = service.sessions.DeleteForUser(ctx, userID)
	return err
}
