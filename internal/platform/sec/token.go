// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (hashing, token signing,
// anti-forgery tokens) from the domain logic. It acts as an Infrastructure
// service injected into the Application layer.
package sec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token verification errors. The authentication middleware treats all four
// identically as "unauthenticated"; logs may distinguish them.
var (
	ErrMalformed    = errors.New("sec: token is malformed")
	ErrBadSignature = errors.New("sec: token signature mismatch")
	ErrExpired      = errors.New("sec: token is expired")
	ErrWrongIssuer  = errors.New("sec: token issuer mismatch")
)

// TokenClaims is the payload embedded inside a bearer token.
//
// # Why custom claims?
//
// By embedding the user ID, email, and lifetime directly inside the token,
// sibling services verifying with the shared secret can reconstruct the
// caller WITHOUT querying the user database on every request.
//
// The write side always emits `userId` as a JSON number. The read side also
// accepts `userId` as a decimal string and the legacy snake_case `user_id`
// emitted by the previous generation of the service.
type TokenClaims struct {
	UserID    int64
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Issuer    string
}

// tokenPayload is the wire form handed to golang-jwt.
type tokenPayload struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// UnmarshalJSON accepts the canonical shape plus the two legacy variants.
func (p *tokenPayload) UnmarshalJSON(data []byte) error {
	var raw struct {
		UserID   json.RawMessage `json:"userId"`
		LegacyID json.RawMessage `json:"user_id"`
		Email    string          `json:"email"`
		jwt.RegisteredClaims
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	idField := raw.UserID
	if len(idField) == 0 {
		idField = raw.LegacyID
	}
	id, err := parseUserIDClaim(idField)
	if err != nil {
		return err
	}

	p.UserID = id
	p.Email = raw.Email
	p.RegisteredClaims = raw.RegisteredClaims
	return nil
}

// parseUserIDClaim decodes a user ID claim that may be a JSON number or a
// decimal string.
func parseUserIDClaim(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("sec: token has no user ID claim")
	}
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("sec: token user ID claim %q is not an integer", text)
	}
	return id, nil
}

// TokenCodec signs and verifies bearer tokens using HMAC-SHA256 with a
// secret shared across the sibling services.
type TokenCodec struct {
	secret     []byte
	issuer     string
	timeToLive time.Duration

	// now is swappable for deterministic expiry tests.
	now func() time.Time
}

// NewTokenCodec creates a codec issuing tokens valid for timeToLive.
func NewTokenCodec(secret, issuer string, timeToLive time.Duration) *TokenCodec {
	return &TokenCodec{
		secret:     []byte(secret),
		issuer:     issuer,
		timeToLive: timeToLive,
		now:        time.Now,
	}
}

// Issue creates a signed bearer token for a user.
func (c *TokenCodec) Issue(userID int64, email string) (string, error) {
	currentTime := c.now()
	payload := tokenPayload{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(c.timeToLive)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &payload)
	signedToken, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}
	return signedToken, nil
}

// Verify checks the signature and validity of a token string.
//
// It rejects tokens whose header algorithm is anything but HS256 before
// touching the signature, expired tokens (exp <= now counts as expired), and
// tokens carrying a foreign issuer.
func (c *TokenCodec) Verify(tokenString string) (*TokenClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)

	var payload tokenPayload
	token, err := parser.ParseWithClaims(tokenString, &payload, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, classifyTokenError(err)
	}
	if !token.Valid {
		return nil, ErrMalformed
	}

	claims := &TokenClaims{
		UserID: payload.UserID,
		Email:  payload.Email,
		Issuer: payload.Issuer,
	}
	if payload.IssuedAt != nil {
		claims.IssuedAt = payload.IssuedAt.Time
	}
	if payload.ExpiresAt != nil {
		claims.ExpiresAt = payload.ExpiresAt.Time
	}
	return claims, nil
}

// Refresh issues a fresh token carrying the same identity with new iat/exp.
// The caller is responsible for confirming the user still exists.
func (c *TokenCodec) Refresh(claims *TokenClaims) (string, error) {
	return c.Issue(claims.UserID, claims.Email)
}

// classifyTokenError maps golang-jwt failures onto the package's stable
// error set, keeping the library's granularity out of callers.
func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrBadSignature
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrWrongIssuer
	default:
		return ErrMalformed
	}
}
