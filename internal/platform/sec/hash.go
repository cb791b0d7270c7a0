// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

package sec

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the minimum accepted plaintext length. Enforced at
// hash time so no caller can persist a weaker credential by accident.
const MinPasswordLength = 8

// ErrWeakPassword is returned by [HashPassword] for plaintexts below
// [MinPasswordLength].
var ErrWeakPassword = errors.New("sec: password shorter than minimum length")

// DummyDigest is a valid bcrypt digest of an unrelated constant. Sign-in
// verifies against it when the email is unknown so both failure paths cost
// one bcrypt comparison.
const DummyDigest = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// HashPassword hashes a plain-text password using the bcrypt algorithm.
// bcrypt embeds a random per-password salt in the digest, so equal inputs
// produce distinct outputs.
func HashPassword(plainTextPassword string) (string, error) {
	if len(plainTextPassword) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash compares a plain-text password with its hashed version.
// A malformed digest reports false exactly like a wrong password; it never
// panics and never reveals which of the two happened.
func CheckPasswordHash(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}
