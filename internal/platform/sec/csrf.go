// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

package sec

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// # Anti-Forgery Tokens
//
// A CSRF token is 32 random bytes plus an HMAC-SHA256 signature over them,
// both base64url encoded and joined with a dot. The server keeps no state:
// possession of a validly signed token proves it was minted here, and the
// synchronizer comparison (cookie vs. submitted copy) proves the submitting
// page could read our cookie.

const csrfRandomBytes = 32

// NewCSRFToken mints a fresh signed anti-forgery token.
func NewCSRFToken(secret []byte) (string, error) {
	nonce := make([]byte, csrfRandomBytes)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("sec: failed to mint csrf token: %w", err)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(nonce)

	return base64.RawURLEncoding.EncodeToString(nonce) +
		"." +
		base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// VerifyCSRFToken reports whether token carries a valid signature minted
// with secret. Comparison is constant-time.
func VerifyCSRFToken(secret []byte, token string) bool {
	nonceText, sigText, found := strings.Cut(token, ".")
	if !found {
		return false
	}

	nonce, err := base64.RawURLEncoding.DecodeString(nonceText)
	if err != nil || len(nonce) != csrfRandomBytes {
		return false
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigText)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(nonce)
	return hmac.Equal(sig, mac.Sum(nil))
}
