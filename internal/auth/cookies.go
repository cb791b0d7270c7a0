// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

package auth

import (
	"net/http"

	"github.com/ohanahq/ohana/internal/platform/constants"
)

// CookiePolicy centralizes every attribute of the auth cookies so both HTTP
// surfaces set and clear them identically.
//
// # Cross-Domain Scope
//
// The token and session cookies are scoped to the parent domain (e.g.
// ".example.com") so every sibling subdomain receives them. That is the
// whole point of this service: one sign-in, shared by the family.
type CookiePolicy struct {
	// TokenName is the primary bearer-token cookie name (configurable).
	TokenName string
	// ParentDomain is the Domain attribute, with leading dot.
	ParentDomain string
	// Secure is true in production deployments.
	Secure bool
}

// baseCookie returns the shared attribute set.
func (p CookiePolicy) baseCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   p.ParentDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetAuth writes the bearer-token and session-ID cookies for a sign-in.
func (p CookiePolicy) SetAuth(writer http.ResponseWriter, token, sessionID string) {
	lifetime := int(constants.BearerTokenLifetime.Seconds())
	http.SetCookie(writer, p.baseCookie(p.TokenName, token, lifetime))
	http.SetCookie(writer, p.baseCookie(constants.SessionCookieName, sessionID, lifetime))
}

// ClearAuth expires the cookies this service writes. The legacy token cookie
// is cleared too: it is never written, but a migrating client may still
// carry one, and sign-out must end that session as well.
func (p CookiePolicy) ClearAuth(writer http.ResponseWriter) {
	http.SetCookie(writer, p.baseCookie(p.TokenName, "", -1))
	http.SetCookie(writer, p.baseCookie(constants.LegacyTokenCookieName, "", -1))
	http.SetCookie(writer, p.baseCookie(constants.SessionCookieName, "", -1))
}

// SessionID reads the session-ID cookie, if any.
func (p CookiePolicy) SessionID(request *http.Request) string {
	cookie, err := request.Cookie(constants.SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
