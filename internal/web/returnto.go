// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

// Package web implements the human-facing HTML surface: sign-in and sign-up
// forms, the dashboard, and the password-reset pages. It shares the auth
// service with the JSON API and adds only form parsing, redirects, and
// open-redirect protection on top.
package web

import (
	"net/url"
	"strings"
)

// ReturnToPolicy decides whether a post-login destination may be redirected
// to. Everything else falls back to the root path.
//
// # Open Redirect
//
// The sign-in form round-trips an attacker-controllable returnTo value, so
// an unchecked redirect would turn the SSO service into a laundering hop
// for phishing links. Only destinations inside the family are honored.
type ReturnToPolicy struct {
	// ParentDomain is the bare registrable domain (no leading dot).
	ParentDomain string
	// AllowedHosts lists exact extra hosts granted by configuration.
	AllowedHosts []string
}

// DefaultDestination is used whenever returnTo is absent or rejected.
const DefaultDestination = "/"

// Sanitize returns a safe redirect target derived from raw, or
// [DefaultDestination] when raw is empty, unparsable, or points outside
// the family.
func (p ReturnToPolicy) Sanitize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultDestination
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return DefaultDestination
	}

	// Relative path on this host. Reject protocol-relative ("//evil.com")
	// and anything not anchored at the root.
	if parsed.Host == "" && parsed.Scheme == "" {
		if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
			return raw
		}
		return DefaultDestination
	}

	// Absolute URL: scheme and host both have to pass.
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return DefaultDestination
	}
	if p.hostAllowed(parsed.Hostname()) {
		return raw
	}
	return DefaultDestination
}

// hostAllowed accepts the parent domain, one direct subdomain level, and
// the configured exact-host allowlist.
func (p ReturnToPolicy) hostAllowed(host string) bool {
	host = strings.ToLower(host)
	parent := strings.ToLower(p.ParentDomain)

	if host == "" || parent == "" {
		return false
	}
	if host == parent {
		return true
	}

	for _, allowed := range p.AllowedHosts {
		if host == strings.ToLower(strings.TrimSpace(allowed)) {
			return true
		}
	}

	label, found := strings.CutSuffix(host, "."+parent)
	if !found {
		return false
	}
	return label != "" && !strings.Contains(label, ".")
}
