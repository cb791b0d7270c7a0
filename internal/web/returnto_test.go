// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

package web_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ohanahq/ohana/internal/web"
)

/*
TestReturnToPolicy_Sanitize verifies the open-redirect defense: only
same-site paths, the parent domain, one level of subdomain, and explicitly
allowlisted hosts are honored; everything else falls back to the root.
*/
func TestReturnToPolicy_Sanitize(t *testing.T) {
	policy := web.ReturnToPolicy{
		ParentDomain: "example.com",
		AllowedHosts: []string{"partner.example.org"},
	}

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", "/"},
		{"whitespace", "   ", "/"},
		{"relative_path", "/dashboard", "/dashboard"},
		{"relative_with_query", "/reports?year=2026", "/reports?year=2026"},
		{"protocol_relative_rejected", "//evil.com/phish", "/"},
		{"not_root_anchored_rejected", "dashboard", "/"},
		{"parent_domain", "https://example.com/home", "https://example.com/home"},
		{"direct_subdomain", "https://app.example.com/inbox", "https://app.example.com/inbox"},
		{"http_scheme_accepted", "http://app.example.com/", "http://app.example.com/"},
		{"deep_subdomain_rejected", "https://deep.app.example.com/", "/"},
		{"foreign_host_rejected", "https://evil.com/", "/"},
		{"suffix_spoof_rejected", "https://notexample.com/", "/"},
		{"dotted_suffix_spoof_rejected", "https://evil-example.com/", "/"},
		{"allowlisted_host", "https://partner.example.org/landing", "https://partner.example.org/landing"},
		{"allowlist_is_exact", "https://sub.partner.example.org/", "/"},
		{"javascript_scheme_rejected", "javascript:alert(1)", "/"},
		{"data_scheme_rejected", "data:text/html,hi", "/"},
		{"case_insensitive_host", "https://APP.Example.COM/inbox", "https://APP.Example.COM/inbox"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Sanitize(tt.raw))
		})
	}
}

/*
TestReturnToPolicy_EmptyParent verifies that a policy without a parent
domain accepts only same-site paths.
*/
func TestReturnToPolicy_EmptyParent(t *testing.T) {
	policy := web.ReturnToPolicy{}

	assert.Equal(t, "/dashboard", policy.Sanitize("/dashboard"))
	assert.Equal(t, "/", policy.Sanitize("https://example.com/"))
}
