// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

// # Cross-Origin Resource Sharing
//
// Sibling applications on subdomains of the parent domain call the token
// API from the browser with credentials, so the allowed origin is echoed
// back exactly (never a wildcard) and Allow-Credentials is always set for
// permitted origins.

// CORSConfig defines the behavior needed by the CORS middleware.
type CORSConfig interface {
	// ParentDomain is the bare registrable domain shared by the siblings.
	ParentDomain() string
	// IsDevelopment loosens the origin check for local frontends.
	IsDevelopment() bool
}

// CORS handles Cross-Origin Resource Sharing for the API surface.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// 1. Check the Origin header
			origin := request.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// 2. Check if the origin is allowed (strict in PROD, open in DEV)
			isAllowed := cfg.IsDevelopment() || originAllowed(origin, cfg.ParentDomain())

			// 3. Inject standard CORS headers if authorized
			if isAllowed {
				header := writer.Header()
				header.Set("Access-Control-Allow-Origin", origin)
				header.Set("Vary", "Origin")
				header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				header.Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Authorization, X-Request-ID, X-CSRF-Token")
				header.Set("Access-Control-Expose-Headers", "Content-Length, X-Request-ID")
				header.Set("Access-Control-Allow-Credentials", "true")
				header.Set("Access-Control-Max-Age", "300")
			}

			// 4. Handle pre-flight requests (OPTIONS)
			if request.Method == http.MethodOptions {
				writer.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// originAllowed accepts the parent domain itself and any direct subdomain.
func originAllowed(origin, parentDomain string) bool {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Hostname() == "" {
		return false
	}

	host := strings.ToLower(parsed.Hostname())
	parent := strings.ToLower(parentDomain)

	if host == parent {
		return true
	}

	label, found := strings.CutSuffix(host, "."+parent)
	if !found {
		return false
	}

	// Exactly one extra label; deeper nesting is out of scope.
	return label != "" && !strings.Contains(label, ".")
}
