// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ohanahq/ohana/internal/platform/middleware"
)

/*
TestRealIP verifies the client-IP resolution order: first X-Forwarded-For
entry, then X-Real-IP, then the peer address.
*/
func TestRealIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		want       string
	}{
		{
			name:       "forwarded_for_wins_over_real_ip",
			forwarded:  "203.0.113.7, 10.0.0.1",
			realIP:     "198.51.100.9",
			remoteAddr: "10.0.0.1:54321",
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded_for_single_entry",
			forwarded:  "203.0.113.7",
			remoteAddr: "10.0.0.1:54321",
			want:       "203.0.113.7",
		},
		{
			name:       "real_ip_when_no_forwarded_for",
			realIP:     "198.51.100.9",
			remoteAddr: "10.0.0.1:54321",
			want:       "198.51.100.9",
		},
		{
			name:       "peer_address_fallback",
			remoteAddr: "192.0.2.33:54321",
			want:       "192.0.2.33",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			request.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				request.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				request.Header.Set("X-Real-IP", tt.realIP)
			}

			assert.Equal(t, tt.want, middleware.RealIP(request))
		})
	}
}
