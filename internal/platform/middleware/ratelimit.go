// Copyright (c) 2026 Ohana Project. All rights reserved.
// Author: platform@ohanahq.dev

package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ohanahq/ohana/internal/platform/apperr"
	"github.com/ohanahq/ohana/internal/platform/constants"
)

// # Rate Limiting
//
// Credential endpoints are guarded by in-memory token buckets keyed by
// (endpoint label, client IP). Each bucket holds `limit` tokens and refills
// at limit/window, so a client can burst up to the limit and then sustain
// the average rate. State is per-process; multi-replica deployments get the
// limit per replica, which is accepted for this service.

type rateLimitClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter tracks token buckets for one (limit, window) policy across
// any number of labeled endpoints.
//
// # Concurrency
//
// A single mutex serializes bucket map access. The critical section is a
// map lookup plus a token probe, so contention is negligible next to the
// bcrypt work behind these endpoints.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rateLimitClient

	limit  int
	window time.Duration
}

// NewRateLimiter creates a limiter allowing `limit` requests per `window`
// per (endpoint, IP) pair and starts the idle-entry sweeper.
//
// The sweeper removes buckets idle for more than twice the window: such a
// bucket has fully refilled, so dropping it is indistinguishable from
// keeping it, and memory stays bounded by the set of recently active IPs.
// It stops when ctx is cancelled at shutdown.
func NewRateLimiter(ctx context.Context, limit int, window time.Duration) *RateLimiter {
	limiter := &RateLimiter{
		clients: make(map[string]*rateLimitClient),
		limit:   limit,
		window:  window,
	}

	go limiter.sweep(ctx)

	return limiter
}

// Limit returns a middleware guarding one labeled endpoint.
func (rl *RateLimiter) Limit(endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if !rl.Allow(endpoint, RealIP(request)) {
				retryAfter := int(rl.window.Seconds())
				rejection := apperr.RateLimited(retryAfter)
				writer.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(writer, rejection.HTTPStatus, rejection.Code, rejection.Message)
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}

// Allow probes the bucket for one (endpoint, IP) pair, creating it at full
// capacity on first sight.
func (rl *RateLimiter) Allow(endpoint, clientIP string) bool {
	key := endpoint + "|" + clientIP

	rl.mu.Lock()
	defer rl.mu.Unlock()

	clientInfo, found := rl.clients[key]
	if !found {
		clientInfo = &rateLimitClient{
			limiter: rate.NewLimiter(rate.Every(rl.window/time.Duration(rl.limit)), rl.limit),
		}
		rl.clients[key] = clientInfo
	}

	clientInfo.lastSeen = time.Now()
	return clientInfo.limiter.Allow()
}

// sweep periodically evicts idle buckets until ctx is cancelled.
func (rl *RateLimiter) sweep(ctx context.Context) {
	idleTTL := time.Duration(constants.RateLimitIdleFactor) * rl.window

	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for key, clientInfo := range rl.clients {
				if time.Since(clientInfo.lastSeen) > idleTTL {
					delete(rl.clients, key)
				}
			}
			rl.mu.Unlock()
		case <-ctx.Done():
			// Stop the goroutine when the application shuts down
			return
		}
	}
}
