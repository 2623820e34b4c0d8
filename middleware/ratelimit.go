// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// Time before an inactive client is forgotten
	VisitorTTL = 5 * time.Minute
	// Frequency of the cleanup routine
	CleanupInterval = 3 * time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a token bucket per client IP
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	proxies  *ProxyTrust
	now      func() time.Time
}

// NewRateLimiter allows perSecond requests per client with bursts of up to
// burst. perSecond <= 0 disables limiting.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
	}
}

// TrustProxies keys clients by the address a trusted proxy forwarded.
// Without it every client is keyed by its direct peer address.
func (rl *RateLimiter) TrustProxies(p *ProxyTrust) *RateLimiter {
	if rl != nil {
		rl.proxies = p
	}
	return rl
}

func (rl *RateLimiter) enabled() bool {
	return rl != nil && rl.limit > 0
}

func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = rl.now()
	return v.limiter
}

// Allow reports whether the client at key may make a request now
func (rl *RateLimiter) Allow(key string) bool {
	if !rl.enabled() {
		return true
	}
	return rl.getVisitor(key).Allow()
}

// Limit wraps a handler, answering 429 when the caller is over its rate
func (rl *RateLimiter) Limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rl.enabled() && !rl.Allow(rl.proxies.ClientIP(r)) {
			w.Header().Set("Retry-After", "1")
			CodedErrorResponse(w, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please wait a moment.")
			return
		}
		next(w, r)
	}
}

// Cleanup removes stale visitors every interval until ctx is done
func (rl *RateLimiter) Cleanup(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = CleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > VisitorTTL {
			delete(rl.visitors, ip)
		}
	}
}
