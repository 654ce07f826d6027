package http

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter manages per-domain request pacing using token buckets.
// A single configured rate applies to every domain; each domain gets its
// own bucket so probing video hosts does not starve the site crawl.
type RateLimiter struct {
	rps      float64
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

// NewRateLimiter creates a rate limiter allowing rps requests per second
// per domain. A non-positive rps disables limiting.
func NewRateLimiter(rps float64) *RateLimiter {
	return &RateLimiter{
		rps:      rps,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the rate limit allows a request for the given URL.
// Returns an error only if the context is canceled while waiting.
func (rl *RateLimiter) Wait(ctx context.Context, urlStr string) error {
	if rl == nil || rl.rps <= 0 {
		return nil
	}
	return rl.limiter(extractDomain(urlStr)).Wait(ctx)
}

// limiter returns the bucket for a domain, creating one if necessary.
func (rl *RateLimiter) limiter(domain string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.limiters[domain]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(rl.rps), 1)
	rl.limiters[domain] = l
	return l
}

// extractDomain extracts the host name from a URL string.
func extractDomain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return u.Hostname()
}
