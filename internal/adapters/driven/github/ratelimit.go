package github

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/github-backup/internal/core/domain"
)

const (
	// GitHubRateLimit is the authenticated rate limit (5000/hour).
	GitHubRateLimit = 5000

	// ProactiveRate is the default proactive throttle rate (~1.4 req/sec = 5000/hr).
	ProactiveRate = 1.4

	// HeaderRateLimit is the rate limit header.
	HeaderRateLimit = "X-RateLimit-Limit"

	// HeaderRateRemaining is the remaining requests header.
	HeaderRateRemaining = "X-RateLimit-Remaining"

	// HeaderRateReset is the reset timestamp header (Unix seconds).
	HeaderRateReset = "X-RateLimit-Reset"
)

// RateLimiter spaces requests out and tracks the quota headers of the
// last response.
type RateLimiter struct {
	mu        sync.Mutex
	remaining int           // From API header
	limit     int           // From API header
	resetTime time.Time     // From API header
	bucket    *rate.Limiter // Proactive throttling

	warnedFor time.Time // reset time of the window already reported by LowQuota
}

// NewRateLimiter creates a rate limiter allowing perSecond requests per
// second. A non-positive rate disables throttling.
func NewRateLimiter(perSecond float64) *RateLimiter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &RateLimiter{
		remaining: GitHubRateLimit, // Assume full quota initially
		limit:     GitHubRateLimit,
		bucket:    rate.NewLimiter(limit, 1),
	}
}

// Wait blocks until the token bucket allows another request.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.bucket.Wait(ctx)
}

// UpdateFromResponse updates rate limit state from response headers.
func (r *RateLimiter) UpdateFromResponse(resp *http.Response) {
	if resp == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if remaining := resp.Header.Get(HeaderRateRemaining); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			r.remaining = val
		}
	}

	if limit := resp.Header.Get(HeaderRateLimit); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			r.limit = val
		}
	}

	if reset := resp.Header.Get(HeaderRateReset); reset != "" {
		if val, err := strconv.ParseInt(reset, 10, 64); err == nil {
			r.resetTime = time.Unix(val, 0)
		}
	}
}

// LowQuota reports the quota state once per reset window, the first time
// fewer than a tenth of the requests remain.
func (r *RateLimiter) LowQuota() (domain.Rate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.remaining*10 >= r.limit || r.resetTime.Equal(r.warnedFor) {
		return domain.Rate{}, false
	}
	r.warnedFor = r.resetTime
	return r.snapshot(), true
}

func (r *RateLimiter) snapshot() domain.Rate {
	return domain.Rate{Limit: r.limit, Remaining: r.remaining, Reset: r.resetTime}
}
