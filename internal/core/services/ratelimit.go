package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/github-backup/internal/core/domain"
	"github.com/custodia-labs/github-backup/internal/logger"
)

const (
	// DefaultMaxAttempts is the number of calls made before giving up on a throttled operation.
	DefaultMaxAttempts = 3

	// DefaultResetMargin is added to the reset time before a throttled call is retried.
	DefaultResetMargin = 30 * time.Second
)

// RetryPolicy controls how throttled calls are retried.
type RetryPolicy struct {
	MaxAttempts int
	Margin      time.Duration
}

// DefaultRetryPolicy returns 3 attempts with a 30 second margin.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, Margin: DefaultResetMargin}
}

// RateLimitSource reports the current quota state.
type RateLimitSource interface {
	RateLimits(ctx context.Context) (*domain.RateLimits, error)
}

// RateLimitGate runs API calls and waits out throttling.
//
// The resume deadline is shared by every caller: once one call has been
// throttled, all calls wait for the same deadline and the limit state is
// queried only once per throttling episode.
type RateLimitGate struct {
	source RateLimitSource
	policy RetryPolicy

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	resumeAt time.Time
}

// NewRateLimitGate creates a gate that asks source for the limits when a
// call is throttled.
func NewRateLimitGate(source RateLimitSource, policy RetryPolicy) *RateLimitGate {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &RateLimitGate{
		source: source,
		policy: policy,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Do calls fn until it succeeds, fails with an error other than
// domain.ErrRateLimited, or the policy runs out of attempts. The last case
// returns an error wrapping domain.ErrRetriesExhausted.
func (g *RateLimitGate) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= g.policy.MaxAttempts; attempt++ {
		if werr := g.wait(ctx); werr != nil {
			return werr
		}

		err = fn(ctx)
		if err == nil || !errors.Is(err, domain.ErrRateLimited) {
			return err
		}

		if attempt == g.policy.MaxAttempts {
			break
		}
		if serr := g.throttled(ctx, op); serr != nil {
			return serr
		}
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrRetriesExhausted, err)
}

// Call is Do for functions returning a value.
func Call[T any](ctx context.Context, g *RateLimitGate, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := g.Do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// wait blocks until the shared resume deadline has passed.
func (g *RateLimitGate) wait(ctx context.Context) error {
	g.mu.Lock()
	d := g.resumeAt.Sub(g.now())
	g.mu.Unlock()

	if d <= 0 {
		return ctx.Err()
	}
	return g.sleep(ctx, d)
}

// throttled sets the resume deadline from the limiting category, unless
// another caller already did.
func (g *RateLimitGate) throttled(ctx context.Context, op string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if g.resumeAt.After(now) {
		return nil
	}

	limits, err := g.source.RateLimits(ctx)
	if err != nil {
		return fmt.Errorf("%s: query rate limits: %w", op, err)
	}

	category, rate := limits.Limiting()
	g.resumeAt = rate.Reset.Add(g.policy.Margin)

	if d := g.resumeAt.Sub(now); d > 0 {
		logger.Warn("API rate limit exceeded (%s) during %s, waiting %s until %s",
			category, op, d.Round(time.Second), g.resumeAt.Format(time.RFC3339))
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
