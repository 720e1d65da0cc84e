package resilience

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"golang.org/x/time/rate"
)

// RateLimiterConfig describes a request budget of Permits calls per Period.
type RateLimiterConfig struct {
	// Permits is the number of calls allowed per Period.
	Permits int `yaml:"permits" validate:"required,gt=0"`
	// Period is the replenishment window.
	Period time.Duration `yaml:"period" validate:"required,gt=0"`
	// WaitTimeout bounds how long a caller may block waiting for a permit
	// before the call fails with a throttling error.
	WaitTimeout time.Duration `yaml:"wait_timeout" validate:"required,gt=0"`
}

// RateLimiter hands out permits from a token bucket sized to the configured
// budget. Callers block up to WaitTimeout for a permit; they never bypass the
// limit and never block forever.
type RateLimiter struct {
	limiter     *rate.Limiter
	waitTimeout time.Duration
}

// NewRateLimiter creates a rate limiter allowing cfg.Permits calls per
// cfg.Period with a burst of the full budget.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	interval := cfg.Period / time.Duration(cfg.Permits)

	return &RateLimiter{
		limiter:     rate.NewLimiter(rate.Every(interval), cfg.Permits),
		waitTimeout: cfg.WaitTimeout,
	}
}

// Acquire blocks until a permit is available or the wait timeout elapses.
// A timeout surfaces as ErrCodeThrottled so callers can distinguish local
// throttling from genuine exchange errors.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, r.waitTimeout)
	defer cancel()

	if err := r.limiter.Wait(waitCtx); err != nil {
		return errors.Wrap(errors.ErrCodeThrottled, "rate limiter permit not acquired", err)
	}

	return nil
}

// TryAcquire reports whether a permit is immediately available and consumes it
// if so. Used by fire-and-forget callers that prefer dropping to blocking.
func (r *RateLimiter) TryAcquire() bool {
	return r.limiter.Allow()
}
