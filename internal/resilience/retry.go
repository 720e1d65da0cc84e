package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

// RetryConfig tunes the retry stage.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int `yaml:"max_attempts" validate:"required,gt=0"`
	// BaseDelay is the backoff before the first retry; each subsequent
	// retry doubles it.
	BaseDelay time.Duration `yaml:"base_delay" validate:"required,gt=0"`
}

// RetryFunc is invoked before each retry with the failed attempt number
// (1-based) and the error that triggered the retry.
type RetryFunc func(attempt int, err error)

// Retry re-runs an operation on transient failures with exponential backoff.
// Non-transient errors are returned immediately without further attempts.
type Retry struct {
	cfg     RetryConfig
	onRetry RetryFunc
}

// NewRetry creates a retry stage. onRetry may be nil.
func NewRetry(cfg RetryConfig, onRetry RetryFunc) *Retry {
	return &Retry{
		cfg:     cfg,
		onRetry: onRetry,
	}
}

// Execute runs op, retrying transient failures up to MaxAttempts total
// attempts. The last error is returned unchanged when attempts are exhausted
// so callers still see the underlying failure code.
func (r *Retry) Execute(ctx context.Context, op func() error) error {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = r.cfg.BaseDelay
	expo.Multiplier = 2
	expo.RandomizationFactor = 0
	expo.MaxElapsedTime = 0

	attempt := 0
	wrapped := func() error {
		attempt++

		err := op()
		if err == nil {
			return nil
		}

		if !errors.IsTransient(err) {
			return backoff.Permanent(err)
		}

		return err
	}

	notify := func(err error, _ time.Duration) {
		if r.onRetry != nil {
			r.onRetry(attempt, err)
		}
	}

	var policy backoff.BackOff = backoff.WithContext(expo, ctx)
	policy = backoff.WithMaxRetries(policy, uint64(r.cfg.MaxAttempts-1))

	return backoff.RetryNotify(wrapped, policy, notify)
}
