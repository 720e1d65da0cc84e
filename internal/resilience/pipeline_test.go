package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()

	return NewPipeline("test", PipelineConfig{
		RateLimit: &RateLimiterConfig{
			Permits:     100,
			Period:      time.Second,
			WaitTimeout: 10 * time.Millisecond,
		},
		Breaker: &CircuitBreakerConfig{
			WindowSize:   4,
			FailureRatio: 0.5,
			Cooldown:     time.Minute,
		},
		Retry: &RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
		},
	}, logger.NewNopLogger())
}

func TestPipeline_RetriesInsideSingleBreakerOutcome(t *testing.T) {
	pipe := newTestPipeline(t)

	// Each supervised call retries internally but records exactly one
	// breaker outcome, so three exhausted calls only record three
	// failures against the window of four.
	calls := 0
	for range 3 {
		err := pipe.Execute(context.Background(), func() error {
			calls++
			return errors.New(errors.ErrCodeExchangeTransient, "bad gateway")
		})
		require.Error(t, err)
	}

	assert.Equal(t, 9, calls, "3 calls x 3 attempts")
	assert.Equal(t, BreakerClosed, pipe.BreakerState())
}

func TestPipeline_BreakerShortCircuitsRetries(t *testing.T) {
	pipe := newTestPipeline(t)

	for range 4 {
		_ = pipe.Execute(context.Background(), func() error {
			return errors.New(errors.ErrCodeExchangeTransient, "bad gateway")
		})
	}
	require.Equal(t, BreakerOpen, pipe.BreakerState())

	calls := 0
	err := pipe.Execute(context.Background(), func() error {
		calls++
		return nil
	})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeBreakerOpen))
	assert.Equal(t, 0, calls)
}

func TestPipeline_ThrottledBeforeOperationRuns(t *testing.T) {
	pipe := NewPipeline("tight", PipelineConfig{
		RateLimit: &RateLimiterConfig{
			Permits:     1,
			Period:      time.Minute,
			WaitTimeout: 5 * time.Millisecond,
		},
		Breaker: nil,
		Retry:   nil,
	}, logger.NewNopLogger())

	require.NoError(t, pipe.Execute(context.Background(), func() error { return nil }))

	calls := 0
	err := pipe.Execute(context.Background(), func() error {
		calls++
		return nil
	})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeThrottled))
	assert.Equal(t, 0, calls)
}

func TestPipeline_AllStagesDisabled(t *testing.T) {
	pipe := NewPipeline("bare", PipelineConfig{
		RateLimit: nil,
		Breaker:   nil,
		Retry:     nil,
	}, logger.NewNopLogger())

	calls := 0
	require.NoError(t, pipe.Execute(context.Background(), func() error {
		calls++
		return nil
	}))
	assert.Equal(t, 1, calls)
}

func TestExecute_ReturnsTypedResult(t *testing.T) {
	pipe := newTestPipeline(t)

	value, err := Execute(context.Background(), pipe, func() (string, error) {
		return "FILLED", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "FILLED", value)

	_, err = Execute(context.Background(), pipe, func() (string, error) {
		return "", errors.New(errors.ErrCodeExchangeRejected, "rejected")
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeExchangeRejected))
}
