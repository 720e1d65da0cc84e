package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry_Execute(t *testing.T) {
	transient := errors.New(errors.ErrCodeExchangeTransient, "gateway timeout")
	rejected := errors.New(errors.ErrCodeExchangeRejected, "margin is insufficient")

	tests := []struct {
		name        string
		results     []error
		wantCalls   int
		wantErr     bool
		wantErrCode errors.ErrorCode
	}{
		{
			name:      "first attempt succeeds",
			results:   []error{nil},
			wantCalls: 1,
			wantErr:   false,
		},
		{
			name:      "recovers after transient failures",
			results:   []error{transient, transient, nil},
			wantCalls: 3,
			wantErr:   false,
		},
		{
			name:        "exhausts attempts on persistent transient failure",
			results:     []error{transient, transient, transient, transient, transient},
			wantCalls:   4,
			wantErr:     true,
			wantErrCode: errors.ErrCodeExchangeTransient,
		},
		{
			name:        "non-transient failure is not retried",
			results:     []error{rejected, nil},
			wantCalls:   1,
			wantErr:     true,
			wantErrCode: errors.ErrCodeExchangeRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retry := NewRetry(RetryConfig{
				MaxAttempts: 4,
				BaseDelay:   time.Millisecond,
			}, nil)

			calls := 0
			err := retry.Execute(context.Background(), func() error {
				result := tt.results[calls]
				calls++
				return result
			})

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, tt.wantErrCode))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRetry_NotifiesBeforeEachRetry(t *testing.T) {
	var attempts []int

	retry := NewRetry(RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
	}, func(attempt int, err error) {
		attempts = append(attempts, attempt)
		assert.Error(t, err)
	})

	err := retry.Execute(context.Background(), func() error {
		return errors.New(errors.ErrCodeExchangeTransient, "service unavailable")
	})

	require.Error(t, err)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	retry := NewRetry(RetryConfig{
		MaxAttempts: 10,
		BaseDelay:   50 * time.Millisecond,
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	calls := 0
	err := retry.Execute(ctx, func() error {
		calls++
		return errors.New(errors.ErrCodeExchangeTransient, "service unavailable")
	})

	require.Error(t, err)
	assert.Less(t, calls, 10, "cancellation should stop further attempts")
}
