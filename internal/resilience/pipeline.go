package resilience

import (
	"context"

	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"go.uber.org/zap"
)

// PipelineConfig assembles the three resilience stages. A nil stage config
// disables that stage.
type PipelineConfig struct {
	RateLimit *RateLimiterConfig    `yaml:"rate_limit" validate:"omitempty"`
	Breaker   *CircuitBreakerConfig `yaml:"breaker" validate:"omitempty"`
	Retry     *RetryConfig          `yaml:"retry" validate:"omitempty"`
}

// Pipeline wraps outbound exchange calls with, from the outside in, a rate
// limiter, a circuit breaker, and a retry stage. The retry sits innermost so
// the breaker records one outcome per supervised call regardless of how many
// attempts the retry burned, and the rate limiter charges one permit per call
// rather than per attempt.
type Pipeline struct {
	name    string
	limiter *RateLimiter
	breaker *CircuitBreaker
	retry   *Retry
	log     *logger.Logger
}

// NewPipeline builds a pipeline named for its protected downstream. Disabled
// stages are skipped at call time.
func NewPipeline(name string, cfg PipelineConfig, log *logger.Logger) *Pipeline {
	pipe := &Pipeline{
		name:    name,
		limiter: nil,
		breaker: nil,
		retry:   nil,
		log:     log,
	}

	if cfg.RateLimit != nil {
		pipe.limiter = NewRateLimiter(*cfg.RateLimit)
	}

	if cfg.Breaker != nil {
		pipe.breaker = NewCircuitBreaker(*cfg.Breaker, func(from, to BreakerState) {
			log.Warn("Circuit breaker state changed",
				zap.String("pipeline", name),
				zap.String("from", string(from)),
				zap.String("to", string(to)))
		})
	}

	if cfg.Retry != nil {
		pipe.retry = NewRetry(*cfg.Retry, func(attempt int, err error) {
			log.Warn("Retrying transient failure",
				zap.String("pipeline", name),
				zap.Int("attempt", attempt),
				zap.Error(err))
		})
	}

	return pipe
}

// BreakerState returns the circuit breaker state, or BreakerClosed when the
// breaker stage is disabled.
func (p *Pipeline) BreakerState() BreakerState {
	if p.breaker == nil {
		return BreakerClosed
	}

	return p.breaker.State()
}

// Execute runs op through the enabled stages.
func (p *Pipeline) Execute(ctx context.Context, op func() error) error {
	if p.limiter != nil {
		if err := p.limiter.Acquire(ctx); err != nil {
			return err
		}
	}

	call := op
	if p.retry != nil {
		retry := p.retry
		call = func() error { return retry.Execute(ctx, op) }
	}

	if p.breaker != nil {
		return p.breaker.Execute(call)
	}

	return call()
}

// Execute runs op through pipe and returns its value alongside the pipeline
// error. The zero value of T is returned on failure.
func Execute[T any](ctx context.Context, pipe *Pipeline, op func() (T, error)) (T, error) {
	var result T

	err := pipe.Execute(ctx, func() error {
		value, opErr := op()
		if opErr != nil {
			return opErr
		}

		result = value

		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return result, nil
}
