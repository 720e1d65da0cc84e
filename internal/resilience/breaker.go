package resilience

import (
	"sync"
	"time"

	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

// BreakerState is the circuit breaker lifecycle state.
type BreakerState string

const (
	// BreakerClosed passes calls through and records their outcomes.
	BreakerClosed BreakerState = "CLOSED"
	// BreakerOpen rejects calls immediately until the cooldown elapses.
	BreakerOpen BreakerState = "OPEN"
	// BreakerHalfOpen admits a single trial call to probe recovery.
	BreakerHalfOpen BreakerState = "HALF_OPEN"
)

// CircuitBreakerConfig tunes the failure window and recovery behavior.
type CircuitBreakerConfig struct {
	// WindowSize is the number of most recent call outcomes considered.
	WindowSize int `yaml:"window_size" validate:"required,gt=0"`
	// FailureRatio opens the breaker once the failure share of a full
	// window strictly exceeds it.
	FailureRatio float64 `yaml:"failure_ratio" validate:"required,gt=0,lte=1"`
	// Cooldown is how long the breaker stays open before admitting a
	// trial call.
	Cooldown time.Duration `yaml:"cooldown" validate:"required,gt=0"`
}

// StateChangeFunc is invoked on every breaker state transition.
type StateChangeFunc func(from BreakerState, to BreakerState)

// CircuitBreaker tracks call outcomes over a fixed-size sliding window and
// fails fast while the downstream is deemed unhealthy. While open, calls are
// rejected with ErrCodeBreakerOpen without touching the wrapped operation.
// After the cooldown exactly one trial call is admitted; its outcome decides
// whether the breaker closes again or re-opens for another cooldown.
type CircuitBreaker struct {
	mu sync.Mutex

	cfg      CircuitBreakerConfig
	state    BreakerState
	onChange StateChangeFunc

	// outcomes is a ring buffer of recent results, true meaning failure.
	outcomes []bool
	next     int
	filled   int
	failures int

	openedAt      time.Time
	trialInFlight bool

	now func() time.Time
}

// NewCircuitBreaker creates a closed breaker. onChange may be nil.
func NewCircuitBreaker(cfg CircuitBreakerConfig, onChange StateChangeFunc) *CircuitBreaker {
	return &CircuitBreaker{
		cfg:           cfg,
		state:         BreakerClosed,
		onChange:      onChange,
		outcomes:      make([]bool, cfg.WindowSize),
		next:          0,
		filled:        0,
		failures:      0,
		openedAt:      time.Time{},
		trialInFlight: false,
		now:           time.Now,
	}
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state
}

// Execute runs op under breaker supervision. While the breaker is open the
// operation is not invoked at all and the caller receives ErrCodeBreakerOpen.
func (cb *CircuitBreaker) Execute(op func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}

	err := op()
	cb.record(err != nil)

	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if cb.now().Sub(cb.openedAt) < cb.cfg.Cooldown {
			return errors.New(errors.ErrCodeBreakerOpen, "circuit breaker is open")
		}

		cb.transition(BreakerHalfOpen)
		cb.trialInFlight = true

		return nil
	case BreakerHalfOpen:
		if cb.trialInFlight {
			return errors.New(errors.ErrCodeBreakerOpen, "circuit breaker trial already in flight")
		}

		cb.trialInFlight = true

		return nil
	}

	return nil
}

func (cb *CircuitBreaker) record(failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == BreakerHalfOpen {
		cb.trialInFlight = false
		if failed {
			cb.open()
			return
		}

		cb.resetWindow()
		cb.transition(BreakerClosed)

		return
	}

	if cb.state != BreakerClosed {
		return
	}

	if cb.filled == len(cb.outcomes) && cb.outcomes[cb.next] {
		cb.failures--
	}

	cb.outcomes[cb.next] = failed
	cb.next = (cb.next + 1) % len(cb.outcomes)

	if cb.filled < len(cb.outcomes) {
		cb.filled++
	}

	if failed {
		cb.failures++
	}

	// Only a full window can open the breaker: a cold start with a couple
	// of failures is not enough signal.
	if cb.filled == len(cb.outcomes) {
		ratio := float64(cb.failures) / float64(cb.filled)
		if ratio > cb.cfg.FailureRatio {
			cb.open()
		}
	}
}

func (cb *CircuitBreaker) open() {
	cb.openedAt = cb.now()
	cb.transition(BreakerOpen)
}

func (cb *CircuitBreaker) resetWindow() {
	for i := range cb.outcomes {
		cb.outcomes[i] = false
	}
	cb.next = 0
	cb.filled = 0
	cb.failures = 0
}

func (cb *CircuitBreaker) transition(to BreakerState) {
	from := cb.state
	if from == to {
		return
	}

	cb.state = to
	if cb.onChange != nil {
		cb.onChange(from, to)
	}
}
