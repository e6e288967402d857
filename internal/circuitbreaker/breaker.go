package circuitbreaker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Rejecting requests
	StateHalfOpen              // Probing for recovery
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Stats holds the rolling counters of one breaker. FailureCount and
// SuccessCount reset on every state transition; TotalCalls and
// TotalFailures are lifetime counters and never reset.
type Stats struct {
	FailureCount    int
	SuccessCount    int
	TotalCalls      int
	TotalFailures   int
	LastFailureTime time.Time
	LastSuccessTime time.Time
	AvgResponseTime time.Duration
}

// Config holds the thresholds and timeouts of one breaker.
type Config struct {
	// FailureThreshold is the failure count (since the last transition)
	// at which a closed breaker trips open.
	FailureThreshold int
	// RecoveryTimeout is how long an open breaker rejects before the
	// next consultation moves it to half-open.
	RecoveryTimeout time.Duration
	// HalfOpenTimeout bounds the probing window: when it elapses the
	// breaker closes if any probe succeeded, otherwise it re-opens.
	HalfOpenTimeout time.Duration
	// MinThroughput is the minimum number of calls since the last
	// transition before the failure threshold is considered.
	MinThroughput int
}

// DefaultConfig returns the default breaker thresholds.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		HalfOpenTimeout:  30 * time.Second,
		MinThroughput:    10,
	}
}

// CircuitBreaker is a per-service fault isolator. It wraps an arbitrary
// operation, tracks rolling success/failure statistics and transitions
// among CLOSED, OPEN and HALF_OPEN to stop hammering a failing
// dependency.
type CircuitBreaker struct {
	name   string
	config Config
	logger *slog.Logger

	// onStateChange, if set, is invoked (under the breaker lock) on
	// every transition.
	onStateChange func(name string, from, to State)

	mutex           sync.Mutex
	state           State
	stats           Stats
	lastStateChange time.Time
}

// NewCircuitBreaker creates a closed breaker. Zero config fields get the
// package defaults.
func NewCircuitBreaker(name string, config Config, logger *slog.Logger) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 60 * time.Second
	}
	if config.HalfOpenTimeout <= 0 {
		config.HalfOpenTimeout = 30 * time.Second
	}
	if config.MinThroughput <= 0 {
		config.MinThroughput = 10
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CircuitBreaker{
		name:            name,
		config:          config,
		logger:          logger,
		state:           StateClosed,
		lastStateChange: time.Now(),
	}
}

// SetOnStateChange installs a transition callback. Must be called before
// the breaker is shared.
func (cb *CircuitBreaker) SetOnStateChange(fn func(name string, from, to State)) {
	cb.onStateChange = fn
}

// Call executes fn with circuit breaker protection. If the breaker is
// open, fn is never invoked and the returned *Error unwraps to ErrOpen.
// If fn fails, the failure is recorded and returned wrapped in an *Error
// that preserves the cause and a stats snapshot. The operation itself
// runs without holding the breaker lock; only state evaluation and
// result recording are serialized.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	cb.mutex.Lock()
	cb.checkStateTransition(time.Now())

	if cb.state == StateOpen {
		err := &Error{
			Circuit: cb.name,
			State:   cb.state,
			Stats:   cb.stats,
			Cause:   ErrOpen,
		}
		cb.mutex.Unlock()
		return err
	}
	cb.mutex.Unlock()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if err != nil {
		cb.recordFailure()
		return &Error{
			Circuit: cb.name,
			State:   cb.state,
			Stats:   cb.stats,
			Cause:   err,
		}
	}

	cb.recordSuccess(elapsed)
	return nil
}

// State returns the breaker's current state, applying any pending
// timeout-driven transition first.
func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.checkStateTransition(time.Now())
	return cb.state
}

// Stats returns a copy of the breaker's current counters.
func (cb *CircuitBreaker) Stats() Stats {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.stats
}

// checkStateTransition applies pending timeout-driven transitions.
// Must be called with the breaker lock held.
func (cb *CircuitBreaker) checkStateTransition(now time.Time) {
	sinceChange := now.Sub(cb.lastStateChange)

	switch cb.state {
	case StateOpen:
		if sinceChange >= cb.config.RecoveryTimeout {
			cb.transition(StateHalfOpen)
		}
	case StateHalfOpen:
		if sinceChange >= cb.config.HalfOpenTimeout {
			if cb.stats.SuccessCount > 0 {
				cb.transition(StateClosed)
			} else {
				cb.transition(StateOpen)
			}
		}
	}
}

// recordSuccess must be called with the breaker lock held.
func (cb *CircuitBreaker) recordSuccess(elapsed time.Duration) {
	cb.stats.SuccessCount++
	cb.stats.TotalCalls++
	cb.stats.LastSuccessTime = time.Now()

	// Incremental running mean over the lifetime call count. The
	// post-increment count is the divisor, so n is never zero.
	n := cb.stats.TotalCalls
	cb.stats.AvgResponseTime = time.Duration(
		(float64(cb.stats.AvgResponseTime)*float64(n-1) + float64(elapsed)) / float64(n))

	if cb.state == StateHalfOpen {
		cb.transition(StateClosed)
	}
}

// recordFailure must be called with the breaker lock held.
func (cb *CircuitBreaker) recordFailure() {
	cb.stats.FailureCount++
	cb.stats.TotalCalls++
	cb.stats.TotalFailures++
	cb.stats.LastFailureTime = time.Now()

	if cb.state == StateClosed &&
		cb.stats.TotalCalls >= cb.config.MinThroughput &&
		cb.stats.FailureCount >= cb.config.FailureThreshold {
		cb.transition(StateOpen)
	}
}

// transition moves the breaker to a new state, resetting the rolling
// counters. Lifetime counters are untouched. Must be called with the
// breaker lock held.
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	cb.state = to
	cb.lastStateChange = time.Now()

	cb.stats.FailureCount = 0
	cb.stats.SuccessCount = 0

	cb.logger.Info("Circuit state transition",
		slog.String("circuit", cb.name),
		slog.String("from", from.String()),
		slog.String("to", to.String()))

	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, from, to)
	}
}
