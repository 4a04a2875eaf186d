package worker

import (
	"sync"
	"time"
)

// CircuitBreaker stops provider calls after a run of consecutive failures and lets one
// call through once resetTimeout has passed since the last failure.
type CircuitBreaker struct {
	mu           sync.Mutex
	failures     int
	threshold    int
	resetTimeout time.Duration
	lastFailure  time.Time
	now          func() time.Time
}

func NewCircuitBreaker(threshold int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold:    threshold,
		resetTimeout: resetTimeout,
		now:          time.Now,
	}
}

func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.threshold <= 0 || cb.failures < cb.threshold {
		return false
	}
	// half-open after the reset timeout
	return cb.now().Sub(cb.lastFailure) <= cb.resetTimeout
}

// RemainingOpen is how long the breaker stays open, zero when closed.
func (cb *CircuitBreaker) RemainingOpen() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.threshold <= 0 || cb.failures < cb.threshold {
		return 0
	}
	remaining := cb.resetTimeout - cb.now().Sub(cb.lastFailure)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	cb.lastFailure = cb.now()
}

func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}
