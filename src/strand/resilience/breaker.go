package resilience

import (
	"fmt"
	"sync"
	"time"
)

// BreakerState is the health of calls to one logical dependency.
type BreakerState int

const (
	// Closed allows calls through and counts consecutive failures.
	Closed BreakerState = iota

	// Open fails fast until the cooldown deadline passes.
	Open

	// HalfOpen allows exactly one trial call after the cooldown.
	HalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitOpenError is returned when an operation is rejected because the
// circuit is open and its cooldown has not elapsed.
type CircuitOpenError struct {
	// Remaining is how long until the breaker allows a trial call.
	Remaining time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker is open, retry in %s", e.Remaining)
}

// Retryable marks the error as transient; the dependency may recover once
// the cooldown passes.
func (e *CircuitOpenError) Retryable() bool {
	return true
}

// CircuitBreaker is a state machine that stops calling a failing dependency
// until a cooldown passes.
type CircuitBreaker struct {
	threshold int
	cooldown  time.Duration
	clock     func() time.Time

	mutex    sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	trial    bool
}

// DefaultFailureThreshold is the number of consecutive failures that trips
// the breaker when no explicit threshold is configured.
const DefaultFailureThreshold = 5

// DefaultCooldown is the open-state cooldown used when none is configured.
const DefaultCooldown = 30 * time.Second

// NewBreaker returns a closed breaker that opens after threshold
// consecutive failures and stays open for the given cooldown.
func NewBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	return &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		clock:     time.Now,
	}
}

// State returns the breaker's current state, accounting for an elapsed
// cooldown.
func (b *CircuitBreaker) State() BreakerState {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.state
}

// Allow reports whether a call may proceed. In the open state it fails fast
// with a *CircuitOpenError until the cooldown elapses, at which point it
// transitions to half-open and admits exactly one trial call. Concurrent
// calls during the trial are rejected.
func (b *CircuitBreaker) Allow() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	switch b.state {
	case Closed:
		return nil

	case Open:
		deadline := b.openedAt.Add(b.cooldown)
		now := b.clock()

		if now.Before(deadline) {
			return &CircuitOpenError{Remaining: deadline.Sub(now)}
		}

		b.state = HalfOpen
		b.trial = true
		return nil

	default: // HalfOpen
		if b.trial {
			return &CircuitOpenError{Remaining: 0}
		}

		b.trial = true
		return nil
	}
}

// RecordSuccess resets the failure count. A successful half-open trial
// closes the breaker.
func (b *CircuitBreaker) RecordSuccess() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.failures = 0
	b.trial = false

	if b.state == HalfOpen {
		b.state = Closed
	}
}

// RecordFailure counts a failed call. Crossing the failure threshold while
// closed opens the breaker; a failed half-open trial reopens it and extends
// the cooldown.
func (b *CircuitBreaker) RecordFailure() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	switch b.state {
	case HalfOpen:
		b.state = Open
		b.openedAt = b.clock()
		b.trial = false

	case Closed:
		b.failures++
		if b.failures >= b.threshold {
			b.state = Open
			b.openedAt = b.clock()
		}
	}
}
