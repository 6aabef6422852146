// Package resilience wraps unreliable operations with retry, circuit
// breaking and reconnection backoff.
package resilience

import (
	"math/rand"
	"time"
)

// Strategy selects how retry delays grow between attempts.
type Strategy int

const (
	// Constant waits the base delay between every attempt.
	Constant Strategy = iota

	// Exponential doubles the base delay for each attempt, capped at the
	// policy's maximum delay.
	Exponential
)

// jitterFraction is the magnitude of the random spread applied to jittered
// delays: the computed delay varies by up to ±20%.
const jitterFraction = 0.2

// RetryPolicy describes how an operation is retried after transient
// failures. The zero value never retries.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	Strategy  Strategy
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// Jitter spreads each delay by ±20% to avoid retry synchronization.
	Jitter bool
}

// DefaultRetry is a balanced policy for request retries.
func DefaultRetry() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		Strategy:   Exponential,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Jitter:     true,
	}
}

// AggressiveRetry retries more often with shorter initial delays.
func AggressiveRetry() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 5,
		Strategy:   Exponential,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Jitter:     true,
	}
}

// ConservativeRetry retries twice with a longer fixed delay.
func ConservativeRetry() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		Strategy:   Constant,
		BaseDelay:  2 * time.Second,
		MaxDelay:   2 * time.Second,
	}
}

// DelayFor computes the delay to wait before retrying after the given
// zero-indexed attempt.
func (p RetryPolicy) DelayFor(attempt int) time.Duration {
	delay := backoff(p.Strategy == Exponential, p.BaseDelay, p.MaxDelay, attempt)

	if p.Jitter {
		delay = jitter(delay)
	}

	return delay
}

// backoff computes base * 2^attempt capped at max when exponential,
// otherwise the base delay.
func backoff(exponential bool, base, max time.Duration, attempt int) time.Duration {
	if !exponential || attempt <= 0 {
		return base
	}

	if attempt > 62 {
		attempt = 62
	}

	delay := base << uint(attempt)
	if max > 0 && (delay <= 0 || delay > max) {
		delay = max
	}

	return delay
}

// jitter spreads delay by ±20%.
func jitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return delay
	}

	factor := 1 + (rand.Float64()*2-1)*jitterFraction
	return time.Duration(float64(delay) * factor)
}
