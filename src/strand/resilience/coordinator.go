package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmalloc/twelf/src/twelf"
	"go.uber.org/multierr"
)

// retryable is implemented by errors that know whether they are transient.
type retryable interface {
	Retryable() bool
}

// IsRetryable reports whether an operation that failed with err should be
// attempted again. Errors that implement Retryable() decide for themselves;
// context cancellation is never retried; anything else is presumed to be a
// transport-level failure and is retried.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}

	return true
}

// RetryExhaustedError is returned when every retry attempt has failed. It
// aggregates the per-attempt errors.
type RetryExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("operation failed after %d attempts: %s", e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// Coordinator wraps operations with retry and circuit-breaker semantics.
type Coordinator struct {
	retry   RetryPolicy
	breaker *CircuitBreaker
	logger  twelf.Logger
}

// NewCoordinator returns a coordinator that executes operations under the
// given retry policy and breaker.
func NewCoordinator(retry RetryPolicy, breaker *CircuitBreaker, logger twelf.Logger) *Coordinator {
	if breaker == nil {
		panic("circuit breaker must not be nil")
	}
	if logger == nil {
		panic("logger must not be nil")
	}

	return &Coordinator{
		retry:   retry,
		breaker: breaker,
		logger:  logger,
	}
}

// Breaker returns the coordinator's circuit breaker.
func (c *Coordinator) Breaker() *CircuitBreaker {
	return c.breaker
}

// Execute runs op under the retry policy, gated by the circuit breaker.
//
// If the breaker rejects the call, op is never invoked and a
// *CircuitOpenError is returned. Retryable failures are retried up to the
// policy limit, waiting the computed backoff between attempts;
// non-retryable failures propagate immediately. Exhausting the retries
// returns a *RetryExhaustedError aggregating every attempt's error.
func (c *Coordinator) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := c.breaker.Allow(); err != nil {
		logCircuitRejected(c.logger, err)
		return err
	}

	var history error
	attempts := 0

	for attempt := 0; ; attempt++ {
		err := op(ctx)
		attempts++

		if err == nil {
			c.breaker.RecordSuccess()
			return nil
		}

		history = multierr.Append(history, err)

		if !IsRetryable(err) {
			c.breaker.RecordFailure()
			return err
		}

		if attempt >= c.retry.MaxRetries {
			c.breaker.RecordFailure()
			return &RetryExhaustedError{Attempts: attempts, Err: history}
		}

		delay := c.retry.DelayFor(attempt)
		logRetrying(c.logger, attempts, delay, err)

		select {
		case <-ctx.Done():
			return multierr.Append(history, ctx.Err())
		case <-time.After(delay):
		}
	}
}
