package options

import (
	"time"

	"github.com/jmalloc/twelf/src/twelf"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/strand/strand-go/src/strand/resilience"
)

// Option is a function that applies a configuration change.
type Option func(v visitor) error

// DefaultTimeout returns an Option that specifies the maximum amount of
// time to wait for an operation to return. It is used if the context passed
// to the operation does not already have a deadline.
func DefaultTimeout(t time.Duration) Option {
	return func(v visitor) error {
		return v.applyDefaultTimeout(t)
	}
}

// Logger returns an Option that specifies the target for all of the
// client's logs.
func Logger(l twelf.Logger) Option {
	return func(v visitor) error {
		return v.applyLogger(l)
	}
}

// Tracer returns an Option that specifies an OpenTracing tracer to use for
// tracking client operations.
//
// See http://opentracing.io for more information.
func Tracer(t opentracing.Tracer) Option {
	return func(v visitor) error {
		return v.applyTracer(t)
	}
}

// Retry returns an Option that specifies the retry policy applied to each
// transport operation.
func Retry(p resilience.RetryPolicy) Option {
	return func(v visitor) error {
		return v.applyRetry(p)
	}
}

// FailureThreshold returns an Option that specifies how many consecutive
// failures open the circuit breaker.
func FailureThreshold(n uint) Option {
	return func(v visitor) error {
		return v.applyFailureThreshold(n)
	}
}

// CircuitCooldown returns an Option that specifies how long the circuit
// breaker stays open before allowing a trial call.
func CircuitCooldown(t time.Duration) Option {
	return func(v visitor) error {
		return v.applyCircuitCooldown(t)
	}
}

// NotifyBuffer returns an Option that specifies the per-subscription change
// notification buffer of the reactive cache.
func NotifyBuffer(n uint) Option {
	return func(v visitor) error {
		return v.applyNotifyBuffer(n)
	}
}

// StrictValidation returns an Option that specifies whether a response that
// fails schema validation is returned as an error. When disabled, the
// validation failure is logged and the operation yields a zero value.
func StrictValidation(enabled bool) Option {
	return func(v visitor) error {
		return v.applyStrictValidation(enabled)
	}
}

// Product returns an Option that specifies an application-defined string
// that identifies the application.
//
// It is recommended that the product take the form "<product>/<version>"
// such as "my-app/1.3.0".
func Product(p string) Option {
	return func(v visitor) error {
		return v.applyProduct(p)
	}
}
