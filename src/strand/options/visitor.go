package options

import (
	"time"

	"github.com/jmalloc/twelf/src/twelf"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/strand/strand-go/src/strand/resilience"
)

// visitor handles the application of options.
type visitor interface {
	applyDefaultTimeout(time.Duration) error
	applyLogger(twelf.Logger) error
	applyTracer(opentracing.Tracer) error
	applyRetry(resilience.RetryPolicy) error
	applyFailureThreshold(uint) error
	applyCircuitCooldown(time.Duration) error
	applyNotifyBuffer(uint) error
	applyStrictValidation(bool) error
	applyProduct(string) error
}

// Apply applies the default options, then a sequence of additional options
// to v.
func Apply(v visitor, opts ...Option) error {
	if err := v.applyDefaultTimeout(5 * time.Second); err != nil {
		return err
	}

	if err := v.applyLogger(defaultLogger); err != nil {
		return err
	}

	if err := v.applyTracer(opentracing.NoopTracer{}); err != nil {
		return err
	}

	if err := v.applyRetry(resilience.DefaultRetry()); err != nil {
		return err
	}

	if err := v.applyFailureThreshold(resilience.DefaultFailureThreshold); err != nil {
		return err
	}

	if err := v.applyCircuitCooldown(resilience.DefaultCooldown); err != nil {
		return err
	}

	if err := v.applyNotifyBuffer(16); err != nil {
		return err
	}

	if err := v.applyStrictValidation(true); err != nil {
		return err
	}

	for _, o := range opts {
		if err := o(v); err != nil {
			return err
		}
	}

	return nil
}

var defaultLogger twelf.Logger

func init() {
	// Initialize the default logger before any testing framework can
	// redirect stdout. This lets us use standard "Output:" checks in example
	// tests without having to match the log output, while still printing the
	// log output in case of a test failure.
	defaultLogger = &twelf.StandardLogger{}
}
