// Package options defines the configuration options for a strand client.
package options

import (
	"time"

	"github.com/jmalloc/twelf/src/twelf"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/strand/strand-go/src/strand/resilience"
)

// Options is a structure representing a resolved set of options.
type Options struct {
	DefaultTimeout   time.Duration
	Logger           twelf.Logger
	Tracer           opentracing.Tracer
	Retry            resilience.RetryPolicy
	FailureThreshold uint
	CircuitCooldown  time.Duration
	NotifyBuffer     uint
	StrictValidation bool
	Product          string
}

// NewOptions returns a new Options object from the given options, with
// default values for any options that are not specified.
func NewOptions(opts ...Option) (o Options, err error) {
	err = Apply(&o, opts...)
	return
}

// applyDefaultTimeout sets the DefaultTimeout value.
func (o *Options) applyDefaultTimeout(v time.Duration) error {
	o.DefaultTimeout = v
	return nil
}

// applyLogger sets the Logger value.
func (o *Options) applyLogger(v twelf.Logger) error {
	if v == nil {
		panic("logger must not be nil")
	}

	o.Logger = v
	return nil
}

// applyTracer sets the Tracer value.
func (o *Options) applyTracer(v opentracing.Tracer) error {
	if v == nil {
		panic("tracer must not be nil")
	}

	o.Tracer = v
	return nil
}

// applyRetry sets the Retry value.
func (o *Options) applyRetry(v resilience.RetryPolicy) error {
	o.Retry = v
	return nil
}

// applyFailureThreshold sets the FailureThreshold value.
func (o *Options) applyFailureThreshold(v uint) error {
	o.FailureThreshold = v
	return nil
}

// applyCircuitCooldown sets the CircuitCooldown value.
func (o *Options) applyCircuitCooldown(v time.Duration) error {
	o.CircuitCooldown = v
	return nil
}

// applyNotifyBuffer sets the NotifyBuffer value.
func (o *Options) applyNotifyBuffer(v uint) error {
	o.NotifyBuffer = v
	return nil
}

// applyStrictValidation sets the StrictValidation value.
func (o *Options) applyStrictValidation(v bool) error {
	o.StrictValidation = v
	return nil
}

// applyProduct sets the Product value.
func (o *Options) applyProduct(v string) error {
	o.Product = v
	return nil
}
