package options

import (
	"os"

	"github.com/jmalloc/twelf/src/twelf"
	"github.com/strand/strand-go/src/internal/env"
)

// FromEnv returns client options with values read from environment
// variables.
//
// The environment variables are listed below.
//
// - STRAND_DEFAULT_TIMEOUT   (duration in milliseconds, non-zero)
// - STRAND_LOG_DEBUG         (boolean 'true' or 'false')
// - STRAND_FAILURE_THRESHOLD (positive integer, non-zero)
// - STRAND_CIRCUIT_COOLDOWN  (duration in milliseconds, non-zero)
// - STRAND_NOTIFY_BUFFER     (positive integer, non-zero)
// - STRAND_STRICT_VALIDATION (boolean 'true' or 'false')
// - STRAND_PRODUCT           (string)
func FromEnv() ([]Option, error) {
	var o []Option

	t, ok, err := env.Duration("STRAND_DEFAULT_TIMEOUT")
	if err != nil {
		return nil, err
	} else if ok {
		o = append(o, DefaultTimeout(t))
	}

	debug, ok, err := env.Bool("STRAND_LOG_DEBUG")
	if err != nil {
		return nil, err
	} else if ok {
		o = append(o, Logger(&twelf.StandardLogger{CaptureDebug: debug}))
	}

	n, ok, err := env.UInt("STRAND_FAILURE_THRESHOLD")
	if err != nil {
		return nil, err
	} else if ok {
		o = append(o, FailureThreshold(n))
	}

	t, ok, err = env.Duration("STRAND_CIRCUIT_COOLDOWN")
	if err != nil {
		return nil, err
	} else if ok {
		o = append(o, CircuitCooldown(t))
	}

	n, ok, err = env.UInt("STRAND_NOTIFY_BUFFER")
	if err != nil {
		return nil, err
	} else if ok {
		o = append(o, NotifyBuffer(n))
	}

	strict, ok, err := env.Bool("STRAND_STRICT_VALIDATION")
	if err != nil {
		return nil, err
	} else if ok {
		o = append(o, StrictValidation(strict))
	}

	if p := os.Getenv("STRAND_PRODUCT"); p != "" {
		o = append(o, Product(p))
	}

	return o, nil
}
