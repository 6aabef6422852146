package resilience

import (
	"time"

	"github.com/jmalloc/twelf/src/twelf"
)

func logCircuitRejected(logger twelf.Logger, err error) {
	logger.Debug(
		"operation rejected, %s",
		err,
	)
}

func logRetrying(logger twelf.Logger, attempts int, delay time.Duration, err error) {
	logger.Debug(
		"attempt %d failed, retrying in %s: %s",
		attempts,
		delay,
		err,
	)
}
