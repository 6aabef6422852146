package batch

import "github.com/jmalloc/twelf/src/twelf"

func logBatchDropped(logger twelf.Logger, records int, err error) {
	logger.Log(
		"batch of %d event(s) dropped, send failed: %s",
		records,
		err,
	)
}
