package strandhttp

import "github.com/jmalloc/twelf/src/twelf"

func logUnexpectedStatus(logger twelf.Logger, name string, status int) {
	logger.Debug(
		"'%s' failed with unexpected HTTP status %d",
		name,
		status,
	)
}
