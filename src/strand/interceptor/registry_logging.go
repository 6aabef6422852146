package interceptor

import "github.com/jmalloc/twelf/src/twelf"

func logHookPanicked(logger twelf.Logger, hook string, p any) {
	logger.Log(
		"interceptor %s hook panicked and was ignored: %v",
		hook,
		p,
	)
}
