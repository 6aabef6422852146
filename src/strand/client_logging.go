package strand

import (
	"github.com/google/uuid"
	"github.com/jmalloc/twelf/src/twelf"
)

func logClientCreated(logger twelf.Logger, id uuid.UUID, product string) {
	if product == "" {
		logger.Debug("client %s created", id)
		return
	}

	logger.Debug("client %s created for %s", id, product)
}

func logConnectionState(logger twelf.Logger, id uuid.UUID, state ConnectionState) {
	logger.Log(
		"client %s transport is %s",
		id,
		state,
	)
}

func logInvalidated(logger twelf.Logger, id uuid.UUID, mutation string, patterns, removed int) {
	logger.Debug(
		"client %s invalidated %d cached quer(ies) across %d pattern(s) after '%s'",
		id,
		removed,
		patterns,
		mutation,
	)
}

func logRollback(logger twelf.Logger, id uuid.UUID, mutation string, keys int) {
	logger.Log(
		"client %s rolled back %d optimistic update(s) for failed mutation '%s'",
		id,
		keys,
		mutation,
	)
}

func logValidationIgnored(logger twelf.Logger, id uuid.UUID, op string, err error) {
	logger.Log(
		"client %s ignored invalid response for '%s': %s",
		id,
		op,
		err,
	)
}
