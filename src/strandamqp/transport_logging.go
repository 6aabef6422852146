package strandamqp

import (
	"time"

	"github.com/jmalloc/twelf/src/twelf"
	"github.com/streadway/amqp"
)

func logConnected(logger twelf.Logger, dsn string) {
	logger.Log("connected to %s", dsn)
}

func logConnectionLost(logger twelf.Logger, amqpErr *amqp.Error) {
	if amqpErr == nil {
		logger.Log("connection closed by broker")
		return
	}

	logger.Log("connection lost: %s", amqpErr)
}

func logReconnecting(logger twelf.Logger, attempt int, delay time.Duration) {
	logger.Log(
		"reconnection attempt %d in %s",
		attempt,
		delay,
	)
}

func logReconnectFailed(logger twelf.Logger, err error) {
	logger.Log("reconnection attempt failed: %s", err)
}

func logReconnected(logger twelf.Logger, dsn string) {
	logger.Log("reconnected to %s", dsn)
}

func logReconnectExhausted(logger twelf.Logger, attempts int) {
	logger.Log(
		"giving up after %d reconnection attempt(s)",
		attempts,
	)
}

func logIgnoredReply(logger twelf.Logger, corrID string) {
	logger.Debug(
		"ignored reply with unknown correlation ID %s",
		corrID,
	)
}

func logSpanPackFailed(logger twelf.Logger, err error) {
	logger.Debug("span context not propagated: %s", err)
}
