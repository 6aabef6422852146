package strandamqp

import (
	"errors"
	"time"

	"github.com/strand/strand-go/src/internal/service"
	"github.com/strand/strand-go/src/strand"
	"github.com/streadway/amqp"
)

// monitorRun waits for the active connection to drop.
func (t *Transport) monitorRun() (service.State, error) {
	t.mutex.Lock()
	brokerLost := t.brokerLost
	t.mutex.Unlock()

	select {
	case amqpErr := <-brokerLost:
		logConnectionLost(t.logger, amqpErr)
		t.failPending()
		t.emit(strand.Reconnecting)
		return t.monitorReconnect, nil

	case <-t.sm.Graceful:
		return nil, nil

	case <-t.sm.Forceful:
		return nil, nil
	}
}

// monitorReconnect makes one reconnection attempt per invocation, waiting out
// the policy's delay first.
func (t *Transport) monitorReconnect() (service.State, error) {
	if !t.reconnect.ShouldRetry() {
		t.emit(strand.Failed)
		logReconnectExhausted(t.logger, t.reconnect.Attempts())
		return nil, errors.New("reconnection attempts exhausted")
	}

	delay := t.reconnect.ConsumeDelay()
	logReconnecting(t.logger, t.reconnect.Attempts(), delay)

	select {
	case <-time.After(delay):
	case <-t.sm.Graceful:
		return nil, nil
	case <-t.sm.Forceful:
		return nil, nil
	}

	broker, err := amqp.DialConfig(t.dsn, t.amqpConfig)
	if err != nil {
		logReconnectFailed(t.logger, err)
		return t.monitorReconnect, nil
	}

	if err := checkCapabilities(broker); err != nil {
		// the broker changed underneath us, there is no point retrying
		broker.Close()
		t.emit(strand.Failed)
		return nil, err
	}

	if err := t.connect(broker); err != nil {
		broker.Close()
		logReconnectFailed(t.logger, err)
		return t.monitorReconnect, nil
	}

	t.reconnect.Reset()
	t.emit(strand.Connected)
	logReconnected(t.logger, t.dsn)

	return t.monitorRun, nil
}

func (t *Transport) monitorFinalize(err error) error {
	return err
}
