package strandamqp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/jmalloc/twelf/src/twelf"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/strand/strand-go/src/internal/service"
	"github.com/strand/strand-go/src/internal/wire"
	"github.com/strand/strand-go/src/strand"
	"github.com/strand/strand-go/src/strand/resilience"
	"github.com/streadway/amqp"
)

const (
	// requestQueuePrefix is the prefix of the queues that operation requests
	// are published to. The operation kind is appended.
	requestQueuePrefix = "strand.req."

	// timestampQueue is the queue that snapshot cursor requests are published
	// to when no timestamp URL is configured.
	timestampQueue = "strand.req.timestamp"

	// maxTimestampBody bounds how much of the timestamp response body is read.
	maxTimestampBody = 8 << 20
)

// errConnectionLost unblocks in-flight calls when the broker connection drops
// before their reply arrives.
var errConnectionLost = errors.New("connection lost before reply was received")

// Transport is an AMQP implementation of strand.Transport.
type Transport struct {
	dsn          string
	amqpConfig   amqp.Config
	poolSize     uint
	reconnect    *resilience.ReconnectPolicy
	timestampURL string
	logger       twelf.Logger
	tracer       opentracing.Tracer

	sm     *service.StateMachine
	states chan strand.ConnectionState

	mutex      sync.Mutex
	broker     *amqp.Connection
	channels   *channelPool
	replyQueue string
	pending    map[string]chan *amqp.Delivery
	brokerLost chan *amqp.Error
	closed     bool
}

// Execute implements strand.Transport.
func (t *Transport) Execute(ctx context.Context, req *strand.Request) (*strand.Response, error) {
	body, err := wire.Codec{}.Marshal(executeBody{
		Name: req.Name,
		Args: req.Args,
		TS:   req.Cursor,
		Meta: req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	delivery, err := t.call(ctx, requestQueuePrefix+req.Kind.String(), body)
	if err != nil {
		return nil, err
	}

	return strand.ParseResponse(delivery.Body, true)
}

// SnapshotCursor implements strand.Transport. The cursor is fetched from the
// configured timestamp URL if one is set, otherwise from the broker-side
// timestamp service.
func (t *Transport) SnapshotCursor(ctx context.Context) (string, error) {
	var (
		data []byte
		err  error
	)

	if t.timestampURL != "" {
		data, err = t.fetchTimestampHTTP(ctx)
	} else {
		var delivery *amqp.Delivery
		delivery, err = t.call(ctx, timestampQueue, []byte("{}"))
		if delivery != nil {
			data = delivery.Body
		}
	}

	if err != nil {
		return "", err
	}

	var payload struct {
		TS string `json:"ts"`
	}
	if err := wire.DecodeBytes(data, &payload); err != nil {
		return "", &strand.ValidationError{Reason: "timestamp response is malformed", Err: err}
	}
	if payload.TS == "" {
		return "", &strand.ValidationError{Reason: "timestamp response carries no cursor"}
	}

	return payload.TS, nil
}

// ConnectionStates implements strand.Transport.
func (t *Transport) ConnectionStates() <-chan strand.ConnectionState {
	return t.states
}

// Close implements strand.Transport.
func (t *Transport) Close() error {
	t.mutex.Lock()
	if t.closed {
		t.mutex.Unlock()
		return nil
	}
	t.closed = true
	broker := t.broker
	t.mutex.Unlock()

	t.sm.Stop()
	<-t.sm.Done()

	t.failPending()

	if broker != nil {
		broker.Close()
	}

	close(t.states)

	return nil
}

// call publishes a correlated request to the given queue and blocks until a
// reply is received or ctx is canceled.
func (t *Transport) call(ctx context.Context, queue string, body []byte) (*amqp.Delivery, error) {
	corrID := uuid.New().String()

	t.mutex.Lock()
	if t.closed {
		t.mutex.Unlock()
		return nil, &strand.TransportError{Err: service.ErrStopped}
	}
	pool := t.channels
	replyQueue := t.replyQueue
	reply := make(chan *amqp.Delivery, 1)
	t.pending[corrID] = reply
	t.mutex.Unlock()

	defer t.forget(corrID)

	msg := amqp.Publishing{
		MessageId:     corrID,
		CorrelationId: corrID,
		ReplyTo:       replyQueue,
		ContentType:   "application/json",
		Body:          body,
	}

	if deadline, ok := ctx.Deadline(); ok {
		msg.Expiration = expiration(deadline)
	}

	if err := packSpanContext(ctx, t.tracer, &msg); err != nil {
		logSpanPackFailed(t.logger, err)
	}

	if err := t.publish(queue, msg, pool); err != nil {
		return nil, &strand.TransportError{Err: err}
	}

	select {
	case delivery := <-reply:
		if delivery == nil {
			return nil, &strand.TransportError{Err: errConnectionLost}
		}
		return delivery, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.sm.Forceful:
		return nil, &strand.TransportError{Err: service.ErrStopped}
	}
}

func (t *Transport) publish(queue string, msg amqp.Publishing, pool *channelPool) error {
	channel, err := pool.Get()
	if err != nil {
		return err
	}

	err = channel.Publish(
		"",    // default exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		msg,
	)

	if err != nil {
		// the channel is in an unknown state, discard it
		channel.Close()
		return err
	}

	pool.Put(channel)

	return nil
}

// forget abandons the reply slot for the given correlation ID.
func (t *Transport) forget(corrID string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	delete(t.pending, corrID)
}

// failPending unblocks every in-flight call. Callers observe the closed reply
// channel as a nil delivery.
func (t *Transport) failPending() {
	t.mutex.Lock()
	pending := t.pending
	t.pending = map[string]chan *amqp.Delivery{}
	t.mutex.Unlock()

	for _, reply := range pending {
		close(reply)
	}
}

// connect adopts broker as the active connection, establishing the channel
// pool and the exclusive reply queue.
func (t *Transport) connect(broker *amqp.Connection) error {
	channels := newChannelPool(broker, t.poolSize)

	channel, err := channels.Get()
	if err != nil {
		return err
	}

	queue, err := channel.QueueDeclare(
		"",    // server-generated name
		false, // durable
		true,  // autoDelete
		true,  // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		channel.Close()
		return err
	}

	deliveries, err := channel.Consume(
		queue.Name,
		queue.Name, // consumer tag
		true,       // autoAck
		true,       // exclusive
		false,      // noLocal
		false,      // noWait
		nil,        // args
	)
	if err != nil {
		channel.Close()
		return err
	}

	brokerLost := make(chan *amqp.Error, 1)
	broker.NotifyClose(brokerLost)

	t.mutex.Lock()
	t.broker = broker
	t.channels = channels
	t.replyQueue = queue.Name
	t.brokerLost = brokerLost
	t.mutex.Unlock()

	go t.receive(deliveries)

	return nil
}

// receive dispatches replies to the in-flight call that requested them.
func (t *Transport) receive(deliveries <-chan amqp.Delivery) {
	for delivery := range deliveries {
		t.mutex.Lock()
		reply, ok := t.pending[delivery.CorrelationId]
		if ok {
			delete(t.pending, delivery.CorrelationId)
		}
		t.mutex.Unlock()

		if !ok {
			logIgnoredReply(t.logger, delivery.CorrelationId)
			continue
		}

		delivery := delivery
		reply <- &delivery
	}
}

// emit pushes a connection state transition without blocking.
func (t *Transport) emit(state strand.ConnectionState) {
	select {
	case t.states <- state:
	default:
	}
}

func (t *Transport) fetchTimestampHTTP(ctx context.Context) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, t.timestampURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, &strand.TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTimestampBody))
	if err != nil {
		return nil, &strand.TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &strand.TransportError{StatusCode: resp.StatusCode, Body: data}
	}

	return data, nil
}
