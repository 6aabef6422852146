package strandamqp

import (
	"context"
	"strconv"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/strand/strand-go/src/internal/bufferpool"
	"github.com/streadway/amqp"
)

// spanContextHeader is the message header that carries the injected span
// context.
const spanContextHeader = "sc"

// executeBody is the wire shape of an operation request.
type executeBody struct {
	Name string            `json:"name"`
	Args any               `json:"args"`
	TS   string            `json:"ts,omitempty"`
	Meta map[string]string `json:"meta,omitempty"`
}

// expiration renders a context deadline as a per-message TTL so that requests
// nobody is waiting on anymore are dropped by the broker.
func expiration(deadline time.Time) string {
	ms := time.Until(deadline) / time.Millisecond
	if ms < 1 {
		ms = 1
	}

	return strconv.FormatInt(int64(ms), 10)
}

// packSpanContext injects the span from ctx, if any, into the message
// headers.
func packSpanContext(ctx context.Context, tracer opentracing.Tracer, msg *amqp.Publishing) error {
	span := opentracing.SpanFromContext(ctx)
	if span == nil {
		return nil
	}

	buf := bufferpool.Get()
	defer bufferpool.Put(buf)

	if err := tracer.Inject(
		span.Context(),
		opentracing.Binary,
		buf,
	); err != nil {
		if err == opentracing.ErrUnsupportedFormat ||
			err == opentracing.ErrInvalidSpanContext {
			return nil
		}
		return err
	}

	if buf.Len() == 0 {
		return nil
	}

	// copy out of the pooled buffer before it is reused
	data := make([]byte, buf.Len())
	copy(data, buf.Bytes())

	if msg.Headers == nil {
		msg.Headers = amqp.Table{}
	}
	msg.Headers[spanContextHeader] = data

	return nil
}
