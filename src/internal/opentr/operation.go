// Package opentr provides helpers for producing OpenTracing spans around
// client operations.
package opentr

import (
	"context"

	opentracing "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/log"
)

var (
	successEvent = log.String("event", "success")
	errorEvent   = log.String("event", "error")
)

// StartOperation begins a client-side span for one operation and returns a
// context carrying it.
func StartOperation(
	ctx context.Context,
	tracer opentracing.Tracer,
	kind string,
	name string,
) (opentracing.Span, context.Context) {
	span := tracer.StartSpan(kind + " " + name)
	ext.SpanKindRPCClient.Set(span)

	return span, opentracing.ContextWithSpan(ctx, span)
}

// AddCursor tags the span with the snapshot cursor used for the operation.
func AddCursor(s opentracing.Span, cursor string) {
	if cursor != "" {
		s.SetTag("snapshot_cursor", cursor)
	}
}

// Success marks the operation as successful.
func Success(s opentracing.Span) {
	s.LogFields(successEvent)
}

// Error marks the operation as failed with err.
func Error(s opentracing.Span, err error) {
	ext.Error.Set(s, true)
	s.LogFields(errorEvent, log.Error(err))
}
