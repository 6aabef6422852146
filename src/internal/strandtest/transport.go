// Package strandtest provides an in-memory transport for tests.
package strandtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/strand/strand-go/src/internal/wire"
	"github.com/strand/strand-go/src/strand"
)

// Handler services one named operation.
type Handler func(ctx context.Context, req *strand.Request) (*strand.Response, error)

// Transport is a scripted in-memory implementation of strand.Transport.
type Transport struct {
	mutex    sync.Mutex
	handlers map[string]Handler
	cursor   func(ctx context.Context) (string, error)
	requests []*strand.Request
	states   chan strand.ConnectionState
	closed   bool
}

// NewTransport returns an empty transport. Operations without a registered
// handler fail with a transport error.
func NewTransport() *Transport {
	return &Transport{
		handlers: map[string]Handler{},
		states:   make(chan strand.ConnectionState, 16),
	}
}

// Handle registers a handler for the named operation.
func (t *Transport) Handle(name string, h Handler) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.handlers[name] = h
}

// HandleValue registers a handler that always succeeds with value.
func (t *Transport) HandleValue(name string, value any) {
	body, err := wire.Codec{}.Marshal(value)
	if err != nil {
		panic(err)
	}

	t.Handle(name, func(context.Context, *strand.Request) (*strand.Response, error) {
		return &strand.Response{Status: strand.StatusSuccess, Value: body}, nil
	})
}

// HandleFailure registers a handler that always yields an application-level
// error response.
func (t *Transport) HandleFailure(name, message string) {
	t.Handle(name, func(context.Context, *strand.Request) (*strand.Response, error) {
		return &strand.Response{Status: strand.StatusError, ErrorMessage: message}, nil
	})
}

// CursorFunc overrides the snapshot cursor fetcher.
func (t *Transport) CursorFunc(fn func(ctx context.Context) (string, error)) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.cursor = fn
}

// Requests returns a snapshot of every request executed so far.
func (t *Transport) Requests() []*strand.Request {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	out := make([]*strand.Request, len(t.requests))
	copy(out, t.requests)

	return out
}

// EmitState pushes a connection state transition to observers.
func (t *Transport) EmitState(s strand.ConnectionState) {
	t.states <- s
}

// Execute implements strand.Transport.
func (t *Transport) Execute(ctx context.Context, req *strand.Request) (*strand.Response, error) {
	t.mutex.Lock()
	t.requests = append(t.requests, req)
	h := t.handlers[req.Name]
	t.mutex.Unlock()

	if h == nil {
		return nil, &strand.TransportError{
			Err: fmt.Errorf("no handler registered for '%s'", req.Name),
		}
	}

	return h(ctx, req)
}

// SnapshotCursor implements strand.Transport.
func (t *Transport) SnapshotCursor(ctx context.Context) (string, error) {
	t.mutex.Lock()
	fn := t.cursor
	t.mutex.Unlock()

	if fn == nil {
		return "ts-0", nil
	}

	return fn(ctx)
}

// ConnectionStates implements strand.Transport.
func (t *Transport) ConnectionStates() <-chan strand.ConnectionState {
	return t.states
}

// Close implements strand.Transport.
func (t *Transport) Close() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if !t.closed {
		t.closed = true
		close(t.states)
	}

	return nil
}
