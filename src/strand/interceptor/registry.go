// Package interceptor provides linear, best-effort request observers.
//
// Interceptors differ from middleware by contract: they cannot
// short-circuit the request, and a panic inside a hook is caught and logged
// so that a misbehaving interceptor never breaks the call it observes.
package interceptor

import (
	"context"
	"sync"

	"github.com/jmalloc/twelf/src/twelf"
)

// Interceptor observes the lifecycle of a request.
//
// BeforeRequest and AfterResponse receive the mutable request and response
// threaded sequentially through every interceptor in registration order.
// OnError is notification only.
type Interceptor[R, S any] interface {
	BeforeRequest(ctx context.Context, req R)
	AfterResponse(ctx context.Context, req R, res S)
	OnError(ctx context.Context, req R, err error)
}

// Hooks adapts plain functions to the Interceptor interface. Nil fields are
// skipped.
type Hooks[R, S any] struct {
	Before func(ctx context.Context, req R)
	After  func(ctx context.Context, req R, res S)
	Error  func(ctx context.Context, req R, err error)
}

// BeforeRequest calls the Before hook, if any.
func (h Hooks[R, S]) BeforeRequest(ctx context.Context, req R) {
	if h.Before != nil {
		h.Before(ctx, req)
	}
}

// AfterResponse calls the After hook, if any.
func (h Hooks[R, S]) AfterResponse(ctx context.Context, req R, res S) {
	if h.After != nil {
		h.After(ctx, req, res)
	}
}

// OnError calls the Error hook, if any.
func (h Hooks[R, S]) OnError(ctx context.Context, req R, err error) {
	if h.Error != nil {
		h.Error(ctx, req, err)
	}
}

// Registry runs an ordered list of interceptors.
type Registry[R, S any] struct {
	mutex        sync.RWMutex
	interceptors []Interceptor[R, S]
	logger       twelf.Logger
}

// NewRegistry returns an empty registry that logs recovered panics to the
// given logger.
func NewRegistry[R, S any](logger twelf.Logger) *Registry[R, S] {
	if logger == nil {
		panic("logger must not be nil")
	}

	return &Registry[R, S]{logger: logger}
}

// Use appends interceptors, preserving registration order.
func (r *Registry[R, S]) Use(i ...Interceptor[R, S]) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.interceptors = append(r.interceptors, i...)
}

// BeforeRequest threads req through every interceptor's BeforeRequest hook.
func (r *Registry[R, S]) BeforeRequest(ctx context.Context, req R) {
	for _, i := range r.snapshot() {
		r.invoke("BeforeRequest", func() {
			i.BeforeRequest(ctx, req)
		})
	}
}

// AfterResponse threads req and res through every interceptor's
// AfterResponse hook.
func (r *Registry[R, S]) AfterResponse(ctx context.Context, req R, res S) {
	for _, i := range r.snapshot() {
		r.invoke("AfterResponse", func() {
			i.AfterResponse(ctx, req, res)
		})
	}
}

// OnError notifies every interceptor of a failed request.
func (r *Registry[R, S]) OnError(ctx context.Context, req R, err error) {
	for _, i := range r.snapshot() {
		r.invoke("OnError", func() {
			i.OnError(ctx, req, err)
		})
	}
}

func (r *Registry[R, S]) snapshot() []Interceptor[R, S] {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.interceptors
}

// invoke runs one hook, converting a panic into a log line.
func (r *Registry[R, S]) invoke(hook string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			logHookPanicked(r.logger, hook, p)
		}
	}()

	fn()
}
