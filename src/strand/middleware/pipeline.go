// Package middleware provides an ordered, onion-style pipeline of request
// handlers.
//
// Each layer receives the request and the next handler in the chain. A
// layer may transform the request, call next and transform its result, or
// skip next entirely to short-circuit the pipeline.
package middleware

import (
	"context"
	"sync"
)

// Handler processes a request and produces a response.
type Handler[R, S any] func(ctx context.Context, req R) (S, error)

// Middleware wraps a handler with additional behaviour.
type Middleware[R, S any] func(next Handler[R, S]) Handler[R, S]

// Pipeline composes an ordered list of middleware around a final handler.
//
// The list is compiled into a single handler the first time the pipeline
// runs after being modified. Composition wraps right-to-left, so the first
// registered layer is outermost.
type Pipeline[R, S any] struct {
	mutex    sync.Mutex
	final    Handler[R, S]
	layers   []Middleware[R, S]
	compiled Handler[R, S]
}

// New returns a pipeline that terminates in the given handler.
func New[R, S any](final Handler[R, S]) *Pipeline[R, S] {
	if final == nil {
		panic("final handler must not be nil")
	}

	return &Pipeline[R, S]{final: final}
}

// Use appends middleware to the pipeline and discards the compiled chain,
// forcing recompilation on the next call to Handle.
func (p *Pipeline[R, S]) Use(m ...Middleware[R, S]) {
	for _, layer := range m {
		if layer == nil {
			panic("middleware must not be nil")
		}
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.layers = append(p.layers, m...)
	p.compiled = nil
}

// Len returns the number of registered layers.
func (p *Pipeline[R, S]) Len() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return len(p.layers)
}

// Handle runs the request through the composed chain.
func (p *Pipeline[R, S]) Handle(ctx context.Context, req R) (S, error) {
	p.mutex.Lock()
	if p.compiled == nil {
		h := p.final
		for i := len(p.layers) - 1; i >= 0; i-- {
			h = p.layers[i](h)
		}
		p.compiled = h
	}
	h := p.compiled
	p.mutex.Unlock()

	return h(ctx, req)
}
