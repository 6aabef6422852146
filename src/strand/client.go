package strand

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmalloc/twelf/src/twelf"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/strand/strand-go/src/internal/timestamp"
	"github.com/strand/strand-go/src/internal/wire"
	"github.com/strand/strand-go/src/strand/cache"
	"github.com/strand/strand-go/src/strand/deps"
	"github.com/strand/strand-go/src/strand/interceptor"
	"github.com/strand/strand-go/src/strand/middleware"
	"github.com/strand/strand-go/src/strand/options"
	"github.com/strand/strand-go/src/strand/pattern"
	"github.com/strand/strand-go/src/strand/resilience"
)

var _ Serializer = wire.Codec{}

// Client keeps a local reactive cache consistent with a remote data source
// reached through a Transport.
type Client struct {
	id         uuid.UUID
	transport  Transport
	serializer Serializer

	cache        *cache.Cache
	registry     *deps.Registry
	timestamps   *timestamp.Manager
	coordinator  *resilience.Coordinator
	pipeline     *middleware.Pipeline[*Request, *Response]
	interceptors *interceptor.Registry[*Request, *Response]

	logger         twelf.Logger
	tracer         opentracing.Tracer
	defaultTimeout time.Duration
	strict         bool
	product        string

	closing   chan struct{}
	closeOnce sync.Once
}

// NewClient returns a client using the given transport.
func NewClient(transport Transport, opts ...options.Option) (*Client, error) {
	if transport == nil {
		panic("transport must not be nil")
	}

	o, err := options.NewOptions(opts...)
	if err != nil {
		return nil, err
	}

	c := &Client{
		id:         uuid.New(),
		transport:  transport,
		serializer: wire.Codec{},

		registry:   deps.NewRegistry(),
		timestamps: timestamp.NewManager(transport.SnapshotCursor),

		logger:         o.Logger,
		tracer:         o.Tracer,
		defaultTimeout: o.DefaultTimeout,
		strict:         o.StrictValidation,
		product:        o.Product,

		closing: make(chan struct{}),
	}

	c.cache = cache.New(
		cache.NotifyBuffer(o.NotifyBuffer),
		cache.Logger(o.Logger),
	)

	c.coordinator = resilience.NewCoordinator(
		o.Retry,
		resilience.NewBreaker(int(o.FailureThreshold), o.CircuitCooldown),
		o.Logger,
	)

	c.pipeline = middleware.New[*Request, *Response](c.dispatch)
	c.interceptors = interceptor.NewRegistry[*Request, *Response](o.Logger)

	go c.watchConnection()

	logClientCreated(c.logger, c.id, o.Product)

	return c, nil
}

// ID returns the client's unique instance identity.
func (c *Client) ID() uuid.UUID {
	return c.id
}

// Cache returns the client's reactive cache.
func (c *Client) Cache() *cache.Cache {
	return c.cache
}

// Dependencies returns the mutation-to-query invalidation registry.
func (c *Client) Dependencies() *deps.Registry {
	return c.registry
}

// Use appends middleware to the request pipeline.
func (c *Client) Use(m ...middleware.Middleware[*Request, *Response]) {
	c.pipeline.Use(m...)
}

// Intercept appends interceptors to the request lifecycle.
func (c *Client) Intercept(i ...interceptor.Interceptor[*Request, *Response]) {
	c.interceptors.Use(i...)
}

// Subscribe registers for future changes to a cache key. See
// cache.Cache.Subscribe.
func (c *Client) Subscribe(key string) *cache.Subscription {
	return c.cache.Subscribe(key)
}

// ClearSnapshot force-invalidates the cached snapshot cursor.
func (c *Client) ClearSnapshot() {
	c.timestamps.Clear()
}

// Close stops the client and closes the underlying transport.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closing)
	})

	return c.transport.Close()
}

// dispatch is the innermost handler of the middleware pipeline: it executes
// the request against the transport under the resilience coordinator.
func (c *Client) dispatch(ctx context.Context, req *Request) (*Response, error) {
	var res *Response

	err := c.coordinator.Execute(ctx, func(ctx context.Context) error {
		r, err := c.transport.Execute(ctx, req)
		if err != nil {
			return err
		}

		res = r
		return nil
	})

	return res, err
}

// invalidate removes the cached queries registered as dependents of the
// mutation. A literal query name evicts the bare key and every argument
// variant; a wildcard pattern evicts each matching key. Patterns are
// case-insensitive while cache keys are stored verbatim, so matching folds
// case.
func (c *Client) invalidate(mutation string) {
	patterns := c.registry.QueriesToInvalidate(mutation)
	if len(patterns) == 0 {
		return
	}

	removed := 0
	for _, p := range patterns {
		removed += c.cache.RemovePatternFold(p)
		if !pattern.HasWildcard(p) {
			removed += c.cache.RemovePatternFold(p + ":*")
		}
	}

	logInvalidated(c.logger, c.id, mutation, len(patterns), removed)
}

// withDeadline applies the client's default timeout if ctx does not already
// have a deadline.
func (c *Client) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.defaultTimeout <= 0 {
		return ctx, func() {}
	}

	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, c.defaultTimeout)
}

// watchConnection observes the transport's connection state stream. A
// reconnect invalidates the snapshot cursor, which cannot outlive the
// connection it was issued on.
func (c *Client) watchConnection() {
	states := c.transport.ConnectionStates()
	if states == nil {
		return
	}

	wasConnected := false

	for {
		select {
		case s, ok := <-states:
			if !ok {
				return
			}

			logConnectionState(c.logger, c.id, s)

			if s == Connected && wasConnected {
				c.timestamps.Clear()
			}
			if s == Connected {
				wasConnected = true
			}

		case <-c.closing:
			return
		}
	}
}
