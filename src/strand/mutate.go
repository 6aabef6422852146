package strand

import (
	"context"

	"github.com/strand/strand-go/src/internal/opentr"
	"github.com/strand/strand-go/src/strand/optimistic"
)

// MutateOption configures a single mutation.
type MutateOption func(*mutateConfig)

type mutateConfig struct {
	optimistic func(*optimistic.Session)
}

// WithOptimistic applies fn to an optimistic overlay session before the
// mutation is sent. If the mutation fails, every change made through the
// session is rolled back; on success the session is committed and the
// server-confirmed state arrives through the standard write path.
func WithOptimistic(fn func(*optimistic.Session)) MutateOption {
	return func(cfg *mutateConfig) {
		cfg.optimistic = fn
	}
}

// Mutate executes a write against the remote source. On success the cached
// queries registered as dependents of the mutation are invalidated.
func Mutate[T any](
	ctx context.Context,
	c *Client,
	name string,
	args any,
	opts ...MutateOption,
) (T, error) {
	var zero T
	var cfg mutateConfig

	for _, o := range opts {
		o(&cfg)
	}

	if name == "" {
		panic("mutation name must not be empty")
	}

	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	span, ctx := opentr.StartOperation(ctx, c.tracer, "mutation", name)
	defer span.Finish()

	req := &Request{
		Kind:     OpMutation,
		Name:     name,
		Args:     args,
		Metadata: c.requestMetadata(),
	}

	c.interceptors.BeforeRequest(ctx, req)

	var session *optimistic.Session
	if cfg.optimistic != nil {
		session = optimistic.NewSession(c.cache, c.serializer)
		cfg.optimistic(session)
	}

	rollback := func() {
		if session != nil {
			logRollback(c.logger, c.id, name, len(session.Keys()))
			session.Rollback()
		}
	}

	res, err := c.pipeline.Handle(ctx, req)
	if err != nil {
		rollback()
		c.interceptors.OnError(ctx, req, err)
		opentr.Error(span, err)
		return zero, err
	}

	if f := res.Err(); f != nil {
		rollback()
		c.interceptors.AfterResponse(ctx, req, res)
		opentr.Error(span, f)
		return zero, f
	}

	if session != nil {
		session.Commit()
	}

	var value T
	if err := c.serializer.Unmarshal(res.Value, &value); err != nil {
		verr := &ValidationError{Reason: "mutation result does not match the requested type", Err: err}
		opentr.Error(span, verr)

		if c.strict {
			c.interceptors.OnError(ctx, req, verr)
			return zero, verr
		}

		logValidationIgnored(c.logger, c.id, name, verr)
	}

	c.invalidate(name)

	c.interceptors.AfterResponse(ctx, req, res)
	opentr.Success(span)

	return value, nil
}

// Action executes a side-effecting call that neither caches its result nor
// invalidates cached queries.
func Action[T any](ctx context.Context, c *Client, name string, args any) (T, error) {
	var zero T

	if name == "" {
		panic("action name must not be empty")
	}

	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	span, ctx := opentr.StartOperation(ctx, c.tracer, "action", name)
	defer span.Finish()

	req := &Request{
		Kind:     OpAction,
		Name:     name,
		Args:     args,
		Metadata: c.requestMetadata(),
	}

	c.interceptors.BeforeRequest(ctx, req)

	res, err := c.pipeline.Handle(ctx, req)
	if err != nil {
		c.interceptors.OnError(ctx, req, err)
		opentr.Error(span, err)
		return zero, err
	}

	if f := res.Err(); f != nil {
		c.interceptors.AfterResponse(ctx, req, res)
		opentr.Error(span, f)
		return zero, f
	}

	var value T
	if err := c.serializer.Unmarshal(res.Value, &value); err != nil {
		verr := &ValidationError{Reason: "action result does not match the requested type", Err: err}
		opentr.Error(span, verr)

		if c.strict {
			c.interceptors.OnError(ctx, req, verr)
			return zero, verr
		}

		logValidationIgnored(c.logger, c.id, name, verr)
		c.interceptors.AfterResponse(ctx, req, res)
		return zero, nil
	}

	c.interceptors.AfterResponse(ctx, req, res)
	opentr.Success(span)

	return value, nil
}
