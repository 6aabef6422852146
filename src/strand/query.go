package strand

import (
	"context"

	"github.com/strand/strand-go/src/internal/opentr"
	"github.com/strand/strand-go/src/strand/cache"
	"github.com/strand/strand-go/src/strand/optimistic"
)

// Query executes a read against the remote source, caches the result under
// the query's composite key with query provenance, and returns it. Pass nil
// args for queries without arguments.
func Query[T any](ctx context.Context, c *Client, name string, args any) (T, error) {
	return runQuery[T](ctx, c, name, args, false)
}

// ConsistentQuery executes a read pinned to the current snapshot cursor, so
// that multiple consistent queries observe the same point in time. The
// cursor is acquired (or reused) through the timestamp manager.
func ConsistentQuery[T any](ctx context.Context, c *Client, name string, args any) (T, error) {
	return runQuery[T](ctx, c, name, args, true)
}

func runQuery[T any](
	ctx context.Context,
	c *Client,
	name string,
	args any,
	consistent bool,
) (T, error) {
	var zero T

	key, err := optimistic.Key(c.serializer, name, args)
	if err != nil {
		return zero, err
	}

	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	span, ctx := opentr.StartOperation(ctx, c.tracer, "query", name)
	defer span.Finish()

	req := &Request{
		Kind:     OpQuery,
		Name:     name,
		Args:     args,
		Metadata: c.requestMetadata(),
	}

	if consistent {
		cursor, err := c.timestamps.Cursor(ctx)
		if err != nil {
			opentr.Error(span, err)
			return zero, err
		}

		req.Cursor = cursor
		opentr.AddCursor(span, cursor)
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
		verr := &ValidationError{Reason: "query result does not match the requested type", Err: err}
		opentr.Error(span, verr)

		if c.strict {
			c.interceptors.OnError(ctx, req, verr)
			return zero, verr
		}

		logValidationIgnored(c.logger, c.id, name, verr)
		c.interceptors.AfterResponse(ctx, req, res)
		return zero, nil
	}

	c.cache.SetAndNotify(key, value, cache.SourceQuery)

	c.interceptors.AfterResponse(ctx, req, res)
	opentr.Success(span)

	return value, nil
}

func (c *Client) requestMetadata() map[string]string {
	md := map[string]string{"client": c.id.String()}
	if c.product != "" {
		md["product"] = c.product
	}

	return md
}
