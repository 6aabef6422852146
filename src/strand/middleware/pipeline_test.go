package middleware_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/strand/strand-go/src/strand/middleware"
)

// appendLayer records its tag around the inner handler call.
func appendLayer(tag string, trace *[]string) middleware.Middleware[string, string] {
	return func(next middleware.Handler[string, string]) middleware.Handler[string, string] {
		return func(ctx context.Context, req string) (string, error) {
			*trace = append(*trace, tag+">")
			res, err := next(ctx, req)
			*trace = append(*trace, "<"+tag)
			return res, err
		}
	}
}

var _ = Describe("Pipeline", func() {
	echo := func(ctx context.Context, req string) (string, error) {
		return "echo:" + req, nil
	}

	Describe("New", func() {
		It("panics when the final handler is nil", func() {
			Expect(func() {
				middleware.New[string, string](nil)
			}).To(Panic())
		})
	})

	Describe("Handle", func() {
		It("runs the final handler when no middleware is registered", func() {
			subject := middleware.New(echo)

			res, err := subject.Handle(context.Background(), "req")

			Expect(err).ShouldNot(HaveOccurred())
			Expect(res).To(Equal("echo:req"))
		})

		It("wraps layers so the first registered is outermost", func() {
			subject := middleware.New(echo)

			var trace []string
			subject.Use(
				appendLayer("a", &trace),
				appendLayer("b", &trace),
			)

			_, err := subject.Handle(context.Background(), "req")

			Expect(err).ShouldNot(HaveOccurred())
			Expect(trace).To(Equal([]string{"a>", "b>", "<b", "<a"}))
		})

		It("lets a layer transform the request", func() {
			subject := middleware.New(echo)

			subject.Use(func(next middleware.Handler[string, string]) middleware.Handler[string, string] {
				return func(ctx context.Context, req string) (string, error) {
					return next(ctx, strings.ToUpper(req))
				}
			})

			res, _ := subject.Handle(context.Background(), "req")
			Expect(res).To(Equal("echo:REQ"))
		})

		It("lets a layer short-circuit without calling next", func() {
			called := false
			subject := middleware.New(func(ctx context.Context, req string) (string, error) {
				called = true
				return "", nil
			})

			subject.Use(func(middleware.Handler[string, string]) middleware.Handler[string, string] {
				return func(ctx context.Context, req string) (string, error) {
					return "short-circuit", nil
				}
			})

			res, err := subject.Handle(context.Background(), "req")

			Expect(err).ShouldNot(HaveOccurred())
			Expect(res).To(Equal("short-circuit"))
			Expect(called).To(BeFalse())
		})

		It("propagates errors from any layer", func() {
			subject := middleware.New(echo)

			subject.Use(func(middleware.Handler[string, string]) middleware.Handler[string, string] {
				return func(ctx context.Context, req string) (string, error) {
					return "", errors.New("layer failed")
				}
			})

			_, err := subject.Handle(context.Background(), "req")
			Expect(err).To(MatchError("layer failed"))
		})

		It("includes middleware registered after a previous run", func() {
			subject := middleware.New(echo)

			_, err := subject.Handle(context.Background(), "warm-up")
			Expect(err).ShouldNot(HaveOccurred())

			subject.Use(func(next middleware.Handler[string, string]) middleware.Handler[string, string] {
				return func(ctx context.Context, req string) (string, error) {
					return next(ctx, "rewritten")
				}
			})

			res, _ := subject.Handle(context.Background(), "req")
			Expect(res).To(Equal("echo:rewritten"))
		})
	})

	Describe("Use", func() {
		It("panics on nil middleware", func() {
			subject := middleware.New(echo)

			Expect(func() {
				subject.Use(nil)
			}).To(Panic())
		})
	})

	Describe("Len", func() {
		It("counts registered layers", func() {
			subject := middleware.New(echo)
			Expect(subject.Len()).To(Equal(0))

			var trace []string
			subject.Use(appendLayer("a", &trace))

			Expect(subject.Len()).To(Equal(1))
		})
	})
})
