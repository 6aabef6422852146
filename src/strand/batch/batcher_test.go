package batch_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jmalloc/twelf/src/twelf"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/strand/strand-go/src/strand/batch"
)

// capture is a sink that records every batch it receives.
type capture[T any] struct {
	mutex   sync.Mutex
	batches []batch.Batch[T]
	err     error
}

func (c *capture[T]) sink(_ context.Context, b batch.Batch[T]) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.err != nil {
		return c.err
	}

	c.batches = append(c.batches, b)
	return nil
}

func (c *capture[T]) all() []batch.Batch[T] {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	out := make([]batch.Batch[T], len(c.batches))
	copy(out, c.batches)
	return out
}

// point is a positioned event used by the spatial filter specs.
type point struct {
	X, Y float64
}

func (p point) Position() (float64, float64) {
	return p.X, p.Y
}

var logger = &twelf.StandardLogger{}

var _ = Describe("Batcher", func() {
	Describe("Add", func() {
		It("accepts events and stamps batch-relative offsets", func() {
			sink := &capture[string]{}
			subject := batch.New(batch.Config{}, sink.sink, logger)
			defer subject.Close()

			Expect(subject.Add("a")).To(BeTrue())
			Expect(subject.Add("b")).To(BeTrue())
			Expect(subject.Len()).To(Equal(2))

			Expect(subject.Flush(context.Background())).To(Succeed())

			batches := sink.all()
			Expect(batches).To(HaveLen(1))
			Expect(batches[0].Records).To(HaveLen(2))
			Expect(batches[0].Records[0].Data).To(Equal("a"))
			Expect(batches[0].Records[1].Offset).To(
				BeNumerically(">=", batches[0].Records[0].Offset),
			)
		})

		It("drops events arriving faster than the sample interval", func() {
			sink := &capture[string]{}
			subject := batch.New(batch.Config{
				SampleInterval: time.Hour,
			}, sink.sink, logger)
			defer subject.Close()

			Expect(subject.Add("a")).To(BeTrue())
			Expect(subject.Add("b")).To(BeFalse())
			Expect(subject.Len()).To(Equal(1))
		})

		It("drops positioned events closer than the minimum distance", func() {
			sink := &capture[point]{}
			subject := batch.New(batch.Config{
				MinDistance: 10,
			}, sink.sink, logger)
			defer subject.Close()

			Expect(subject.Add(point{0, 0})).To(BeTrue())
			Expect(subject.Add(point{3, 4})).To(BeFalse())  // distance 5
			Expect(subject.Add(point{30, 40})).To(BeTrue()) // distance 50
			Expect(subject.Len()).To(Equal(2))
		})

		It("measures distance from the previously accepted event", func() {
			sink := &capture[point]{}
			subject := batch.New(batch.Config{
				MinDistance: 10,
			}, sink.sink, logger)
			defer subject.Close()

			Expect(subject.Add(point{0, 0})).To(BeTrue())
			Expect(subject.Add(point{6, 8})).To(BeFalse())
			Expect(subject.Add(point{6, 8})).To(BeFalse())
			Expect(subject.Add(point{12, 16})).To(BeTrue()) // 20 from {0,0}
		})

		It("ignores the spatial filter for unpositioned event types", func() {
			sink := &capture[string]{}
			subject := batch.New(batch.Config{
				MinDistance: 10,
			}, sink.sink, logger)
			defer subject.Close()

			Expect(subject.Add("a")).To(BeTrue())
			Expect(subject.Add("b")).To(BeTrue())
		})

		It("flushes immediately at the size threshold", func() {
			sink := &capture[string]{}
			subject := batch.New(batch.Config{
				MaxBatchSize: 2,
			}, sink.sink, logger)
			defer subject.Close()

			subject.Add("a")
			subject.Add("b")

			Eventually(func() int {
				return len(sink.all())
			}).Should(Equal(1))
			Expect(subject.Len()).To(Equal(0))
		})
	})

	Describe("Flush", func() {
		It("is a no-op when the batch is empty", func() {
			sink := &capture[string]{}
			subject := batch.New(batch.Config{}, sink.sink, logger)
			defer subject.Close()

			Expect(subject.Flush(context.Background())).To(Succeed())
			Expect(sink.all()).To(BeEmpty())
		})

		It("drops a batch whose send fails, without retrying", func() {
			sink := &capture[string]{err: errors.New("sink unavailable")}
			subject := batch.New(batch.Config{}, sink.sink, logger)
			defer subject.Close()

			subject.Add("a")

			Expect(subject.Flush(context.Background())).To(HaveOccurred())
			Expect(subject.Len()).To(Equal(0))
		})

		It("restarts the epoch after a flush when configured", func() {
			sink := &capture[string]{}
			subject := batch.New(batch.Config{
				ResetEpochAfterFlush: true,
			}, sink.sink, logger)
			defer subject.Close()

			subject.Add("a")
			time.Sleep(5 * time.Millisecond)
			Expect(subject.Flush(context.Background())).To(Succeed())

			time.Sleep(5 * time.Millisecond)
			subject.Add("b")
			Expect(subject.Flush(context.Background())).To(Succeed())

			batches := sink.all()
			Expect(batches).To(HaveLen(2))

			// the second batch's first record is near its own epoch, not the
			// batcher's creation time
			Expect(batches[1].Records[0].Offset).To(
				BeNumerically("<", 5*time.Millisecond),
			)
		})
	})

	Describe("SetMetadata", func() {
		It("attaches the metadata current at flush time", func() {
			sink := &capture[string]{}
			subject := batch.New(batch.Config{}, sink.sink, logger)
			defer subject.Close()

			subject.Add("a")
			subject.SetMetadata(map[string]string{"session": "s-1"})

			Expect(subject.Flush(context.Background())).To(Succeed())

			batches := sink.all()
			Expect(batches[0].Metadata).To(Equal(map[string]string{"session": "s-1"}))
		})
	})

	Describe("periodic flushing", func() {
		It("flushes on the configured interval", func() {
			sink := &capture[string]{}
			subject := batch.New(batch.Config{
				FlushInterval: 10 * time.Millisecond,
			}, sink.sink, logger)
			defer subject.Close()

			subject.Add("a")

			Eventually(func() int {
				return len(sink.all())
			}).Should(Equal(1))
		})
	})

	Describe("Close", func() {
		It("flushes the remaining records", func() {
			sink := &capture[string]{}
			subject := batch.New(batch.Config{}, sink.sink, logger)

			subject.Add("a")

			Expect(subject.Close()).To(Succeed())

			batches := sink.all()
			Expect(batches).To(HaveLen(1))
			Expect(batches[0].Records).To(HaveLen(1))
		})

		It("is safe when there is nothing to flush", func() {
			sink := &capture[string]{}
			subject := batch.New(batch.Config{}, sink.sink, logger)

			Expect(subject.Close()).To(Succeed())
			Expect(sink.all()).To(BeEmpty())
		})
	})
})
