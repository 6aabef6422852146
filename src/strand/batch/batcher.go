// Package batch accumulates high-frequency events into periodic
// network-bound batches.
//
// Batching is best-effort: a batch that fails to send is logged and
// dropped, never retried or requeued.
package batch

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/jmalloc/twelf/src/twelf"
	"github.com/strand/strand-go/src/internal/service"
)

// Positioned is the capability interface for events that carry a 2-D
// position. Event types opt into spatial de-duplication by implementing it.
type Positioned interface {
	Position() (x, y float64)
}

// Record is one accepted event, stamped with its offset from the start of
// the batch it belongs to.
type Record[T any] struct {
	Data   T
	Offset time.Duration
}

// Batch is a window of accumulated events handed to the sink.
type Batch[T any] struct {
	Records  []Record[T]
	Start    time.Time
	Metadata map[string]string
}

// Sink delivers a closed batch, typically as a mutation-style network call.
type Sink[T any] func(ctx context.Context, b Batch[T]) error

// Config describes a batcher's filtering and flushing behaviour.
type Config struct {
	// SampleInterval is the minimum spacing between accepted events. Events
	// arriving faster are dropped. Zero disables sampling.
	SampleInterval time.Duration

	// MinDistance drops events closer than this to the previously accepted
	// event. It only applies to event types implementing Positioned; for
	// other types the filter is inert. Zero disables the filter.
	MinDistance float64

	// MaxBatchSize forces an immediate flush once the batch reaches this
	// many records. Zero means no size threshold.
	MaxBatchSize int

	// FlushInterval is the period of the timer-driven flush. Zero disables
	// the periodic timer.
	FlushInterval time.Duration

	// ResetEpochAfterFlush restarts the batch clock after each flush, so
	// record offsets are relative to their own batch rather than to the
	// batcher's creation.
	ResetEpochAfterFlush bool
}

// Batcher accumulates events of type T.
type Batcher[T any] struct {
	cfg        Config
	sink       Sink[T]
	logger     twelf.Logger
	positional bool

	mutex        sync.Mutex
	records      []Record[T]
	start        time.Time
	lastAccepted time.Time
	last         T
	hasLast      bool
	metadata     map[string]string

	sm *service.StateMachine
}

// New returns a running batcher delivering batches to sink.
func New[T any](cfg Config, sink Sink[T], logger twelf.Logger) *Batcher[T] {
	if sink == nil {
		panic("sink must not be nil")
	}
	if logger == nil {
		panic("logger must not be nil")
	}

	var probe T
	_, positional := any(probe).(Positioned)

	b := &Batcher[T]{
		cfg:        cfg,
		sink:       sink,
		logger:     logger,
		positional: positional,
		start:      time.Now(),
	}

	b.sm = service.NewStateMachine(b.run, b.finalize)
	go b.sm.Run()

	return b
}

// Add offers an event to the current batch. It returns false if the event
// was dropped by the sampling or spatial filter. Reaching the size
// threshold triggers an immediate flush, performed outside the lock.
func (b *Batcher[T]) Add(data T) bool {
	now := time.Now()

	b.mutex.Lock()

	if b.cfg.SampleInterval > 0 && !b.lastAccepted.IsZero() {
		if now.Sub(b.lastAccepted) < b.cfg.SampleInterval {
			b.mutex.Unlock()
			return false
		}
	}

	if b.positional && b.cfg.MinDistance > 0 && b.hasLast {
		if distance(any(b.last).(Positioned), any(data).(Positioned)) < b.cfg.MinDistance {
			b.mutex.Unlock()
			return false
		}
	}

	if b.start.IsZero() {
		b.start = now
	}

	b.records = append(b.records, Record[T]{
		Data:   data,
		Offset: now.Sub(b.start),
	})
	b.lastAccepted = now
	b.last = data
	b.hasLast = true

	var pending *Batch[T]
	if b.cfg.MaxBatchSize > 0 && len(b.records) >= b.cfg.MaxBatchSize {
		pending = b.swapLocked()
	}

	b.mutex.Unlock()

	if pending != nil {
		b.send(context.Background(), pending)
	}

	return true
}

// Flush sends the current batch, if any. The swap is atomic; the send
// happens outside the lock.
func (b *Batcher[T]) Flush(ctx context.Context) error {
	b.mutex.Lock()
	pending := b.swapLocked()
	b.mutex.Unlock()

	if pending == nil {
		return nil
	}

	return b.send(ctx, pending)
}

// SetMetadata replaces the metadata attached to subsequent batches. Events
// already queued in the current batch are flushed with the metadata current
// at flush time.
func (b *Batcher[T]) SetMetadata(md map[string]string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.metadata = md
}

// Len returns the number of records queued in the current batch.
func (b *Batcher[T]) Len() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return len(b.records)
}

// Close performs one final flush and releases the flush timer.
func (b *Batcher[T]) Close() error {
	b.sm.GracefulStop()
	<-b.sm.Done()

	return b.sm.Err()
}

// swapLocked exchanges the current batch for an empty one. The caller must
// hold the lock. It returns nil when there is nothing to flush.
func (b *Batcher[T]) swapLocked() *Batch[T] {
	if len(b.records) == 0 {
		return nil
	}

	out := &Batch[T]{
		Records:  b.records,
		Start:    b.start,
		Metadata: b.metadata,
	}

	b.records = nil
	if b.cfg.ResetEpochAfterFlush {
		b.start = time.Time{} // reopened by the next Add
	}

	return out
}

func (b *Batcher[T]) send(ctx context.Context, batch *Batch[T]) error {
	if err := b.sink(ctx, *batch); err != nil {
		logBatchDropped(b.logger, len(batch.Records), err)
		return err
	}

	return nil
}

// run is the periodic flush loop.
func (b *Batcher[T]) run() (service.State, error) {
	if b.cfg.FlushInterval <= 0 {
		select {
		case <-b.sm.Graceful:
		case <-b.sm.Forceful:
		}
		return nil, nil
	}

	ticker := time.NewTicker(b.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = b.Flush(context.Background())
		case <-b.sm.Graceful:
			return nil, nil
		case <-b.sm.Forceful:
			return nil, nil
		}
	}
}

// finalize performs the final synchronous flush so no batch is silently
// dropped on shutdown.
func (b *Batcher[T]) finalize(err error) error {
	if flushErr := b.Flush(context.Background()); err == nil {
		err = flushErr
	}

	return err
}

func distance(a, b Positioned) float64 {
	ax, ay := a.Position()
	bx, by := b.Position()

	return math.Hypot(bx-ax, by-ay)
}
