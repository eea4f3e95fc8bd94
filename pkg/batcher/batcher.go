package batcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rogertalk/roger-api-sub001/pkg/async"
	"github.com/rogertalk/roger-api-sub001/pkg/logger"
)

// FlushFunc services one batch. It must return exactly one result per item,
// index-aligned with items. A non-nil error resolves every item of the batch
// with that error.
type FlushFunc[T, R any] func(ctx context.Context, items []T) ([]R, error)

// State describes what the batcher is doing right now.
type State int32

const (
	StateIdle State = iota
	StateAccumulating
	StateFlushing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccumulating:
		return "accumulating"
	case StateFlushing:
		return "flushing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type entry[T, R any] struct {
	item    T
	resolve async.ResolveFunc[R]
}

// Batcher collects items added by many callers into bounded batches and hands
// each batch to a single FlushFunc call. A batch is cut when it reaches the
// configured size or when the linger window armed by its first item elapses.
// At most maxInFlight batches are serviced concurrently; batches cut while the
// limit is reached wait in FIFO order.
type Batcher[T, R any] struct {
	flush       FlushFunc[T, R]
	size        int
	linger      time.Duration
	maxInFlight int
	name        string
	logger      *slog.Logger

	mu       sync.Mutex
	pending  []entry[T, R]
	timer    *time.Timer
	gen      uint64
	queue    [][]entry[T, R]
	inFlight int
	closed   bool
	wg       sync.WaitGroup
}

// New creates a batcher around flush.
func New[T, R any](flush FlushFunc[T, R], opts ...Option) *Batcher[T, R] {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(cfg)
	}

	return &Batcher[T, R]{
		flush:       flush,
		size:        cfg.size,
		linger:      cfg.linger,
		maxInFlight: cfg.maxInFlight,
		name:        cfg.name,
		logger:      cfg.logger,
	}
}

// Add enqueues item and returns a future resolved when its batch is flushed.
// Add never blocks on I/O, so it is safe to call from inside a flush.
// Abandoning the returned future does not remove the item from its batch.
func (b *Batcher[T, R]) Add(item T) *async.Future[R] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		var zero R
		return async.Resolved(zero, ErrClosed)
	}

	fut, resolve := async.NewPromise[R]()
	b.pending = append(b.pending, entry[T, R]{item: item, resolve: resolve})

	switch {
	case len(b.pending) >= b.size:
		b.cutLocked()
	case len(b.pending) == 1:
		gen := b.gen
		b.timer = time.AfterFunc(b.linger, func() { b.onLinger(gen) })
	}

	return fut
}

// Flush cuts the pending batch immediately instead of waiting for the linger window.
func (b *Batcher[T, R]) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) > 0 {
		b.cutLocked()
	}
}

// State reports the current batcher state.
func (b *Batcher[T, R]) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.inFlight > 0:
		return StateFlushing
	case len(b.pending) > 0 || len(b.queue) > 0:
		return StateAccumulating
	default:
		return StateIdle
	}
}

// Close flushes whatever is pending, rejects further items with ErrClosed and
// waits for in-flight batches or ctx, whichever ends first.
func (b *Batcher[T, R]) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		if len(b.pending) > 0 {
			b.cutLocked()
		}
	}
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Batcher[T, R]) onLinger(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// The batch this timer was armed for may already have been cut by size.
	if gen != b.gen || len(b.pending) == 0 {
		return
	}
	b.cutLocked()
}

func (b *Batcher[T, R]) cutLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.gen++
	b.queue = append(b.queue, b.pending)
	b.pending = nil
	b.dispatchLocked()
}

func (b *Batcher[T, R]) dispatchLocked() {
	for b.inFlight < b.maxInFlight && len(b.queue) > 0 {
		batch := b.queue[0]
		b.queue[0] = nil
		b.queue = b.queue[1:]
		b.inFlight++
		b.wg.Add(1)
		go b.run(batch)
	}
}

func (b *Batcher[T, R]) run(batch []entry[T, R]) {
	defer b.wg.Done()

	items := make([]T, len(batch))
	for i, e := range batch {
		items[i] = e.item
	}

	ctx := context.Background()
	start := time.Now()
	results, err := b.safeFlush(ctx, items)
	if err == nil && len(results) != len(items) {
		err = fmt.Errorf("%w: got %d results for %d items", ErrResultCount, len(results), len(items))
	}
	if err != nil {
		b.logger.LogAttrs(ctx, slog.LevelDebug, "Batch flush failed",
			logger.Component(b.name),
			logger.BatchSize(len(items)),
			logger.Error(err),
		)
	}

	for i, e := range batch {
		if err != nil {
			var zero R
			e.resolve(zero, err)
			continue
		}
		e.resolve(results[i], nil)
	}

	b.logger.LogAttrs(ctx, slog.LevelDebug, "Batch flushed",
		logger.Component(b.name),
		logger.BatchSize(len(items)),
		logger.Duration(time.Since(start)),
	)

	b.mu.Lock()
	b.inFlight--
	b.dispatchLocked()
	b.mu.Unlock()
}

func (b *Batcher[T, R]) safeFlush(ctx context.Context, items []T) (results []R, err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.LogAttrs(ctx, slog.LevelError, "Batch flush panicked",
				logger.Component(b.name),
				logger.BatchSize(len(items)),
				slog.Any("panic", r),
			)
			results = nil
			err = fmt.Errorf("%w: %v", ErrFlushPanic, r)
		}
	}()

	return b.flush(ctx, items)
}
