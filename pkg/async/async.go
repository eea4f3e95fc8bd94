package async

import (
	"context"
	"sync"
	"time"
)

// Future represents the result of an asynchronous computation.
// A Future is completed exactly once, either by the goroutine started in Async
// or by the resolve function returned from NewPromise.
type Future[U any] struct {
	result U
	err    error
	once   sync.Once
	done   chan struct{}
}

func newFuture[U any]() *Future[U] {
	return &Future[U]{done: make(chan struct{})}
}

// complete stores the outcome and releases waiters. Later calls are ignored.
func (f *Future[U]) complete(res U, err error) {
	f.once.Do(func() {
		f.result = res
		f.err = err
		close(f.done)
	})
}

// Await waits for the asynchronous function to complete and returns its result and error.
func (f *Future[U]) Await() (U, error) {
	<-f.done
	return f.result, f.err
}

// AwaitContext waits for completion or for ctx to be done, whichever comes first.
// Giving up on a future does not cancel the work behind it; its result is dropped.
func (f *Future[U]) AwaitContext(ctx context.Context) (U, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		var zero U
		return zero, ctx.Err()
	}
}

// AwaitWithTimeout waits for the asynchronous function to complete with a timeout.
// If the timeout occurs before completion, returns ErrTimeout.
func (f *Future[U]) AwaitWithTimeout(timeout time.Duration) (U, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-time.After(timeout):
		var zero U
		return zero, ErrTimeout
	}
}

// IsComplete checks if the asynchronous function is complete without blocking.
func (f *Future[U]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed once the future completes.
func (f *Future[U]) Done() <-chan struct{} {
	return f.done
}

// ResolveFunc completes the future it was created with.
type ResolveFunc[U any] func(result U, err error)

// NewPromise returns a pending future together with the function that completes it.
// Batching components hand the future to callers and resolve it once the batch
// carrying the caller's item has been serviced.
func NewPromise[U any]() (*Future[U], ResolveFunc[U]) {
	f := newFuture[U]()
	return f, f.complete
}

// Resolved returns an already completed future.
func Resolved[U any](result U, err error) *Future[U] {
	f := newFuture[U]()
	f.complete(result, err)
	return f
}

// Async executes a function asynchronously and returns a Future.
// The function accepts a context.Context and a parameter of any type T, and returns (U, error).
func Async[T any, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f := newFuture[U]()

	go func() {
		// Early exit prevents goroutine leak when context is pre-canceled
		select {
		case <-ctx.Done():
			var zero U
			f.complete(zero, ctx.Err())
			return
		default:
		}

		res, err := fn(ctx, param)
		f.complete(res, err)
	}()

	return f
}

// AwaitAll waits for every future and returns results and errors index-aligned
// with the input. Unlike a fail-fast join, one failed future never hides the
// outcome of the others.
func AwaitAll[U any](futures ...*Future[U]) ([]U, []error) {
	results := make([]U, len(futures))
	errs := make([]error, len(futures))

	for i, future := range futures {
		results[i], errs[i] = future.Await()
	}

	return results, errs
}
