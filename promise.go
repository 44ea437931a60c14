package greendonut

import (
	"context"
	"sync"
)

// Future is the read side of a Promise: an awaitable handle whose
// completion fires exactly once. Multiple callers may Wait concurrently;
// all observe the same Result.
type Future[V any] struct {
	p *Promise[V]
}

// Wait blocks until the promise is settled or ctx is canceled, whichever
// comes first. A canceled ctx never cancels the underlying fetch that will
// eventually settle the promise — it only unblocks this particular wait.
func (f Future[V]) Wait(ctx context.Context) (Result[V], error) {
	select {
	case <-f.p.done:
		return f.p.result, nil
	case <-ctx.Done():
		return Result[V]{}, ctx.Err()
	}
}

// Promise is a one-shot completion cell: a single producer calls Set
// exactly once, after which any number of consumers may read the result
// through Future.Wait. The zero value is not usable; construct with
// NewPromise.
type Promise[V any] struct {
	once   sync.Once
	done   chan struct{}
	result Result[V]
}

// NewPromise creates a new, unsettled Promise.
func NewPromise[V any]() *Promise[V] {
	return &Promise[V]{done: make(chan struct{})}
}

// Future returns the awaitable handle for this promise. It may be called
// any number of times and from any goroutine.
func (p *Promise[V]) Future() Future[V] {
	return Future[V]{p: p}
}

// Set settles the promise with result. Calling Set more than once returns
// ErrInvalidState and leaves the promise's result unchanged (the first
// Set always wins). Set never blocks and never holds a lock across a
// consumer's Wait.
func (p *Promise[V]) Set(result Result[V]) error {
	settled := false
	p.once.Do(func() {
		p.result = result
		close(p.done)
		settled = true
	})
	if !settled {
		return ErrInvalidState
	}
	return nil
}

// Settled reports whether the promise has already been set. It is safe to
// call concurrently with Set.
func (p *Promise[V]) Settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}
