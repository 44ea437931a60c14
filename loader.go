package greendonut

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/danrub/greendonut/internal/ctxsync"
	"github.com/danrub/greendonut/internal/panicutil"
)

// LoaderCore is the coalescing, memoizing, batching loader. A LoaderCore
// is safe for concurrent use by any number of goroutines; the background
// dispatch loop started by Start runs as a single additional goroutine.
//
// The zero value is not usable; construct with New.
type LoaderCore[K KeyConstraint, V ValueConstraint] struct {
	fetch FetchFunc[K, V]
	opts  options[K, V]
	cache *TaskCache[K, V]

	// mu guards buffer, started and closed. cond wraps mu, so the
	// background loop can park on "buffer went from empty to non-empty"
	// without busy-polling.
	mu      sync.Mutex
	cond    *ctxsync.CtxSyncCond
	buffer  *PendingBuffer[K, V]
	started bool
	closed  bool

	loopDone chan struct{}
}

// New constructs a LoaderCore backed by fetch. fetch is invoked for every
// batch of keys the dispatch loop (or, with WithDisableBatching, every
// single Load) needs to resolve; it must return one Result per requested
// key, in the same order.
func New[K KeyConstraint, V ValueConstraint](fetch FetchFunc[K, V], opts ...Option[K, V]) *LoaderCore[K, V] {
	o := defaultOptions[K, V]()
	for _, opt := range opts {
		opt.apply(&o)
	}

	l := &LoaderCore[K, V]{
		fetch:    fetch,
		opts:     o,
		buffer:   NewPendingBuffer[K, V](),
		loopDone: make(chan struct{}),
	}
	l.cond = &ctxsync.CtxSyncCond{Cond: sync.NewCond(&l.mu)}

	if !o.disableCaching && o.cacheSize > 0 {
		l.cache = NewTaskCache[K, V](o.cacheSize, o.cacheShards, o.slidingExpiration, o.expirationPolicy, o.clock)
	}

	return l
}

func (l *LoaderCore[K, V]) resolveKey(key K) K {
	if l.opts.cacheKeyResolver == nil {
		return key
	}
	return l.opts.cacheKeyResolver(key)
}

// isNilish reports whether key is a nil pointer, nil channel or nil
// interface, the only shapes of key Load and LoadMany reject outright;
// the zero value of any other kind (including an empty string or zero
// int) is permitted.
func isNilish[K KeyConstraint](key K) bool {
	v := reflect.ValueOf(key)
	if !v.IsValid() {
		// A nil interface key yields the zero reflect.Value.
		return true
	}
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}

// Load resolves key, coalescing with any in-flight or cached load for the
// same key, and returns a Future the caller awaits independently of this
// call's own ctx.
func (l *LoaderCore[K, V]) Load(ctx context.Context, key K) (Future[V], error) {
	if isNilish(key) {
		return Future[V]{}, wrapInvalidArgument("key must not be nil")
	}

	key = l.resolveKey(key)

	if l.cache != nil {
		if p, ok := l.cache.Get(key); ok {
			return p.Future(), nil
		}
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return Future[V]{}, ErrLoaderClosed
	}

	if l.opts.disableBatching {
		l.mu.Unlock()
		promise := NewPromise[V]()
		if l.cache != nil {
			l.cache.Set(key, promise)
		}
		go l.dispatchSingle(ctx, key, promise)
		return promise.Future(), nil
	}

	promise := NewPromise[V]()
	if !l.buffer.TryAdd(key, promise) {
		existing, _ := l.buffer.Get(key)
		l.mu.Unlock()
		return existing.Future(), nil
	}
	wake := l.buffer.Len() == 1
	l.mu.Unlock()

	if wake {
		l.cond.NotifyAll()
	}

	if l.cache != nil {
		l.cache.Set(key, promise)
	}

	return promise.Future(), nil
}

// LoadMany loads every key in ks, preserving input order in the returned
// slice, and blocks until every one has settled or ctx is canceled.
func (l *LoaderCore[K, V]) LoadMany(ctx context.Context, ks []K) ([]Result[V], error) {
	if len(ks) == 0 {
		return nil, wrapInvalidArgument("LoadMany requires at least one key")
	}

	futures := make([]Future[V], len(ks))
	for i, k := range ks {
		f, err := l.Load(ctx, k)
		if err != nil {
			return nil, err
		}
		futures[i] = f
	}

	results := make([]Result[V], len(ks))
	group, gctx := errgroup.WithContext(ctx)
	for i, f := range futures {
		i, f := i, f
		group.Go(func() error {
			r, err := f.Wait(gctx)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Set caches a pre-settled promise holding v under key, unless key is
// already present in the cache, in which case the existing entry wins.
func (l *LoaderCore[K, V]) Set(key K, v Result[V]) error {
	if l.cache == nil {
		return nil
	}
	key = l.resolveKey(key)
	if _, ok := l.cache.Get(key); ok {
		return nil
	}
	promise := NewPromise[V]()
	_ = promise.Set(v)
	l.cache.Set(key, promise)
	return nil
}

// Remove drops key from the cache, if present.
func (l *LoaderCore[K, V]) Remove(key K) error {
	if l.cache == nil {
		return nil
	}
	l.cache.Remove(l.resolveKey(key))
	return nil
}

// Clear empties the cache.
func (l *LoaderCore[K, V]) Clear() error {
	if l.cache == nil {
		return nil
	}
	l.cache.Clear()
	return nil
}

// dispatchSingle resolves a single key immediately, bypassing the pending
// buffer entirely. Used when WithDisableBatching is set.
func (l *LoaderCore[K, V]) dispatchSingle(ctx context.Context, key K, promise *Promise[V]) {
	results, err := l.invokeFetch(ctx, []K{key})
	if err != nil {
		l.settle(ctx, promise, Err[V](err))
		return
	}
	if len(results) == 0 {
		l.settle(ctx, promise, Err[V](batchShapeMismatch(1, 0)))
		return
	}
	l.settle(ctx, promise, results[0])
}

// DispatchBatch swaps out the current pending buffer, if non-empty, and
// fetches it in MaxBatchSize-sized chunks. It is safe to call
// concurrently with Load and with the background dispatch loop; at most
// one caller ever observes a given buffer generation. It returns
// ErrLoaderClosed once Close has completed.
func (l *LoaderCore[K, V]) DispatchBatch(ctx context.Context) error {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return ErrLoaderClosed
	}

	if snap := l.swapBuffer(); snap != nil {
		l.dispatch(ctx, snap)
	}
	return nil
}

// swapBuffer atomically replaces l.buffer with a fresh empty one and
// returns the swapped-out buffer, or nil if it was already empty. Unlike
// DispatchBatch, it does not check l.closed, so Close can use it to drain
// whatever is left pending regardless of whether the loader was ever
// started.
func (l *LoaderCore[K, V]) swapBuffer() *PendingBuffer[K, V] {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buffer.IsEmpty() {
		return nil
	}
	snap := l.buffer
	l.buffer = NewPendingBuffer[K, V]()
	return snap
}

func (l *LoaderCore[K, V]) dispatch(ctx context.Context, snap *PendingBuffer[K, V]) {
	keys := make([]K, 0, snap.Len())
	for k := range snap.Keys() {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return
	}

	chunkSize := l.opts.maxBatchSize
	if chunkSize <= 0 {
		chunkSize = len(keys)
	}

	for start := 0; start < len(keys); start += chunkSize {
		end := start + chunkSize
		if end > len(keys) {
			end = len(keys)
		}
		l.dispatchChunk(ctx, snap, keys[start:end])
	}
}

func (l *LoaderCore[K, V]) dispatchChunk(ctx context.Context, snap *PendingBuffer[K, V], chunk []K) {
	results, err := l.invokeFetch(ctx, chunk)
	if err != nil {
		for _, k := range chunk {
			if p, ok := snap.Get(k); ok {
				l.settle(ctx, p, Err[V](err))
			}
		}
		return
	}

	if len(results) != len(chunk) {
		shapeErr := batchShapeMismatch(len(chunk), len(results))
		l.logf(ctx, slog.LevelError, "fetch returned wrong result count", "want", len(chunk), "got", len(results))
		for i, k := range chunk {
			p, ok := snap.Get(k)
			if !ok {
				continue
			}
			if i < len(results) {
				l.settle(ctx, p, results[i])
			} else {
				l.settle(ctx, p, Err[V](shapeErr))
			}
		}
		return
	}

	for i, k := range chunk {
		if p, ok := snap.Get(k); ok {
			l.settle(ctx, p, results[i])
		}
	}
}

// invokeFetch runs fetch under panicutil.DDS, turning a panic into a
// regular error (logged, then wrapped with ErrFetchFailure) so a
// panicking FetchFunc never takes the dispatch loop down with it. A
// runtime.Goexit inside fetch is not converted: it still ends the calling
// goroutine.
func (l *LoaderCore[K, V]) invokeFetch(ctx context.Context, keys []K) ([]Result[V], error) {
	var results []Result[V]
	err := panicutil.DDS(func() error {
		results = l.fetch(ctx, keys)
		return nil
	})
	if err != nil {
		l.logf(ctx, slog.LevelWarn, "recovered panic from fetch", "error", err)
		return nil, fetchFailure(err)
	}
	return results, nil
}

// settle sets promise to result, logging (rather than propagating) the
// rare case where the promise was already settled concurrently via Set.
func (l *LoaderCore[K, V]) settle(ctx context.Context, promise *Promise[V], result Result[V]) {
	if err := promise.Set(result); err != nil {
		l.logf(ctx, slog.LevelDebug, "discarding settle on already-settled promise")
	}
}

func (l *LoaderCore[K, V]) logf(ctx context.Context, level slog.Level, msg string, args ...any) {
	if l.opts.logger == nil {
		return
	}
	l.opts.logger.Log(ctx, level, msg, args...)
}

// Start launches the background dispatch loop, which repeatedly waits
// for the pending buffer to become non-empty, swaps it out and dispatches
// it, and then, if BatchRequestDelay is set, sleeps for that delay before
// waiting again. It is an error to call Start more than once.
func (l *LoaderCore[K, V]) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLoaderClosed
	}
	if l.started {
		l.mu.Unlock()
		return wrapInvalidState("loader already started")
	}
	l.started = true
	l.mu.Unlock()

	go l.dispatchLoop(ctx)
	return nil
}

func (l *LoaderCore[K, V]) dispatchLoop(ctx context.Context) {
	defer close(l.loopDone)

	for {
		l.mu.Lock()
		for l.buffer.IsEmpty() && !l.closed {
			if err := l.cond.WaitCtx(ctx); err != nil {
				// WaitCtx's cancellation path does not guarantee mu is
				// still held on return (see internal/ctxsync), so use
				// NotifyAll, which acquires mu itself, to broadcast once
				// more and let WaitCtx's own background waiter goroutine
				// unwind instead of leaking.
				l.cond.NotifyAll()
				return
			}
		}
		if l.closed && l.buffer.IsEmpty() {
			l.mu.Unlock()
			return
		}
		snap := l.buffer
		l.buffer = NewPendingBuffer[K, V]()
		l.mu.Unlock()

		l.dispatch(ctx, snap)

		if l.opts.batchRequestDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.opts.batchRequestDelay):
			}
		}
	}
}

// Close stops the background dispatch loop (if started), drains and
// dispatches anything still sitting in the pending buffer so no promise
// is left permanently unsettled, clears the cache, and marks the loader
// closed. Close is idempotent. Promises already handed out via Load
// remain valid; Close never cancels a fetch already in flight.
func (l *LoaderCore[K, V]) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	started := l.started
	l.mu.Unlock()

	l.cond.NotifyAll()

	if started {
		<-l.loopDone
	}

	// When Start was never called, nothing else ever drains the buffer.
	if snap := l.swapBuffer(); snap != nil {
		l.dispatch(context.Background(), snap)
	}

	if l.cache != nil {
		l.cache.Clear()
	}
	return nil
}
