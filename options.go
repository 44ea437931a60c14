package greendonut

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/danrub/greendonut/expiration"
)

// Logger is the minimal structured-logging surface LoaderCore needs. It
// is satisfied by *slog.Logger directly, so callers that already use
// log/slog need no adapter.
type Logger interface {
	Log(ctx context.Context, level slog.Level, msg string, args ...any)
}

// DefaultCacheSize is the cache capacity used when WithCacheSize is not
// supplied.
const DefaultCacheSize = 1024

// Option configures a LoaderCore at construction time, following the
// functional-options idiom: an Option interface plus an optionFunc
// closure adapter.
type Option[K KeyConstraint, V ValueConstraint] interface {
	apply(*options[K, V])
}

type optionFunc[K KeyConstraint, V ValueConstraint] func(*options[K, V])

func (f optionFunc[K, V]) apply(o *options[K, V]) {
	f(o)
}

type options[K KeyConstraint, V ValueConstraint] struct {
	cacheSize         int
	cacheShards       int
	slidingExpiration time.Duration
	expirationPolicy  expiration.ExpirationPolicy
	clock             Clock
	cacheKeyResolver  func(K) K
	disableCaching    bool
	disableBatching   bool
	maxBatchSize      int
	batchRequestDelay time.Duration
	logger            Logger
}

func defaultOptions[K KeyConstraint, V ValueConstraint]() options[K, V] {
	return options[K, V]{
		cacheSize:        DefaultCacheSize,
		cacheShards:      runtime.GOMAXPROCS(0),
		expirationPolicy: expiration.GeneralExpirationPolicy{},
		clock:            SystemClock,
		logger:           slog.Default(),
	}
}

// WithCacheSize sets the maximum number of entries held across all cache
// shards. A size <= 0 has the same effect as WithDisableCaching.
func WithCacheSize[K KeyConstraint, V ValueConstraint](size int) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.cacheSize = size
	})
}

// WithCacheShards overrides the number of independent LRU shards backing
// the cache. Defaults to runtime.GOMAXPROCS(0).
func WithCacheShards[K KeyConstraint, V ValueConstraint](shards int) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.cacheShards = shards
	})
}

// WithSlidingExpiration sets the idle-eviction window for cache entries.
// Zero (the default) disables expiration.
func WithSlidingExpiration[K KeyConstraint, V ValueConstraint](d time.Duration) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.slidingExpiration = d
	})
}

// WithExpirationPolicy overrides how "idle past SlidingExpiration" is
// evaluated. Defaults to expiration.GeneralExpirationPolicy{}.
func WithExpirationPolicy[K KeyConstraint, V ValueConstraint](p expiration.ExpirationPolicy) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.expirationPolicy = p
	})
}

// WithClock overrides the time source the cache uses for sliding
// expiration. Defaults to SystemClock.
func WithClock[K KeyConstraint, V ValueConstraint](c Clock) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.clock = c
	})
}

// WithCacheKeyResolver normalizes keys before every cache and pending
// buffer operation. Defaults to identity.
func WithCacheKeyResolver[K KeyConstraint, V ValueConstraint](resolve func(K) K) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.cacheKeyResolver = resolve
	})
}

// WithDisableCaching turns off all cache interactions: every Load always
// re-enters the pending buffer (or dispatches immediately, if batching is
// also disabled).
func WithDisableCaching[K KeyConstraint, V ValueConstraint]() Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.disableCaching = true
	})
}

// WithDisableBatching makes every Load dispatch its own single-key fetch
// immediately, instead of joining the pending buffer.
func WithDisableBatching[K KeyConstraint, V ValueConstraint]() Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.disableBatching = true
	})
}

// WithMaxBatchSize caps the number of keys sent to a single fetch call.
// Zero (the default) means one fetch call per dispatch, however large
// the pending buffer has grown.
func WithMaxBatchSize[K KeyConstraint, V ValueConstraint](n int) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.maxBatchSize = n
	})
}

// WithBatchRequestDelay sets how long the background dispatch loop waits
// between dispatches. Zero (the default) dispatches as soon as the
// pending buffer becomes non-empty.
func WithBatchRequestDelay[K KeyConstraint, V ValueConstraint](d time.Duration) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.batchRequestDelay = d
	})
}

// WithLogger overrides the logger used for the three events LoaderCore
// ever logs on its own: a discarded double-settle (debug), a recovered
// fetch panic (warn), and a fetch result count that differs from its
// chunk (error). Defaults to slog.Default().
func WithLogger[K KeyConstraint, V ValueConstraint](l Logger) Option[K, V] {
	return optionFunc[K, V](func(o *options[K, V]) {
		o.logger = l
	})
}
