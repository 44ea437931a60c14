package greendonut

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/danrub/greendonut/expiration"
	"github.com/danrub/greendonut/internal/keyhash"
)

// cacheEntry pairs a cached promise with the timestamp of its last
// access, so sliding expiration can be evaluated lazily on the next Get.
type cacheEntry[V ValueConstraint] struct {
	promise    *Promise[V]
	lastAccess time.Time
}

// taskCacheShard is one independently-locked LRU bucket. TaskCache
// distributes keys across a slice of shards so unrelated keys never
// contend on the same mutex.
type taskCacheShard[K KeyConstraint, V ValueConstraint] struct {
	mu  sync.Mutex
	lru *lru.Cache[K, *cacheEntry[V]]
}

// TaskCache is a bounded, keyed store of *Promise[V] with LRU eviction
// and sliding time-based expiration. It is the cache half of the
// loader's memoization contract: every promise TaskCache hands back on a
// Get is the exact same object handed back to any other concurrent
// caller, until it is evicted.
type TaskCache[K KeyConstraint, V ValueConstraint] struct {
	shards     []*taskCacheShard[K, V]
	hashKey    func(any) int
	clock      Clock
	sliding    time.Duration
	policy     expiration.ExpirationPolicy
}

// NewTaskCache creates a TaskCache holding at most size promises in
// total, spread across shardCount independent LRU shards. A sliding of
// zero disables expiration; a nil policy defaults to
// expiration.GeneralExpirationPolicy{}; a nil clock defaults to
// SystemClock.
func NewTaskCache[K KeyConstraint, V ValueConstraint](size, shardCount int, sliding time.Duration, policy expiration.ExpirationPolicy, clock Clock) *TaskCache[K, V] {
	if shardCount <= 0 {
		shardCount = 1
	}
	if size > 0 && shardCount > size {
		// More shards than capacity would otherwise round perShard up to 1
		// each, letting total capacity exceed size. Clamp so size remains
		// an upper bound regardless of CacheShards.
		shardCount = size
	}
	if policy == nil {
		policy = expiration.GeneralExpirationPolicy{}
	}
	if clock == nil {
		clock = SystemClock
	}

	perShard := size / shardCount
	if perShard < 1 {
		perShard = 1
	}

	shards := make([]*taskCacheShard[K, V], shardCount)
	for i := range shards {
		c, err := lru.New[K, *cacheEntry[V]](perShard)
		if err != nil {
			// perShard is always >= 1 here, so lru.New can only fail on
			// a programmer error in this constructor itself.
			panic(err)
		}
		shards[i] = &taskCacheShard[K, V]{lru: c}
	}

	return &TaskCache[K, V]{
		shards:  shards,
		hashKey: keyhash.GetOrCreateKeyHash[K](),
		clock:   clock,
		sliding: sliding,
		policy:  policy,
	}
}

// shardFor returns the shard responsible for key.
func (c *TaskCache[K, V]) shardFor(key K) *taskCacheShard[K, V] {
	idx := c.hashKey(key)
	if idx < 0 {
		idx = -idx
	}
	return c.shards[idx%len(c.shards)]
}

// Get returns the stored promise if present and not expired, refreshing
// its recency on hit.
func (c *TaskCache[K, V]) Get(key K) (*Promise[V], bool) {
	shard := c.shardFor(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry, ok := shard.lru.Get(key)
	if !ok {
		return nil, false
	}

	now := c.clock.Now()
	if c.sliding > 0 && c.policy.IsExpired(now, entry.lastAccess.Add(c.sliding)) {
		shard.lru.Remove(key)
		return nil, false
	}

	entry.lastAccess = now
	return entry.promise, true
}

// Set inserts or overwrites the promise stored for key. On overflow of
// the owning shard, the least-recently-used entry in that shard is
// evicted.
func (c *TaskCache[K, V]) Set(key K, p *Promise[V]) {
	shard := c.shardFor(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	shard.lru.Add(key, &cacheEntry[V]{promise: p, lastAccess: c.clock.Now()})
}

// Remove drops key from the cache if present.
func (c *TaskCache[K, V]) Remove(key K) {
	shard := c.shardFor(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	shard.lru.Remove(key)
}

// Clear drops every entry from every shard.
func (c *TaskCache[K, V]) Clear() {
	for _, shard := range c.shards {
		shard.mu.Lock()
		shard.lru.Purge()
		shard.mu.Unlock()
	}
}

// Len returns the total number of entries across all shards. Intended
// for tests that assert the CacheSize invariant.
func (c *TaskCache[K, V]) Len() int {
	n := 0
	for _, shard := range c.shards {
		shard.mu.Lock()
		n += shard.lru.Len()
		shard.mu.Unlock()
	}
	return n
}
