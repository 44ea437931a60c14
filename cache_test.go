package greendonut_test

import (
	"testing"
	"time"

	greendonut "github.com/danrub/greendonut"
	"github.com/danrub/greendonut/expiration"
)

func TestTaskCache_SetGet(t *testing.T) {
	t.Parallel()

	cache := greendonut.NewTaskCache[string, int](16, 1, 0, nil, nil)
	p := greendonut.NewPromise[int]()
	cache.Set("a", p)

	got, ok := cache.Get("a")
	if !ok {
		t.Fatal("Get(\"a\") ok = false")
	}
	if got != p {
		t.Error("Get(\"a\") returned a different promise than Set stored")
	}

	if _, ok := cache.Get("missing"); ok {
		t.Error("Get(\"missing\") ok = true")
	}
}

func TestTaskCache_RemoveAndClear(t *testing.T) {
	t.Parallel()

	cache := greendonut.NewTaskCache[string, int](16, 1, 0, nil, nil)
	cache.Set("a", greendonut.NewPromise[int]())
	cache.Set("b", greendonut.NewPromise[int]())

	cache.Remove("a")
	if _, ok := cache.Get("a"); ok {
		t.Error("Get(\"a\") ok = true after Remove")
	}
	if got := cache.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}

	cache.Clear()
	if got := cache.Len(); got != 0 {
		t.Errorf("Len() after Clear() = %d, want 0", got)
	}
}

func TestTaskCache_LRUEviction(t *testing.T) {
	t.Parallel()

	cache := greendonut.NewTaskCache[int, int](2, 1, 0, nil, nil)
	cache.Set(1, greendonut.NewPromise[int]())
	cache.Set(2, greendonut.NewPromise[int]())
	cache.Set(3, greendonut.NewPromise[int]())

	if got := cache.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2 (CacheSize must never be exceeded)", got)
	}
	if _, ok := cache.Get(1); ok {
		t.Error("Get(1) ok = true, want the least-recently-used entry evicted")
	}
}

func TestTaskCache_SlidingExpiration(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := greendonut.ClockFunc(func() time.Time { return now })

	cache := greendonut.NewTaskCache[string, int](16, 1, time.Minute, expiration.GeneralExpirationPolicy{}, clock)
	cache.Set("a", greendonut.NewPromise[int]())

	if _, ok := cache.Get("a"); !ok {
		t.Fatal("Get(\"a\") ok = false immediately after Set")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := cache.Get("a"); ok {
		t.Error("Get(\"a\") ok = true after SlidingExpiration elapsed")
	}
}

func TestTaskCache_SlidingExpirationRefreshesOnAccess(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := greendonut.ClockFunc(func() time.Time { return now })

	cache := greendonut.NewTaskCache[string, int](16, 1, time.Minute, expiration.GeneralExpirationPolicy{}, clock)
	cache.Set("a", greendonut.NewPromise[int]())

	now = now.Add(30 * time.Second)
	if _, ok := cache.Get("a"); !ok {
		t.Fatal("Get(\"a\") ok = false before first window elapsed")
	}

	now = now.Add(30 * time.Second)
	if _, ok := cache.Get("a"); !ok {
		t.Fatal("Get(\"a\") ok = false: the first access should have refreshed the sliding window")
	}
}

func TestTaskCache_ShardCountExceedingSizeStillRespectsSize(t *testing.T) {
	t.Parallel()

	// 32 shards with a CacheSize of 4 would floor perShard to 0, round up
	// to 1 each, and let total capacity reach 32 unless shardCount is
	// clamped down to size first.
	cache := greendonut.NewTaskCache[int, int](4, 32, 0, nil, nil)
	for i := range 10 {
		cache.Set(i, greendonut.NewPromise[int]())
	}
	if got := cache.Len(); got != 4 {
		t.Errorf("Len() = %d, want 4 (CacheSize must never be exceeded even with CacheShards > CacheSize)", got)
	}
}

func TestTaskCache_Sharding(t *testing.T) {
	t.Parallel()

	cache := greendonut.NewTaskCache[int, int](100, 4, 0, nil, nil)
	for i := range 40 {
		cache.Set(i, greendonut.NewPromise[int]())
	}
	if got := cache.Len(); got != 40 {
		t.Errorf("Len() = %d, want 40", got)
	}
	for i := range 40 {
		if _, ok := cache.Get(i); !ok {
			t.Errorf("Get(%d) ok = false", i)
		}
	}
}
