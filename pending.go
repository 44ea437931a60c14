package greendonut

import (
	"container/list"
	"iter"
)

// pendingEntry is one slot in the buffer's insertion-ordered list, which
// lets Keys() walk the list directly instead of re-deriving order from
// the map.
type pendingEntry[K KeyConstraint, V ValueConstraint] struct {
	key     K
	promise *Promise[V]
}

// PendingBuffer is an insertion-ordered mapping K -> *Promise[V], used to
// coalesce concurrent loads awaiting the next dispatch. It is not
// concurrency-safe on its own: LoaderCore serializes all access to a
// given buffer under its own mutex.
type PendingBuffer[K KeyConstraint, V ValueConstraint] struct {
	order *list.List
	index map[K]*list.Element
}

// NewPendingBuffer creates a fresh, empty buffer.
func NewPendingBuffer[K KeyConstraint, V ValueConstraint]() *PendingBuffer[K, V] {
	return &PendingBuffer[K, V]{
		order: list.New(),
		index: make(map[K]*list.Element),
	}
}

// TryAdd inserts promise under key only if key is not already present.
// It reports whether the insert occurred; callers that get false must
// discard their promise and use Get to find the one already registered.
func (b *PendingBuffer[K, V]) TryAdd(key K, promise *Promise[V]) bool {
	if _, exists := b.index[key]; exists {
		return false
	}
	elem := b.order.PushBack(&pendingEntry[K, V]{key: key, promise: promise})
	b.index[key] = elem
	return true
}

// Get returns the promise registered for key, if any.
func (b *PendingBuffer[K, V]) Get(key K) (*Promise[V], bool) {
	elem, ok := b.index[key]
	if !ok {
		return nil, false
	}
	return elem.Value.(*pendingEntry[K, V]).promise, true
}

// Keys iterates the buffer's keys in insertion order.
func (b *PendingBuffer[K, V]) Keys() iter.Seq[K] {
	return func(yield func(K) bool) {
		for elem := b.order.Front(); elem != nil; elem = elem.Next() {
			if !yield(elem.Value.(*pendingEntry[K, V]).key) {
				return
			}
		}
	}
}

// Len returns the number of keys currently buffered.
func (b *PendingBuffer[K, V]) Len() int {
	return len(b.index)
}

// IsEmpty reports whether the buffer holds no keys.
func (b *PendingBuffer[K, V]) IsEmpty() bool {
	return b.Len() == 0
}
