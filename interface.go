package greendonut

import "context"

// KeyConstraint is the type constraint for loader keys.
type KeyConstraint interface {
	comparable
}

// ValueConstraint is the type constraint for loader values.
type ValueConstraint interface {
	any
}

// FetchFunc is the user-supplied batch fetch callback. It must return a
// Result for every key in keys, in the same order, positionally aligned
// with keys. Returning fewer results than len(keys) is tolerated: the
// missing positions settle with a rejected Result wrapping
// ErrBatchShapeMismatch (see DispatchBatch). Returning more results than
// len(keys) is tolerated too; the extras are ignored.
//
// FetchFunc must not retain keys beyond the call, and must not be called
// by application code directly — LoaderCore is the only caller.
type FetchFunc[K KeyConstraint, V ValueConstraint] func(ctx context.Context, keys []K) []Result[V]

// Index looks up primary keys by a secondary key. Implementations must be
// safe for concurrent use.
type Index[SecondaryKey KeyConstraint, PrimaryKey KeyConstraint] interface {
	// Get retrieves primary keys by secondary key.
	Get(context.Context, SecondaryKey) ([]PrimaryKey, error)

	// GetMulti retrieves primary keys by multiple secondary keys.
	GetMulti(context.Context, []SecondaryKey) (map[SecondaryKey][]PrimaryKey, error)
}
