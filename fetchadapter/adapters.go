package fetchadapter

import (
	"context"

	greendonut "github.com/danrub/greendonut"
)

// FromGetFunc adapts a single-key getter into a FetchFunc by calling get
// once per requested key, in order. It has no way to issue a single
// underlying batch call; use FromMapFunc or Compact when the backing
// store has a native multi-get.
func FromGetFunc[K greendonut.KeyConstraint, V greendonut.ValueConstraint](get func(context.Context, K) (V, error)) greendonut.FetchFunc[K, V] {
	return func(ctx context.Context, keys []K) []greendonut.Result[V] {
		results := make([]greendonut.Result[V], len(keys))
		for i, k := range keys {
			v, err := get(ctx, k)
			if err != nil {
				results[i] = greendonut.Err[V](err)
				continue
			}
			results[i] = greendonut.Ok(v)
		}
		return results
	}
}

// FromMapFunc adapts a map-keyed batch getter into a FetchFunc. A key
// absent from the returned map resolves to the zero value of V, not an
// error — the same silent-default behavior as looking a key up directly
// in a Go map. Use Compact when a missing key should surface as an
// error instead.
func FromMapFunc[K greendonut.KeyConstraint, V greendonut.ValueConstraint](getMulti func(context.Context, []K) (map[K]V, error)) greendonut.FetchFunc[K, V] {
	return func(ctx context.Context, keys []K) []greendonut.Result[V] {
		values, err := getMulti(ctx, keys)
		if err != nil {
			return errorAll[V](keys, err)
		}
		results := make([]greendonut.Result[V], len(keys))
		for i, k := range keys {
			results[i] = greendonut.Ok(values[k])
		}
		return results
	}
}

// Compact adapts a map-keyed batch getter into a FetchFunc the same way
// FromMapFunc does, except a key the getter omitted from its returned
// map settles with notFound instead of silently defaulting to the zero
// value, making a miss explicit instead of indistinguishable from a
// present zero value.
func Compact[K greendonut.KeyConstraint, V greendonut.ValueConstraint](getMulti func(context.Context, []K) (map[K]V, error), notFound error) greendonut.FetchFunc[K, V] {
	return func(ctx context.Context, keys []K) []greendonut.Result[V] {
		values, err := getMulti(ctx, keys)
		if err != nil {
			return errorAll[V](keys, err)
		}
		results := make([]greendonut.Result[V], len(keys))
		for i, k := range keys {
			if v, ok := values[k]; ok {
				results[i] = greendonut.Ok(v)
				continue
			}
			results[i] = greendonut.Err[V](notFound)
		}
		return results
	}
}

func errorAll[V greendonut.ValueConstraint, K greendonut.KeyConstraint](keys []K, err error) []greendonut.Result[V] {
	results := make([]greendonut.Result[V], len(keys))
	for i := range keys {
		results[i] = greendonut.Err[V](err)
	}
	return results
}
