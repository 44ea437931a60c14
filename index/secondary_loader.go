package index

import (
	"context"
	"iter"
	"slices"

	greendonut "github.com/danrub/greendonut"
	"github.com/danrub/greendonut/internal/iterutil"
)

// SecondaryIndexLoader answers secondary-key queries by first resolving
// the owning primary keys through an Index, then loading those primary
// keys through a *greendonut.LoaderCore — so a secondary-key lookup still
// coalesces with, and is memoized alongside, any concurrent primary-key
// Load for the same key.
type SecondaryIndexLoader[SecondaryKey greendonut.KeyConstraint, PrimaryKey greendonut.KeyConstraint, V greendonut.ValueConstraint] struct {
	loader *greendonut.LoaderCore[PrimaryKey, V]
	index  greendonut.Index[SecondaryKey, PrimaryKey]
}

// NewSecondaryIndexLoader composes loader with index. loader is not owned
// by the returned SecondaryIndexLoader: callers remain responsible for
// Start/Close.
func NewSecondaryIndexLoader[SecondaryKey greendonut.KeyConstraint, PrimaryKey greendonut.KeyConstraint, V greendonut.ValueConstraint](loader *greendonut.LoaderCore[PrimaryKey, V], index greendonut.Index[SecondaryKey, PrimaryKey]) *SecondaryIndexLoader[SecondaryKey, PrimaryKey, V] {
	return &SecondaryIndexLoader[SecondaryKey, PrimaryKey, V]{loader: loader, index: index}
}

// FindBySecondaryKey resolves sk to its primary keys and loads each one.
// A secondary key with no primary keys returns a nil, nil result.
func (l *SecondaryIndexLoader[SecondaryKey, PrimaryKey, V]) FindBySecondaryKey(ctx context.Context, sk SecondaryKey) ([]greendonut.Result[V], error) {
	pks, err := l.index.Get(ctx, sk)
	if err != nil {
		return nil, err
	}
	if len(pks) == 0 {
		return nil, nil
	}
	return l.loader.LoadMany(ctx, pks)
}

// FindBySecondaryKeys resolves every key in sks to its primary keys in a
// single Index.GetMulti call, then loads the union of primary keys
// through one LoaderCore.LoadMany call, so keys shared by multiple
// secondary keys are only fetched once.
func (l *SecondaryIndexLoader[SecondaryKey, PrimaryKey, V]) FindBySecondaryKeys(ctx context.Context, sks []SecondaryKey) (map[SecondaryKey][]greendonut.Result[V], error) {
	m, err := l.index.GetMulti(ctx, sks)
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return map[SecondaryKey][]greendonut.Result[V]{}, nil
	}

	owners := map[PrimaryKey][]SecondaryKey{}
	all := iter.Seq[PrimaryKey](func(yield func(PrimaryKey) bool) {
		for sk, pks := range m {
			for _, pk := range pks {
				owners[pk] = append(owners[pk], sk)
				if !yield(pk) {
					return
				}
			}
		}
	})
	keys := slices.Collect(iterutil.Uniq(all))

	results, err := l.loader.LoadMany(ctx, keys)
	if err != nil {
		return nil, err
	}

	bySecondary := make(map[SecondaryKey][]greendonut.Result[V], len(m))
	for i, pk := range keys {
		for _, sk := range owners[pk] {
			bySecondary[sk] = append(bySecondary[sk], results[i])
		}
	}
	return bySecondary, nil
}
