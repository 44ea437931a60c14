package index

import (
	"context"

	greendonut "github.com/danrub/greendonut"
)

type FunctionsIndex[SecondaryKey greendonut.KeyConstraint, PrimaryKey greendonut.KeyConstraint] struct {
	GetFunc      func(context.Context, SecondaryKey) ([]PrimaryKey, error)
	GetMultiFunc func(context.Context, []SecondaryKey) (map[SecondaryKey][]PrimaryKey, error)
}

var _ greendonut.Index[uint8, uint8] = (*FunctionsIndex[uint8, uint8])(nil)

func (f *FunctionsIndex[SecondaryKey, PrimaryKey]) Get(ctx context.Context, key SecondaryKey) ([]PrimaryKey, error) {
	return f.GetFunc(ctx, key)
}

func (f *FunctionsIndex[SecondaryKey, PrimaryKey]) GetMulti(ctx context.Context, keys []SecondaryKey) (map[SecondaryKey][]PrimaryKey, error) {
	return f.GetMultiFunc(ctx, keys)
}
