package index_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	greendonut "github.com/danrub/greendonut"
	"github.com/danrub/greendonut/index"
)

func newTestLoader(t *testing.T) *greendonut.LoaderCore[uint8, string] {
	t.Helper()
	fetch := func(ctx context.Context, keys []uint8) []greendonut.Result[string] {
		results := make([]greendonut.Result[string], len(keys))
		for i, k := range keys {
			results[i] = greendonut.Ok(string(rune('a' + k)))
		}
		return results
	}
	loader := greendonut.New[uint8, string](fetch, greendonut.WithDisableBatching[uint8, string]())
	return loader
}

func TestSecondaryIndexLoader_FindBySecondaryKey(t *testing.T) {
	t.Parallel()

	loader := newTestLoader(t)
	idx := &index.FunctionsIndex[string, uint8]{
		GetFunc: func(ctx context.Context, sk string) ([]uint8, error) {
			if sk == "group1" {
				return []uint8{0, 1}, nil
			}
			return nil, nil
		},
	}

	sil := index.NewSecondaryIndexLoader[string, uint8, string](loader, idx)

	results, err := sil.FindBySecondaryKey(t.Context(), "group1")
	if err != nil {
		t.Fatalf("FindBySecondaryKey() error = %v", err)
	}

	got := make([]string, len(results))
	for i, r := range results {
		got[i] = r.Value()
	}
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Errorf("FindBySecondaryKey() mismatch (-want +got):\n%s", diff)
	}
}

func TestSecondaryIndexLoader_FindBySecondaryKeyEmpty(t *testing.T) {
	t.Parallel()

	loader := newTestLoader(t)
	idx := &index.FunctionsIndex[string, uint8]{
		GetFunc: func(ctx context.Context, sk string) ([]uint8, error) {
			return nil, nil
		},
	}

	sil := index.NewSecondaryIndexLoader[string, uint8, string](loader, idx)
	results, err := sil.FindBySecondaryKey(t.Context(), "empty")
	if err != nil {
		t.Fatalf("FindBySecondaryKey() error = %v", err)
	}
	if results != nil {
		t.Errorf("FindBySecondaryKey() = %v, want nil", results)
	}
}

func TestSecondaryIndexLoader_FindBySecondaryKeysSharesPrimaryLoads(t *testing.T) {
	t.Parallel()

	loader := newTestLoader(t)
	idx := &index.FunctionsIndex[string, uint8]{
		GetMultiFunc: func(ctx context.Context, sks []string) (map[string][]uint8, error) {
			return map[string][]uint8{
				"group1": {0, 1},
				"group2": {1, 2},
			}, nil
		},
	}

	sil := index.NewSecondaryIndexLoader[string, uint8, string](loader, idx)
	results, err := sil.FindBySecondaryKeys(t.Context(), []string{"group1", "group2"})
	if err != nil {
		t.Fatalf("FindBySecondaryKeys() error = %v", err)
	}

	if len(results["group1"]) != 2 {
		t.Errorf("group1 has %d results, want 2", len(results["group1"]))
	}
	if len(results["group2"]) != 2 {
		t.Errorf("group2 has %d results, want 2", len(results["group2"]))
	}
	if got := results["group2"][0].Value(); got != "b" {
		t.Errorf("group2[0] = %q, want %q (key 1 shared with group1)", got, "b")
	}
}
