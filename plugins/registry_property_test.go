package plugins

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"pgregory.net/rapid"

	"github.com/BaSui01/plugstore/persistence"
	"github.com/BaSui01/plugstore/types"
)

func TestProperty_GetAllOrderedByCreatedAt(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)
	properties.Property("GetAll is newest first and holds every record", prop.ForAll(
		func(stamps []int64) bool {
			r := NewRegistry(persistence.NewMemoryStore(), newTestService(), Config{}, nil)
			for i, ts := range stamps {
				if _, err := r.Create(context.Background(), types.Plugin{ID: fmt.Sprintf("p%d", i), CreatedAt: ts}); err != nil {
					t.Logf("create failed: %v", err)
					return false
				}
			}
			all := r.GetAll()
			if len(all) != len(stamps)+4 {
				return false
			}
			for i := 1; i < len(all); i++ {
				if all[i-1].CreatedAt < all[i].CreatedAt {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(1, 1<<40)),
	))

	properties.TestingRun(t)
}

func TestProperty_GetAsToolsCountsOperations(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		r := NewRegistry(persistence.NewMemoryStore(), newTestService(), Config{}, nil)
		ctx := context.Background()

		pluginCount := rapid.IntRange(0, 5).Draw(rt, "plugins")
		opsByID := make(map[string]int, pluginCount)
		for i := 0; i < pluginCount; i++ {
			n := rapid.IntRange(0, 4).Draw(rt, fmt.Sprintf("ops%d", i))
			names := make([]string, n)
			for j := range names {
				names[j] = fmt.Sprintf("p%dop%d", i, j)
			}
			id := fmt.Sprintf("plugin-%d", i)
			if _, err := r.Create(ctx, types.Plugin{ID: id, Content: apiDocument(id, "1", "https://x.example", names...)}); err != nil {
				rt.Fatalf("create: %v", err)
			}
			opsByID[id] = n
		}

		ids := rapid.SliceOf(rapid.SampledFrom([]string{"plugin-0", "plugin-1", "plugin-2", "plugin-3", "plugin-4", "unknown"})).Draw(rt, "ids")
		want := 0
		distinct := make(map[string]bool)
		for _, id := range ids {
			want += opsByID[id]
			distinct[id] = true
		}
		wantFuncs := 0
		for id := range distinct {
			wantFuncs += opsByID[id]
		}

		set := r.GetAsTools(ids)
		if len(set.Tools) != want {
			rt.Fatalf("tools: got %d, want %d", len(set.Tools), want)
		}
		if len(set.Funcs) != wantFuncs {
			rt.Fatalf("funcs: got %d, want %d", len(set.Funcs), wantFuncs)
		}
	})
}
