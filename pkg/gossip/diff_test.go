package gossip

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeDiff(t *testing.T) {
	t.Run("empty local", func(t *testing.T) {
		diff := ComputeDiff(map[string]testValue{}, VersionSummary{
			"b": 4,
			"a": 2,
		})
		assert.Equal(t, []string{"a", "b"}, diff.Needs)
		assert.Empty(t, diff.Changes)
	})

	t.Run("empty remote", func(t *testing.T) {
		diff := ComputeDiff(map[string]testValue{
			"b": val("vb", 1),
			"a": val("va", 3),
		}, VersionSummary{})
		assert.Empty(t, diff.Needs)
		assert.Equal(t, []Update[testValue]{
			{Key: "a", Value: val("va", 3)},
			{Key: "b", Value: val("vb", 1)},
		}, diff.Changes)
	})

	t.Run("both empty", func(t *testing.T) {
		diff := ComputeDiff(map[string]testValue{}, VersionSummary{})
		assert.True(t, diff.Empty())
	})

	t.Run("shared keys", func(t *testing.T) {
		diff := ComputeDiff(map[string]testValue{
			"stale":     val("v1", 1),
			"ahead":     val("v5", 5),
			"converged": val("v3", 3),
		}, VersionSummary{
			"stale":     2,
			"ahead":     4,
			"converged": 3,
		})
		assert.Equal(t, []string{"stale"}, diff.Needs)
		assert.Equal(t, []Update[testValue]{
			{Key: "ahead", Value: val("v5", 5)},
		}, diff.Changes)
	})

	t.Run("exclusive keys", func(t *testing.T) {
		diff := ComputeDiff(map[string]testValue{
			"local": val("v", 1),
		}, VersionSummary{
			"remote": 1,
		})
		assert.Equal(t, []string{"remote"}, diff.Needs)
		assert.Equal(t, []Update[testValue]{
			{Key: "local", Value: val("v", 1)},
		}, diff.Changes)
	})

	t.Run("summary unmodified", func(t *testing.T) {
		summary := VersionSummary{"a": 1, "b": 2}
		ComputeDiff(map[string]testValue{
			"a": val("v", 1),
		}, summary)
		assert.Equal(t, VersionSummary{"a": 1, "b": 2}, summary)
	})

	t.Run("changes are copies", func(t *testing.T) {
		local := map[string]testValue{
			"a": {Data: "v", Tags: []string{"t1"}, Ver: 1},
		}
		diff := ComputeDiff(local, VersionSummary{})
		diff.Changes[0].Value.Tags[0] = "modified"
		assert.Equal(t, "t1", local["a"].Tags[0])
	})

	// Node B holds {x@2, y@1} and compares against node A's summary {x:1}.
	t.Run("responder ahead", func(t *testing.T) {
		diff := ComputeDiff(map[string]testValue{
			"x": val("v1", 2),
			"y": val("v2", 1),
		}, VersionSummary{"x": 1})
		assert.Empty(t, diff.Needs)
		assert.Equal(t, []Update[testValue]{
			{Key: "x", Value: val("v1", 2)},
			{Key: "y", Value: val("v2", 1)},
		}, diff.Changes)
	})

	// Tests every key in exactly one side appears in exactly one list, and
	// shared keys follow the version comparison.
	t.Run("random", func(t *testing.T) {
		rng := rand.New(rand.NewSource(1))
		for i := 0; i != 100; i++ {
			local := make(map[string]testValue)
			remote := make(VersionSummary)
			for k := 0; k != 20; k++ {
				key := fmt.Sprintf("k%d", k)
				switch rng.Intn(4) {
				case 0:
					local[key] = val("v", rng.Int63n(5))
				case 1:
					remote[key] = rng.Int63n(5)
				case 2:
					local[key] = val("v", rng.Int63n(5))
					remote[key] = rng.Int63n(5)
				}
			}

			diff := ComputeDiff(local, remote)

			needs := make(map[string]int)
			for _, key := range diff.Needs {
				needs[key]++
			}
			changes := make(map[string]int)
			for _, change := range diff.Changes {
				changes[change.Key]++
			}

			for key, v := range local {
				rv, ok := remote[key]
				switch {
				case !ok:
					assert.Equal(t, 1, changes[key])
					assert.Equal(t, 0, needs[key])
				case rv > v.Ver:
					assert.Equal(t, 1, needs[key])
					assert.Equal(t, 0, changes[key])
				case rv < v.Ver:
					assert.Equal(t, 1, changes[key])
					assert.Equal(t, 0, needs[key])
				default:
					assert.Equal(t, 0, changes[key])
					assert.Equal(t, 0, needs[key])
				}
			}
			for key := range remote {
				if _, ok := local[key]; !ok {
					assert.Equal(t, 1, needs[key])
					assert.Equal(t, 0, changes[key])
				}
			}
		}
	})
}

func TestCombineDiffs(t *testing.T) {
	t.Run("single", func(t *testing.T) {
		diff := Diff[testValue]{
			Needs:   []string{"a"},
			Changes: []Update[testValue]{{Key: "b", Value: val("v", 1)}},
		}
		assert.Equal(t, diff, CombineDiffs(diff))
	})

	t.Run("multiple", func(t *testing.T) {
		combined := CombineDiffs(
			Diff[testValue]{
				Needs: []string{"c", "a"},
				Changes: []Update[testValue]{
					{Key: "x", Value: val("old", 1)},
					{Key: "y", Value: val("y", 2)},
				},
			},
			Diff[testValue]{
				Needs: []string{"a", "b"},
				Changes: []Update[testValue]{
					{Key: "x", Value: val("new", 3)},
				},
			},
		)
		assert.Equal(t, []string{"a", "b", "c"}, combined.Needs)
		assert.Equal(t, []Update[testValue]{
			{Key: "x", Value: val("new", 3)},
			{Key: "y", Value: val("y", 2)},
		}, combined.Changes)
	})
}
