package gossip

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Merge(t *testing.T) {
	t.Run("insert", func(t *testing.T) {
		s := NewStore[testValue]()
		assert.True(t, s.Merge("k", val("v1", 1)))

		v, ok := s.Get("k")
		require.True(t, ok)
		assert.Equal(t, val("v1", 1), v)
	})

	t.Run("newer replaces", func(t *testing.T) {
		s := NewStore[testValue]()
		s.Merge("k", val("v1", 1))
		assert.True(t, s.Merge("k", val("v2", 2)))

		v, _ := s.Get("k")
		assert.Equal(t, val("v2", 2), v)
	})

	t.Run("tie keeps existing", func(t *testing.T) {
		s := NewStore[testValue]()
		s.Merge("k", val("v1", 2))
		assert.False(t, s.Merge("k", val("other", 2)))

		v, _ := s.Get("k")
		assert.Equal(t, val("v1", 2), v)
	})

	t.Run("older discarded", func(t *testing.T) {
		s := NewStore[testValue]()
		s.Merge("k", val("v2", 2))
		assert.False(t, s.Merge("k", val("v1", 1)))

		v, _ := s.Get("k")
		assert.Equal(t, val("v2", 2), v)
	})

	t.Run("idempotent", func(t *testing.T) {
		changes := []Update[testValue]{
			{Key: "a", Value: val("a", 3)},
			{Key: "b", Value: val("b", 1)},
			{Key: "a", Value: val("a-old", 2)},
		}

		once := NewStore[testValue]()
		twice := NewStore[testValue]()
		for _, c := range changes {
			once.Merge(c.Key, c.Value)
			twice.Merge(c.Key, c.Value)
		}
		for _, c := range changes {
			twice.Merge(c.Key, c.Value)
		}

		assert.Equal(t, once.Entries(), twice.Entries())
	})

	t.Run("monotonic", func(t *testing.T) {
		s := NewStore[testValue]()
		rng := rand.New(rand.NewSource(1))
		var last int64 = -1
		for i := 0; i != 1000; i++ {
			v := val("v", rng.Int63n(100))
			s.Merge("k", v)

			stored, ok := s.Get("k")
			require.True(t, ok)
			assert.GreaterOrEqual(t, stored.Version(), v.Version())
			assert.GreaterOrEqual(t, stored.Version(), last)
			last = stored.Version()
		}
	})

	t.Run("copies values", func(t *testing.T) {
		s := NewStore[testValue]()
		v := testValue{Data: "v", Tags: []string{"t1"}, Ver: 1}
		s.Merge("k", v)

		// Neither the merged value nor a returned value alias the store.
		v.Tags[0] = "modified"
		got, _ := s.Get("k")
		assert.Equal(t, "t1", got.Tags[0])

		got.Tags[0] = "modified"
		got, _ = s.Get("k")
		assert.Equal(t, "t1", got.Tags[0])
	})
}

func TestStore_Update(t *testing.T) {
	t.Run("bump version", func(t *testing.T) {
		s := NewStore[testValue]()
		bump := func(data string) func(testValue, bool) testValue {
			return func(existing testValue, ok bool) testValue {
				return val(data, existing.Ver+1)
			}
		}

		v, ok := s.Update("k", bump("v1"))
		assert.True(t, ok)
		assert.Equal(t, val("v1", 1), v)

		v, ok = s.Update("k", bump("v2"))
		assert.True(t, ok)
		assert.Equal(t, val("v2", 2), v)
	})

	t.Run("rejected", func(t *testing.T) {
		s := NewStore[testValue]()
		s.Merge("k", val("v1", 5))

		v, ok := s.Update("k", func(_ testValue, _ bool) testValue {
			return val("stale", 1)
		})
		assert.False(t, ok)
		assert.Equal(t, val("v1", 5), v)
	})

	t.Run("concurrent", func(t *testing.T) {
		s := NewStore[testValue]()

		var wg sync.WaitGroup
		for i := 0; i != 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j != 100; j++ {
					s.Update("k", func(existing testValue, _ bool) testValue {
						return val("v", existing.Ver+1)
					})
				}
			}()
		}
		wg.Wait()

		v, _ := s.Get("k")
		assert.Equal(t, int64(1000), v.Version())
	})
}

func TestStore_Snapshot(t *testing.T) {
	s := NewStore[testValue]()
	assert.Equal(t, VersionSummary{}, s.Snapshot())

	s.Merge("a", val("a", 4))
	s.Merge("b", val("b", 7))

	summary := s.Snapshot()
	assert.Equal(t, VersionSummary{"a": 4, "b": 7}, summary)

	// Modifying the summary doesn't affect the store.
	summary["a"] = 100
	assert.Equal(t, VersionSummary{"a": 4, "b": 7}, s.Snapshot())
	assert.Equal(t, 2, s.Len())
}

func TestStore_Get(t *testing.T) {
	s := NewStore[testValue]()
	_, ok := s.Get("missing")
	assert.False(t, ok)
}

func TestStore_Entries(t *testing.T) {
	s := NewStore[testValue]()
	s.Merge("b", val("b", 1))
	s.Merge("a", val("a", 2))

	assert.Equal(t, []Update[testValue]{
		{Key: "a", Value: val("a", 2)},
		{Key: "b", Value: val("b", 1)},
	}, s.Entries())
}
