package gossip

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNodes(n int) []Node {
	var nodes []Node
	for i := 0; i != n; i++ {
		nodes = append(nodes, Node{ID: fmt.Sprintf("node-%d", i+1)})
	}
	return NewNodes(nodes...)
}

func TestRandomSelector(t *testing.T) {
	t.Run("excludes local", func(t *testing.T) {
		nodes := testNodes(2)
		selector := NewRandomSelector(1, rand.New(rand.NewSource(1)))

		for i := 0; i != 100; i++ {
			peers, err := selector.Select(nodes, nodes[0])
			require.NoError(t, err)
			assert.Equal(t, []Node{nodes[1]}, peers)
		}
	})

	t.Run("no candidates", func(t *testing.T) {
		selector := NewRandomSelector(1, nil)

		_, err := selector.Select(nil, Node{ID: "node-1"})
		assert.ErrorIs(t, err, ErrNoPeersAvailable)
	})

	t.Run("only local", func(t *testing.T) {
		nodes := testNodes(1)
		selector := NewRandomSelector(1, nil)

		_, err := selector.Select(nodes, nodes[0])
		assert.ErrorIs(t, err, ErrNoPeersAvailable)
	})

	t.Run("sample size", func(t *testing.T) {
		nodes := testNodes(10)
		selector := NewRandomSelector(3, rand.New(rand.NewSource(1)))

		for i := 0; i != 100; i++ {
			peers, err := selector.Select(nodes, nodes[0])
			require.NoError(t, err)
			assert.Len(t, peers, 3)

			seen := make(map[string]struct{})
			for _, peer := range peers {
				assert.NotEqual(t, nodes[0].ID, peer.ID)
				_, ok := seen[peer.ID]
				assert.False(t, ok, "duplicate peer %s", peer.ID)
				seen[peer.ID] = struct{}{}
			}
		}
	})

	t.Run("sample larger than available", func(t *testing.T) {
		nodes := testNodes(3)
		selector := NewRandomSelector(5, nil)

		peers, err := selector.Select(nodes, nodes[0])
		require.NoError(t, err)
		assert.ElementsMatch(t, nodes[1:], peers)
	})

	t.Run("candidates unmodified", func(t *testing.T) {
		nodes := testNodes(5)
		expected := testNodes(5)
		selector := NewRandomSelector(2, rand.New(rand.NewSource(1)))

		for i := 0; i != 10; i++ {
			_, err := selector.Select(nodes, nodes[0])
			require.NoError(t, err)
		}
		assert.Equal(t, expected, nodes)
	})

	t.Run("deterministic", func(t *testing.T) {
		nodes := testNodes(10)
		selectorA := NewRandomSelector(2, rand.New(rand.NewSource(42)))
		selectorB := NewRandomSelector(2, rand.New(rand.NewSource(42)))

		for i := 0; i != 10; i++ {
			peersA, err := selectorA.Select(nodes, nodes[0])
			require.NoError(t, err)
			peersB, err := selectorB.Select(nodes, nodes[0])
			require.NoError(t, err)
			assert.Equal(t, peersA, peersB)
		}
	})

	t.Run("uniform", func(t *testing.T) {
		nodes := testNodes(5)
		selector := NewRandomSelector(1, rand.New(rand.NewSource(1)))

		counts := make(map[string]int)
		for i := 0; i != 4000; i++ {
			peers, err := selector.Select(nodes, nodes[0])
			require.NoError(t, err)
			counts[peers[0].ID]++
		}
		assert.Len(t, counts, 4)
		for _, count := range counts {
			assert.InDelta(t, 1000, count, 150)
		}
	})
}
