package gossip

import (
	"math/rand"
	"sync"
	"time"
)

// PeerSelector chooses the nodes to gossip with in a round.
type PeerSelector interface {
	// Select returns the peers to gossip with from the candidates, never
	// including excluding. Returns ErrNoPeersAvailable if there are no
	// candidates other than excluding.
	Select(candidates []Node, excluding Node) ([]Node, error)
}

// RandomSelector selects a uniform random sample of peers without
// replacement.
type RandomSelector struct {
	size int

	rng *rand.Rand
	// mu protects rng, which isn't safe for concurrent use.
	mu sync.Mutex
}

// NewRandomSelector returns a selector that samples up to size peers using
// the given random source. If rng is nil a time seeded source is used. A
// size less than 1 selects a single peer.
func NewRandomSelector(size int, rng *rand.Rand) *RandomSelector {
	if size < 1 {
		size = 1
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RandomSelector{
		size: size,
		rng:  rng,
	}
}

func (s *RandomSelector) Select(candidates []Node, excluding Node) ([]Node, error) {
	var eligible []Node
	for _, node := range candidates {
		if node.Equal(excluding) {
			continue
		}
		eligible = append(eligible, node)
	}
	if len(eligible) == 0 {
		return nil, ErrNoPeersAvailable
	}

	n := s.size
	if n > len(eligible) {
		n = len(eligible)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Partial Fisher-Yates shuffle, so the first n entries are a uniform
	// sample.
	for i := 0; i != n; i++ {
		j := i + s.rng.Intn(len(eligible)-i)
		eligible[i], eligible[j] = eligible[j], eligible[i]
	}
	return eligible[:n], nil
}

var _ PeerSelector = &RandomSelector{}
