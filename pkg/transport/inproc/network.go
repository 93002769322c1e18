// Package inproc implements a gossip transport between engines in the same
// process, such as simulated clusters in tests.
package inproc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/andydunstall/epidemic/pkg/gossip"
)

// ErrUnreachable is returned when a node cannot be reached due to being
// unknown or partitioned.
var ErrUnreachable = errors.New("unreachable")

// Network routes SYN and ACK messages between registered receivers.
//
// Values are copied when crossing the network, so nodes never share stored
// state.
type Network[V gossip.Versioned[V]] struct {
	receivers   map[string]gossip.Receiver[V]
	partitioned map[string]struct{}

	// mu protects the above fields.
	mu sync.Mutex
}

func NewNetwork[V gossip.Versioned[V]]() *Network[V] {
	return &Network[V]{
		receivers:   make(map[string]gossip.Receiver[V]),
		partitioned: make(map[string]struct{}),
	}
}

// Register adds the receiver for the node with the given ID.
func (n *Network[V]) Register(id string, r gossip.Receiver[V]) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.receivers[id] = r
}

// Handler returns the handler used by the node with the given ID to send
// to its peers.
func (n *Network[V]) Handler(id string) gossip.Handler[V] {
	return &handler[V]{
		id:      id,
		network: n,
	}
}

// Partition isolates the node from the network, so it can neither send nor
// receive messages until healed.
func (n *Network[V]) Partition(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.partitioned[id] = struct{}{}
}

// Heal reconnects a partitioned node.
func (n *Network[V]) Heal(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.partitioned, id)
}

// route returns the receivers for the peers, or an error if any peer is
// unreachable from the sender.
func (n *Network[V]) route(from string, peers []gossip.Node) ([]gossip.Receiver[V], error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.partitioned[from]; ok {
		return nil, fmt.Errorf("%s: %w", from, ErrUnreachable)
	}

	receivers := make([]gossip.Receiver[V], 0, len(peers))
	for _, peer := range peers {
		r, ok := n.receivers[peer.ID]
		if !ok {
			return nil, fmt.Errorf("%s: %w", peer.ID, ErrUnreachable)
		}
		if _, ok := n.partitioned[peer.ID]; ok {
			return nil, fmt.Errorf("%s: %w", peer.ID, ErrUnreachable)
		}
		receivers = append(receivers, r)
	}
	return receivers, nil
}

type handler[V gossip.Versioned[V]] struct {
	id      string
	network *Network[V]
}

func (h *handler[V]) Syn(
	ctx context.Context,
	peers []gossip.Node,
	summary gossip.VersionSummary,
) (gossip.Diff[V], error) {
	if err := ctx.Err(); err != nil {
		return gossip.Diff[V]{}, err
	}

	receivers, err := h.network.route(h.id, peers)
	if err != nil {
		return gossip.Diff[V]{}, err
	}

	diffs := make([]gossip.Diff[V], 0, len(receivers))
	for _, r := range receivers {
		diff := r.ReceiveSyn(summary.Copy())
		diff.Changes = copyUpdates(diff.Changes)
		diffs = append(diffs, diff)
	}
	return gossip.CombineDiffs(diffs...), nil
}

func (h *handler[V]) Ack(
	ctx context.Context,
	peers []gossip.Node,
	updates []gossip.Update[V],
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	receivers, err := h.network.route(h.id, peers)
	if err != nil {
		return err
	}

	for _, r := range receivers {
		r.ReceiveAck(copyUpdates(updates))
	}
	return nil
}

func copyUpdates[V gossip.Versioned[V]](updates []gossip.Update[V]) []gossip.Update[V] {
	if updates == nil {
		return nil
	}
	copied := make([]gossip.Update[V], 0, len(updates))
	for _, u := range updates {
		copied = append(copied, gossip.Update[V]{
			Key:   u.Key,
			Value: u.Value.Copy(),
		})
	}
	return copied
}

