package gossip

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/andydunstall/epidemic/pkg/log"
)

// Engine runs gossip rounds between the local node and its peers, and
// answers the rounds initiated by peers.
//
// The engine exclusively owns its Store. Other nodes only ever see the
// entries through the Handler and Receiver boundary.
type Engine[V Versioned[V]] struct {
	local Node
	nodes []Node

	// mu protects the above fields.
	mu sync.Mutex

	store *Store[V]

	handler  Handler[V]
	selector PeerSelector

	// roundMu serializes rounds initiated by this engine.
	roundMu sync.Mutex

	metrics *Metrics

	logger log.Logger
}

// NewEngine creates an engine for the local node with the given seed nodes.
// The seeds may include the local node, which is never selected as a peer.
func NewEngine[V Versioned[V]](
	local Node,
	seeds []Node,
	handler Handler[V],
	opts ...Option,
) *Engine[V] {
	options := options{
		fanout: 1,
		logger: log.NewNopLogger(),
	}
	for _, o := range opts {
		o.apply(&options)
	}

	selector := options.selector
	if selector == nil {
		selector = NewRandomSelector(options.fanout, options.rng)
	}

	local.State = NodeStateOn

	store := NewStore[V]()
	return &Engine[V]{
		local:    local,
		nodes:    NewNodes(seeds...),
		store:    store,
		handler:  handler,
		selector: selector,
		metrics: newMetrics(func() float64 {
			return float64(store.Len())
		}),
		logger: options.logger.WithSubsystem("gossip"),
	}
}

// Round runs a single gossip round with peers chosen by the selector.
//
// If there are no peers, returns ErrNoPeersAvailable without modifying the
// store. If the SYN exchange fails a *GossipError is returned and the store
// is unmodified. If the ACK exchange fails a *GossipError is returned though
// changes received in the SYN exchange remain merged.
func (e *Engine[V]) Round(ctx context.Context) error {
	e.roundMu.Lock()
	defer e.roundMu.Unlock()

	peers, err := e.selector.Select(e.Nodes(), e.local)
	if err != nil {
		e.metrics.Rounds.WithLabelValues("no_peers").Inc()
		return err
	}
	peerIDs := nodeIDs(peers)

	diff, err := e.handler.Syn(ctx, peers, e.store.Snapshot())
	if err != nil {
		e.metrics.Rounds.WithLabelValues("syn_failed").Inc()
		return &GossipError{Phase: PhaseSyn, Peers: peerIDs, Err: err}
	}

	merged := e.merge(diff.Changes)

	updates := e.resolve(diff.Needs)

	e.logger.Debug(
		"gossip round",
		zap.Strings("peers", peerIDs),
		zap.Int("changes", len(diff.Changes)),
		zap.Int("merged", merged),
		zap.Int("needs", len(diff.Needs)),
		zap.Int("updates", len(updates)),
	)

	if err := e.handler.Ack(ctx, peers, updates); err != nil {
		e.metrics.Rounds.WithLabelValues("ack_failed").Inc()
		return &GossipError{Phase: PhaseAck, Peers: peerIDs, Err: err}
	}
	e.metrics.UpdatesAcked.Add(float64(len(updates)))
	e.metrics.Rounds.WithLabelValues("ok").Inc()

	return nil
}

// ReceiveSyn returns the diff of the local store against the initiators
// summary.
func (e *Engine[V]) ReceiveSyn(summary VersionSummary) Diff[V] {
	return e.store.Diff(summary)
}

// ReceiveAck merges the updates sent by the initiator.
func (e *Engine[V]) ReceiveAck(updates []Update[V]) {
	merged := e.merge(updates)

	e.logger.Debug(
		"received ack",
		zap.Int("updates", len(updates)),
		zap.Int("merged", merged),
	)
}

// Store returns the local store.
func (e *Engine[V]) Store() *Store[V] {
	return e.store
}

// LocalNode returns the local node.
func (e *Engine[V]) LocalNode() Node {
	return e.local
}

// Nodes returns a copy of the known nodes.
func (e *Engine[V]) Nodes() []Node {
	e.mu.Lock()
	defer e.mu.Unlock()

	nodes := make([]Node, len(e.nodes))
	copy(nodes, e.nodes)
	return nodes
}

// AddNode adds a discovered node, or updates the address and state of a
// known node.
func (e *Engine[V]) AddNode(node Node) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if node.State == "" {
		node.State = NodeStateOn
	}

	for i, n := range e.nodes {
		if n.Equal(node) {
			e.nodes[i].Addr = node.Addr
			e.nodes[i].State = node.State
			return
		}
	}

	node.Seed = false
	e.nodes = append(e.nodes, node)

	e.logger.Info("discovered node", zap.String("node-id", node.ID))
}

// SetNodeState updates the liveness of the node with the given ID. Returns
// false if the node is unknown.
func (e *Engine[V]) SetNodeState(id string, state NodeState) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, n := range e.nodes {
		if n.ID == id {
			e.nodes[i].State = state
			return true
		}
	}
	return false
}

func (e *Engine[V]) Metrics() *Metrics {
	return e.metrics
}

func (e *Engine[V]) merge(updates []Update[V]) int {
	merged := 0
	for _, update := range updates {
		if e.store.Merge(update.Key, update.Value) {
			merged++
		}
	}

	e.metrics.ChangesMerged.Add(float64(merged))
	e.metrics.ChangesDiscarded.Add(float64(len(updates) - merged))

	return merged
}

// resolve looks up the needed keys in the local store. Keys that aren't
// found are skipped.
func (e *Engine[V]) resolve(needs []string) []Update[V] {
	var updates []Update[V]
	for _, key := range needs {
		v, ok := e.store.Get(key)
		if !ok {
			e.metrics.NeedsMissing.Inc()
			continue
		}
		updates = append(updates, Update[V]{Key: key, Value: v})
	}
	e.metrics.Needs.Add(float64(len(needs)))
	return updates
}
