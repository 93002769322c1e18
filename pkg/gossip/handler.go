package gossip

import (
	"context"
)

// Handler carries the SYN and ACK exchanges of a gossip round to the
// selected peers.
//
// Implementations own the transport, including encoding, timeouts and
// retries. They must copy values when delivering them so nodes never share
// stored state.
type Handler[V Versioned[V]] interface {
	// Syn sends the summary to the peers. Each peer must compute its Diff
	// against its own entries (see Receiver.ReceiveSyn), and the combined
	// result is returned.
	Syn(ctx context.Context, peers []Node, summary VersionSummary) (Diff[V], error)

	// Ack delivers the updates the peers declared they need, so they can
	// merge them into their own entries (see Receiver.ReceiveAck).
	Ack(ctx context.Context, peers []Node, updates []Update[V]) error
}

// Receiver handles the responding side of a gossip round. Transports pass
// incoming SYN and ACK messages to the Receiver of the addressed node.
type Receiver[V Versioned[V]] interface {
	// ReceiveSyn returns the diff of the local entries against the
	// initiators summary.
	ReceiveSyn(summary VersionSummary) Diff[V]

	// ReceiveAck merges the updates sent by the initiator.
	ReceiveAck(updates []Update[V])
}
