// Package gossip implements anti-entropy reconciliation between nodes that
// each hold a partial, independently updated replica of a key-value dataset.
//
// Each value carries a version. A gossip round selects a random peer, sends
// it a summary of the local versions (SYN), merges the newer values the peer
// returns and then sends the peer the values it asked for (ACK). Conflicts
// are resolved by keeping the value with the highest version, so replicas
// converge regardless of the order rounds run in.
//
// The package does not carry messages itself. A Handler performs the SYN and
// ACK exchanges over some transport, and on the responding side the transport
// passes the request to a Receiver (usually the peers Engine).
package gossip
