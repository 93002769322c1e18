package gossip

// Versioned is the capability required of values stored and gossiped.
//
// Version must strictly increase with each independent update at the values
// origin. Copy must return a value that shares no mutable state with the
// original, since values are copied whenever they cross a Store or transport
// boundary.
type Versioned[V any] interface {
	Version() int64
	Copy() V
}
