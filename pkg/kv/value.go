// Package kv is a versioned string value replicated by gossip.
package kv

import (
	"github.com/andydunstall/epidemic/pkg/gossip"
)

// Value is a versioned blob of data.
type Value struct {
	Data string `json:"data" codec:"data"`
	// Revision increases on every local write to the key.
	Revision int64 `json:"revision" codec:"revision"`
}

func (v Value) Version() int64 {
	return v.Revision
}

func (v Value) Copy() Value {
	return v
}

// Put writes data to the key with the next revision. The revision is
// computed and merged atomically so concurrent puts to the same key each get
// a distinct revision.
func Put(store *gossip.Store[Value], key string, data string) Value {
	v, _ := store.Update(key, func(existing Value, _ bool) Value {
		return Value{
			Data:     data,
			Revision: existing.Revision + 1,
		}
	})
	return v
}

var _ gossip.Versioned[Value] = Value{}
