package gossip

import (
	"sort"
	"sync"
)

// Store contains the local nodes versioned entries.
//
// An entry is only ever replaced by a value with a strictly greater version,
// so applying the same or older values again has no effect. Values are copied
// when added and returned so callers never alias the stored state.
//
// Store is safe for concurrent use.
type Store[V Versioned[V]] struct {
	entries map[string]V

	// mu protects the above fields.
	mu sync.RWMutex
}

// NewStore returns an empty store.
func NewStore[V Versioned[V]]() *Store[V] {
	return &Store[V]{
		entries: make(map[string]V),
	}
}

// Merge adds the value if the key is unknown or the stored version is older
// than the given value. Returns whether the value was stored.
func (s *Store[V]) Merge(key string, v V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.merge(key, v)
}

// Update computes a new value for the key from the existing value, if any,
// then merges it. The read and merge are atomic so concurrent updates to the
// same key cannot interleave.
//
// Returns the stored value and whether the computed value was accepted.
func (s *Store[V]) Update(key string, f func(existing V, ok bool) V) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entries[key]
	if ok {
		existing = existing.Copy()
	}
	updated := s.merge(key, f(existing, ok))
	return s.entries[key].Copy(), updated
}

// Get returns a copy of the value with the given key.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return v.Copy(), true
}

// Snapshot returns the version of each stored key.
func (s *Store[V]) Snapshot() VersionSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := make(VersionSummary, len(s.entries))
	for key, v := range s.entries {
		summary[key] = v.Version()
	}
	return summary
}

// Diff compares the stored entries with the given remote summary. See
// ComputeDiff.
func (s *Store[V]) Diff(remote VersionSummary) Diff[V] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ComputeDiff(s.entries, remote)
}

// Entries returns a copy of all entries sorted by key.
func (s *Store[V]) Entries() []Update[V] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Update[V], 0, len(s.entries))
	for key, v := range s.entries {
		entries = append(entries, Update[V]{Key: key, Value: v.Copy()})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})
	return entries
}

// Len returns the number of stored entries.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

func (s *Store[V]) merge(key string, v V) bool {
	existing, ok := s.entries[key]
	if ok && existing.Version() >= v.Version() {
		return false
	}
	s.entries[key] = v.Copy()
	return true
}
