package gossip

import (
	"sort"
)

// VersionSummary maps each key to the version a node holds for that key.
type VersionSummary map[string]int64

// Keys returns the keys in the summary sorted.
func (s VersionSummary) Keys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Copy returns a copy of the summary.
func (s VersionSummary) Copy() VersionSummary {
	c := make(VersionSummary, len(s))
	for key, version := range s {
		c[key] = version
	}
	return c
}

// Update is a key-value pair sent between nodes.
type Update[V any] struct {
	Key   string `json:"key" codec:"key"`
	Value V      `json:"value" codec:"value"`
}

// Diff is the result of comparing a nodes entries against a peers version
// summary.
type Diff[V any] struct {
	// Needs contains the keys the comparing node is missing or holds a stale
	// version of.
	Needs []string `json:"needs" codec:"needs"`

	// Changes contains the entries the comparing node holds a newer or
	// exclusive version of.
	Changes []Update[V] `json:"changes" codec:"changes"`
}

// Empty returns whether the diff contains no needs or changes.
func (d Diff[V]) Empty() bool {
	return len(d.Needs) == 0 && len(d.Changes) == 0
}

// ComputeDiff compares the local entries with the remote version summary.
//
// Keys where the remote version is greater are added to Needs, as are keys
// only the remote has. Keys where the local version is greater, or which only
// the local side has, are added to Changes with a copy of the local value.
// Keys at equal versions are omitted. Neither argument is modified.
//
// Both lists are sorted by key.
func ComputeDiff[V Versioned[V]](local map[string]V, remote VersionSummary) Diff[V] {
	keys := make([]string, 0, len(local))
	for key := range local {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	// unseen contains the remote keys not held locally.
	unseen := remote.Copy()

	var diff Diff[V]
	for _, key := range keys {
		v := local[key]
		remoteVersion, ok := remote[key]
		if !ok {
			diff.Changes = append(diff.Changes, Update[V]{Key: key, Value: v.Copy()})
			continue
		}
		delete(unseen, key)

		if remoteVersion > v.Version() {
			diff.Needs = append(diff.Needs, key)
		} else if remoteVersion < v.Version() {
			diff.Changes = append(diff.Changes, Update[V]{Key: key, Value: v.Copy()})
		}
	}

	diff.Needs = append(diff.Needs, unseen.Keys()...)
	sort.Strings(diff.Needs)

	return diff
}

// CombineDiffs combines the diffs returned by multiple peers for the same
// summary.
//
// Needs are deduplicated, and where multiple peers return a change for the
// same key only the highest version is kept.
func CombineDiffs[V Versioned[V]](diffs ...Diff[V]) Diff[V] {
	if len(diffs) == 1 {
		return diffs[0]
	}

	needs := make(map[string]struct{})
	changes := make(map[string]V)
	for _, diff := range diffs {
		for _, key := range diff.Needs {
			needs[key] = struct{}{}
		}
		for _, change := range diff.Changes {
			existing, ok := changes[change.Key]
			if !ok || existing.Version() < change.Value.Version() {
				changes[change.Key] = change.Value
			}
		}
	}

	var combined Diff[V]
	for key := range needs {
		combined.Needs = append(combined.Needs, key)
	}
	sort.Strings(combined.Needs)

	for key, v := range changes {
		combined.Changes = append(combined.Changes, Update[V]{Key: key, Value: v})
	}
	sort.Slice(combined.Changes, func(i, j int) bool {
		return combined.Changes[i].Key < combined.Changes[j].Key
	})

	return combined
}
