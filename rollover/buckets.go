package rollover

import "github.com/arthur-debert/rollover/types"

// OmniKey is the bucket key of matches found under always-roll roots
const OmniKey = "omni"

// Match is one discovered task together with its remembered parent.
// Matches are built fresh on every run and never persisted.
type Match struct {
	Node *types.Node

	// Parent is the nearest enclosing non-task ancestor at discovery
	// time, or nil when the task sits directly under the walk root
	Parent *types.Node

	Completed bool
}

// Buckets groups matches by source day (the container Timestamp) or OmniKey.
// Keys and the matches within each key keep insertion order.
type Buckets struct {
	keys    []string
	entries map[string][]Match
}

// NewBuckets returns an empty bucket set
func NewBuckets() *Buckets {
	return &Buckets{entries: make(map[string][]Match)}
}

// Add appends a match to the bucket, creating it on first use
func (b *Buckets) Add(key string, m Match) {
	if _, ok := b.entries[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.entries[key] = append(b.entries[key], m)
}

// Keys returns the bucket keys in insertion order
func (b *Buckets) Keys() []string {
	out := make([]string, len(b.keys))
	copy(out, b.keys)
	return out
}

// Get returns the matches of a bucket in discovery order
func (b *Buckets) Get(key string) []Match {
	return b.entries[key]
}

// Len returns the number of buckets
func (b *Buckets) Len() int {
	return len(b.keys)
}

// Unfinished returns the number of unfinished matches across all buckets
func (b *Buckets) Unfinished() int {
	n := 0
	for _, key := range b.keys {
		for _, m := range b.entries[key] {
			if !m.Completed {
				n++
			}
		}
	}
	return n
}

// partition splits a bucket into unfinished and completed matches
func partition(matches []Match) (unfinished, completed []Match) {
	for _, m := range matches {
		if m.Completed {
			completed = append(completed, m)
		} else {
			unfinished = append(unfinished, m)
		}
	}
	return unfinished, completed
}

// rolledSet remembers ancestors materialized during the current run
type rolledSet map[types.NodeID]struct{}

func (s rolledSet) has(n *types.Node) bool {
	if n == nil {
		return false
	}
	_, ok := s[n.ID]
	return ok
}

func (s rolledSet) add(n *types.Node) {
	if n != nil {
		s[n.ID] = struct{}{}
	}
}
