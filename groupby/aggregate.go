package groupby

import (
	"fmt"
	"iter"
	"strings"
)

// Entry is one group of an Aggregate
type Entry[V any] struct {
	Key   GroupKey
	Value V
}

// Aggregate maps group keys to accumulated values. Iteration follows the
// order in which each key was first seen in the source, not lexical or hash
// order.
//
// The dense entries slice carries the order; index maps an encoded key to
// its slot. Once returned from a terminal call an Aggregate has no writers,
// and accessors hand out copies of keys and, through clone, of values that
// share memory with the table.
type Aggregate[V any] struct {
	entries []Entry[V]
	index   map[string]int
	clone   func(V) V
}

func newAggregate[V any]() *Aggregate[V] {
	return &Aggregate[V]{index: make(map[string]int)}
}

// find returns the slot of an encoded key
func (a *Aggregate[V]) find(enc string) (int, bool) {
	i, ok := a.index[enc]
	return i, ok
}

// insert appends a new group; enc must not already be present.
func (a *Aggregate[V]) insert(enc string, key GroupKey, value V) {
	a.index[enc] = len(a.entries)
	a.entries = append(a.entries, Entry[V]{Key: key, Value: value})
}

// value returns the i-th value, copied when the accumulator shares memory
func (a *Aggregate[V]) value(i int) V {
	if a.clone == nil {
		return a.entries[i].Value
	}
	return a.clone(a.entries[i].Value)
}

// Len returns the number of distinct groups
func (a *Aggregate[V]) Len() int {
	return len(a.entries)
}

// Get returns the value for key
func (a *Aggregate[V]) Get(key GroupKey) (V, bool) {
	i, ok := a.index[encodeKey(key)]
	if !ok || !a.entries[i].Key.Equal(key) {
		var zero V
		return zero, false
	}
	return a.value(i), true
}

// Lookup is Get for callers holding the key fields as separate strings
func (a *Aggregate[V]) Lookup(fields ...string) (V, bool) {
	return a.Get(GroupKey(fields))
}

// At returns the i-th group in first-seen order
func (a *Aggregate[V]) At(i int) Entry[V] {
	return Entry[V]{Key: cloneKey(a.entries[i].Key), Value: a.value(i)}
}

// Keys returns the group keys in first-seen order
func (a *Aggregate[V]) Keys() []GroupKey {
	keys := make([]GroupKey, len(a.entries))
	for i, e := range a.entries {
		keys[i] = cloneKey(e.Key)
	}
	return keys
}

// Entries returns a copy of all groups in first-seen order
func (a *Aggregate[V]) Entries() []Entry[V] {
	out := make([]Entry[V], len(a.entries))
	for i := range a.entries {
		out[i] = a.At(i)
	}
	return out
}

// All iterates groups in first-seen order
func (a *Aggregate[V]) All() iter.Seq2[GroupKey, V] {
	return func(yield func(GroupKey, V) bool) {
		for i, e := range a.entries {
			if !yield(cloneKey(e.Key), a.value(i)) {
				return
			}
		}
	}
}

// String returns a compact representation for logging
func (a *Aggregate[V]) String() string {
	var b strings.Builder
	b.WriteString("Aggregate{")
	for i, e := range a.entries {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", e.Key, e.Value)
	}
	b.WriteString("}")
	return b.String()
}

func cloneKey(k GroupKey) GroupKey {
	if k == nil {
		return nil
	}
	out := make(GroupKey, len(k))
	copy(out, k)
	return out
}
