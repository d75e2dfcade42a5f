package groupby

import (
	"strconv"
	"strings"
)

// GroupKey is the rendered form of a record's group-by fields, in the order
// the positions were declared. Two records share a group iff their keys are
// element-wise equal.
type GroupKey []string

// String returns a readable form for logging
func (k GroupKey) String() string {
	return "[" + strings.Join(k, " ") + "]"
}

// Equal reports whether two keys are element-wise equal
func (k GroupKey) Equal(other GroupKey) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// DeriveKey renders the fields at positions, in order, into a GroupKey.
// It fails on the first position the record cannot supply.
func DeriveKey(rec Record, positions []int) (GroupKey, int, error) {
	key := make(GroupKey, len(positions))
	for i, pos := range positions {
		s, err := rec.Render(pos)
		if err != nil {
			return nil, pos, err
		}
		key[i] = s
	}
	return key, -1, nil
}

// encodeKey flattens a key into a map key. Each element is length-prefixed
// so ["a|b"] and ["a", "b"] stay distinct.
func encodeKey(k GroupKey) string {
	if len(k) == 1 {
		return k[0]
	}
	var b strings.Builder
	for _, s := range k {
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteByte(':')
		b.WriteString(s)
	}
	return b.String()
}
