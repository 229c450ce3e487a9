// Package params expands parameter spaces into concrete bindings.
//
// A parameter space maps each key to the ordered list of values it may take.
// Expanding it produces every combination of one value per key:
//
//	a: [1, 2]
//	b: [3, 4]
//
// becomes
//
//	{a: 1, b: 3}, {a: 1, b: 4}, {a: 2, b: 3}, {a: 2, b: 4}
package params

import (
	"sort"
	"strings"
)

// Binding is one concrete assignment of a value to every key of a
// parameter space.
type Binding map[string]string

// Keys returns the binding's keys in sorted order.
func (b Binding) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy of the binding.
func (b Binding) Clone() Binding {
	c := make(Binding, len(b))
	for k, v := range b {
		c[k] = v
	}
	return c
}

// String renders the binding as {k1: v1, k2: v2} in key order.
func (b Binding) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, k := range b.Keys() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(b[k])
	}
	sb.WriteString("}")
	return sb.String()
}

// Cross returns the Cartesian product of the per-key value lists.
//
// Keys are processed in sorted order. For each key, every binding built so
// far is extended with each of the key's values in their original order, so
// earlier keys vary slowest. An empty space yields a single empty binding; a
// key with no values yields no bindings at all.
func Cross(space map[string][]string) []Binding {
	keys := make([]string, 0, len(space))
	for k := range space {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []Binding{{}}
	for _, key := range keys {
		values := space[key]
		next := make([]Binding, 0, len(result)*len(values))
		for _, partial := range result {
			for _, value := range values {
				b := partial.Clone()
				b[key] = value
				next = append(next, b)
			}
		}
		result = next
	}

	return result
}
