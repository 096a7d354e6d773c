// Package xiter iterates maps in a fixed order. Anything that reaches
// serialized output must go through it rather than range over a map.
package xiter

import (
	"cmp"
	"iter"
	"maps"
	"slices"
)

// SortedKeys yields the keys of m in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) iter.Seq[K] {
	return slices.Values(slices.Sorted(maps.Keys(m)))
}

// Sorted yields the entries of m in ascending key order.
func Sorted[K cmp.Ordered, V any](m map[K]V) iter.Seq2[K, V] {
	keys := slices.Sorted(maps.Keys(m))
	return func(yield func(K, V) bool) {
		for _, k := range keys {
			if !yield(k, m[k]) {
				return
			}
		}
	}
}

// Permuted rebuilds m, inserting entries in the given order of its sorted
// keys. order must be a permutation of [0, len(m)).
func Permuted[K cmp.Ordered, V any](m map[K]V, order []int) map[K]V {
	if m == nil {
		return nil
	}
	keys := slices.Sorted(maps.Keys(m))
	out := make(map[K]V, len(m))
	for _, i := range order {
		out[keys[i]] = m[keys[i]]
	}
	return out
}
