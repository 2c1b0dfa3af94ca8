// Package index implements composite-key construction and the KvShard-backed
// HashIndex: a sorted array of SHA-256 key → row-pointer entries supporting
// binary search and bubble-sort-maintained insertion order.
package index

// Pair is one (field, stringified_value) member of a CompositeKey.
type Pair struct {
	Field string
	Value string
}

// CompositeKey is an ordered sequence of (field, stringified_value) pairs,
// built in an index's declared member order.
type CompositeKey []Pair

// NullStringValue is the stringified form of a null member in a
// CompositeKey.
const NullStringValue = "0"
