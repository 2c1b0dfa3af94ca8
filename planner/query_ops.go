// Package planner resolves a boolean predicate tree over a table into a set
// of row pointers by finding index-covering sub-queries and combining
// pointer sets. Equality is the only supported operator, matching the only
// operator HashIndex exports.
package planner

import "github.com/schemejs/storage/schema"

// QueryOps is the predicate-tree grammar:
//
//	QueryOps ::= Condition { key, "=", value }
//	           | And(list of QueryOps)
//	           | Or(list of QueryOps)
type QueryOps interface {
	isQueryOps()
}

// Condition is a single equality predicate against one column.
type Condition struct {
	Key   string
	Value schema.DataValue
}

func (Condition) isQueryOps() {}

// And requires every child to match.
type And []QueryOps

func (And) isQueryOps() {}

// Or requires at least one child to match.
type Or []QueryOps

func (Or) isQueryOps() {}
