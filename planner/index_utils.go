package planner

import (
	"github.com/schemejs/storage/index"
	"github.com/schemejs/storage/schema"
)

// CollectConditions flattens q into its leaf Conditions if that is possible
// without losing AND/OR structure: a Condition yields itself; an And yields
// the concatenation of its children's conditions only if every child itself
// yields conditions; an Or never can be merged into a single composite
// lookup and yields ok=false.
func CollectConditions(q QueryOps) (conds []Condition, ok bool) {
	switch t := q.(type) {
	case Condition:
		return []Condition{t}, true
	case And:
		var all []Condition
		for _, child := range t {
			childConds, childOk := CollectConditions(child)
			if !childOk {
				return nil, false
			}
			all = append(all, childConds...)
		}
		return all, true
	case Or:
		return nil, false
	default:
		return nil, false
	}
}

// conditionKeySet builds the set of column names appearing in conds, plus a
// lookup from column name to its condition (conditions are assumed to cover
// distinct columns, matching how composite indexes are declared).
func conditionKeySet(conds []Condition) map[string]Condition {
	set := make(map[string]Condition, len(conds))
	for _, c := range conds {
		set[c.Key] = c
	}
	return set
}

// MatchesIndex reports whether decl's members are all present in condKeys,
// meaning decl is "covered" by the available conditions. Partial coverage
// (decl has a member with no matching condition) does not match.
func MatchesIndex(decl schema.Index, condKeys map[string]Condition) bool {
	if len(decl.Members) == 0 {
		return false
	}
	for _, m := range decl.Members {
		if _, ok := condKeys[m]; !ok {
			return false
		}
	}
	return true
}

// MatchingIndexes returns every declared index whose members are a subset of
// the condition keys.
func MatchingIndexes(conds []Condition, indexes []schema.Index) []schema.Index {
	condKeys := conditionKeySet(conds)
	var out []schema.Index
	for _, decl := range indexes {
		if MatchesIndex(decl, condKeys) {
			out = append(out, decl)
		}
	}
	return out
}

// FindCoveringIndex returns the declared index, among those whose members
// are a subset of conds' keys, with the most members (the tightest match),
// plus the CompositeKey built in that index's declared member order. Ties
// keep the first declared index.
func FindCoveringIndex(conds []Condition, indexes []schema.Index) (schema.Index, index.CompositeKey, bool) {
	matches := MatchingIndexes(conds, indexes)
	if len(matches) == 0 {
		return schema.Index{}, nil, false
	}

	best := matches[0]
	for _, m := range matches[1:] {
		if len(m.Members) > len(best.Members) {
			best = m
		}
	}

	condKeys := conditionKeySet(conds)
	key := make(index.CompositeKey, 0, len(best.Members))
	for _, m := range best.Members {
		key = append(key, index.Pair{Field: m, Value: condKeys[m].Value.ToString()})
	}
	return best, key, true
}

// FindSingleColumnIndex returns the (first) declared index whose sole member
// equals column, used by SearchManager.execute's per-Condition fallback when no full
// covering index is found.
func FindSingleColumnIndex(column string, indexes []schema.Index) (schema.Index, bool) {
	for _, decl := range indexes {
		if len(decl.Members) == 1 && decl.Members[0] == column {
			return decl, true
		}
	}
	return schema.Index{}, false
}
