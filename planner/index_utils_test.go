package planner_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/schemejs/storage/planner"
	"github.com/schemejs/storage/schema"
)

func cond(key, value string) planner.Condition {
	return planner.Condition{Key: key, Value: schema.StringValue(value)}
}

func TestMatchesIndexFullMatch(t *testing.T) {
	decl := schema.Index{Name: "idx_first_name_and_email", Members: []string{"first_name", "email"}}
	condKeys := map[string]planner.Condition{
		"first_name": cond("first_name", "Juan"),
		"email":      cond("email", "some@email.com"),
	}
	require.True(t, planner.MatchesIndex(decl, condKeys))
}

func TestMatchesIndexPartialMatchNotAllowed(t *testing.T) {
	decl := schema.Index{Name: "idx_first_name_and_email", Members: []string{"first_name", "email"}}
	condKeys := map[string]planner.Condition{
		"first_name": cond("first_name", "Juan"),
	}
	require.False(t, planner.MatchesIndex(decl, condKeys))
}

func TestMatchesIndexSingleColumnMatch(t *testing.T) {
	decl := schema.Index{Name: "idx_email", Members: []string{"email"}}
	condKeys := map[string]planner.Condition{
		"first_name": cond("first_name", "Juan"),
		"email":      cond("email", "some@email.com"),
	}
	require.True(t, planner.MatchesIndex(decl, condKeys))
}

func TestMatchingIndexesMultipleMatches(t *testing.T) {
	idx1 := schema.Index{Name: "idx_first_name_and_email", Members: []string{"first_name", "email"}}
	idx2 := schema.Index{Name: "idx_email", Members: []string{"email"}}
	conds := []planner.Condition{cond("first_name", "Juan"), cond("email", "some@email.com")}

	matching := planner.MatchingIndexes(conds, []schema.Index{idx1, idx2})
	require.Equal(t, []schema.Index{idx1, idx2}, matching)
}

func TestMatchingIndexesNoMatches(t *testing.T) {
	idx1 := schema.Index{Name: "idx_first_name_and_email", Members: []string{"first_name", "email"}}
	idx2 := schema.Index{Name: "idx_email", Members: []string{"email"}}
	conds := []planner.Condition{cond("phone", "123456")}

	matching := planner.MatchingIndexes(conds, []schema.Index{idx1, idx2})
	require.Empty(t, matching)
}

func TestMatchingIndexesPartialKeyMatch(t *testing.T) {
	idx1 := schema.Index{Name: "idx_first_name_and_email", Members: []string{"first_name", "email"}}
	idx2 := schema.Index{Name: "idx_email", Members: []string{"email"}}
	conds := []planner.Condition{cond("email", "some@email.com")}

	matching := planner.MatchingIndexes(conds, []schema.Index{idx1, idx2})
	require.Equal(t, []schema.Index{idx2}, matching)
}

func TestCollectConditionsStrictAndQuery(t *testing.T) {
	idx1 := schema.Index{Name: "idx_first_name_and_email", Members: []string{"first_name", "email"}}
	idx2 := schema.Index{Name: "idx_email", Members: []string{"email"}}

	q := planner.And{cond("first_name", "Juan"), cond("email", "some@email.com")}
	conds, ok := planner.CollectConditions(q)
	require.True(t, ok)

	matching := planner.MatchingIndexes(conds, []schema.Index{idx1, idx2})
	require.Equal(t, []schema.Index{idx1, idx2}, matching)
}

func TestFindCoveringIndexPrefersTightestMatch(t *testing.T) {
	idx1 := schema.Index{Name: "idx_first_name", Members: []string{"first_name"}}
	idx2 := schema.Index{Name: "idx_first_name_and_email", Members: []string{"first_name", "email"}}

	conds := []planner.Condition{cond("first_name", "Juan"), cond("email", "some@email.com")}
	decl, key, found := planner.FindCoveringIndex(conds, []schema.Index{idx1, idx2})
	require.True(t, found)
	require.Equal(t, "idx_first_name_and_email", decl.Name)
	require.Equal(t, "first_name", key[0].Field)
	require.Equal(t, "email", key[1].Field)
}

func TestFindCoveringIndexExcludesSuperset(t *testing.T) {
	idx1 := schema.Index{Name: "idx_first_name_and_email", Members: []string{"first_name", "email"}}
	idx2 := schema.Index{Name: "idx_email", Members: []string{"email"}}

	conds := []planner.Condition{cond("email", "some@email.com")}
	decl, _, found := planner.FindCoveringIndex(conds, []schema.Index{idx1, idx2})
	require.True(t, found)
	require.Equal(t, "idx_email", decl.Name)
}

// TestCombinedAndOrQuery checks that each branch of an Or(And(...), Condition)
// tree resolves to its own covering index independently, since CollectConditions
// only flattens And branches and an Or is handled by recursing per child.
func TestCombinedAndOrQuery(t *testing.T) {
	idx1 := schema.Index{Name: "idx_first_name", Members: []string{"first_name"}}
	idx2 := schema.Index{Name: "idx_email", Members: []string{"email"}}
	idx3 := schema.Index{Name: "idx_last_name", Members: []string{"last_name"}}
	indexes := []schema.Index{idx1, idx2, idx3}

	q := planner.Or{
		planner.And{cond("first_name", "Juan"), cond("email", "some@email.com")},
		cond("last_name", "Doe"),
	}

	_, ok := planner.CollectConditions(q)
	require.False(t, ok, "an Or at the top cannot collapse into a single composite lookup")

	andConds, ok := planner.CollectConditions(q[0])
	require.True(t, ok)
	require.ElementsMatch(t, []schema.Index{idx1, idx2}, planner.MatchingIndexes(andConds, indexes))

	orConds, ok := planner.CollectConditions(q[1])
	require.True(t, ok)
	require.Equal(t, []schema.Index{idx3}, planner.MatchingIndexes(orConds, indexes))
}
