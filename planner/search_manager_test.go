package planner_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/schemejs/storage/planner"
	"github.com/schemejs/storage/query"
	"github.com/schemejs/storage/schema"
	"github.com/schemejs/storage/schemajsconfig"
)

func usersTable() *schema.Table {
	t := schema.NewTable("users")
	t.AddColumn(schema.NewColumn("user_id", schema.DataTypeNumber))
	t.AddColumn(schema.NewColumn("user_name", schema.DataTypeString))
	t.AddColumn(schema.NewColumn("user_country", schema.DataTypeString))
	t.AddColumn(schema.NewColumn("user_age", schema.DataTypeNumber))
	t.AddColumn(schema.NewColumn("user_email", schema.DataTypeString))

	for _, col := range []string{"user_id", "user_name", "user_country", "user_age"} {
		t.AddIndex(schema.Index{Name: col + "_idx", Members: []string{col}, Kind: schema.IndexKindHash})
	}
	t.AddIndex(schema.Index{
		Name:    "age_country_idx",
		Members: []string{"user_age", "user_country"},
		Kind:    schema.IndexKindHash,
	})
	return t
}

type userRow struct {
	id      float64
	name    string
	country string
	age     float64
}

func seedUsers(t *testing.T, qm *query.QueryManager) {
	t.Helper()
	rows := []userRow{
		{id: 1, name: "andreespirela", country: "US", age: 20},
		{id: 2, name: "Veronica", age: 21},
		{id: 3, name: "superman", age: 21},
		{id: 4, name: "Luis", age: 19},
		{id: 5, name: "Flash", age: 22},
		{id: 6, name: "Door", country: "AR", age: 22},
	}
	table, ok := qm.GetTable("users")
	require.True(t, ok)

	for _, r := range rows {
		row := schema.NewJSONRow(table)
		row.SetValue("user_id", schema.NumberValue(r.id))
		row.SetValue("user_name", schema.StringValue(r.name))
		row.SetValue("user_age", schema.NumberValue(r.age))
		if r.country != "" {
			row.SetValue("user_country", schema.StringValue(r.country))
		}
		_, err := qm.Insert("users", row, false)
		require.NoError(t, err)
	}
	require.NoError(t, qm.ReconcileAll())
}

func testSizes() schemajsconfig.Sizes {
	return schemajsconfig.Sizes{
		MainShardCapacity:      1000,
		TempShardCapacity:      4,
		TempFanout:             2,
		HashIndexShardCapacity: 1000,
		MaxFileDescriptors:     64,
	}
}

// TestHashIndexSearchOrAnd covers an OR of an AND over a composite index and
// a single-column index, checking that the union picks up matches from
// both branches and nothing else.
func TestHashIndexSearchOrAnd(t *testing.T) {
	dir := t.TempDir()
	qm, err := query.NewQueryManager(dir, "testdb", testSizes(), nil)
	require.NoError(t, err)
	require.NoError(t, qm.RegisterTable(usersTable()))
	seedUsers(t, qm)

	sm := planner.NewSearchManager(qm)
	q := planner.Or{
		planner.And{
			planner.Condition{Key: "user_age", Value: schema.NumberValue(22)},
			planner.Condition{Key: "user_country", Value: schema.StringValue("AR")},
		},
		planner.Condition{Key: "user_name", Value: schema.StringValue("Luis")},
	}

	rows, err := sm.Search("users", q)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	names := map[string]bool{}
	for _, r := range rows {
		v, ok := r.GetValue("user_name")
		require.True(t, ok)
		s, _ := v.AsString()
		names[s] = true
	}
	require.True(t, names["Door"])
	require.True(t, names["Luis"])
}

// TestIndexRequiredEquality checks that an equality condition on a column
// with no declared index returns an empty result rather than scanning.
func TestIndexRequiredEquality(t *testing.T) {
	dir := t.TempDir()
	qm, err := query.NewQueryManager(dir, "testdb", testSizes(), nil)
	require.NoError(t, err)
	require.NoError(t, qm.RegisterTable(usersTable()))
	seedUsers(t, qm)

	sm := planner.NewSearchManager(qm)
	rows, err := sm.Search("users", planner.Condition{Key: "user_email", Value: schema.StringValue("x")})
	require.NoError(t, err)
	require.Empty(t, rows)
}

// TestPersistenceAcrossRestart checks that a second QueryManager opened
// against the same data root can immediately serve a query over rows
// inserted and reconciled by an earlier instance.
func TestPersistenceAcrossRestart(t *testing.T) {
	dir := t.TempDir()

	qm, err := query.NewQueryManager(dir, "testdb", testSizes(), nil)
	require.NoError(t, err)
	require.NoError(t, qm.RegisterTable(usersTable()))
	seedUsers(t, qm)

	qm2, err := query.NewQueryManager(dir, "testdb", testSizes(), nil)
	require.NoError(t, err)
	require.NoError(t, qm2.RegisterTable(usersTable()))

	sm := planner.NewSearchManager(qm2)
	rows, err := sm.Search("users", planner.Condition{Key: "user_name", Value: schema.StringValue("Luis")})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	v, ok := rows[0].GetValue("user_name")
	require.True(t, ok)
	s, _ := v.AsString()
	require.Equal(t, "Luis", s)
}
