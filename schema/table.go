package schema

// IndexKind identifies a secondary index's implementation. Only Hash is
// implemented by this core.
type IndexKind int

const (
	IndexKindHash IndexKind = iota
)

// Index is a declared secondary index: an ordered sequence of member column
// names that together form its composite key.
type Index struct {
	Name    string
	Members []string
	Kind    IndexKind
}

const internalUidColumn = "_uid"
const internalUidIndex = "uidindx"

// Table binds a name to a set of columns and declared indexes. Every table
// implicitly carries a "_uid" Uuid primary-key column and a default Hash
// index "uidindx" over it. Internal marks tables (such as an auth/user
// table) that a bootstrap routine wires up outside the normal registration
// path; the storage and query layers themselves don't treat it specially.
type Table struct {
	Name       string
	Columns    map[string]Column
	Indexes    []Index
	PrimaryKey string
	Internal   bool
}

// NewTable builds a Table carrying only the implicit _uid column and index.
func NewTable(name string) *Table {
	return &Table{
		Name:       name,
		Columns:    map[string]Column{internalUidColumn: internalUidColumnDef()},
		Indexes:    []Index{internalUidIndexDef()},
		PrimaryKey: internalUidColumn,
	}
}

// SetInternal marks the table internal, returning the table for chaining.
func (t *Table) SetInternal(v bool) *Table {
	t.Internal = v
	return t
}

func internalUidColumnDef() Column {
	return NewColumn(internalUidColumn, DataTypeUuid).SetRequired(true).SetPrimaryKey(true)
}

func internalUidIndexDef() Index {
	return Index{Name: internalUidIndex, Members: []string{internalUidColumn}, Kind: IndexKindHash}
}

// AddColumn registers column on the table, returning the table for
// chaining. A column marked PrimaryKey replaces the table's primary key,
// but only the first time (a second primary-key column is a caller error;
// the first declared one is kept).
func (t *Table) AddColumn(c Column) *Table {
	if c.PrimaryKey && t.PrimaryKey == internalUidColumn {
		t.PrimaryKey = c.Name
	}
	t.Columns[c.Name] = c
	return t
}

// AddIndex registers an additional secondary index.
func (t *Table) AddIndex(idx Index) *Table {
	t.Indexes = append(t.Indexes, idx)
	return t
}

// GetColumn looks up a column by name.
func (t *Table) GetColumn(name string) (Column, bool) {
	c, ok := t.Columns[name]
	return c, ok
}

// ListColumns returns every declared column name.
func (t *Table) ListColumns() []string {
	names := make([]string, 0, len(t.Columns))
	for name := range t.Columns {
		names = append(names, name)
	}
	return names
}
