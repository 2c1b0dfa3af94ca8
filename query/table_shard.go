// Package query binds table schemas to storage (TableShard) and exposes the
// per-database registry and insertion entry point (QueryManager).
package query

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schemejs/storage/errs"
	"github.com/schemejs/storage/fdcache"
	"github.com/schemejs/storage/index"
	"github.com/schemejs/storage/mapshard"
	"github.com/schemejs/storage/schema"
	"github.com/schemejs/storage/schemajsconfig"
	"github.com/schemejs/storage/shard"
)

func dataShardFactory(path string, config shard.DataShardConfig, id uuid.UUID, fb *fdcache.FileBacking) (*shard.DataShard, error) {
	return shard.NewDataShard(path, config, id, fb)
}

// TableShard owns, for one table: row storage (a MapShard<DataShard>), a
// buffered write front-end (TempCollection<DataShard>), and one HashIndex
// per declared secondary index.
type TableShard struct {
	table   *schema.Table
	data    *mapshard.MapShard[*shard.DataShard, shard.DataShardConfig]
	temps   *mapshard.TempCollection[*shard.DataShard, shard.DataShardConfig]
	indexes map[string]*index.HashIndex
	log     *zap.Logger
}

// NewTableShard lays out "<root>/data_*.data", "<root>/temps/", and
// "<root>/indx/" for table, and installs the reconcile callback that
// populates every declared index as records drain from temps into data.
func NewTableShard(root string, table *schema.Table, sizes schemajsconfig.Sizes, fdc *fdcache.FDCache, log *zap.Logger) (*TableShard, error) {
	if log == nil {
		log = zap.NewNop()
	}
	sizes = sizes.WithDefaults()

	dataConfig := shard.DataShardConfig{MaxOffsets: sizes.MainShardCapacity}
	data, err := mapshard.New(root, "data_", "data", dataConfig, dataShardFactory, fdc, log)
	if err != nil {
		return nil, fmt.Errorf("table_shard: data: %w", err)
	}

	tempsFolder := filepath.Join(root, "temps")
	tempConfig := shard.DataShardConfig{MaxOffsets: sizes.TempShardCapacity}
	temps, err := mapshard.NewTempCollection(tempsFolder, "temp_", "data", sizes.TempFanout, tempConfig, data, dataShardFactory, fdc, log)
	if err != nil {
		return nil, fmt.Errorf("table_shard: temps: %w", err)
	}

	ts := &TableShard{table: table, data: data, temps: temps, indexes: make(map[string]*index.HashIndex), log: log}

	indexFolder := filepath.Join(root, "indx")
	for _, decl := range table.Indexes {
		hi, err := index.NewHashIndex(indexFolder, decl.Name, sizes.HashIndexShardCapacity, fdc, log)
		if err != nil {
			return nil, fmt.Errorf("table_shard: index %s: %w", decl.Name, err)
		}
		ts.indexes[decl.Name] = hi
	}

	temps.SetOnReconcile(ts.onReconcile)
	return ts, nil
}

// onReconcile is fired once per row as it lands in data during
// reconciliation. It deserializes the row and, for every declared index
// whose members are not all null, derives the composite key and inserts
// into that index.
func (ts *TableShard) onReconcile(record []byte, pointer uint64) error {
	row, err := schema.DeserializeJSONRow(ts.table, record)
	if err != nil {
		return fmt.Errorf("table_shard: reconcile deserialize: %w", err)
	}
	return ts.indexRow(row, pointer)
}

func (ts *TableShard) indexRow(row schema.Row, pointer uint64) error {
	for _, decl := range ts.table.Indexes {
		hi, ok := ts.indexes[decl.Name]
		if !ok {
			continue
		}
		key, canIndex := ts.compositeKey(row, decl)
		if !canIndex {
			continue
		}
		if err := hi.Insert(index.NewIndexKey(key), pointer); err != nil {
			return fmt.Errorf("table_shard: index %s: %w", decl.Name, err)
		}
	}
	return nil
}

// compositeKey builds the (member, stringified_value) pairs for decl in its
// declared member order. canIndex is true only if at least one member value
// is non-null; every member still contributes a pair (null stringifies to
// "0") once that threshold is met.
func (ts *TableShard) compositeKey(row schema.Row, decl schema.Index) (index.CompositeKey, bool) {
	key := make(index.CompositeKey, 0, len(decl.Members))
	canIndex := false
	for _, member := range decl.Members {
		val, ok := row.GetValue(member)
		if !ok {
			val = schema.NullValue()
		}
		if !val.IsNull() {
			canIndex = true
		}
		key = append(key, index.Pair{Field: member, Value: val.ToString()})
	}
	return key, canIndex
}

// InsertBuffered routes data through the TempCollection (the default,
// buffered write path).
func (ts *TableShard) InsertBuffered(data []byte) error {
	if err := ts.temps.Insert(data); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidInsertion, err)
	}
	return nil
}

// InsertDirect writes data straight to the main MapShard and synchronously
// populates indexes, bypassing temps entirely. Used by bootstrap paths that
// need the row immediately queryable.
func (ts *TableShard) InsertDirect(row schema.Row, data []byte) error {
	pointer, err := ts.data.Insert(data)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidInsertion, err)
	}
	return ts.indexRow(row, pointer)
}

// ReconcileAll drains every temp shard into data.
func (ts *TableShard) ReconcileAll() error {
	return ts.temps.ReconcileAll()
}

// Table returns the bound schema.
func (ts *TableShard) Table() *schema.Table { return ts.table }

// Index looks up a declared index by name.
func (ts *TableShard) Index(name string) (*index.HashIndex, bool) {
	hi, ok := ts.indexes[name]
	return hi, ok
}

// ReadCurrent reads row bytes at pointer from data's current shard (pointers
// from HashIndex lookups are always into the current shard).
func (ts *TableShard) ReadCurrent(pointer uint64) ([]byte, error) {
	return ts.data.ReadCurrent(pointer)
}
