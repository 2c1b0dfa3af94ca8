package query

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schemejs/storage/errs"
	"github.com/schemejs/storage/fdcache"
	"github.com/schemejs/storage/schema"
	"github.com/schemejs/storage/schemajsconfig"
)

// internalUidColumn mirrors schema's implicit primary key column name; a row
// inserted without one is assigned a fresh Uuid.
const internalUidColumn = "_uid"

// QueryManager is the per-database registry of TableShards: the insertion
// entry point and the periodic reconciliation driver.
type QueryManager struct {
	scheme string
	root   string
	sizes  schemajsconfig.Sizes
	fdc    *fdcache.FDCache
	log    *zap.Logger

	mu     sync.RWMutex
	tables map[string]*TableShard
}

// NewQueryManager opens (and lazily creates) the on-disk layout
// "<dataRoot>/dbs/<scheme>/" for database scheme.
func NewQueryManager(dataRoot, scheme string, sizes schemajsconfig.Sizes, log *zap.Logger) (*QueryManager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	sizes = sizes.WithDefaults()
	fdc, err := fdcache.New(sizes.MaxFileDescriptors, log)
	if err != nil {
		return nil, fmt.Errorf("query_manager: %w", err)
	}
	return &QueryManager{
		scheme: scheme,
		root:   filepath.Join(dataRoot, "dbs", scheme),
		sizes:  sizes,
		fdc:    fdc,
		log:    log,
		tables: make(map[string]*TableShard),
	}, nil
}

// RegisterTable creates (or reopens) the on-disk TableShard for table and
// installs it in the registry.
func (qm *QueryManager) RegisterTable(table *schema.Table) error {
	qm.mu.Lock()
	defer qm.mu.Unlock()

	ts, err := NewTableShard(filepath.Join(qm.root, table.Name), table, qm.sizes, qm.fdc, qm.log)
	if err != nil {
		return fmt.Errorf("query_manager: register %s: %w", table.Name, err)
	}
	qm.tables[table.Name] = ts
	return nil
}

// GetTable returns a table's schema, if registered.
func (qm *QueryManager) GetTable(name string) (*schema.Table, bool) {
	ts, ok := qm.getTableShard(name)
	if !ok {
		return nil, false
	}
	return ts.Table(), true
}

func (qm *QueryManager) getTableShard(name string) (*TableShard, bool) {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	ts, ok := qm.tables[name]
	return ts, ok
}

// Insert ensures row's _uid is set (generating one if absent), serializes
// it, and routes it to the buffered temps path (forceMain=false) or writes
// it directly with synchronous index population (forceMain=true, the
// bootstrap path for seeding a row that must be immediately queryable).
func (qm *QueryManager) Insert(tableName string, row schema.Row, forceMain bool) (uuid.UUID, error) {
	ts, ok := qm.getTableShard(tableName)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: %s", errs.ErrInvalidTable, tableName)
	}

	id, err := ensureUid(row)
	if err != nil {
		return uuid.Nil, err
	}

	data, err := row.Serialize()
	if err != nil {
		return uuid.Nil, err
	}

	if forceMain {
		if err := ts.InsertDirect(row, data); err != nil {
			return uuid.Nil, err
		}
		return id, nil
	}

	if err := ts.InsertBuffered(data); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func ensureUid(row schema.Row) (uuid.UUID, error) {
	existing, ok := row.GetValue(internalUidColumn)
	if ok && !existing.IsNull() {
		if id, ok := existing.AsUuid(); ok {
			return id, nil
		}
	}
	id := uuid.New()
	row.SetValue(internalUidColumn, schema.UuidValue(id))
	return id, nil
}

// ReconcileAll drains every registered table's temps into its data MapShard.
func (qm *QueryManager) ReconcileAll() error {
	qm.mu.RLock()
	tables := make([]*TableShard, 0, len(qm.tables))
	for _, ts := range qm.tables {
		tables = append(tables, ts)
	}
	qm.mu.RUnlock()

	for _, ts := range tables {
		if err := ts.ReconcileAll(); err != nil {
			return err
		}
	}
	return nil
}

// StartReconciler spawns a goroutine calling ReconcileAll every interval
// (250ms is the recommended cadence). The returned func stops the
// goroutine; it does not interrupt an in-flight reconciliation.
func (qm *QueryManager) StartReconciler(ctx context.Context, interval time.Duration) func() {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := qm.ReconcileAll(); err != nil {
					qm.log.Warn("reconcile_all failed", zap.Error(err))
				}
			}
		}
	}()
	return cancel
}

// TableShardFor exposes the underlying TableShard, mainly for the planner
// package and tests.
func (qm *QueryManager) TableShardFor(name string) (*TableShard, bool) {
	return qm.getTableShard(name)
}
