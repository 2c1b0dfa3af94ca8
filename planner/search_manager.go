package planner

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/schemejs/storage/errs"
	"github.com/schemejs/storage/index"
	"github.com/schemejs/storage/query"
	"github.com/schemejs/storage/schema"
)

// SearchManager resolves QueryOps trees against a QueryManager's registered
// tables.
type SearchManager struct {
	qm *query.QueryManager
}

// NewSearchManager builds a SearchManager over qm.
func NewSearchManager(qm *query.QueryManager) *SearchManager {
	return &SearchManager{qm: qm}
}

// Search executes q against table, returning the matching rows in
// implementation-defined order (the underlying pointer set has no inherent
// order; callers must not assume one).
func (sm *SearchManager) Search(tableName string, q QueryOps) ([]schema.Row, error) {
	ts, ok := sm.qm.TableShardFor(tableName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidTable, tableName)
	}

	pointers, err := sm.execute(q, ts)
	if err != nil {
		return nil, err
	}

	rows := make([]schema.Row, 0, pointers.GetCardinality())
	it := pointers.Iterator()
	for it.HasNext() {
		ptr := it.Next()
		raw, err := ts.ReadCurrent(ptr)
		if err != nil {
			return nil, fmt.Errorf("search_manager: read row %d: %w", ptr, err)
		}
		row, err := schema.DeserializeJSONRow(ts.Table(), raw)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// execute resolves q to a set of row pointers. It first tries a single
// covering-index lookup over the whole tree's conditions (when q contains no
// Or anywhere, per CollectConditions); otherwise it recurses, intersecting
// AND branches and unioning OR branches.
func (sm *SearchManager) execute(q QueryOps, ts *query.TableShard) (*roaring64.Bitmap, error) {
	if conds, ok := CollectConditions(q); ok {
		if decl, key, found := FindCoveringIndex(conds, ts.Table().Indexes); found {
			return sm.lookupSet(ts, decl.Name, key)
		}
	}

	switch t := q.(type) {
	case Condition:
		decl, found := FindSingleColumnIndex(t.Key, ts.Table().Indexes)
		if !found {
			// This core requires an index to serve equality filters; no
			// scan fallback.
			return roaring64.New(), nil
		}
		return sm.lookupSet(ts, decl.Name, index.CompositeKey{{Field: t.Key, Value: t.Value.ToString()}})
	case And:
		var result *roaring64.Bitmap
		for _, child := range t {
			set, err := sm.execute(child, ts)
			if err != nil {
				return nil, err
			}
			if result == nil {
				result = set
				continue
			}
			result.And(set)
		}
		if result == nil {
			result = roaring64.New()
		}
		return result, nil
	case Or:
		result := roaring64.New()
		for _, child := range t {
			set, err := sm.execute(child, ts)
			if err != nil {
				return nil, err
			}
			result.Or(set)
		}
		return result, nil
	default:
		return roaring64.New(), nil
	}
}

func (sm *SearchManager) lookupSet(ts *query.TableShard, indexName string, key index.CompositeKey) (*roaring64.Bitmap, error) {
	hi, ok := ts.Index(indexName)
	bm := roaring64.New()
	if !ok {
		return bm, nil
	}
	if ptr, found := hi.Lookup(index.NewIndexKey(key)); found {
		bm.Add(ptr)
	}
	return bm, nil
}
