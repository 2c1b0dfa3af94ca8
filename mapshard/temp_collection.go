package mapshard

import (
	"fmt"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/schemejs/storage/fdcache"
	"github.com/schemejs/storage/shard"
)

// TempCollection holds N independent TempMapShards over the same parent
// MapShard and round-robins inserts across them, reducing contention when
// many writers insert concurrently.
type TempCollection[S shard.Shard, C any] struct {
	counter atomic.Uint64
	temps   []*TempMapShard[S, C]
}

// NewTempCollection builds fanout independent TempMapShards, each at
// "<folder>/<prefix><n>/" so their own temp-shard files don't collide.
func NewTempCollection[S shard.Shard, C any](folder, prefix, ext string, fanout int, config C, parent *MapShard[S, C], factory Factory[S, C], fdc *fdcache.FDCache, log *zap.Logger) (*TempCollection[S, C], error) {
	tc := &TempCollection[S, C]{temps: make([]*TempMapShard[S, C], 0, fanout)}
	for i := 0; i < fanout; i++ {
		sub := filepath.Join(folder, fmt.Sprintf("%s%d", prefix, i))
		t, err := NewTempMapShard[S, C](sub, prefix, ext, config, parent, factory, fdc, log)
		if err != nil {
			return nil, err
		}
		tc.temps = append(tc.temps, t)
	}
	return tc, nil
}

// SetOnReconcile installs the same callback on every TempMapShard in the
// collection.
func (tc *TempCollection[S, C]) SetOnReconcile(cb OnReconcile) {
	for _, t := range tc.temps {
		t.SetOnReconcile(cb)
	}
}

// Insert picks the next TempMapShard via round robin and inserts into it.
func (tc *TempCollection[S, C]) Insert(data []byte) error {
	idx := tc.counter.Add(1) % uint64(len(tc.temps))
	return tc.temps[idx].Insert(data)
}

// ReconcileAll drains every TempMapShard in the collection.
func (tc *TempCollection[S, C]) ReconcileAll() error {
	for _, t := range tc.temps {
		if err := t.ReconcileAll(); err != nil {
			return err
		}
	}
	return nil
}

// Temps exposes the underlying buffers, mainly for tests.
func (tc *TempCollection[S, C]) Temps() []*TempMapShard[S, C] { return tc.temps }
