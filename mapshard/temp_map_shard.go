package mapshard

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schemejs/storage/fdcache"
	"github.com/schemejs/storage/shard"
)

// OnReconcile is fired once per record as it lands in the parent MapShard
// during reconciliation, receiving the record's bytes and its new pointer.
type OnReconcile func(record []byte, pointer uint64) error

// TempMapShard is a write-buffer in front of one parent MapShard. It holds a
// growable list of small shards; when none has room, the most recently
// appended one is reconciled into the parent before a fresh one is
// allocated.
type TempMapShard[S shard.Shard, C any] struct {
	mu     sync.Mutex
	folder string
	prefix string
	ext    string
	config C

	parent  *MapShard[S, C]
	fdc     *fdcache.FDCache
	factory Factory[S, C]
	log     *zap.Logger

	shards      []S
	onReconcile OnReconcile
}

// NewTempMapShard builds an (initially empty) temp buffer over parent.
func NewTempMapShard[S shard.Shard, C any](folder, prefix, ext string, config C, parent *MapShard[S, C], factory Factory[S, C], fdc *fdcache.FDCache, log *zap.Logger) (*TempMapShard[S, C], error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("tempmapshard: mkdir %s: %w", folder, err)
	}
	return &TempMapShard[S, C]{
		folder:  folder,
		prefix:  prefix,
		ext:     ext,
		config:  config,
		parent:  parent,
		fdc:     fdc,
		factory: factory,
		log:     log,
	}, nil
}

// SetOnReconcile installs the per-row callback fired during reconciliation.
func (t *TempMapShard[S, C]) SetOnReconcile(cb OnReconcile) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReconcile = cb
}

func (t *TempMapShard[S, C]) createShardLocked() (S, error) {
	var zero S
	id := uuid.New()
	path := filepath.Join(t.folder, fmt.Sprintf("%s%s.%s", t.prefix, id.String(), t.ext))
	fb, err := t.fdc.Acquire(path)
	if err != nil {
		return zero, fmt.Errorf("tempmapshard: acquire %s: %w", path, err)
	}
	return t.factory(path, t.config, id, fb)
}

// Insert appends data to a temp shard with available space, reconciling the
// most recently created temp shard first (and allocating a fresh one) if
// every existing shard is full.
func (t *TempMapShard[S, C]) Insert(data []byte) error {
	t.mu.Lock()

	shardIndex := -1
	for i, s := range t.shards {
		if s.HasSpace() {
			shardIndex = i
			break
		}
	}

	if shardIndex < 0 {
		if len(t.shards) > 0 {
			if err := t.reconcileIndexLocked(len(t.shards) - 1); err != nil {
				t.mu.Unlock()
				return err
			}
		}
		newShard, err := t.createShardLocked()
		if err != nil {
			t.mu.Unlock()
			return err
		}
		t.shards = append(t.shards, newShard)
		shardIndex = len(t.shards) - 1
	}

	target := t.shards[shardIndex]
	t.mu.Unlock()

	_, err := target.InsertItem(data)
	return err
}

// reconcileIndexLocked drains shards[i] into the parent MapShard, firing the
// callback per row, then removes it from the list. Caller must hold t.mu.
func (t *TempMapShard[S, C]) reconcileIndexLocked(i int) error {
	from := t.shards[i]
	last := from.LastIndex()
	for idx := int64(0); idx <= last; idx++ {
		record, err := from.ReadItemAt(uint64(idx))
		if err != nil {
			return fmt.Errorf("tempmapshard: reconcile read %s[%d]: %w", from.Path(), idx, err)
		}
		pointer, err := t.parent.Insert(record)
		if err != nil {
			// Leave the temp shard intact for a later retry; no data is
			// dropped.
			return fmt.Errorf("tempmapshard: reconcile insert: %w", err)
		}
		if t.onReconcile != nil {
			if err := t.onReconcile(record, pointer); err != nil {
				t.log.Warn("on_reconcile callback failed", zap.String("path", from.Path()), zap.Error(err))
			}
		}
	}
	t.shards = append(t.shards[:i], t.shards[i+1:]...)
	return nil
}

// ReconcileAll drains every temp shard into the parent.
func (t *TempMapShard[S, C]) ReconcileAll() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for len(t.shards) > 0 {
		if err := t.reconcileIndexLocked(len(t.shards) - 1); err != nil {
			return err
		}
	}
	return nil
}

// ReconcileLast reconciles only the most recently appended temp shard, if
// any exist.
func (t *TempMapShard[S, C]) ReconcileLast() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.shards) == 0 {
		return nil
	}
	return t.reconcileIndexLocked(len(t.shards) - 1)
}

// Shards returns a snapshot of the current temp-shard list (for tests).
func (t *TempMapShard[S, C]) Shards() []S {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]S, len(t.shards))
	copy(out, t.shards)
	return out
}
