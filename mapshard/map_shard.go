// Package mapshard implements the ordered-sequence-of-shards abstraction
// (MapShard), the write-buffering layer in front of it (TempMapShard), and
// the round-robin fan-out across several of those buffers (TempCollection).
package mapshard

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schemejs/storage/fdcache"
	"github.com/schemejs/storage/shard"
)

// Factory opens or creates a shard of kind S at path using config, id, and an
// already-acquired FileBacking.
type Factory[S shard.Shard, C any] func(path string, config C, id uuid.UUID, fb *fdcache.FileBacking) (S, error)

func (m *MapShard[S, C]) open(path string, id uuid.UUID) (S, error) {
	var zero S
	fb, err := m.fdc.Acquire(path)
	if err != nil {
		return zero, fmt.Errorf("mapshard: acquire %s: %w", path, err)
	}
	return m.factory(path, m.config, id, fb)
}

// MapShard is an ordered sequence of shards of one kind sharing a filename
// prefix in one directory. Exactly one shard (current) accepts writes; the
// rest (past) are immutable as far as this type is concerned.
type MapShard[S shard.Shard, C any] struct {
	mu      sync.RWMutex
	folder  string
	prefix  string
	config  C
	factory Factory[S, C]
	fdc     *fdcache.FDCache
	log     *zap.Logger

	current S
	seq     uint64
	past    map[string]S // keyed by shard UUID string
}

type fileSignature struct {
	id   uuid.UUID
	seq  uint64
	path string
}

// New scans folder for files named "<prefix><uuid>_<seq>.<ext>", sorts them
// ascending by seq, installs the highest-seq shard as current and the rest
// as past. If none exist, a fresh shard at seq 0 with a new UUID is created.
func New[S shard.Shard, C any](folder, prefix, ext string, config C, factory Factory[S, C], fdc *fdcache.FDCache, log *zap.Logger) (*MapShard[S, C], error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("mapshard: mkdir %s: %w", folder, err)
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("mapshard: readdir %s: %w", folder, err)
	}

	var sigs []fileSignature
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		sig, ok := extractFileSignature(e.Name(), prefix, ext)
		if ok {
			sig.path = filepath.Join(folder, sig.path)
			sigs = append(sigs, sig)
		}
	}
	sort.Slice(sigs, func(i, j int) bool { return sigs[i].seq < sigs[j].seq })

	ms := &MapShard[S, C]{
		folder:  folder,
		prefix:  prefix,
		config:  config,
		factory: factory,
		fdc:     fdc,
		log:     log,
		past:    make(map[string]S),
	}

	if len(sigs) == 0 {
		id := uuid.New()
		path := filepath.Join(folder, shardFileName(prefix, id, 0, ext))
		cur, err := ms.open(path, id)
		if err != nil {
			return nil, err
		}
		ms.current = cur
		ms.seq = 0
		return ms, nil
	}

	for _, sig := range sigs[:len(sigs)-1] {
		s, err := ms.open(sig.path, sig.id)
		if err != nil {
			return nil, err
		}
		ms.past[s.ID().String()] = s
	}
	last := sigs[len(sigs)-1]
	cur, err := ms.open(last.path, last.id)
	if err != nil {
		return nil, err
	}
	ms.current = cur
	ms.seq = last.seq
	return ms, nil
}

func shardFileName(prefix string, id uuid.UUID, seq uint64, ext string) string {
	return fmt.Sprintf("%s%s_%d.%s", prefix, id.String(), seq, ext)
}

// extractFileSignature parses "<prefix><uuid>_<seq>.<ext>". Unlike the
// source's rigid split-by-'_'-into-exactly-3-parts parser, this strips the
// known prefix and extension first and splits on the final underscore, so
// prefixes containing underscores do not break parsing.
func extractFileSignature(name, prefix, ext string) (fileSignature, bool) {
	if !strings.HasSuffix(name, "."+ext) {
		return fileSignature{}, false
	}
	stem := strings.TrimSuffix(name, "."+ext)
	if !strings.HasPrefix(stem, prefix) {
		return fileSignature{}, false
	}
	rest := strings.TrimPrefix(stem, prefix)
	idx := strings.LastIndex(rest, "_")
	if idx < 0 {
		return fileSignature{}, false
	}
	idStr, seqStr := rest[:idx], rest[idx+1:]
	id, err := uuid.Parse(idStr)
	if err != nil {
		return fileSignature{}, false
	}
	seq, err := strconv.ParseUint(seqStr, 10, 64)
	if err != nil {
		return fileSignature{}, false
	}
	return fileSignature{id: id, seq: seq, path: name}, true
}

// Insert writes data into the current shard, rolling over to a fresh shard
// first if the current one is full. It returns the new shard's row index
// (valid only against the current shard at the time of the call; see
// RowPointer semantics in the index/query packages).
func (m *MapShard[S, C]) Insert(data []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.current.HasSpace() {
		if err := m.rolloverLocked(); err != nil {
			return 0, err
		}
	}
	return m.current.InsertItem(data)
}

func (m *MapShard[S, C]) rolloverLocked() error {
	newSeq := m.seq + 1
	id := uuid.New()
	ext := extFromPath(m.current.Path())
	path := filepath.Join(m.folder, shardFileName(m.prefix, id, newSeq, ext))

	newShard, err := m.open(path, id)
	if err != nil {
		return fmt.Errorf("mapshard: rollover: %w", err)
	}

	old := m.current
	m.past[old.ID().String()] = old
	m.current = newShard
	m.seq = newSeq
	m.log.Debug("mapshard rollover", zap.String("folder", m.folder), zap.Uint64("new_seq", newSeq))
	return nil
}

func extFromPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimPrefix(ext, ".")
}

// Current returns the shard currently accepting writes.
func (m *MapShard[S, C]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// CurrentSeq returns the current shard's sequence number.
func (m *MapShard[S, C]) CurrentSeq() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.seq
}

// Past returns the past shards keyed by shard UUID string.
func (m *MapShard[S, C]) Past() map[string]S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]S, len(m.past))
	for k, v := range m.past {
		out[k] = v
	}
	return out
}

// ReadCurrent reads a record at index from the current shard.
func (m *MapShard[S, C]) ReadCurrent(index uint64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.ReadItemAt(index)
}

// ReadFromShard reads a record at index from a specific shard identified by
// UUID (current or past).
func (m *MapShard[S, C]) ReadFromShard(id uuid.UUID, index uint64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current.ID() == id {
		return m.current.ReadItemAt(index)
	}
	if s, ok := m.past[id.String()]; ok {
		return s.ReadItemAt(index)
	}
	return nil, fmt.Errorf("mapshard: unknown shard id %s", id)
}
