package index

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schemejs/storage/fdcache"
	"github.com/schemejs/storage/mapshard"
	"github.com/schemejs/storage/shard"
)

// ValueSize is the fixed on-disk record width for a HashIndex entry: a
// 64-byte hex key plus an 8-byte little-endian row pointer.
const ValueSize = KeySize + 8

func kvShardFactory(path string, config shard.KvShardConfig, id uuid.UUID, fb *fdcache.FileBacking) (*shard.KvShard, error) {
	return shard.NewKvShard(path, config, id, fb)
}

// HashIndex is a KvShard-backed sorted array mapping IndexKey to a RowPointer
// (u64), supporting equality lookup via binary search.
type HashIndex struct {
	name string
	ms   *mapshard.MapShard[*shard.KvShard, shard.KvShardConfig]
}

// NewHashIndex opens or creates a HashIndex rooted at folder, with shards
// capped at maxCapacity records (0 == unbounded).
func NewHashIndex(folder, name string, maxCapacity uint64, fdc *fdcache.FDCache, log *zap.Logger) (*HashIndex, error) {
	config := shard.KvShardConfig{MaxCapacity: maxCapacity, ValueSize: ValueSize}
	ms, err := mapshard.New(folder, name+"_", "index", config, kvShardFactory, fdc, log)
	if err != nil {
		return nil, fmt.Errorf("hash_index: %s: %w", name, err)
	}
	return &HashIndex{name: name, ms: ms}, nil
}

func encodeEntry(key IndexKey, pointer uint64) []byte {
	entry := make([]byte, ValueSize)
	copy(entry[:KeySize], key.Bytes())
	binary.LittleEndian.PutUint64(entry[KeySize:], pointer)
	return entry
}

func decodeEntry(entry []byte) (IndexKey, uint64) {
	return IndexKey(entry[:KeySize]), binary.LittleEndian.Uint64(entry[KeySize:])
}

// Insert appends (key, pointer) to the current shard and bubbles it
// backwards by repeated pairwise swaps while the preceding entry's key is
// greater, maintaining the shard's ascending-sort invariant.
func (h *HashIndex) Insert(key IndexKey, pointer uint64) error {
	entry := encodeEntry(key, pointer)
	idx, err := h.ms.Insert(entry)
	if err != nil {
		return fmt.Errorf("hash_index: insert: %w", err)
	}

	cur := h.ms.Current()
	for idx > 0 {
		prev, err := cur.Get(idx - 1)
		if err != nil {
			return fmt.Errorf("hash_index: bubble read: %w", err)
		}
		prevKey, _ := decodeEntry(prev)
		if prevKey <= key {
			break
		}
		here, err := cur.Get(idx)
		if err != nil {
			return fmt.Errorf("hash_index: bubble read: %w", err)
		}
		if err := cur.Swap(idx-1, idx, here, prev); err != nil {
			return fmt.Errorf("hash_index: bubble swap: %w", err)
		}
		idx--
	}
	return nil
}

// BulkInsert sorts pairs by key, then inserts them one at a time through
// Insert, so each entry is bubbled into place individually; there is no
// single sort pass over the appended suffix.
func (h *HashIndex) BulkInsert(pairs []struct {
	Key     IndexKey
	Pointer uint64
}) error {
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	for _, p := range pairs {
		if err := h.Insert(p.Key, p.Pointer); err != nil {
			return err
		}
	}
	return nil
}

// Lookup searches past shards then the current shard (in that order) via
// binary search, returning the first matching pointer.
func (h *HashIndex) Lookup(key IndexKey) (uint64, bool) {
	for _, s := range h.ms.Past() {
		if ptr, ok := binarySearch(s, key); ok {
			return ptr, true
		}
	}
	if ptr, ok := binarySearch(h.ms.Current(), key); ok {
		return ptr, true
	}
	return 0, false
}

func binarySearch(s *shard.KvShard, key IndexKey) (uint64, bool) {
	n := s.ItemsLen()
	lo, hi := uint64(0), n
	for lo < hi {
		mid := lo + (hi-lo)/2
		entry, err := s.Get(mid)
		if err != nil {
			return 0, false
		}
		midKey, midPtr := decodeEntry(entry)
		switch {
		case midKey == key:
			return midPtr, true
		case midKey < key:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0, false
}

// Name returns the index's declared name.
func (h *HashIndex) Name() string { return h.name }
