package shard

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/schemejs/storage/errs"
	"github.com/schemejs/storage/fdcache"
)

// KvShard header layout, little-endian:
//
//	[0..8)   max_capacity  u64 (0 == unbounded)
//	[8..16)  items_len     u64
//	[16..24) reserved      u64, always zero, reserved for a future field
//	[24..32) value_size    u64
//	[32..48) UUID          16 bytes
//	[48..)   records, each value_size bytes, contiguous
const kvShardHeaderFixedSize = 48

// KvShardConfig carries capacity and record width for a new KvShard.
type KvShardConfig struct {
	MaxCapacity uint64 // 0 == unbounded
	ValueSize   uint64
}

// KvShard is a dense array of fixed-size records, used to back hash indexes.
type KvShard struct {
	path        string
	fb          *fdcache.FileBacking
	maxCapacity uint64
	valueSize   uint64
	id          uuid.UUID
}

// NewKvShard opens or creates the KvShard at path.
func NewKvShard(path string, config KvShardConfig, id uuid.UUID, fb *fdcache.FileBacking) (*KvShard, error) {
	if fb.Len() > 0 {
		return reopenKvShard(path, fb)
	}

	if id == uuid.Nil {
		id = uuid.New()
	}
	if config.ValueSize == 0 {
		return nil, fmt.Errorf("kv_shard: value_size must be > 0")
	}

	header := make([]byte, kvShardHeaderFixedSize)
	binary.LittleEndian.PutUint64(header[0:8], config.MaxCapacity)
	binary.LittleEndian.PutUint64(header[8:16], 0)
	// header[16:24] reserved, left zero
	binary.LittleEndian.PutUint64(header[24:32], config.ValueSize)
	idBytes, _ := id.MarshalBinary()
	copy(header[32:48], idBytes)

	_, err := fdcache.Write(fb, func(f *os.File) (struct{}, error) {
		_, err := f.WriteAt(header, 0)
		return struct{}{}, err
	})
	if err != nil {
		return nil, fmt.Errorf("kv_shard: init header %s: %w", path, err)
	}

	return &KvShard{path: path, fb: fb, maxCapacity: config.MaxCapacity, valueSize: config.ValueSize, id: id}, nil
}

func reopenKvShard(path string, fb *fdcache.FileBacking) (*KvShard, error) {
	header, err := fb.Read(0, kvShardHeaderFixedSize)
	if err != nil {
		return nil, fmt.Errorf("kv_shard: read header %s: %w", path, err)
	}
	maxCapacity := binary.LittleEndian.Uint64(header[0:8])
	valueSize := binary.LittleEndian.Uint64(header[24:32])
	id, err := uuid.FromBytes(header[32:48])
	if err != nil {
		return nil, fmt.Errorf("kv_shard: parse id %s: %w", path, err)
	}
	return &KvShard{path: path, fb: fb, maxCapacity: maxCapacity, valueSize: valueSize, id: id}, nil
}

func (s *KvShard) Path() string        { return s.path }
func (s *KvShard) ID() uuid.UUID       { return s.id }
func (s *KvShard) Close() error        { return s.fb.Close() }
func (s *KvShard) ValueSize() uint64   { return s.valueSize }
func (s *KvShard) MaxCapacity() uint64 { return s.maxCapacity }

// ItemsLen returns the number of records currently stored.
func (s *KvShard) ItemsLen() uint64 {
	raw, err := s.fb.Read(8, 8)
	if err != nil {
		return 0
	}
	return binary.LittleEndian.Uint64(raw)
}

// LastIndex satisfies the Shard interface (highest populated index, or -1).
func (s *KvShard) LastIndex() int64 {
	return int64(s.ItemsLen()) - 1
}

// HasSpace reports whether the shard can accept another record; unbounded
// (max_capacity == 0) shards always have space.
func (s *KvShard) HasSpace() bool {
	if s.maxCapacity == 0 {
		return true
	}
	return s.ItemsLen() < s.maxCapacity
}

func (s *KvShard) recordPos(index uint64) int64 {
	return kvShardHeaderFixedSize + int64(index)*int64(s.valueSize)
}

// Get returns the record at index.
func (s *KvShard) Get(index uint64) ([]byte, error) {
	if index >= s.ItemsLen() {
		return nil, fmt.Errorf("%w: index %d", errs.ErrUnknownEntry, index)
	}
	return s.fb.Read(int(s.recordPos(index)), int(s.valueSize))
}

// ReadItemAt satisfies the Shard interface.
func (s *KvShard) ReadItemAt(index uint64) ([]byte, error) { return s.Get(index) }

// InsertItem appends a single record. Satisfies the Shard interface; for
// batch inserts use Insert.
func (s *KvShard) InsertItem(data []byte) (uint64, error) {
	return s.Insert([][]byte{data})
}

// Insert appends every record in records (each must be exactly ValueSize
// bytes) and returns the index of the first inserted record.
func (s *KvShard) Insert(records [][]byte) (uint64, error) {
	if !s.HasSpace() {
		return 0, errs.ErrOutOfPositions
	}
	for _, r := range records {
		if uint64(len(r)) != s.valueSize {
			return 0, fmt.Errorf("kv_shard: record size %d != value_size %d", len(r), s.valueSize)
		}
	}

	startIndex := s.ItemsLen()
	startPos := s.recordPos(startIndex)

	_, err := fdcache.Write(s.fb, func(f *os.File) (struct{}, error) {
		pos := startPos
		for _, r := range records {
			if _, err := f.WriteAt(r, pos); err != nil {
				return struct{}{}, err
			}
			pos += int64(len(r))
		}
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], startIndex+uint64(len(records)))
		if _, err := f.WriteAt(buf[:], 8); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err != nil {
		return 0, fmt.Errorf("kv_shard: insert %s: %w", s.path, err)
	}
	return startIndex, nil
}

// Swap overwrites records at indices a and b (expected to be k-1 and k, the
// bubble-sort primitive used by HashIndex.Insert).
func (s *KvShard) Swap(a, b uint64, valA, valB []byte) error {
	if uint64(len(valA)) != s.valueSize || uint64(len(valB)) != s.valueSize {
		return fmt.Errorf("kv_shard: swap value size mismatch")
	}
	_, err := fdcache.Write(s.fb, func(f *os.File) (struct{}, error) {
		if _, err := f.WriteAt(valA, s.recordPos(a)); err != nil {
			return struct{}{}, err
		}
		if _, err := f.WriteAt(valB, s.recordPos(b)); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err != nil {
		return fmt.Errorf("kv_shard: swap %s: %w", s.path, err)
	}
	return nil
}
