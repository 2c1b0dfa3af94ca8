package shard

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/schemejs/storage/errs"
	"github.com/schemejs/storage/fdcache"
)

// DataShard header layout, little-endian, fixed at byte 0:
//
//	[0..8)   max_offsets        u64
//	[8..16)  last_offset_index  i64 (-1 if empty)
//	[16..32) shard UUID         16 bytes
//	[32..32+8*max_offsets)      offset table, zero-initialized
//	thereafter                  record payloads, appended
const dataShardHeaderFixedSize = 32

// DataShardConfig carries the offset-table capacity for a new DataShard.
type DataShardConfig struct {
	MaxOffsets uint64
}

// DataShard is an append-only shard of variable-length byte records.
type DataShard struct {
	path       string
	fb         *fdcache.FileBacking
	maxOffsets uint64
	id         uuid.UUID
}

// NewDataShard opens or creates the DataShard at path. When the backing file
// is empty, a fresh header is written using config and id (a random UUID is
// generated if id is uuid.Nil); otherwise the existing header is trusted and
// config is ignored.
func NewDataShard(path string, config DataShardConfig, id uuid.UUID, fb *fdcache.FileBacking) (*DataShard, error) {
	if fb.Len() > 0 {
		return reopenDataShard(path, fb)
	}

	if id == uuid.Nil {
		id = uuid.New()
	}
	maxOffsets := config.MaxOffsets
	if maxOffsets == 0 {
		maxOffsets = 1
	}

	header := make([]byte, dataShardHeaderFixedSize+8*int(maxOffsets))
	binary.LittleEndian.PutUint64(header[0:8], maxOffsets)
	binary.LittleEndian.PutUint64(header[8:16], uint64(int64(-1)))
	idBytes, _ := id.MarshalBinary()
	copy(header[16:32], idBytes)

	_, err := fdcache.Write(fb, func(f *os.File) (struct{}, error) {
		_, err := f.WriteAt(header, 0)
		return struct{}{}, err
	})
	if err != nil {
		return nil, fmt.Errorf("data_shard: init header %s: %w", path, err)
	}

	return &DataShard{path: path, fb: fb, maxOffsets: maxOffsets, id: id}, nil
}

func reopenDataShard(path string, fb *fdcache.FileBacking) (*DataShard, error) {
	header, err := fb.Read(0, dataShardHeaderFixedSize)
	if err != nil {
		return nil, fmt.Errorf("data_shard: read header %s: %w", path, err)
	}
	maxOffsets := binary.LittleEndian.Uint64(header[0:8])
	id, err := uuid.FromBytes(header[16:32])
	if err != nil {
		return nil, fmt.Errorf("data_shard: parse id %s: %w", path, err)
	}
	return &DataShard{path: path, fb: fb, maxOffsets: maxOffsets, id: id}, nil
}

func (s *DataShard) Path() string    { return s.path }
func (s *DataShard) ID() uuid.UUID   { return s.id }
func (s *DataShard) Close() error    { return s.fb.Close() }
func (s *DataShard) MaxOffsets() uint64 { return s.maxOffsets }

// LastIndex returns the highest populated offset-table slot, or -1 if empty.
func (s *DataShard) LastIndex() int64 {
	raw, err := s.fb.Read(8, 8)
	if err != nil {
		return -1
	}
	return int64(binary.LittleEndian.Uint64(raw))
}

// HasSpace reports whether the offset table has room for another record.
func (s *DataShard) HasSpace() bool {
	return uint64(s.LastIndex()+1) < s.maxOffsets
}

func (s *DataShard) offsetPos(index uint64) int64 {
	return dataShardHeaderFixedSize + int64(index)*8
}

func (s *DataShard) readOffset(index uint64) (uint64, bool) {
	raw, err := s.fb.Read(int(s.offsetPos(index)), 8)
	if err != nil {
		return 0, false
	}
	return binary.LittleEndian.Uint64(raw), true
}

// InsertItem appends data as a new record and returns its index. Fails with
// ErrOutOfPositions if the offset table is full.
func (s *DataShard) InsertItem(data []byte) (uint64, error) {
	last := s.LastIndex()
	if uint64(last+1) >= s.maxOffsets {
		return 0, errs.ErrOutOfPositions
	}
	newIndex := uint64(last + 1)
	offsetPos := s.offsetPos(newIndex)

	_, err := fdcache.Write(s.fb, func(f *os.File) (struct{}, error) {
		info, err := f.Stat()
		if err != nil {
			return struct{}{}, err
		}
		start := info.Size()
		if _, err := f.WriteAt(data, start); err != nil {
			return struct{}{}, err
		}
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(start))
		if _, err := f.WriteAt(buf[:], offsetPos); err != nil {
			return struct{}{}, err
		}
		binary.LittleEndian.PutUint64(buf[:], newIndex)
		if _, err := f.WriteAt(buf[:], 8); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err != nil {
		return 0, fmt.Errorf("data_shard: insert %s: %w", s.path, err)
	}
	return newIndex, nil
}

// ReadItemAt returns the record at index. The record's end is the start of
// the next populated offset, or the current file length for the last
// record.
func (s *DataShard) ReadItemAt(index uint64) ([]byte, error) {
	last := s.LastIndex()
	if last < 0 || index > uint64(last) {
		return nil, fmt.Errorf("%w: index %d (last=%d)", errs.ErrUnknownOffset, index, last)
	}
	start, ok := s.readOffset(index)
	if !ok {
		return nil, fmt.Errorf("%w: index %d", errs.ErrUnknownOffset, index)
	}

	end := uint64(s.fb.Len())
	if index+1 <= uint64(last) {
		if next, ok := s.readOffset(index + 1); ok && next != 0 {
			end = next
		}
	}
	return s.fb.Read(int(start), int(end-start))
}
