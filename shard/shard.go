// Package shard implements the two on-disk shard kinds: DataShard, an
// append-only store of variable-length records behind a fixed-capacity
// offset table, and KvShard, a dense array of fixed-size records used to
// back hash indexes.
package shard

import (
	"github.com/google/uuid"

	"github.com/schemejs/storage/fdcache"
)

// Shard is the common contract both shard kinds satisfy, letting MapShard
// and TempMapShard stay generic over either one.
type Shard interface {
	HasSpace() bool
	Path() string
	LastIndex() int64
	ReadItemAt(index uint64) ([]byte, error)
	InsertItem(data []byte) (uint64, error)
	ID() uuid.UUID
	Close() error
}

// Opener constructs a shard of kind S backed by path, creating it with the
// given config and id (a fresh random UUID when id is uuid.Nil) if it does
// not already exist on disk.
type Opener[S Shard, C any] func(path string, config C, id uuid.UUID, fb *fdcache.FileBacking) (S, error)
