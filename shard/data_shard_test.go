package shard_test

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/schemejs/storage/errs"
	"github.com/schemejs/storage/fdcache"
	"github.com/schemejs/storage/shard"
)

// TestDataShardOpenCloseReopen writes a few records, closes and reopens the
// underlying file, and checks that the records read back unchanged.
func TestDataShardOpenCloseReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data_shard.data")

	fb, err := fdcache.Open(path, nil)
	require.NoError(t, err)

	ds, err := shard.NewDataShard(path, shard.DataShardConfig{MaxOffsets: 10}, uuid.Nil, fb)
	require.NoError(t, err)

	values := []string{
		"Hello World", "Cats are cute", "Venezuela", "Roses", "Cars",
		"1", "true", "false", "------Divider-----", "String",
	}
	for _, v := range values {
		_, err := ds.InsertItem([]byte(v))
		require.NoError(t, err)
	}

	got, err := ds.ReadItemAt(9)
	require.NoError(t, err)
	require.Equal(t, "String", string(got))

	got, err = ds.ReadItemAt(5)
	require.NoError(t, err)
	require.Equal(t, "1", string(got))

	_, err = ds.InsertItem([]byte("eleventh"))
	require.ErrorIs(t, err, errs.ErrOutOfPositions)
	require.NoError(t, ds.Close())

	fb2, err := fdcache.Open(path, nil)
	require.NoError(t, err)
	reopened, err := shard.NewDataShard(path, shard.DataShardConfig{}, uuid.Nil, fb2)
	require.NoError(t, err)
	require.Equal(t, int64(9), reopened.LastIndex())

	got, err = reopened.ReadItemAt(9)
	require.NoError(t, err)
	require.Equal(t, "String", string(got))
}

func TestDataShardUnknownOffset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data_shard.data")
	fb, err := fdcache.Open(path, nil)
	require.NoError(t, err)
	ds, err := shard.NewDataShard(path, shard.DataShardConfig{MaxOffsets: 4}, uuid.Nil, fb)
	require.NoError(t, err)

	_, err = ds.ReadItemAt(0)
	require.ErrorIs(t, err, errs.ErrUnknownOffset)
}
