package mapshard_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/schemejs/storage/fdcache"
	"github.com/schemejs/storage/mapshard"
	"github.com/schemejs/storage/shard"
)

// TestTempMapShardReconcile checks that filling a temp shard to capacity
// reconciles it into the parent MapShard, leaving only the unreconciled
// overflow buffered.
func TestTempMapShardReconcile(t *testing.T) {
	dir := t.TempDir()
	fdc, err := fdcache.New(64, nil)
	require.NoError(t, err)

	parent, err := mapshard.New(dir, "localdata_", "data", shard.DataShardConfig{MaxOffsets: 1000}, shard.NewDataShard, fdc, nil)
	require.NoError(t, err)

	temp, err := mapshard.NewTempMapShard(dir, "tempdata_", "data", shard.DataShardConfig{MaxOffsets: 2}, parent, shard.NewDataShard, fdc, nil)
	require.NoError(t, err)

	require.NoError(t, temp.Insert([]byte("0:Hello world")))
	require.Len(t, temp.Shards(), 1)
	require.Equal(t, int64(-1), parent.Current().LastIndex())

	require.NoError(t, temp.Insert([]byte("1:Hello Cats")))
	require.NoError(t, temp.Insert([]byte("2:Hello Dogs")))

	// The third insert should have reconciled the first (now full) temp
	// shard, leaving exactly one unreconciled shard holding the third value.
	shards := temp.Shards()
	require.Len(t, shards, 1)
	item, err := shards[0].ReadItemAt(0)
	require.NoError(t, err)
	require.Equal(t, "2:Hello Dogs", string(item))

	require.Equal(t, int64(1), parent.Current().LastIndex())
	got0, err := parent.ReadCurrent(0)
	require.NoError(t, err)
	require.Equal(t, "0:Hello world", string(got0))
	got1, err := parent.ReadCurrent(1)
	require.NoError(t, err)
	require.Equal(t, "1:Hello Cats", string(got1))

	require.NoError(t, temp.ReconcileAll())
	require.Equal(t, int64(2), parent.Current().LastIndex())
	require.Empty(t, temp.Shards())
}
