package mapshard_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/schemejs/storage/fdcache"
	"github.com/schemejs/storage/mapshard"
	"github.com/schemejs/storage/shard"
)

// TestMapShardRollover checks that filling the current shard to capacity
// rolls it into Past() and starts a fresh current shard for later inserts.
func TestMapShardRollover(t *testing.T) {
	dir := t.TempDir()
	fdc, err := fdcache.New(64, nil)
	require.NoError(t, err)

	ms, err := mapshard.New(dir, "localdata_", "data", shard.DataShardConfig{MaxOffsets: 1}, shard.NewDataShard, fdc, nil)
	require.NoError(t, err)

	_, err = ms.Insert([]byte("1"))
	require.NoError(t, err)
	_, err = ms.Insert([]byte("2"))
	require.NoError(t, err)

	past := ms.Past()
	require.Len(t, past, 1)

	var pastShard *shard.DataShard
	for _, s := range past {
		pastShard = s
	}
	got, err := pastShard.ReadItemAt(0)
	require.NoError(t, err)
	require.Equal(t, "1", string(got))

	got, err = ms.ReadCurrent(0)
	require.NoError(t, err)
	require.Equal(t, "2", string(got))
}
