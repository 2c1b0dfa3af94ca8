package index_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/schemejs/storage/fdcache"
	"github.com/schemejs/storage/index"
)

// TestHashIndexBinarySearchWithCompositeKeys inserts a run of composite keys
// and checks that lookups find the right pointer, including a lookup for a
// key built from mismatched members that was never inserted.
func TestHashIndexBinarySearchWithCompositeKeys(t *testing.T) {
	dir := t.TempDir()
	fdc, err := fdcache.New(64, nil)
	require.NoError(t, err)

	hi, err := index.NewHashIndex(dir, "useridx", 0, fdc, nil)
	require.NoError(t, err)

	keys := make([]index.CompositeKey, 0, 25)
	for i := 0; i < 25; i++ {
		key := index.CompositeKey{
			{Field: "username", Value: fmt.Sprintf("user%d", i+1)},
			{Field: "city", Value: fmt.Sprintf("City%d", i+1)},
		}
		keys = append(keys, key)
		require.NoError(t, hi.Insert(index.NewIndexKey(key), uint64(i)))
	}

	_, found := hi.Lookup(index.NewIndexKey(keys[15]))
	require.True(t, found)

	_, found = hi.Lookup(index.NewIndexKey(keys[24]))
	require.True(t, found)

	mismatched := index.CompositeKey{
		{Field: "username", Value: "user14"},
		{Field: "city", Value: "City16"},
	}
	_, found = hi.Lookup(index.NewIndexKey(mismatched))
	require.False(t, found)

	for i, key := range keys {
		ptr, found := hi.Lookup(index.NewIndexKey(key))
		require.True(t, found)
		require.Equal(t, uint64(i), ptr)
	}
}
