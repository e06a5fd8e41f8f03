package metastore

import (
	"testing"

	"github.com/dreamware/immuvault/internal/chunk"
	"github.com/dreamware/immuvault/internal/xorspace"
	"github.com/stretchr/testify/require"
)

func testAddress(b byte) chunk.Address {
	var n xorspace.Name
	n[0] = b
	return chunk.Address{Name: n, Tag: chunk.Published}
}

func TestMemStoreGetMissingReturnsErrNotFound(t *testing.T) {
	s := NewMemStore()
	_, err := s.Get(testAddress(1))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemStorePutGetRoundTrip(t *testing.T) {
	s := NewMemStore()
	addr := testAddress(2)
	meta := chunk.NewMetadata()
	var holder xorspace.Name
	holder[1] = 9
	meta.AddHolder(holder)

	require.NoError(t, s.Put(addr, meta))
	got, err := s.Get(addr)
	require.NoError(t, err)
	require.True(t, got.HasHolder(holder))
}

func TestMemStoreRemove(t *testing.T) {
	s := NewMemStore()
	addr := testAddress(3)
	require.NoError(t, s.Put(addr, chunk.NewMetadata()))
	require.NoError(t, s.Remove(addr))
	_, err := s.Get(addr)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemStoreIterStopsEarly(t *testing.T) {
	s := NewMemStore()
	for i := byte(0); i < 5; i++ {
		require.NoError(t, s.Put(testAddress(i), chunk.NewMetadata()))
	}
	seen := 0
	require.NoError(t, s.Iter(func(chunk.Address, *chunk.Metadata) bool {
		seen++
		return seen < 2
	}))
	require.Equal(t, 2, seen)
}
