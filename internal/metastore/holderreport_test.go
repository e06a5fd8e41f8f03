package metastore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dreamware/immuvault/internal/chunk"
	"github.com/dreamware/immuvault/internal/xorspace"
)

func TestHolderReportFindsOnlyNamedHolder(t *testing.T) {
	s := NewMemStore()
	var held, other xorspace.Name
	held[0] = 1
	other[0] = 2

	withHeld := chunk.NewMetadata()
	withHeld.AddHolder(held)
	withHeld.AddHolder(other)
	require.NoError(t, s.Put(testAddress(10), withHeld))

	withoutHeld := chunk.NewMetadata()
	withoutHeld.AddHolder(other)
	require.NoError(t, s.Put(testAddress(11), withoutHeld))

	records, err := HolderReport(s, held)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, testAddress(10), records[0].Addr)
	require.True(t, records[0].Meta.HasHolder(held))
}

func TestHolderReportEmptyStore(t *testing.T) {
	var anyone xorspace.Name
	records, err := HolderReport(NewMemStore(), anyone)
	require.NoError(t, err)
	require.Empty(t, records)
}
