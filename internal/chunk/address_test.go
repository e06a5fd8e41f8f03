package chunk

import (
	"testing"

	"github.com/dreamware/immuvault/internal/xorspace"
	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	var name xorspace.Name
	name[0] = 0xAB
	name[31] = 0xCD
	addr := Address{Name: name, Tag: Unpublished}

	got, err := Decode(addr.Encode())
	require.NoError(t, err)
	require.Equal(t, addr, got)
}

func TestAddressStoreKeyRoundTrip(t *testing.T) {
	var name xorspace.Name
	name[5] = 0x42
	addr := Address{Name: name, Tag: Published}

	key := addr.StoreKey()
	got, err := AddressFromStoreKey(key)
	require.NoError(t, err)
	require.Equal(t, addr, got)
}

func TestDecodeRejectsBadLength(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestDecodeRejectsBadTag(t *testing.T) {
	buf := make([]byte, encodedLen)
	buf[xorspace.NameLen] = 7
	_, err := Decode(buf)
	require.Error(t, err)
}

func TestMetadataHolderLifecycle(t *testing.T) {
	m := NewMetadata()
	var h1, h2 xorspace.Name
	h1[0] = 1
	h2[0] = 2

	m.AddHolder(h1)
	m.AddHolder(h1)
	m.AddHolder(h2)
	require.True(t, m.HasHolder(h1))
	require.Len(t, m.HolderList(), 2)

	require.False(t, m.RemoveHolder(h1))
	require.True(t, m.RemoveHolder(h2), "removing the last holder must report empty")
}
