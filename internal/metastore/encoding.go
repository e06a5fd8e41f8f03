package metastore

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"fmt"

	"github.com/dreamware/immuvault/internal/chunk"
	"github.com/dreamware/immuvault/internal/identity"
	"github.com/dreamware/immuvault/internal/xorspace"
)

// encodeMetadata serializes a chunk.Metadata to a stable binary form:
// a 1-byte owner-present flag, optionally followed by the 32-byte
// Ed25519 owner key, followed by a 4-byte holder count and the holder
// names themselves. This is the value stored behind each
// badgerstore/memstore key; it never needs to be readable by another
// language, unlike the chunk.Address key encoding.
func encodeMetadata(m *chunk.Metadata) []byte {
	holders := m.HolderList()
	var buf bytes.Buffer
	if m.Owner != nil {
		buf.WriteByte(1)
		buf.Write(*m.Owner)
	} else {
		buf.WriteByte(0)
	}
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(holders)))
	buf.Write(countBuf[:])
	for _, h := range holders {
		buf.Write(h[:])
	}
	return buf.Bytes()
}

func decodeMetadata(b []byte) (*chunk.Metadata, error) {
	if len(b) < 5 {
		return nil, fmt.Errorf("metastore: metadata encoding too short (%d bytes)", len(b))
	}
	m := chunk.NewMetadata()
	pos := 0
	hasOwner := b[pos]
	pos++
	switch hasOwner {
	case 0:
	case 1:
		if len(b) < pos+ed25519.PublicKeySize {
			return nil, fmt.Errorf("metastore: truncated owner key")
		}
		owner := identity.AccountKey(append(ed25519.PublicKey{}, b[pos:pos+ed25519.PublicKeySize]...))
		m.Owner = &owner
		pos += ed25519.PublicKeySize
	default:
		return nil, fmt.Errorf("metastore: invalid owner flag %d", hasOwner)
	}

	if len(b) < pos+4 {
		return nil, fmt.Errorf("metastore: truncated holder count")
	}
	count := binary.BigEndian.Uint32(b[pos : pos+4])
	pos += 4

	for i := uint32(0); i < count; i++ {
		if len(b) < pos+xorspace.NameLen {
			return nil, fmt.Errorf("metastore: truncated holder name")
		}
		var name xorspace.Name
		copy(name[:], b[pos:pos+xorspace.NameLen])
		m.AddHolder(name)
		pos += xorspace.NameLen
	}
	return m, nil
}
