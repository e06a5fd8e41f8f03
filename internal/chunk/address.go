package chunk

import (
	"encoding/base64"
	"fmt"

	"github.com/dreamware/immuvault/internal/xorspace"
)

// Tag distinguishes the two kinds of immutable data this engine
// stores. Published chunks are content-addressed and anyone may read
// them; Unpublished chunks carry an owner and only that owner may
// fetch or delete them.
type Tag uint8

const (
	// Published marks a chunk as publicly readable and PUT-idempotent:
	// putting the same bytes twice succeeds both times (I2).
	Published Tag = iota
	// Unpublished marks a chunk as owner-restricted: a second PUT to
	// the same address is always DataExists, regardless of content.
	Unpublished
)

func (t Tag) String() string {
	if t == Published {
		return "published"
	}
	return "unpublished"
}

// Address names one immutable chunk: a 32-byte XOR-space name plus its
// Tag. Two addresses with the same Name but different Tag are distinct
// chunks that happen to share a name.
type Address struct {
	Name xorspace.Name
	Tag  Tag
}

// encodedLen is the fixed width of Address.Encode's output: 32 name
// bytes followed by 1 tag byte.
const encodedLen = xorspace.NameLen + 1

// Encode serializes the address to its stable, version-independent
// binary form. This exact byte layout is what persists on disk as a
// metadata store key, so it must never change shape.
func (a Address) Encode() []byte {
	out := make([]byte, encodedLen)
	copy(out, a.Name[:])
	out[xorspace.NameLen] = byte(a.Tag)
	return out
}

// Decode parses bytes produced by Encode back into an Address.
func Decode(b []byte) (Address, error) {
	if len(b) != encodedLen {
		return Address{}, fmt.Errorf("chunk: invalid address encoding length %d", len(b))
	}
	var a Address
	copy(a.Name[:], b[:xorspace.NameLen])
	a.Tag = Tag(b[xorspace.NameLen])
	if a.Tag != Published && a.Tag != Unpublished {
		return Address{}, fmt.Errorf("chunk: invalid tag byte %d", b[xorspace.NameLen])
	}
	return a, nil
}

// StoreKey returns the base64 form of Encode's output, used as the
// literal key in the metadata store. Base64 keeps the key printable
// for debugging and CLI inspection without losing any of Encode's
// byte-for-byte stability.
func (a Address) StoreKey() string {
	return base64.StdEncoding.EncodeToString(a.Encode())
}

// AddressFromStoreKey reverses StoreKey.
func AddressFromStoreKey(key string) (Address, error) {
	b, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return Address{}, fmt.Errorf("chunk: invalid store key: %w", err)
	}
	return Decode(b)
}

func (a Address) String() string {
	return fmt.Sprintf("%s/%s", a.Name, a.Tag)
}
