package xorspace

import (
	"encoding/hex"
	"fmt"
	"sort"
)

// NameLen is the fixed width of a Name in bytes.
const NameLen = 32

// Name is a 256-bit address in the shared XOR space. Chunks, peers,
// and section keys are all named the same way.
type Name [NameLen]byte

// String renders a Name as lowercase hex for logging.
func (n Name) String() string {
	return hex.EncodeToString(n[:])
}

// ParseName parses the hex form String produces back into a Name.
func ParseName(s string) (Name, error) {
	var n Name
	b, err := hex.DecodeString(s)
	if err != nil {
		return n, fmt.Errorf("xorspace: invalid name %q: %w", s, err)
	}
	if len(b) != NameLen {
		return n, fmt.Errorf("xorspace: name %q decodes to %d bytes, want %d", s, len(b), NameLen)
	}
	copy(n[:], b)
	return n, nil
}

// IsZero reports whether n is the all-zero name, used as a sentinel
// for "no holder yet" in a few call sites.
func (n Name) IsZero() bool {
	return n == Name{}
}

// Distance returns the XOR-metric distance between a and b: smaller
// means closer. The result is itself a Name because XOR of two
// 32-byte values is a 32-byte value, and the caller only ever compares
// distances against each other, never interprets them as addresses.
func Distance(a, b Name) Name {
	var d Name
	for i := range d {
		d[i] = a[i] ^ b[i]
	}
	return d
}

// Closer reports whether a is strictly closer to target than b is,
// i.e. Distance(a, target) < Distance(b, target) under big-endian
// unsigned comparison.
func Closer(a, b, target Name) bool {
	da := Distance(a, target)
	db := Distance(b, target)
	for i := range da {
		if da[i] != db[i] {
			return da[i] < db[i]
		}
	}
	return false
}

// SortByDistance sorts names in place by ascending distance to target.
func SortByDistance(names []Name, target Name) {
	sort.Slice(names, func(i, j int) bool {
		return Closer(names[i], names[j], target)
	})
}
