package metastore

import (
	"errors"

	"github.com/dreamware/immuvault/internal/chunk"
)

// ErrNotFound is returned by Get when no record exists for the given
// address. Callers map this to NoSuchData.
var ErrNotFound = errors.New("metastore: record not found")

// Stats is a cheap, approximate size report, not a transactional
// count.
type Stats struct {
	Records int
	Bytes   int
}

// Store is the metadata store's contract. The chunk-metadata table
// (immutable_data.db) is one Store instance; the full-adults table
// (full_adults.db) lives behind the narrower FullAdults interface,
// both opened independently under the node's root directory.
type Store interface {
	// Get returns the metadata recorded for addr, or ErrNotFound.
	Get(addr chunk.Address) (*chunk.Metadata, error)
	// Put durably persists metadata for addr, overwriting any
	// previous record.
	Put(addr chunk.Address, meta *chunk.Metadata) error
	// Remove deletes any record for addr. Removing a key that does not
	// exist is not an error.
	Remove(addr chunk.Address) error
	// Iter calls fn for every (address, metadata) pair in a
	// point-in-time snapshot, stopping early if fn returns false.
	Iter(fn func(chunk.Address, *chunk.Metadata) bool) error
	// Stats reports an approximate record/byte count.
	Stats() Stats
	// Close releases any underlying resources (file handles, etc).
	Close() error
}
