package chunk

import (
	"sort"

	"github.com/dreamware/immuvault/internal/identity"
	"github.com/dreamware/immuvault/internal/xorspace"
)

// Metadata records everything the Metadata Store knows about one
// chunk address: the set of peers currently holding a copy, and, for
// Unpublished chunks, the account that owns it.
//
// Invariants:
//   - Holders is never persisted empty; a transition to empty always
//     removes the record entirely.
//   - Owner is nil for Published chunks and, for Unpublished chunks,
//     set once a PUT response has been recorded for a request that
//     carried a requester key.
//   - Holders never contains the same name twice (it is a set).
type Metadata struct {
	Holders map[xorspace.Name]struct{}
	Owner   *identity.AccountKey
}

// NewMetadata returns an empty metadata record ready to accumulate PUT
// responses.
func NewMetadata() *Metadata {
	return &Metadata{Holders: make(map[xorspace.Name]struct{})}
}

// AddHolder records that peer now holds a copy. Idempotent: adding the
// same holder twice is a no-op.
func (m *Metadata) AddHolder(peer xorspace.Name) {
	m.Holders[peer] = struct{}{}
}

// RemoveHolder removes peer from the holder set, returning true if the
// set is now empty (the caller must then delete the record entirely
// rather than persist an empty set).
func (m *Metadata) RemoveHolder(peer xorspace.Name) (empty bool) {
	delete(m.Holders, peer)
	return len(m.Holders) == 0
}

// HasHolder reports whether peer is recorded as holding this chunk.
func (m *Metadata) HasHolder(peer xorspace.Name) bool {
	_, ok := m.Holders[peer]
	return ok
}

// HolderList returns the holder set as a sorted slice, for stable
// iteration (logging, duplication planning, tests).
func (m *Metadata) HolderList() []xorspace.Name {
	out := make([]xorspace.Name, 0, len(m.Holders))
	for h := range m.Holders {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i][:]) < string(out[j][:])
	})
	return out
}
