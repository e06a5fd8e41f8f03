package metastore

import (
	"github.com/dreamware/immuvault/internal/chunk"
	"github.com/dreamware/immuvault/internal/xorspace"
)

// HolderRecord pairs one chunk address with its full metadata record,
// as returned by HolderReport.
type HolderRecord struct {
	Addr chunk.Address
	Meta *chunk.Metadata
}

// HolderReport scans the store for every chunk that names holder in
// its holder set. It is the scan-for-one-holder primitive the
// duplication workflow is built from, and doubles as a read-only
// diagnostic of what a given peer is recorded as holding (the
// inspect command's --holder flag).
func HolderReport(s Store, holder xorspace.Name) ([]HolderRecord, error) {
	var out []HolderRecord
	err := s.Iter(func(addr chunk.Address, meta *chunk.Metadata) bool {
		if meta.HasHolder(holder) {
			out = append(out, HolderRecord{Addr: addr, Meta: meta})
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
