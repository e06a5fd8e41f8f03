package blobstore

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dreamware/immuvault/internal/chunk"
)

// ErrNotFound is returned when a holder has no bytes recorded for an
// address, matching internal/storage.ErrKeyNotFound.
var ErrNotFound = errors.New("blobstore: chunk not found")

// OperationStats mirrors internal/shard.OperationStats, tracked with
// atomics the same way so a holder can answer operator-tooling
// queries without taking the data lock.
type OperationStats struct {
	Gets    int64
	Puts    int64
	Deletes int64
}

// Store is the per-holder content store a holder's Put/Get/Delete
// RPC handler writes through to. This is intentionally the one
// component in this repo that stays purely in-memory: only metadata
// must survive a process restart; a holder that restarts is simply
// treated as though it lost its copies, same as any other MemberLeft
// departure.
type Store struct {
	data  map[chunk.Address][]byte
	mu    sync.RWMutex
	stats OperationStats
}

// NewStore returns an empty content store.
func NewStore() *Store {
	return &Store{data: make(map[chunk.Address][]byte)}
}

// Get returns the bytes stored for addr, or ErrNotFound.
func (s *Store) Get(addr chunk.Address) ([]byte, error) {
	atomic.AddInt64(&s.stats.Gets, 1)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[addr]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put stores data under addr, overwriting any previous bytes at the
// same address (a second Published PUT is idempotent content-wise;
// an Unpublished PUT to an existing address never reaches here
// because the Coordinator rejects it at admission).
func (s *Store) Put(addr chunk.Address, data []byte) error {
	atomic.AddInt64(&s.stats.Puts, 1)
	cp := make([]byte, len(data))
	copy(cp, data)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[addr] = cp
	return nil
}

// Delete removes addr's bytes. Deleting a key that is not present is
// not an error.
func (s *Store) Delete(addr chunk.Address) error {
	atomic.AddInt64(&s.stats.Deletes, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, addr)
	return nil
}

// Has reports whether this holder currently has bytes for addr,
// without touching the operation counters.
func (s *Store) Has(addr chunk.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[addr]
	return ok
}

// Stats returns a snapshot of this holder's operation counts.
func (s *Store) Stats() OperationStats {
	return OperationStats{
		Gets:    atomic.LoadInt64(&s.stats.Gets),
		Puts:    atomic.LoadInt64(&s.stats.Puts),
		Deletes: atomic.LoadInt64(&s.stats.Deletes),
	}
}
