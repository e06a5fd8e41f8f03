package metastore

import (
	"sync"

	badger "github.com/dgraph-io/badger/v2"

	"github.com/dreamware/immuvault/internal/xorspace"
)

// FullAdults is the full-adults store's contract: a durable set of
// node names that have reported ErrHolderFull, consulted during
// holder selection so a full adult is not chosen again; the engine
// never removes a name once added. This is a separate interface from Store because
// its keys are bare xorspace.Names, not chunk.Addresses.
type FullAdults interface {
	Add(name xorspace.Name) error
	Remove(name xorspace.Name) error
	All() ([]xorspace.Name, error)
	Close() error
}

// MemFullAdults is an in-memory FullAdults, used by engine unit tests.
type MemFullAdults struct {
	mu   sync.RWMutex
	data map[xorspace.Name]struct{}
}

func NewMemFullAdults() *MemFullAdults {
	return &MemFullAdults{data: make(map[xorspace.Name]struct{})}
}

func (s *MemFullAdults) Add(name xorspace.Name) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = struct{}{}
	return nil
}

func (s *MemFullAdults) Remove(name xorspace.Name) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, name)
	return nil
}

func (s *MemFullAdults) All() ([]xorspace.Name, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]xorspace.Name, 0, len(s.data))
	for n := range s.data {
		out = append(out, n)
	}
	return out, nil
}

func (s *MemFullAdults) Close() error { return nil }

// BadgerFullAdults is the production FullAdults, a Badger database
// opened against its own subdirectory (root_dir/full_adults.db),
// values unused — presence of the key is the entire record.
type BadgerFullAdults struct {
	db *badger.DB
}

func OpenBadgerFullAdults(dir string) (*BadgerFullAdults, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerFullAdults{db: db}, nil
}

func (s *BadgerFullAdults) Add(name xorspace.Name) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(name[:], []byte{1})
	})
}

func (s *BadgerFullAdults) Remove(name xorspace.Name) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(name[:])
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

func (s *BadgerFullAdults) All() ([]xorspace.Name, error) {
	var out []xorspace.Name
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var name xorspace.Name
			copy(name[:], it.Item().KeyCopy(nil))
			out = append(out, name)
		}
		return nil
	})
	return out, err
}

func (s *BadgerFullAdults) Close() error { return s.db.Close() }
