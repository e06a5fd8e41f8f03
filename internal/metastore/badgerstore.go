package metastore

import (
	"errors"

	badger "github.com/dgraph-io/badger/v2"

	"github.com/dreamware/immuvault/internal/chunk"
)

// BadgerStore is the production Store implementation: an embedded
// Badger database rooted at a single directory on disk under the
// node's root directory. Keys are the base64 chunk.Address store-key
// form, so a raw dump of the database stays printable.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (creating if necessary) a Badger database at
// dir. Badger's own WAL gives the "durable before returning" guarantee
// Put/Remove require without this package needing to manage fsync
// itself.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Get(addr chunk.Address) (*chunk.Metadata, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(addr.StoreKey()))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			raw = append([]byte(nil), val...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeMetadata(raw)
}

func (s *BadgerStore) Put(addr chunk.Address, meta *chunk.Metadata) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(addr.StoreKey()), encodeMetadata(meta))
	})
}

func (s *BadgerStore) Remove(addr chunk.Address) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(addr.StoreKey()))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

func (s *BadgerStore) Iter(fn func(chunk.Address, *chunk.Metadata) bool) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			addr, err := chunk.AddressFromStoreKey(string(item.KeyCopy(nil)))
			if err != nil {
				return err
			}
			var meta *chunk.Metadata
			if verr := item.Value(func(val []byte) error {
				m, derr := decodeMetadata(val)
				if derr != nil {
					return derr
				}
				meta = m
				return nil
			}); verr != nil {
				return verr
			}
			if !fn(addr, meta) {
				break
			}
		}
		return nil
	})
}

func (s *BadgerStore) Stats() Stats {
	lsm, vlog := s.db.Size()
	records := 0
	_ = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			records++
		}
		return nil
	})
	return Stats{Records: records, Bytes: int(lsm + vlog)}
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
