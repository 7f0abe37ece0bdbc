package store

import (
	"context"

	"github.com/coinwatch/ratevault/internal/domain/entity"
	"github.com/coinwatch/ratevault/internal/domain/repository"
	"github.com/dgraph-io/badger/v3"
)

// BadgerStore implements the domain-partitioned store interface on
// top of BadgerDB, the structured transactional backend
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a BadgerDB store at the given path.
// An open failure here is the signal for callers to fall back to the
// flat store.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable Badger's default logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &BadgerStore{db: db}, nil
}

// NewBadgerStore wraps an already opened BadgerDB handle
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// recordKey prefixes a key with its domain, keeping domains disjoint
// inside the single badger keyspace
func recordKey(domain repository.Domain, key string) []byte {
	return []byte(string(domain) + ":" + key)
}

// Set persists a value inside an update transaction
func (s *BadgerStore) Set(ctx context.Context, domain repository.Domain, key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(domain, key), value)
	})

	if err != nil {
		return &entity.StoreWriteError{Backend: "badger", Err: err}
	}

	return nil
}

// Get retrieves a value, or nil if the key is absent
func (s *BadgerStore) Get(ctx context.Context, domain repository.Domain, key string) ([]byte, error) {
	var value []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(domain, key))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			value = append([]byte(nil), val...)
			return nil
		})
	})

	if err == badger.ErrKeyNotFound {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return value, nil
}

// Delete removes a key; deleting an absent key is not an error
func (s *BadgerStore) Delete(ctx context.Context, domain repository.Domain, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(recordKey(domain, key))
	})

	if err != nil {
		return &entity.StoreWriteError{Backend: "badger", Err: err}
	}

	return nil
}

// Clear drops every record in the cache domains. Settings, credentials
// included, are deliberately left alone.
func (s *BadgerStore) Clear(ctx context.Context) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		for _, domain := range repository.CacheDomains {
			prefix := []byte(string(domain) + ":")

			var keys [][]byte
			it := txn.NewIterator(opts)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				keys = append(keys, it.Item().KeyCopy(nil))
			}
			it.Close()

			for _, key := range keys {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
		}

		return nil
	})

	if err != nil {
		return &entity.StoreWriteError{Backend: "badger", Err: err}
	}

	return nil
}

// Close closes the underlying database
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Ensure BadgerStore implements repository.Store
var _ repository.Store = (*BadgerStore)(nil)
