package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v3"
)

// badgerRepository is the BadgerDB implementation of RecordStore.
type badgerRepository struct {
	db *badger.DB
}

// NewBadgerRepository opens (or creates) a BadgerDB database in dbPath.
func NewBadgerRepository(dbPath string) (RecordStore, error) {
	opts := badger.DefaultOptions(dbPath)
	// Badger's own logging is noisy; errors are still returned from DB operations.
	opts.Logger = nil
	return openBadger(opts)
}

// NewInMemoryBadgerRepository opens a BadgerDB instance that lives only in memory.
func NewInMemoryBadgerRepository() (RecordStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openBadger(opts)
}

func openBadger(opts badger.Options) (RecordStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &badgerRepository{db: db}, nil
}

// Put marshals value into JSON and saves it under key in one transaction.
func (r *badgerRepository) Put(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Get loads the record stored under key.
func (r *badgerRepository) Get(ctx context.Context, key string, dest any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			// Checked outside the transaction.
			return err
		}

		return item.Value(func(val []byte) error {
			if len(val) == 0 {
				return ErrEmptyValue
			}
			return json.Unmarshal(val, dest)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Close gracefully closes the connection to the database.
func (r *badgerRepository) Close() error {
	return r.db.Close()
}
