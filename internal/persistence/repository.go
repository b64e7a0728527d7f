package persistence

import (
	"context"
	"errors"
)

// ErrEmptyValue is returned when a key exists but holds no bytes.
var ErrEmptyValue = errors.New("record value is empty in store")

// RecordStore defines durable key/value storage for JSON records.
// It abstracts the underlying storage mechanism (BadgerDB, SQLite, Redis,
// in-memory) from the rest of the application. Each Put is atomic for its
// single key; there are no cross-key transactions.
type RecordStore interface {
	// Get decodes the record stored under key into dest.
	// If the key is absent it returns (false, nil) and leaves dest untouched.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Put encodes value and stores it under key, replacing any previous value.
	Put(ctx context.Context, key string, value any) error

	// Close gracefully closes the connection to the backend.
	Close() error
}
