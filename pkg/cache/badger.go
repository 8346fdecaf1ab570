package cache

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Badger is a persistent Store backed by BadgerDB, used when embedding
// caches should survive across processing sessions.
type Badger struct {
	db *badger.DB
}

// BadgerOptions configures the persistent store.
type BadgerOptions struct {
	// Dir is the data directory. Required unless InMemory is set.
	Dir string

	// InMemory runs Badger without persistence. Useful for tests.
	InMemory bool

	// SyncWrites forces fsync after each write.
	SyncWrites bool
}

// NewBadger opens (or creates) a Badger-backed store.
func NewBadger(opts BadgerOptions) (*Badger, error) {
	bopts := badger.DefaultOptions(opts.Dir).
		WithInMemory(opts.InMemory).
		WithSyncWrites(opts.SyncWrites).
		WithLogger(nil)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &Badger{db: db}, nil
}

// Get implements Store.
func (b *Badger) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger get: %w", err)
	}
	return value, true, nil
}

// Set implements Store. Badger transactions are atomic, so a failed write
// never leaves a partial entry.
func (b *Badger) Set(key string, value []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("badger set: %w", err)
	}
	return nil
}

// Len implements Store by counting keys. Linear in entry count; intended
// for stats reporting, not hot paths.
func (b *Badger) Len() int {
	count := 0
	_ = b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count
}

// Close implements Store.
func (b *Badger) Close() error {
	return b.db.Close()
}
