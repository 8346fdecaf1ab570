package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Store is a byte-exact key/value store. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the cached value for key and whether it was present.
	Get(key string) ([]byte, bool, error)

	// Set stores value under key. A Set that returns an error must leave
	// the store without a partial entry for key.
	Set(key string, value []byte) error

	// Len returns the number of entries, where countable.
	Len() int

	// Close releases any underlying resources.
	Close() error
}

// Memory is an in-memory Store scoped to one processing session.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

// Get implements Store.
func (m *Memory) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

// Set implements Store.
func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

// Len implements Store.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close implements Store.
func (m *Memory) Close() error { return nil }

// Key returns the hex SHA-256 digest of payload. This is the only key
// derivation the cache supports: no normalization, no partial matching.
func Key(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Result carries the outcome of a Keyed.Do call.
type Result struct {
	Value []byte
	// Hit is true when the value came from the store without invoking fn.
	Hit bool
	// Shared is true when this caller piggybacked on a concurrent
	// identical request instead of issuing its own.
	Shared bool
}

// Keyed wraps a Store with single-flight semantics keyed by payload digest.
type Keyed struct {
	store Store
	group singleflight.Group
}

// NewKeyed creates a Keyed front over store.
func NewKeyed(store Store) *Keyed {
	return &Keyed{store: store}
}

// Do returns the cached value for payload, or invokes fn exactly once to
// produce it. Concurrent callers with the identical payload wait on the
// first call rather than issuing duplicates. The store is written before
// the value is returned, and never written when fn fails, so cancellation
// at any point leaves no half-committed entry.
func (k *Keyed) Do(ctx context.Context, payload []byte, fn func(ctx context.Context) ([]byte, error)) (Result, error) {
	key := Key(payload)

	if v, ok, err := k.store.Get(key); err != nil {
		return Result{}, err
	} else if ok {
		return Result{Value: v, Hit: true}, nil
	}

	v, err, shared := k.group.Do(key, func() (interface{}, error) {
		// Re-check under the flight: a concurrent caller may have
		// completed and written between our Get and Do.
		if v, ok, err := k.store.Get(key); err != nil {
			return nil, err
		} else if ok {
			return v, nil
		}

		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if err := k.store.Set(key, value); err != nil {
			return nil, err
		}
		return value, nil
	})
	if err != nil {
		return Result{}, err
	}

	return Result{Value: v.([]byte), Shared: shared}, nil
}

// Store returns the underlying store.
func (k *Keyed) Store() Store { return k.store }
