// Package nvs provides the non-volatile key-value storage used to persist
// per-peer GATT state, most notably CCCD contents, across reboots.
//
// The store is backed by a 99designs/keyring Keyring. On a host build the
// file backend plays the role of the NVS partition; tests use an in-memory
// ArrayKeyring.
package nvs

import (
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"
)

// Store is a mutex-guarded handle to a single non-volatile namespace.
type Store struct {
	mu   sync.Mutex
	ring keyring.Keyring
}

// NewStore wraps an opened keyring.
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Open opens a file-backed store rooted at dir under the given namespace.
func Open(namespace, dir string) (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:      namespace,
		AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
		FileDir:          dir,
		FilePasswordFunc: keyring.FixedStringPrompt(namespace),
	})
	if err != nil {
		return nil, fmt.Errorf("nvs: cannot open storage namespace %q: %w", namespace, err)
	}
	return &Store{ring: ring}, nil
}

// Get returns the value stored at key. The second return value reports
// whether the key was present.
func (s *Store) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("nvs: get %q: %w", key, err)
	}
	return item.Data, true, nil
}

// Put stores value at key, replacing any previous contents.
func (s *Store) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ring.Set(keyring.Item{Key: key, Data: value}); err != nil {
		return fmt.Errorf("nvs: put %q: %w", key, err)
	}
	return nil
}

// Keys lists every key in the namespace.
func (s *Store) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys, err := s.ring.Keys()
	if err != nil {
		return nil, fmt.Errorf("nvs: keys: %w", err)
	}
	return keys, nil
}

var (
	defaultMu    sync.Mutex
	defaultStore *Store
)

// SetDefault installs the process-wide store. The facade's generated CCCD
// callbacks read and write through the default store.
func SetDefault(s *Store) {
	defaultMu.Lock()
	defaultStore = s
	defaultMu.Unlock()
}

// Default returns the process-wide store, or nil if none has been set.
func Default() *Store {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultStore
}
