// ABOUTME: Key-value store interface for durable session state
// ABOUTME: Defines the Store contract with in-memory and SQLite implementations

package keystore

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when a requested key does not exist
var ErrNotFound = errors.New("key not found")

// Store defines the interface for durable key-value persistence.
// The session core funnels all token and cached-user writes through
// a single Store so entries are never partially updated by two owners.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store
	Close() error
}

// Memory implements Store with a mutex-guarded map.
// Used in tests and for ephemeral sessions that should not outlive the process.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]string)}
}

// Get returns the value for key, or ErrNotFound.
func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores value under key, replacing any existing entry.
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error {
	return nil
}
