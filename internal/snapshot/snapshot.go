// Package snapshot is the local durable storage the stores persist their
// snapshots to. Each snapshot is an opaque JSON document under a string key.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNotFound is returned by Load when nothing was saved under the key.
var ErrNotFound = errors.New("snapshot not found")

// Storage reads and writes snapshots by key.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	// Remove deletes the snapshot. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

func validKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\:`) || strings.HasPrefix(key, ".") {
		return fmt.Errorf("invalid snapshot key %q", key)
	}
	return nil
}

// Memory keeps snapshots in process memory.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *Memory) Save(_ context.Context, key string, data []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
