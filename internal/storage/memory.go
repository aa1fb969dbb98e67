package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps everything in process memory. It backs tests and the
// `memory` database URL.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[Namespace]map[string][]byte
	closed bool
	*localNotifier
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:          make(map[Namespace]map[string][]byte),
		localNotifier: newLocalNotifier(),
	}
}

func (m *MemoryStore) Get(_ context.Context, ns Namespace, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	v, ok := m.data[ns][key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Put(ctx context.Context, ns Namespace, key string, value []byte) error {
	return m.PutAll(ctx, ns, Entry{Key: key, Value: value})
}

func (m *MemoryStore) PutAll(_ context.Context, ns Namespace, entries ...Entry) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.data[ns] == nil {
		m.data[ns] = make(map[string][]byte)
	}
	for _, e := range entries {
		m.data[ns][e.Key] = append([]byte(nil), e.Value...)
	}
	m.mu.Unlock()

	m.notify(ns, entryKeys(entries)...)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, ns Namespace, key string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	delete(m.data[ns], key)
	m.mu.Unlock()

	m.notify(ns, key)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
