package session

import (
	"context"
	"maps"
	"sync"
	"time"
)

type memoryEntry struct {
	values    map[string]string
	expiresAt time.Time
}

// MemoryStorage keeps sessions in process memory.
type MemoryStorage struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

func NewMemoryStorage(ttl time.Duration) *MemoryStorage {
	return &MemoryStorage{ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (m *MemoryStorage) Load(_ context.Context, id string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok || time.Now().After(e.expiresAt) {
		return map[string]string{}, nil
	}
	return maps.Clone(e.values), nil
}

func (m *MemoryStorage) Save(_ context.Context, id string, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = memoryEntry{values: maps.Clone(values), expiresAt: time.Now().Add(m.ttl)}
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

// CleanExpired drops expired sessions. It satisfies cache.Cleaner so the
// cache manager's ticker can sweep it.
func (m *MemoryStorage) CleanExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	n := 0
	for id, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, id)
			n++
		}
	}
	return n
}
