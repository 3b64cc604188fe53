package adapter

import (
	"context"
	"sync"
	"time"

	"pdf-quiz/internal/domain"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// sweepInterval bounds how often Set scans for expired entries.
const sweepInterval = time.Minute

// MemoryCacheAdapter is an in-process domain.Cache used when no Redis address is configured.
// Expired entries are dropped on read and by a periodic sweep during Set.
type MemoryCacheAdapter struct {
	mu        sync.RWMutex
	items     map[string]memoryEntry
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryCacheAdapter() *MemoryCacheAdapter {
	return &MemoryCacheAdapter{
		items: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

func (m *MemoryCacheAdapter) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	entry, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return "", domain.ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		m.mu.Lock()
		if cur, still := m.items[key]; still && cur.expiresAt.Equal(entry.expiresAt) {
			delete(m.items, key)
		}
		m.mu.Unlock()
		return "", domain.ErrCacheMiss
	}
	return entry.value, nil
}

func (m *MemoryCacheAdapter) Set(_ context.Context, key string, value string, expiration time.Duration) error {
	entry := memoryEntry{value: value}
	if expiration > 0 {
		entry.expiresAt = m.now().Add(expiration)
	}
	m.mu.Lock()
	m.sweepLocked()
	m.items[key] = entry
	m.mu.Unlock()
	return nil
}

// sweepLocked removes every expired entry, at most once per sweepInterval.
func (m *MemoryCacheAdapter) sweepLocked() {
	now := m.now()
	if now.Sub(m.lastSweep) < sweepInterval {
		return
	}
	m.lastSweep = now
	for k, e := range m.items {
		if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
			delete(m.items, k)
		}
	}
}

func (m *MemoryCacheAdapter) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCacheAdapter) Ping(context.Context) error { return nil }

var _ domain.Cache = (*MemoryCacheAdapter)(nil)
