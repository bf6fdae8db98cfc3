package cache

import (
	"context"
	"sync"
	"time"

	"github.com/fyrsmithlabs/meetextract/internal/extraction"
)

const defaultMaxEntries = 1024

type memoryEntry struct {
	res     *extraction.Result
	expires time.Time
}

// Memory is an in-process cache with per-entry TTL.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewMemory returns a memory cache. A zero ttl means entries never expire.
func NewMemory(ttl time.Duration, maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Memory{
		entries:    map[string]memoryEntry{},
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) (*extraction.Result, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.res, true, nil
}

// Set implements Cache. When full, expired entries are dropped first, then
// the entry closest to expiry.
func (m *Memory) Set(_ context.Context, key string, res *extraction.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		m.evict()
	}
	e := memoryEntry{res: res}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) evict() {
	now := m.now()
	var oldestKey string
	var oldest time.Time
	for k, e := range m.entries {
		if !e.expires.IsZero() && now.After(e.expires) {
			delete(m.entries, k)
			continue
		}
		if oldestKey == "" || e.expires.Before(oldest) {
			oldestKey, oldest = k, e.expires
		}
	}
	if len(m.entries) >= m.maxEntries && oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close implements Cache.
func (m *Memory) Close() error { return nil }
