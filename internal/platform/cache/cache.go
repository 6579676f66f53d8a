// Package cache holds the generation cache: serialized values keyed by generation parameters,
// each valid for a fixed time-to-live after it was stored.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
)

// Cache is safe for concurrent use. Get reports a hit only for entries younger than the TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

type entry struct {
	value    []byte
	storedAt time.Time
}

// Memory is a bounded in-process cache. Entries leave on TTL expiry (checked on read) or when
// the capacity is reached, least recently used first.
type Memory struct {
	mu  sync.Mutex
	lru *lru.Cache
	ttl time.Duration
	now func() time.Time
}

type MemoryOption func(*Memory)

func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

func NewMemory(ttl time.Duration, maxEntries int, opts ...MemoryOption) *Memory {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	m := &Memory{lru: lru.New(maxEntries), ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	e := v.(entry)
	if m.now().Sub(e.storedAt) >= m.ttl {
		m.lru.Remove(key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Add(key, entry{value: append([]byte(nil), value...), storedAt: m.now()})
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Remove(key)
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Clear()
	return nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}
