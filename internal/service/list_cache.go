package service

import (
	"context"
	"sync"
	"time"
)

const (
	certificateListNamespace  = "certificates.list"
	certificateStatsNamespace = "certificates.stats"
)

// ListCacheStore holds serialized list pages grouped into namespaces that are
// dropped wholesale whenever the underlying rows change. Each invalidation
// bumps the namespace generation; Set is a no-op unless the generation the
// caller observed before loading is still current, so a load that raced an
// invalidation never repopulates the cache.
type ListCacheStore interface {
	Generation(ctx context.Context, namespace string) (uint64, error)
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Set(ctx context.Context, namespace, key string, generation uint64, value []byte, ttl time.Duration) error
	InvalidateNamespace(ctx context.Context, namespace string) error
}

type NoopListCacheStore struct{}

func NewNoopListCacheStore() *NoopListCacheStore {
	return &NoopListCacheStore{}
}

func (NoopListCacheStore) Generation(context.Context, string) (uint64, error) { return 0, nil }

func (NoopListCacheStore) Get(context.Context, string, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NoopListCacheStore) Set(context.Context, string, string, uint64, []byte, time.Duration) error {
	return nil
}

func (NoopListCacheStore) InvalidateNamespace(context.Context, string) error { return nil }

type listCacheEntry struct {
	payload   []byte
	expiresAt time.Time
}

type InMemoryListCacheStore struct {
	mu          sync.RWMutex
	store       map[string]map[string]listCacheEntry
	generations map[string]uint64
	now         func() time.Time
}

func NewInMemoryListCacheStore() *InMemoryListCacheStore {
	return &InMemoryListCacheStore{
		store:       make(map[string]map[string]listCacheEntry),
		generations: make(map[string]uint64),
		now:         time.Now,
	}
}

func (s *InMemoryListCacheStore) Generation(_ context.Context, namespace string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generations[namespace], nil
}

func (s *InMemoryListCacheStore) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.store[namespace][key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if s.now().After(entry.expiresAt) {
		s.mu.Lock()
		// A concurrent Set may have refreshed the entry since the read lock.
		if ns, ok := s.store[namespace]; ok {
			if current, ok := ns[key]; ok && s.now().After(current.expiresAt) {
				delete(ns, key)
				if len(ns) == 0 {
					delete(s.store, namespace)
				}
			}
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), entry.payload...), true, nil
}

func (s *InMemoryListCacheStore) Set(_ context.Context, namespace, key string, generation uint64, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[namespace] != generation {
		return nil
	}
	ns, ok := s.store[namespace]
	if !ok {
		ns = make(map[string]listCacheEntry)
		s.store[namespace] = ns
	}
	ns[key] = listCacheEntry{
		payload:   append([]byte(nil), value...),
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *InMemoryListCacheStore) InvalidateNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[namespace]++
	delete(s.store, namespace)
	return nil
}
