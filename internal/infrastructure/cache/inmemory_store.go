package cache

import (
	"context"
	"sync"
	"time"

	"github.com/photolab/backend/internal/domain/shared"
)

const defaultCleanupInterval = 5 * time.Minute

type entry struct {
	value     string
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// InMemoryStore implements Store with a map guarded by a mutex.
// State is per process; use Redis when several instances share tokens.
type InMemoryStore struct {
	mu        sync.RWMutex
	entries   map[string]entry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryStore creates a store and starts its expiry sweeper
func NewInMemoryStore() *InMemoryStore {
	return newInMemoryStore(defaultCleanupInterval, time.Now)
}

func newInMemoryStore(cleanupEvery time.Duration, now func() time.Time) *InMemoryStore {
	s := &InMemoryStore{
		entries:  make(map[string]entry),
		now:      now,
		stopChan: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.cleanupLoop(cleanupEvery)
	return s
}

// Get returns the cached value or ErrCacheMiss
func (s *InMemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || e.expired(s.now()) {
		return "", ErrCacheMiss
	}
	return e.value, nil
}

// Set stores value; a zero ttl never expires
func (s *InMemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = s.newEntry(value, ttl)
	return nil
}

// Delete removes key
func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// MarkProcessed sets key unless it is already present
func (s *InMemoryStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && !e.expired(s.now()) {
		return false, nil
	}
	s.entries[key] = s.newEntry("1", ttl)
	return true, nil
}

// IsProcessed reports whether key is present
func (s *InMemoryStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	return err == nil, nil
}

// Close stops the sweeper. Safe to call multiple times.
func (s *InMemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// Size returns the number of stored entries, expired ones included
func (s *InMemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *InMemoryStore) newEntry(value string, ttl time.Duration) entry {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	return e
}

func (s *InMemoryStore) cleanupLoop(every time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, k)
		}
	}
}

var (
	_ Store                   = (*InMemoryStore)(nil)
	_ shared.IdempotencyStore = (*InMemoryStore)(nil)
)
