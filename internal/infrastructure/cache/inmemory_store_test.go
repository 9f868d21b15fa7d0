package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T) (*InMemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := newInMemoryStore(time.Hour, clock.Now)
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func TestInMemoryStore_GetSet(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, s.Set(ctx, "token", "abc", time.Minute))
	v, err := s.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	clock.Advance(time.Minute)
	_, err = s.Get(ctx, "token")
	assert.ErrorIs(t, err, ErrCacheMiss, "entry expires exactly at its deadline")

	require.NoError(t, s.Set(ctx, "forever", "x", 0))
	clock.Advance(1000 * time.Hour)
	v, err = s.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	require.NoError(t, s.Delete(ctx, "forever"))
	_, err = s.Get(ctx, "forever")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestInMemoryStore_MarkProcessed(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	first, err := s.MarkProcessed(ctx, "evt-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := s.MarkProcessed(ctx, "evt-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, again)

	processed, err := s.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, processed)

	clock.Advance(2 * time.Hour)
	afterExpiry, err := s.MarkProcessed(ctx, "evt-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, afterExpiry)
}

func TestInMemoryStore_MarkProcessedConcurrent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := s.MarkProcessed(ctx, "same", time.Hour)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestInMemoryStore_Cleanup(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", "1", time.Second))
	require.NoError(t, s.Set(ctx, "b", "2", time.Hour))
	clock.Advance(time.Minute)

	s.cleanup()
	assert.Equal(t, 1, s.Size())
}

func TestInMemoryStore_CloseIsIdempotent(t *testing.T) {
	s := NewInMemoryStore()
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
