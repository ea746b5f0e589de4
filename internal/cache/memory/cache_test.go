package memory

import (
	"context"
	"sync"
	"testing"
	"time"

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

func TestCacheHitWithinTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := New(clock)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "e1_results", []byte(`{"a":1}`), 5*time.Minute))

	clock.Advance(5*time.Minute - time.Second)
	payload, ok, err := c.Get(ctx, "e1_results")
	require.NoError(t, err)
	require.True(t, ok, "one second before expiry is a hit")
	require.Equal(t, []byte(`{"a":1}`), payload)
}

func TestCacheMissAfterTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := New(clock)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "e1_results", []byte("x"), 5*time.Minute))

	clock.Advance(5*time.Minute + time.Second)
	_, ok, err := c.Get(ctx, "e1_results")
	require.NoError(t, err)
	require.False(t, ok, "one second past expiry is a miss")
	require.Equal(t, 0, c.Len(), "the stale entry is evicted on read")
}

func TestCacheExactExpiryIsMiss(t *testing.T) {
	clock := &fakeClock{}
	c := New(clock)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	clock.Advance(time.Minute)
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCacheUnknownKey(t *testing.T) {
	c := New(&fakeClock{})
	_, ok, err := c.Get(context.Background(), "nope")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCacheOverwrite(t *testing.T) {
	clock := &fakeClock{}
	c := New(clock)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("old"), time.Minute))
	require.NoError(t, c.Set(ctx, "k", []byte("new"), time.Minute))

	payload, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("new"), payload)
	require.Equal(t, 1, c.Len())
}
