// Package memory provides an in-process TTL cache with lazy eviction.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/regattahq/raceboard/internal/race"
)

type entry struct {
	payload   []byte
	expiresAt time.Time
}

// Cache is an instance-local map with wall-clock expiry checked on
// read. There is no background sweep; expired entries are deleted the
// next time they are looked up. It is not shared across instances —
// the persisted cache is the cross-instance source of truth.
type Cache struct {
	clock race.Clock

	mu      sync.Mutex
	entries map[string]entry
}

// New builds a Cache around the injected clock.
func New(clock race.Clock) *Cache {
	return &Cache{
		clock:   clock,
		entries: make(map[string]entry),
	}
}

// Get returns the payload when present and fresh. A stale entry is
// removed and reported as absent.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.clock.Now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return e.payload, true, nil
}

// Set stores the payload until now+ttl.
func (c *Cache) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{
		payload:   append([]byte(nil), payload...),
		expiresAt: c.clock.Now().Add(ttl),
	}
	return nil
}

// Len reports the number of stored entries, stale ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
