// Package memory implements domain cache interfaces with in-process storage,
// for single-instance deployments and tests where Redis is not wired.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/perpflow/perparbbot/internal/domain"
)

type entry struct {
	snap      domain.OrderbookSnapshot
	expiresAt time.Time
}

// SnapshotCache is a mutex-guarded single-entry-per-key TTL cache of
// orderbook snapshots. Last write for a key wins.
type SnapshotCache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewSnapshotCache creates an empty cache.
func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{
		entries: map[string]entry{},
	}
}

func cacheKey(venue, symbol string) string {
	return venue + ":" + symbol
}

// Get returns a non-expired snapshot for (venue, symbol), or
// domain.ErrNotFound. Expired entries are dropped on read.
func (c *SnapshotCache) Get(ctx context.Context, venue, symbol string) (domain.OrderbookSnapshot, error) {
	key := cacheKey(venue, symbol)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return domain.OrderbookSnapshot{}, domain.ErrNotFound
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a fresher entry may have landed.
		if cur, ok := c.entries[key]; ok && time.Now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return domain.OrderbookSnapshot{}, domain.ErrNotFound
	}
	return e.snap, nil
}

// Set stores snap under (venue, symbol) for ttl. Non-positive ttl entries
// are not stored.
func (c *SnapshotCache) Set(ctx context.Context, snap domain.OrderbookSnapshot, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	c.entries[cacheKey(snap.Venue, snap.Symbol)] = entry{
		snap:      snap,
		expiresAt: time.Now().Add(ttl),
	}
	c.mu.Unlock()
	return nil
}

// Compile-time interface check.
var _ domain.SnapshotCache = (*SnapshotCache)(nil)
