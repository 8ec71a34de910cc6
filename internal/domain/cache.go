package domain

import (
	"context"
	"time"
)

// SnapshotCache stores recent orderbook snapshots keyed by (venue, symbol)
// so back-to-back checks within a tight window reuse one fetch. A single
// entry is kept per key; the last write wins. Implementations must be safe
// for concurrent use.
type SnapshotCache interface {
	// Get returns a non-expired snapshot, or ErrNotFound on miss/expiry.
	Get(ctx context.Context, venue, symbol string) (OrderbookSnapshot, error)

	// Set stores snap under (venue, symbol) for at most ttl.
	Set(ctx context.Context, snap OrderbookSnapshot, ttl time.Duration) error
}

// RateLimiter provides request budgeting shared across adapter instances.
type RateLimiter interface {
	// Allow reports whether a request for key is permitted under the given
	// sliding-window budget, counting the request if so.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	// Wait blocks until a request for key is allowed or ctx is done.
	Wait(ctx context.Context, key string) error
}
