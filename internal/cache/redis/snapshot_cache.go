package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/perpflow/perparbbot/internal/domain"
)

// SnapshotCache implements domain.SnapshotCache on Redis, one JSON value per
// (venue, symbol) with a server-side TTL. Expiry is enforced by Redis, so
// every bot instance sees the same reuse window.
//
// Key schema:
//
//	depth:{venue}:{symbol} - JSON-encoded snapshot, TTL = cache window
type SnapshotCache struct {
	rdb *redis.Client
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client.
func NewSnapshotCache(c *Client) *SnapshotCache {
	return &SnapshotCache{rdb: c.Underlying()}
}

func depthKey(venue, symbol string) string {
	return "depth:" + venue + ":" + symbol
}

// snapshotDoc is the stored wire form of a snapshot.
type snapshotDoc struct {
	Venue     string              `json:"venue"`
	Symbol    string              `json:"symbol"`
	Bids      []domain.PriceLevel `json:"bids"`
	Asks      []domain.PriceLevel `json:"asks"`
	FetchedAt int64               `json:"fetched_at_ns"`
}

// Get returns a non-expired snapshot for (venue, symbol), or
// domain.ErrNotFound once Redis has dropped the key.
func (sc *SnapshotCache) Get(ctx context.Context, venue, symbol string) (domain.OrderbookSnapshot, error) {
	raw, err := sc.rdb.Get(ctx, depthKey(venue, symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.OrderbookSnapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis: get snapshot %s/%s: %w", venue, symbol, err)
	}

	var doc snapshotDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis: decode snapshot %s/%s: %w", venue, symbol, err)
	}

	return domain.OrderbookSnapshot{
		Venue:     doc.Venue,
		Symbol:    doc.Symbol,
		Bids:      doc.Bids,
		Asks:      doc.Asks,
		FetchedAt: time.Unix(0, doc.FetchedAt),
	}, nil
}

// Set stores snap under its (venue, symbol) key for ttl. Non-positive ttl
// entries are not stored.
func (sc *SnapshotCache) Set(ctx context.Context, snap domain.OrderbookSnapshot, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	doc := snapshotDoc{
		Venue:     snap.Venue,
		Symbol:    snap.Symbol,
		Bids:      snap.Bids,
		Asks:      snap.Asks,
		FetchedAt: snap.FetchedAt.UnixNano(),
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("redis: encode snapshot %s/%s: %w", snap.Venue, snap.Symbol, err)
	}

	if err := sc.rdb.Set(ctx, depthKey(snap.Venue, snap.Symbol), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot %s/%s: %w", snap.Venue, snap.Symbol, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SnapshotCache = (*SnapshotCache)(nil)
