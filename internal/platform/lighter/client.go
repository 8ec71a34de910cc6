// Package lighter implements the depth provider for the Lighter exchange
// REST API.
package lighter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/perpflow/perparbbot/internal/domain"
	"github.com/perpflow/perparbbot/internal/platform/retry"
)

// VenueName is the stable name used in results and logs.
const VenueName = "Lighter"

// maxDepthLevels is the venue cap on orderbook depth requests.
const maxDepthLevels = 250

// Client is the REST client for Lighter public market data.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client

	limiter     domain.RateLimiter
	limiterKey  string
	retryConfig retry.Config

	mu        sync.RWMutex
	marketIDs map[string]int
}

// NewClient creates a new Lighter REST client.
//
// baseURL is the API root, e.g. "https://mainnet.zklighter.elliot.ai/api/v1".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiterKey: "lighter:marketdata",
		marketIDs:  map[string]int{},
	}
}

// SetAuthToken configures an optional bearer token for authenticated market
// data access (raises the venue's rate budget).
func (c *Client) SetAuthToken(token string) {
	c.authToken = token
}

// SetRateLimiter installs a shared request limiter consulted before every
// HTTP call. A nil limiter means no client-side budgeting.
func (c *Client) SetRateLimiter(rl domain.RateLimiter) {
	c.limiter = rl
}

// SetRetryConfig overrides the default bounded-retry parameters.
func (c *Client) SetRetryConfig(cfg retry.Config) {
	c.retryConfig = cfg
}

// Venue implements domain.DepthProvider.
func (c *Client) Venue() string { return VenueName }

// FetchDepth implements domain.DepthProvider. It resolves the symbol to a
// Lighter market id (cached after the first lookup) and fetches up to levels
// entries per side, retrying transient failures internally.
func (c *Client) FetchDepth(ctx context.Context, symbol string, levels int) (domain.OrderbookSnapshot, error) {
	if symbol == "" {
		return domain.OrderbookSnapshot{}, domain.NewVenueError(VenueName, domain.ClassFatal,
			fmt.Errorf("empty symbol: %w", domain.ErrInvalidInput))
	}
	if levels < 1 {
		levels = 1
	}
	if levels > maxDepthLevels {
		levels = maxDepthLevels
	}

	marketID, err := c.marketID(ctx, symbol)
	if err != nil {
		return domain.OrderbookSnapshot{}, err
	}

	params := url.Values{}
	params.Set("market_id", strconv.Itoa(marketID))
	params.Set("limit", strconv.Itoa(levels))
	path := "/orderBookOrders?" + params.Encode()

	var resp OrderBookOrdersResponse
	err = retry.Do(ctx, c.retryConfig, func(ctx context.Context) error {
		body, err := c.get(ctx, path)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return domain.NewVenueError(VenueName, domain.ClassRetryable,
				fmt.Errorf("decode orderbook: %w", err))
		}
		return nil
	})
	if err != nil {
		return domain.OrderbookSnapshot{}, err
	}

	snap := domain.OrderbookSnapshot{
		Venue:     VenueName,
		Symbol:    symbol,
		Bids:      parseLevels(resp.Bids),
		Asks:      parseLevels(resp.Asks),
		FetchedAt: time.Now().UTC(),
	}

	// Defensive sort; the API should already return bids high-to-low and
	// asks low-to-high.
	sort.Slice(snap.Bids, func(i, j int) bool { return snap.Bids[i].Price > snap.Bids[j].Price })
	sort.Slice(snap.Asks, func(i, j int) bool { return snap.Asks[i].Price < snap.Asks[j].Price })

	return snap, nil
}

// parseLevels converts wire levels to domain levels, dropping entries with a
// non-positive price or quantity.
func parseLevels(orders []BookOrder) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(orders))
	for _, o := range orders {
		price, err := strconv.ParseFloat(o.Price, 64)
		if err != nil || price <= 0 {
			continue
		}
		qty, err := strconv.ParseFloat(o.RemainingBaseAmount, 64)
		if err != nil || qty <= 0 {
			continue
		}
		out = append(out, domain.PriceLevel{Price: price, Qty: qty})
	}
	return out
}

// marketID resolves symbol to a Lighter market id, loading the full market
// index on first use.
func (c *Client) marketID(ctx context.Context, symbol string) (int, error) {
	c.mu.RLock()
	id, ok := c.marketIDs[symbol]
	c.mu.RUnlock()
	if ok {
		return id, nil
	}

	var resp OrderBookDetailsResponse
	err := retry.Do(ctx, c.retryConfig, func(ctx context.Context) error {
		body, err := c.get(ctx, "/orderBookDetails")
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return domain.NewVenueError(VenueName, domain.ClassRetryable,
				fmt.Errorf("decode market index: %w", err))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	for _, d := range resp.OrderBookDetails {
		if d.Symbol == "" || d.MarketID < 0 {
			continue
		}
		c.marketIDs[d.Symbol] = d.MarketID
	}
	id, ok = c.marketIDs[symbol]
	c.mu.Unlock()

	if !ok {
		return 0, domain.NewVenueError(VenueName, domain.ClassFatal,
			fmt.Errorf("unknown market %q: %w", symbol, domain.ErrNotFound))
	}
	return id, nil
}

// get performs a single GET against the API and returns the response body,
// mapping failures to classified venue errors.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if c.limiter != nil {
		allowed, err := c.limiter.Allow(ctx, c.limiterKey, requestsPerWindow, limiterWindow)
		if err != nil {
			return nil, domain.NewVenueError(VenueName, domain.ClassRetryable,
				fmt.Errorf("rate limiter: %w", err))
		}
		if !allowed {
			return nil, domain.NewVenueError(VenueName, domain.ClassRateLimited,
				fmt.Errorf("local budget exhausted: %w", domain.ErrRateLimited))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, domain.NewVenueError(VenueName, domain.ClassFatal,
			fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.NewVenueError(VenueName, domain.ClassFatal,
				fmt.Errorf("http request: %w", ctx.Err()))
		}
		return nil, domain.NewVenueError(VenueName, domain.ClassRetryable,
			fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewVenueError(VenueName, domain.ClassRetryable,
			fmt.Errorf("read response: %w", err))
	}

	if err := checkStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// Rate budget consulted through the shared limiter. Lighter allows far more,
// but the bot keeps headroom for the order path.
const (
	requestsPerWindow = 30
	limiterWindow     = time.Second
)

// checkStatus maps non-2xx HTTP status codes to classified errors.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr ErrorResponse
	_ = json.Unmarshal(body, &apiErr)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return domain.NewVenueError(VenueName, domain.ClassRateLimited,
			fmt.Errorf("HTTP 429: %s: %w", apiErr.Message, domain.ErrRateLimited))
	case statusCode >= 500:
		return domain.NewVenueError(VenueName, domain.ClassRetryable,
			fmt.Errorf("HTTP %d: %s", statusCode, apiErr.Message))
	default:
		return domain.NewVenueError(VenueName, domain.ClassFatal,
			fmt.Errorf("HTTP %d: %s", statusCode, apiErr.Message))
	}
}

// Compile-time interface check.
var _ domain.DepthProvider = (*Client)(nil)
