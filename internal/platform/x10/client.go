// Package x10 implements the depth provider for the X10 (Extended) exchange.
// Depth is served from the live websocket book when it is fresh and deep
// enough, falling back to the REST orderbook endpoint.
package x10

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/perpflow/perparbbot/internal/domain"
	"github.com/perpflow/perparbbot/internal/platform/retry"
)

// VenueName is the stable name used in results and logs.
const VenueName = "X10"

// maxDepthLevels is the venue cap on orderbook depth requests.
const maxDepthLevels = 200

// wsMaxAge is how old a websocket book may be before FetchDepth falls back
// to REST.
const wsMaxAge = 2 * time.Second

// Client is the market-data client for X10.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	limiter     domain.RateLimiter
	limiterKey  string
	retryConfig retry.Config

	// marketMap overrides symbol -> venue market name resolution.
	marketMap map[string]string

	// stream, when set, provides live books maintained over websocket.
	stream *WSClient
}

// NewClient creates a new X10 REST client.
//
// baseURL is the API root, e.g. "https://api.extended.exchange/api/v1".
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiterKey: "x10:marketdata",
		marketMap:  map[string]string{},
	}
}

// SetMarketMap overrides symbol to venue market name resolution, e.g.
// "BTC-PERP" -> "BTC-USD".
func (c *Client) SetMarketMap(m map[string]string) {
	if m != nil {
		c.marketMap = m
	}
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

// SetStream attaches a websocket stream whose live books are preferred over
// REST when fresh.
func (c *Client) SetStream(ws *WSClient) {
	c.stream = ws
}

// Venue implements domain.DepthProvider.
func (c *Client) Venue() string { return VenueName }

// FetchDepth implements domain.DepthProvider. The live websocket book is
// used when it is younger than wsMaxAge and holds at least the requested
// number of levels on both sides; otherwise the REST endpoint is queried
// with bounded internal retry.
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

	market := c.ResolveMarket(symbol)

	if c.stream != nil {
		if snap, ok := c.stream.Snapshot(market); ok {
			age := time.Since(snap.FetchedAt)
			deep := len(snap.Bids) >= levels && len(snap.Asks) >= levels
			// A partially filled live book is only trusted for the
			// levels it actually holds.
			if age <= wsMaxAge && deep {
				snap.Symbol = symbol
				snap.Bids = snap.Bids[:levels]
				snap.Asks = snap.Asks[:levels]
				return snap, nil
			}
		}
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(levels))
	path := "/info/markets/" + url.PathEscape(market) + "/orderbook?" + params.Encode()

	var resp OrderbookResponse
	err := retry.Do(ctx, c.retryConfig, func(ctx context.Context) error {
		body, err := c.get(ctx, path)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return domain.NewVenueError(VenueName, domain.ClassRetryable,
				fmt.Errorf("decode orderbook: %w", err))
		}
		if resp.Status != "" && resp.Status != "OK" {
			msg := resp.Status
			if resp.Error != nil {
				msg = fmt.Sprintf("%s (%d)", resp.Error.Message, resp.Error.Code)
			}
			return domain.NewVenueError(VenueName, domain.ClassFatal,
				fmt.Errorf("api status: %s", msg))
		}
		return nil
	})
	if err != nil {
		return domain.OrderbookSnapshot{}, err
	}

	snap := snapshotFromWire(market, resp.Data, time.Now().UTC())
	snap.Symbol = symbol
	return snap, nil
}

// ResolveMarket maps a bot symbol to the venue market name. Without an
// explicit mapping, perp symbols follow the venue's -USD convention.
func (c *Client) ResolveMarket(symbol string) string {
	if m, ok := c.marketMap[symbol]; ok {
		return m
	}
	if base, ok := strings.CutSuffix(symbol, "-PERP"); ok {
		return base + "-USD"
	}
	return symbol
}

// snapshotFromWire converts wire depth to a domain snapshot, dropping levels
// with a non-positive price or quantity. X10 returns bids high-to-low and
// asks low-to-high already.
func snapshotFromWire(market string, data OrderbookData, at time.Time) domain.OrderbookSnapshot {
	parse := func(levels []WireLevel) []domain.PriceLevel {
		out := make([]domain.PriceLevel, 0, len(levels))
		for _, l := range levels {
			price, err := strconv.ParseFloat(l.Price, 64)
			if err != nil || price <= 0 {
				continue
			}
			qty, err := strconv.ParseFloat(l.Qty, 64)
			if err != nil || qty <= 0 {
				continue
			}
			out = append(out, domain.PriceLevel{Price: price, Qty: qty})
		}
		return out
	}
	return domain.OrderbookSnapshot{
		Venue:     VenueName,
		Symbol:    market,
		Bids:      parse(data.Bids),
		Asks:      parse(data.Asks),
		FetchedAt: at,
	}
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
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
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

const (
	requestsPerWindow = 20
	limiterWindow     = time.Second
)

// checkStatus maps non-2xx HTTP status codes to classified errors.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr struct {
		Error APIError `json:"error"`
	}
	_ = json.Unmarshal(body, &apiErr)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return domain.NewVenueError(VenueName, domain.ClassRateLimited,
			fmt.Errorf("HTTP 429: %s: %w", apiErr.Error.Message, domain.ErrRateLimited))
	case statusCode >= 500:
		return domain.NewVenueError(VenueName, domain.ClassRetryable,
			fmt.Errorf("HTTP %d: %s", statusCode, apiErr.Error.Message))
	default:
		return domain.NewVenueError(VenueName, domain.ClassFatal,
			fmt.Errorf("HTTP %d: %s", statusCode, apiErr.Error.Message))
	}
}

// Compile-time interface check.
var _ domain.DepthProvider = (*Client)(nil)
