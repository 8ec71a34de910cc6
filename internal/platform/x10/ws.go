package x10

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/perpflow/perparbbot/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// WSClient consumes the X10 public orderbook stream and maintains the latest
// book per market. The REST client reads those books through Snapshot so
// depth checks can skip a round trip when the stream is fresh.
type WSClient struct {
	wsURL string
	conn  *websocket.Conn

	mu     sync.RWMutex
	closed bool

	// Markets to (re)subscribe after connect.
	markets []string

	bookMu sync.RWMutex
	books  map[string]domain.OrderbookSnapshot

	// done is closed when the client is shut down.
	done chan struct{}
}

// wsCommand is the subscribe/unsubscribe frame for the orderbook channel.
type wsCommand struct {
	Type    string   `json:"type"`
	Channel string   `json:"channel"`
	Markets []string `json:"markets"`
}

// NewWSClient creates a stream client for the given WebSocket URL, e.g.
// "wss://api.extended.exchange/stream.extended.exchange/v1/orderbooks".
func NewWSClient(wsURL string) *WSClient {
	return &WSClient{
		wsURL: wsURL,
		books: map[string]domain.OrderbookSnapshot{},
		done:  make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and starts the read and ping
// loops.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("x10/ws: client closed")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("x10/ws: connect: %w", err)
	}

	w.conn = conn

	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go w.readLoop()
	go w.pingLoop()

	// Restore subscriptions after reconnect.
	if len(w.markets) > 0 {
		if err := w.sendCommand(wsCommand{Type: "subscribe", Channel: "orderbook", Markets: w.markets}); err != nil {
			return fmt.Errorf("x10/ws: restore subscription: %w", err)
		}
	}

	return nil
}

// Subscribe subscribes to orderbook snapshots for the given venue markets.
func (w *WSClient) Subscribe(ctx context.Context, markets []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("x10/ws: not connected")
	}

	cmd := wsCommand{Type: "subscribe", Channel: "orderbook", Markets: markets}
	if err := w.sendCommand(cmd); err != nil {
		return fmt.Errorf("x10/ws: subscribe: %w", err)
	}

	w.markets = append(w.markets, markets...)
	return nil
}

// Snapshot returns the latest book for a venue market name, if any has been
// received. The snapshot's FetchedAt carries the receive time; callers judge
// freshness themselves.
func (w *WSClient) Snapshot(market string) (domain.OrderbookSnapshot, bool) {
	w.bookMu.RLock()
	defer w.bookMu.RUnlock()
	snap, ok := w.books[market]
	return snap, ok
}

// Close shuts down the WebSocket connection and stops the loops.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	close(w.done)

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}

	return nil
}

// sendCommand sends a JSON command to the WebSocket. Caller must hold w.mu.
func (w *WSClient) sendCommand(cmd wsCommand) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop reads stream messages and updates the per-market books. On
// disconnect it hands off to reconnect.
func (w *WSClient) readLoop() {
	defer func() {
		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()
		if conn != nil {
			conn.Close()
		}
	}()

	for {
		select {
		case <-w.done:
			return
		default:
		}

		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
				return
			default:
			}
			w.reconnect()
			return // readLoop is restarted by reconnect -> Connect
		}

		w.handleMessage(message)
	}
}

// pingLoop sends periodic ping messages to keep the WebSocket alive.
func (w *WSClient) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.mu.RLock()
			conn := w.conn
			w.mu.RUnlock()

			if conn == nil {
				return
			}

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage parses one stream frame and replaces the stored book for its
// market. Only SNAPSHOT frames are consumed; the stream is subscribed in
// snapshot mode so every frame carries the full book.
func (w *WSClient) handleMessage(raw []byte) {
	var msg StreamMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return // drop unparseable frames
	}
	if msg.Type != "SNAPSHOT" || msg.Data.Market == "" {
		return
	}

	snap := snapshotFromWire(msg.Data.Market, msg.Data, time.Now().UTC())

	w.bookMu.Lock()
	w.books[msg.Data.Market] = snap
	w.bookMu.Unlock()
}

// reconnect re-establishes the connection with exponential backoff. It
// blocks until successful or the client is closed.
func (w *WSClient) reconnect() {
	delay := reconnectDelay

	for {
		select {
		case <-w.done:
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := w.Connect(ctx)
		cancel()
		if err == nil {
			return
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}
