package x10

// WireLevel is one (qty, price) level as sent by the X10 API. Numeric fields
// are decimal strings.
type WireLevel struct {
	Qty   string `json:"qty"`
	Price string `json:"price"`
}

// OrderbookData is the payload of an orderbook response or stream message.
type OrderbookData struct {
	Market string      `json:"market"`
	Bids   []WireLevel `json:"bid"`
	Asks   []WireLevel `json:"ask"`
}

// OrderbookResponse is the REST envelope for the market orderbook endpoint.
type OrderbookResponse struct {
	Status string        `json:"status"`
	Data   OrderbookData `json:"data"`
	Error  *APIError     `json:"error,omitempty"`
}

// APIError is the error body returned on non-OK statuses.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// StreamMessage is one message from the orderbook websocket stream.
type StreamMessage struct {
	Type      string        `json:"type"`
	Data      OrderbookData `json:"data"`
	Timestamp int64         `json:"ts"`
	Seq       int64         `json:"seq"`
}
