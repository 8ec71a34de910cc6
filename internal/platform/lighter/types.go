package lighter

// BookOrder is a single resting order level returned by the orderBookOrders
// endpoint. Numeric fields are decimal strings.
type BookOrder struct {
	Price               string `json:"price"`
	RemainingBaseAmount string `json:"remaining_base_amount"`
}

// OrderBookOrdersResponse is the top-N depth response for one market.
type OrderBookOrdersResponse struct {
	Code int         `json:"code"`
	Bids []BookOrder `json:"bids"`
	Asks []BookOrder `json:"asks"`
}

// OrderBookDetail is one market's metadata from the orderBookDetails index.
type OrderBookDetail struct {
	Symbol   string `json:"symbol"`
	MarketID int    `json:"market_id"`
	Status   string `json:"status"`
}

// OrderBookDetailsResponse lists all markets and their ids.
type OrderBookDetailsResponse struct {
	Code             int               `json:"code"`
	OrderBookDetails []OrderBookDetail `json:"order_book_details"`
}

// ErrorResponse is the error envelope for non-2xx responses.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
