package api

// Request and response types for the REST endpoints and the WebSocket
// trade feed.

type RegisterTokenRequest struct {
	Symbol  string `json:"symbol"`
	IsQuote bool   `json:"isQuote"`
}

type TransferRequest struct {
	Trader string `json:"trader"` // 0x-prefixed hex address
	Token  string `json:"token"`
	Amount int64  `json:"amount"`
}

type LimitOrderRequest struct {
	Trader string `json:"trader"`
	Token  string `json:"token"`
	Side   string `json:"side"` // "buy" or "sell"
	Price  int64  `json:"price"`
	Amount int64  `json:"amount"`
}

type MarketOrderRequest struct {
	Trader string `json:"trader"`
	Token  string `json:"token"`
	Side   string `json:"side"`
	Amount int64  `json:"amount"`
}

// OrderInfo is one resting order as exported by the book snapshot.
type OrderInfo struct {
	ID        uint64 `json:"id"`
	Trader    string `json:"trader"`
	Token     string `json:"token"`
	Side      string `json:"side"`
	Price     int64  `json:"price"`
	Amount    int64  `json:"amount"`
	Filled    int64  `json:"filled"`
	Remaining int64  `json:"remaining"`
}

// BookSnapshot is the ordered resting orders of one side, best first.
type BookSnapshot struct {
	Token  string      `json:"token"`
	Side   string      `json:"side"`
	Orders []OrderInfo `json:"orders"`
}

type BalanceResponse struct {
	Trader string `json:"trader"`
	Token  string `json:"token"`
	Amount int64  `json:"amount"`
}

// FillEvent is broadcast on the WebSocket feed and returned by the trade
// history endpoint.
type FillEvent struct {
	Seq          uint64 `json:"seq"`
	Token        string `json:"token"`
	Price        int64  `json:"price"`
	Qty          int64  `json:"qty"`
	TakerSide    string `json:"takerSide"`
	Maker        string `json:"maker"`
	Taker        string `json:"taker"`
	MakerOrderID uint64 `json:"makerOrderId"`
	Timestamp    int64  `json:"timestamp,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
