package book

import "github.com/ethereum/go-ethereum/common"

// Side is the direction of an order.
type Side int8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// ParseSide converts a wire string into a Side.
func ParseSide(s string) (Side, bool) {
	switch s {
	case "buy", "BUY":
		return Buy, true
	case "sell", "SELL":
		return Sell, true
	default:
		return 0, false
	}
}

// Order is a resting limit order. IDs are assigned from a monotonic counter
// at creation and never reused; because creation and insertion happen in
// the same serialized step, the ID doubles as the arrival-sequence
// tie-break for price-time priority.
//
// The book owns identity and position; the matching engine only advances
// Filled and removes fully consumed orders.
type Order struct {
	ID     uint64         `json:"id"`
	Trader common.Address `json:"trader"`
	Token  string         `json:"token"`
	Side   Side           `json:"-"`
	Price  int64          `json:"price"`  // quote units per unit of token
	Amount int64          `json:"amount"` // original size
	Filled int64          `json:"filled"` // cumulative matched size
}

// Remaining returns the unfilled size.
func (o *Order) Remaining() int64 {
	return o.Amount - o.Filled
}
