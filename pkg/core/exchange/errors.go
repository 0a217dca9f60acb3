package exchange

import "errors"

// Every failure here is a precondition failure detected before any
// mutation: an operation either applies fully or not at all. Registration
// and ledger failures surface as token.ErrDuplicateToken,
// token.ErrQuoteTokenSet and ledger.ErrInsufficientBalance.
var (
	// ErrUnknownToken: the symbol is not registered.
	ErrUnknownToken = errors.New("unknown token")
	// ErrCannotTradeQuote: the quote asset itself cannot be traded.
	ErrCannotTradeQuote = errors.New("cannot trade quote token")
	// ErrNoQuoteToken: trading was attempted before a quote token exists.
	ErrNoQuoteToken = errors.New("no quote token registered")
	// ErrInsufficientQuoteBalance: quote balance below amount*price at
	// limit-buy creation.
	ErrInsufficientQuoteBalance = errors.New("insufficient quote balance")
	// ErrInsufficientTokenBalance: token balance below amount at limit-sell
	// or market-sell creation.
	ErrInsufficientTokenBalance = errors.New("insufficient token balance")
	// ErrInvalidAmount: order or transfer amounts must be positive.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidPrice: limit prices must be positive.
	ErrInvalidPrice = errors.New("price must be positive")
	// ErrNotionalOverflow: amount*price exceeds the int64 range.
	ErrNotionalOverflow = errors.New("order notional too large")
)
