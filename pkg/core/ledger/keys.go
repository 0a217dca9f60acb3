package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Pebble key schema.
// Prefix-based so range scans can load the full ledger on startup and page
// through trade history per token. Trade sequence numbers are zero-padded
// for lexicographic ordering.
const (
	prefixBalance = "bal:"   // balance entries
	prefixTrade   = "trade:" // settled trade history
)

// balanceKey returns the key for one (trader, token) balance.
// Format: "bal:{address}:{symbol}"
func balanceKey(trader common.Address, symbol string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixBalance, trader.Hex(), symbol))
}

// balancePrefix covers every balance entry in the store.
func balancePrefix() []byte {
	return []byte(prefixBalance)
}

// tradeKey returns the key for a settled trade.
// Format: "trade:{symbol}:{seq padded to 20 digits}"
func tradeKey(symbol string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", prefixTrade, symbol, seq))
}

// tradePrefix covers all trades for one token.
func tradePrefix(symbol string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixTrade, symbol))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
