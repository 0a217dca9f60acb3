package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
)

// Trade is a settled fill persisted for history queries. One record is
// written per matched leg of a market-order sweep.
type Trade struct {
	Seq          uint64         `json:"seq"`   // monotonic settlement sequence
	Token        string         `json:"token"` // tradable token symbol
	Price        int64          `json:"price"` // maker (resting order) price
	Qty          int64          `json:"qty"`
	TakerSide    string         `json:"takerSide"` // "buy" or "sell"
	Maker        common.Address `json:"maker"`
	Taker        common.Address `json:"taker"`
	MakerOrderID uint64         `json:"makerOrderId"`
	Timestamp    int64          `json:"timestamp"` // Unix milliseconds
}

// balanceRecord is the JSON value stored per (trader, token) key.
type balanceRecord struct {
	Trader common.Address `json:"trader"`
	Symbol string         `json:"symbol"`
	Amount int64          `json:"amount"`
}

// Store provides Pebble-based persistence for ledger balances and trade
// history. All writes go through the owning Ledger / exchange engine, which
// serializes access.
type Store struct {
	db *pebble.DB
}

// NewStore opens a Pebble database at the given path.
func NewStore(dbPath string) (*Store, error) {
	return openStore(dbPath, false)
}

func openStore(dbPath string, readOnly bool) (*Store, error) {
	opts := &pebble.Options{
		Cache:                 pebble.NewCache(64 << 20), // 64MB cache
		MemTableSize:          32 << 20,                  // 32MB memtable
		L0CompactionThreshold: 2,
		L0StopWritesThreshold: 12,
		MaxOpenFiles:          1000,
		BytesPerSync:          512 << 10, // 512KB
		ReadOnly:              readOnly,
	}

	db, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", dbPath, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveBalance persists the current amount for one (trader, token) pair.
func (s *Store) SaveBalance(trader common.Address, symbol string, amount int64) error {
	data, err := json.Marshal(balanceRecord{Trader: trader, Symbol: symbol, Amount: amount})
	if err != nil {
		return fmt.Errorf("failed to marshal balance: %w", err)
	}
	if err := s.db.Set(balanceKey(trader, symbol), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save balance: %w", err)
	}
	return nil
}

// LoadBalances scans every persisted balance entry. Used once on startup to
// rebuild the in-memory ledger.
func (s *Store) LoadBalances() (map[common.Address]map[string]int64, error) {
	prefix := balancePrefix()
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create balance iterator: %w", err)
	}
	defer iter.Close()

	balances := make(map[common.Address]map[string]int64)
	for iter.First(); iter.Valid(); iter.Next() {
		var rec balanceRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue // skip invalid entries
		}
		byToken, ok := balances[rec.Trader]
		if !ok {
			byToken = make(map[string]int64)
			balances[rec.Trader] = byToken
		}
		byToken[rec.Symbol] = rec.Amount
	}
	return balances, nil
}

// SaveTrade persists a settled trade.
// NoSync: trade history is an audit log, balance durability is what matters.
func (s *Store) SaveTrade(trade *Trade) error {
	data, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("failed to marshal trade: %w", err)
	}
	if err := s.db.Set(tradeKey(trade.Token, trade.Seq), data, pebble.NoSync); err != nil {
		return fmt.Errorf("failed to save trade: %w", err)
	}
	return nil
}

// LoadRecentTrades loads the most recent trades for a token, newest first.
func (s *Store) LoadRecentTrades(symbol string, limit int) ([]*Trade, error) {
	prefix := tradePrefix(symbol)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create trade iterator: %w", err)
	}
	defer iter.Close()

	var trades []*Trade
	for iter.Last(); iter.Valid() && len(trades) < limit; iter.Prev() {
		var trade Trade
		if err := json.Unmarshal(iter.Value(), &trade); err != nil {
			continue
		}
		trades = append(trades, &trade)
	}
	return trades, nil
}
