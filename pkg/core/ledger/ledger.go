package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// ErrInsufficientBalance is returned by Debit when the current balance is
// below the requested amount. The check and the decrement are one atomic
// step under the ledger mutex.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Entry is one (trader, token) balance, used for deterministic exports.
type Entry struct {
	Trader common.Address
	Symbol string
	Amount int64
}

// Ledger maps (trader, token) to a non-negative amount. Balances are
// created implicitly on first reference and never explicitly destroyed.
// Deposits and withdrawals change a token's ledger-wide total; trade
// settlement only moves amounts between traders.
//
// With a Store attached, every mutation is written through so the ledger
// survives restarts. Persistence is best effort: the in-memory balance is
// the source of truth, and a storage write failure loses durability, never
// consistency — it is logged and the mutation stands. Credit and Debit
// therefore never half-apply: Debit's only failure mode is insufficiency,
// checked before anything changes.
type Ledger struct {
	mu       sync.RWMutex
	log      *zap.SugaredLogger
	balances map[common.Address]map[string]int64
	store    *Store // nil for a purely in-memory ledger
}

// NewLedger creates a ledger, rebuilding state from the store if one is
// given.
func NewLedger(store *Store, log *zap.SugaredLogger) (*Ledger, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	l := &Ledger{
		log:      log,
		balances: make(map[common.Address]map[string]int64),
		store:    store,
	}
	if store != nil {
		loaded, err := store.LoadBalances()
		if err != nil {
			return nil, fmt.Errorf("failed to load balances: %w", err)
		}
		l.balances = loaded
	}
	return l, nil
}

// Close closes the underlying store, if any.
func (l *Ledger) Close() error {
	if l.store == nil {
		return nil
	}
	return l.store.Close()
}

// Store exposes the backing store for trade-history writes. Nil when the
// ledger is in-memory only.
func (l *Ledger) Store() *Store {
	return l.store
}

// Credit adds amount to the trader's balance for the token. Amount
// non-negativity is a caller concern (deposit validation happens at the
// operation surface). Credit cannot fail.
func (l *Ledger) Credit(trader common.Address, symbol string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	byToken := l.balancesFor(trader)
	byToken[symbol] += amount
	l.persist(trader, symbol, byToken[symbol])
}

// Debit removes amount from the trader's balance for the token.
// Returns ErrInsufficientBalance without mutating anything if the balance
// is too low; that is the only failure mode.
func (l *Ledger) Debit(trader common.Address, symbol string, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	byToken := l.balancesFor(trader)
	if byToken[symbol] < amount {
		return fmt.Errorf("%w: have %d, need %d %s", ErrInsufficientBalance, byToken[symbol], amount, symbol)
	}
	byToken[symbol] -= amount
	l.persist(trader, symbol, byToken[symbol])
	return nil
}

// BalanceOf returns the current balance, zero for never-seen pairs.
func (l *Ledger) BalanceOf(trader common.Address, symbol string) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.balances[trader][symbol]
}

// TotalOf returns the ledger-wide total for one token across all traders.
func (l *Ledger) TotalOf(symbol string) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total int64
	for _, byToken := range l.balances {
		total += byToken[symbol]
	}
	return total
}

// Entries exports every balance sorted by (trader, symbol). Zero entries
// are skipped so the export is independent of which pairs were ever
// touched.
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var entries []Entry
	for trader, byToken := range l.balances {
		for symbol, amount := range byToken {
			if amount == 0 {
				continue
			}
			entries = append(entries, Entry{Trader: trader, Symbol: symbol, Amount: amount})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Trader != entries[j].Trader {
			return entries[i].Trader.Hex() < entries[j].Trader.Hex()
		}
		return entries[i].Symbol < entries[j].Symbol
	})
	return entries
}

// balancesFor returns the per-token map for a trader, creating it on first
// reference. Caller must hold the write lock.
func (l *Ledger) balancesFor(trader common.Address) map[string]int64 {
	byToken, ok := l.balances[trader]
	if !ok {
		byToken = make(map[string]int64)
		l.balances[trader] = byToken
	}
	return byToken
}

// persist writes the new amount through to the store. A failure here loses
// durability, not consistency: the applied in-memory balance stands and the
// error is logged for the operator. Caller must hold the write lock.
func (l *Ledger) persist(trader common.Address, symbol string, amount int64) {
	if l.store == nil {
		return
	}
	if err := l.store.SaveBalance(trader, symbol, amount); err != nil {
		l.log.Errorw("balance_persist_failed",
			"trader", trader.Hex(), "token", symbol, "amount", amount, "err", err)
	}
}
