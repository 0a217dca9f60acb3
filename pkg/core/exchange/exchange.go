package exchange

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/wyoo/dexcore/pkg/core/book"
	"github.com/wyoo/dexcore/pkg/core/ledger"
	"github.com/wyoo/dexcore/pkg/core/token"
)

// Fill is one matched leg of a market-order sweep: the resting (maker)
// order consumed, the price it rested at, and the traders on both sides.
type Fill struct {
	MakerOrderID uint64
	Token        string
	Price        int64 // maker price, always
	Qty          int64
	Maker        common.Address
	Taker        common.Address
	TakerSide    book.Side
	Seq          uint64
}

// FillListener observes settled fills, e.g. to feed them to WebSocket
// subscribers. Called synchronously inside the operation's atomic step.
type FillListener func(Fill)

// Exchange is the custodial core: token registry, balance ledger, order
// book and the matching engine over them. Every public operation runs to
// completion under one mutex, so no operation ever observes another's
// partially applied mutations.
type Exchange struct {
	mu       sync.Mutex
	log      *zap.SugaredLogger
	registry *token.Registry
	ledger   *ledger.Ledger
	book     *book.Book

	nextOrderID uint64
	fillSeq     uint64
	onFill      FillListener
}

// New creates an exchange over the given registry and ledger.
func New(registry *token.Registry, led *ledger.Ledger, log *zap.SugaredLogger) *Exchange {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Exchange{
		log:      log,
		registry: registry,
		ledger:   led,
		book:     book.NewBook(),
	}
}

// SubscribeFills registers the fill listener. A single listener is enough
// for the API feed; it must not call back into the exchange.
func (e *Exchange) SubscribeFills(fn FillListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onFill = fn
}

// RegisterToken adds a token to the registry.
func (e *Exchange) RegisterToken(symbol string, isQuote bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.registry.Register(symbol, isQuote); err != nil {
		return err
	}
	e.log.Infow("token_registered", "symbol", symbol, "quote", isQuote)
	return nil
}

// Tokens lists registered tokens sorted by symbol.
func (e *Exchange) Tokens() []token.Token {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.List()
}

// Deposit credits an external custody transfer to the trader's balance.
// The custody transfer itself is assumed confirmed before this is called.
func (e *Exchange) Deposit(trader common.Address, amount int64, symbol string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if _, ok := e.registry.Lookup(symbol); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, symbol)
	}
	e.ledger.Credit(trader, symbol, amount)
	e.log.Infow("deposit", "trader", trader.Hex(), "token", symbol, "amount", amount)
	return nil
}

// Withdraw debits the trader's balance for an external custody transfer.
func (e *Exchange) Withdraw(trader common.Address, amount int64, symbol string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if _, ok := e.registry.Lookup(symbol); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, symbol)
	}
	if err := e.ledger.Debit(trader, symbol, amount); err != nil {
		return err
	}
	e.log.Infow("withdraw", "trader", trader.Hex(), "token", symbol, "amount", amount)
	return nil
}

// BalanceOf returns the trader's current balance for a token.
func (e *Exchange) BalanceOf(trader common.Address, symbol string) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.BalanceOf(trader, symbol)
}

// CreateLimitOrder validates and inserts a resting order.
//
// The balance check at creation is advisory only: nothing is escrowed, and
// balances move exclusively at fill time. A trader can therefore rest
// orders whose combined requirement exceeds their balance; settlement
// re-checks real balances per leg, so a later fill against such an order
// simply stops. Limit orders never cross at creation; only market orders
// sweep the book.
func (e *Exchange) CreateLimitOrder(trader common.Address, symbol string, amount, price int64, side book.Side) (book.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	quote, err := e.tradableToken(symbol)
	if err != nil {
		return book.Order{}, err
	}
	if amount <= 0 {
		return book.Order{}, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if price <= 0 {
		return book.Order{}, fmt.Errorf("%w: %d", ErrInvalidPrice, price)
	}
	// amount*price must not wrap: this guard also bounds every settlement
	// leg against this order, since matched <= amount at the same price.
	if amount > math.MaxInt64/price {
		return book.Order{}, fmt.Errorf("%w: %d @ %d", ErrNotionalOverflow, amount, price)
	}

	switch side {
	case book.Buy:
		if e.ledger.BalanceOf(trader, quote.Symbol) < amount*price {
			return book.Order{}, fmt.Errorf("%w: need %d %s", ErrInsufficientQuoteBalance, amount*price, quote.Symbol)
		}
	case book.Sell:
		if e.ledger.BalanceOf(trader, symbol) < amount {
			return book.Order{}, fmt.Errorf("%w: need %d %s", ErrInsufficientTokenBalance, amount, symbol)
		}
	}

	e.nextOrderID++
	o := &book.Order{
		ID:     e.nextOrderID,
		Trader: trader,
		Token:  symbol,
		Side:   side,
		Price:  price,
		Amount: amount,
	}
	e.book.Insert(o)
	e.log.Infow("limit_order",
		"id", o.ID, "trader", trader.Hex(), "token", symbol,
		"side", side.String(), "price", price, "amount", amount)
	return *o, nil
}

// CreateMarketOrder sweeps the opposite side of the book until the
// requested amount is filled or liquidity runs out. Market orders are
// transient: unfilled remainder is discarded, never queued. All legs
// settle at the resting order's price.
func (e *Exchange) CreateMarketOrder(trader common.Address, symbol string, amount int64, side book.Side) ([]Fill, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	quote, err := e.tradableToken(symbol)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if side == book.Sell && e.ledger.BalanceOf(trader, symbol) < amount {
		return nil, fmt.Errorf("%w: need %d %s", ErrInsufficientTokenBalance, amount, symbol)
	}

	remaining := amount
	var fills []Fill
	for remaining > 0 {
		best := e.book.BestOpposite(symbol, side)
		if best == nil {
			break
		}

		// matched <= best.Amount, so cost stays within the notional bound
		// checked when the resting order was created.
		matched := min(remaining, best.Remaining())
		cost := matched * best.Price

		var buyer, seller common.Address
		if side == book.Buy {
			buyer, seller = trader, best.Trader
		} else {
			buyer, seller = best.Trader, trader
		}

		// Both debits are checked against live balances before either side
		// of the leg is applied. A leg that cannot settle ends the sweep;
		// earlier legs stand. This is where advisory limit-order checks get
		// enforced for real. Debit's only failure mode is insufficiency
		// (storage errors never surface from the ledger), so a failed debit
		// here has mutated nothing and the break leaves no half-applied leg.
		if e.ledger.BalanceOf(buyer, quote.Symbol) < cost ||
			e.ledger.BalanceOf(seller, symbol) < matched {
			e.log.Warnw("sweep_stopped",
				"token", symbol, "maker_order", best.ID, "qty", matched, "cost", cost)
			break
		}
		if err := e.ledger.Debit(buyer, quote.Symbol, cost); err != nil {
			break
		}
		if err := e.ledger.Debit(seller, symbol, matched); err != nil {
			e.ledger.Credit(buyer, quote.Symbol, cost)
			break
		}
		e.ledger.Credit(seller, quote.Symbol, cost)
		e.ledger.Credit(buyer, symbol, matched)

		newFilled := best.Filled + matched
		e.book.UpdateFilled(best, newFilled)
		if newFilled == best.Amount {
			e.book.Remove(best)
		}
		remaining -= matched

		e.fillSeq++
		fill := Fill{
			MakerOrderID: best.ID,
			Token:        symbol,
			Price:        best.Price,
			Qty:          matched,
			Maker:        best.Trader,
			Taker:        trader,
			TakerSide:    side,
			Seq:          e.fillSeq,
		}
		fills = append(fills, fill)
		e.recordFill(fill)
	}

	e.log.Infow("market_order",
		"trader", trader.Hex(), "token", symbol, "side", side.String(),
		"amount", amount, "filled", amount-remaining, "legs", len(fills))
	return fills, nil
}

// GetOrders returns the resting orders for one (token, side) in current
// book order.
func (e *Exchange) GetOrders(symbol string, side book.Side) []book.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Snapshot(symbol, side)
}

// RecentTrades returns up to limit settled trades for a token, newest
// first. Empty without a persistent store.
func (e *Exchange) RecentTrades(symbol string, limit int) ([]*ledger.Trade, error) {
	e.mu.Lock()
	store := e.ledger.Store()
	e.mu.Unlock()

	if store == nil {
		return nil, nil
	}
	return store.LoadRecentTrades(symbol, limit)
}

// tradableToken validates that symbol names a registered, non-quote token
// and returns the quote token trades settle against. Caller holds e.mu.
func (e *Exchange) tradableToken(symbol string) (token.Token, error) {
	t, ok := e.registry.Lookup(symbol)
	if !ok {
		return token.Token{}, fmt.Errorf("%w: %s", ErrUnknownToken, symbol)
	}
	if t.IsQuote {
		return token.Token{}, fmt.Errorf("%w: %s", ErrCannotTradeQuote, symbol)
	}
	quote, ok := e.registry.Quote()
	if !ok {
		return token.Token{}, ErrNoQuoteToken
	}
	return quote, nil
}

// recordFill persists and publishes one settled leg. Caller holds e.mu.
func (e *Exchange) recordFill(f Fill) {
	if store := e.ledger.Store(); store != nil {
		trade := &ledger.Trade{
			Seq:          f.Seq,
			Token:        f.Token,
			Price:        f.Price,
			Qty:          f.Qty,
			TakerSide:    f.TakerSide.String(),
			Maker:        f.Maker,
			Taker:        f.Taker,
			MakerOrderID: f.MakerOrderID,
			Timestamp:    time.Now().UnixMilli(),
		}
		if err := store.SaveTrade(trade); err != nil {
			e.log.Errorw("trade_persist_failed", "seq", f.Seq, "err", err)
		}
	}
	if e.onFill != nil {
		e.onFill(f)
	}
	e.log.Infow("fill",
		"seq", f.Seq, "token", f.Token, "maker_order", f.MakerOrderID,
		"price", f.Price, "qty", f.Qty,
		"maker", f.Maker.Hex(), "taker", f.Taker.Hex())
}
