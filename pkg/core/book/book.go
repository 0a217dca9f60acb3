package book

import (
	"sync"

	"github.com/google/btree"
)

const btreeDegree = 8

// sideKey addresses one ordered collection of resting orders.
type sideKey struct {
	token string
	side  Side
}

// buyLess orders bids by price descending, then arrival (ID) ascending.
func buyLess(a, b *Order) bool {
	if a.Price != b.Price {
		return a.Price > b.Price
	}
	return a.ID < b.ID
}

// sellLess orders asks by price ascending, then arrival (ID) ascending.
func sellLess(a, b *Order) bool {
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	return a.ID < b.ID
}

// Book holds resting limit orders per (token, side), each side an ordered
// tree keyed by (price, arrival sequence). The tree minimum is always the
// highest-priority order, so the best order is an O(log n) peek and
// insertion needs no shifting.
type Book struct {
	mu    sync.RWMutex
	sides map[sideKey]*btree.BTreeG[*Order]
}

// NewBook creates an empty order book.
func NewBook() *Book {
	return &Book{
		sides: make(map[sideKey]*btree.BTreeG[*Order]),
	}
}

func (b *Book) side(token string, side Side) *btree.BTreeG[*Order] {
	key := sideKey{token: token, side: side}
	tree, ok := b.sides[key]
	if !ok {
		less := sellLess
		if side == Buy {
			less = buyLess
		}
		tree = btree.NewG(btreeDegree, btree.LessFunc[*Order](less))
		b.sides[key] = tree
	}
	return tree
}

// Insert places a limit order at its price-time position.
func (b *Book) Insert(o *Order) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.side(o.Token, o.Side).ReplaceOrInsert(o)
}

// Best returns the highest-priority resting order on the given side, or nil
// if the side is empty.
func (b *Book) Best(token string, side Side) *Order {
	b.mu.RLock()
	defer b.mu.RUnlock()

	tree, ok := b.sides[sideKey{token: token, side: side}]
	if !ok {
		return nil
	}
	best, ok := tree.Min()
	if !ok {
		return nil
	}
	return best
}

// BestOpposite returns the highest-priority resting order on the side
// opposite to the given taker side.
func (b *Book) BestOpposite(token string, takerSide Side) *Order {
	return b.Best(token, takerSide.Opposite())
}

// UpdateFilled advances an order's cumulative fill in place. The tree key
// (price, ID) is immutable, so mutating Filled does not disturb ordering.
func (b *Book) UpdateFilled(o *Order, newFilled int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o.Filled = newFilled
}

// Remove deletes an order from its side. Invoked only once the order is
// fully consumed (Filled == Amount).
func (b *Book) Remove(o *Order) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	tree, ok := b.sides[sideKey{token: o.Token, side: o.Side}]
	if !ok {
		return false
	}
	_, removed := tree.Delete(o)
	return removed
}

// Snapshot exports one side in current book order. Orders are copied so
// observers never hold references into live book state.
func (b *Book) Snapshot(token string, side Side) []Order {
	b.mu.RLock()
	defer b.mu.RUnlock()

	tree, ok := b.sides[sideKey{token: token, side: side}]
	if !ok {
		return nil
	}
	orders := make([]Order, 0, tree.Len())
	tree.Ascend(func(o *Order) bool {
		orders = append(orders, *o)
		return true
	})
	return orders
}

// Len returns the number of resting orders on one side.
func (b *Book) Len(token string, side Side) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	tree, ok := b.sides[sideKey{token: token, side: side}]
	if !ok {
		return 0
	}
	return tree.Len()
}
