package exchange

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/sha3"

	"github.com/wyoo/dexcore/pkg/core/book"
)

// StateHash computes a Keccak-256 digest over the full exchange state:
// registry entries, non-zero ledger balances and both book sides of every
// tradable token, all in deterministic order. Two exchanges that processed
// the same operation sequence produce the same hash, which makes replay
// and divergence checks cheap.
func (e *Exchange) StateHash() [32]byte {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := sha3.NewLegacyKeccak256()
	buf := make([]byte, 8)

	writeInt := func(v int64) {
		binary.BigEndian.PutUint64(buf, uint64(v))
		h.Write(buf)
	}
	writeUint := func(v uint64) {
		binary.BigEndian.PutUint64(buf, v)
		h.Write(buf)
	}

	tokens := e.registry.List()
	for _, t := range tokens {
		h.Write([]byte(t.Symbol))
		if t.IsQuote {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	}

	for _, entry := range e.ledger.Entries() {
		h.Write(entry.Trader.Bytes())
		h.Write([]byte(entry.Symbol))
		writeInt(entry.Amount)
	}

	for _, t := range tokens {
		if t.IsQuote {
			continue
		}
		for _, side := range []book.Side{book.Buy, book.Sell} {
			for _, o := range e.book.Snapshot(t.Symbol, side) {
				writeUint(o.ID)
				h.Write(o.Trader.Bytes())
				writeInt(o.Price)
				writeInt(o.Amount)
				writeInt(o.Filled)
			}
		}
	}

	var out [32]byte
	h.Sum(out[:0])
	return out
}

// StateHashHex returns the state hash as a 0x-prefixed hex string.
func (e *Exchange) StateHashHex() string {
	hash := e.StateHash()
	return "0x" + hex.EncodeToString(hash[:])
}
