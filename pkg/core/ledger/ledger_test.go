package ledger

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	alice = common.HexToAddress("0xAA00000000000000000000000000000000000000")
	bob   = common.HexToAddress("0xBB00000000000000000000000000000000000000")
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := NewLedger(nil, nil)
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}
	return l
}

func TestCreditDebitBalance(t *testing.T) {
	l := newTestLedger(t)

	if got := l.BalanceOf(alice, "DAI"); got != 0 {
		t.Errorf("fresh balance = %d, want 0", got)
	}

	l.Credit(alice, "DAI", 100)
	if got := l.BalanceOf(alice, "DAI"); got != 100 {
		t.Errorf("balance after credit = %d, want 100", got)
	}

	if err := l.Debit(alice, "DAI", 40); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if got := l.BalanceOf(alice, "DAI"); got != 60 {
		t.Errorf("balance after debit = %d, want 60", got)
	}
}

func TestDebitInsufficient(t *testing.T) {
	l := newTestLedger(t)
	l.Credit(alice, "DAI", 50)

	err := l.Debit(alice, "DAI", 51)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := l.BalanceOf(alice, "DAI"); got != 50 {
		t.Errorf("failed debit must not mutate: balance = %d, want 50", got)
	}

	// never-seen pair debits fail the same way
	err = l.Debit(bob, "REP", 1)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance for fresh pair, got %v", err)
	}
}

func TestDepositWithdrawRoundTrip(t *testing.T) {
	l := newTestLedger(t)
	l.Credit(alice, "DAI", 30)

	before := l.BalanceOf(alice, "DAI")
	l.Credit(alice, "DAI", 100)
	if err := l.Debit(alice, "DAI", 100); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if got := l.BalanceOf(alice, "DAI"); got != before {
		t.Errorf("round trip balance = %d, want %d", got, before)
	}
}

func TestTotalOf(t *testing.T) {
	l := newTestLedger(t)
	l.Credit(alice, "REP", 70)
	l.Credit(bob, "REP", 30)
	l.Credit(bob, "DAI", 500)

	if got := l.TotalOf("REP"); got != 100 {
		t.Errorf("TotalOf(REP) = %d, want 100", got)
	}

	// transfer between traders keeps the total constant
	if err := l.Debit(alice, "REP", 20); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	l.Credit(bob, "REP", 20)
	if got := l.TotalOf("REP"); got != 100 {
		t.Errorf("TotalOf(REP) after transfer = %d, want 100", got)
	}
}

func TestEntriesSorted(t *testing.T) {
	l := newTestLedger(t)
	l.Credit(bob, "REP", 1)
	l.Credit(alice, "ZRX", 2)
	l.Credit(alice, "DAI", 3)
	l.Credit(bob, "BAT", 0) // zero entries are skipped

	entries := l.Entries()
	if len(entries) != 3 {
		t.Fatalf("entries length = %d, want 3", len(entries))
	}
	if entries[0].Trader != alice || entries[0].Symbol != "DAI" {
		t.Errorf("entries[0] = %+v, want alice/DAI", entries[0])
	}
	if entries[1].Trader != alice || entries[1].Symbol != "ZRX" {
		t.Errorf("entries[1] = %+v, want alice/ZRX", entries[1])
	}
	if entries[2].Trader != bob || entries[2].Symbol != "REP" {
		t.Errorf("entries[2] = %+v, want bob/REP", entries[2])
	}
}

func TestPersistenceReload(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	l, err := NewLedger(store, nil)
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}

	l.Credit(alice, "DAI", 100)
	l.Credit(bob, "REP", 42)
	l.Debit(alice, "DAI", 25)
	if err := l.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	store, err = NewStore(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	reloaded, err := NewLedger(store, nil)
	if err != nil {
		t.Fatalf("failed to reload ledger: %v", err)
	}
	defer reloaded.Close()

	if got := reloaded.BalanceOf(alice, "DAI"); got != 75 {
		t.Errorf("reloaded alice DAI = %d, want 75", got)
	}
	if got := reloaded.BalanceOf(bob, "REP"); got != 42 {
		t.Errorf("reloaded bob REP = %d, want 42", got)
	}
}

// A storage write failure must cost durability only: the in-memory
// mutation stands, Credit and Debit report nothing, and settlement stays
// whole. A read-only reopen makes every SaveBalance fail deterministically.
func TestPersistFailureKeepsSettlementWhole(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")

	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	l, err := NewLedger(store, nil)
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}
	l.Credit(alice, "DAI", 100)
	l.Credit(bob, "REP", 50)
	if err := l.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	store, err = openStore(dbPath, true)
	if err != nil {
		t.Fatalf("failed to reopen store read-only: %v", err)
	}
	l, err = NewLedger(store, nil)
	if err != nil {
		t.Fatalf("failed to reload ledger: %v", err)
	}
	defer l.Close()

	// a full transfer leg: every persist fails, every balance still moves
	if err := l.Debit(alice, "DAI", 40); err != nil {
		t.Fatalf("debit must not surface storage errors: %v", err)
	}
	l.Credit(bob, "DAI", 40)
	if got := l.BalanceOf(alice, "DAI"); got != 60 {
		t.Errorf("alice DAI = %d, want 60", got)
	}
	if got := l.BalanceOf(bob, "DAI"); got != 40 {
		t.Errorf("bob DAI = %d, want 40", got)
	}
	if got := l.TotalOf("DAI"); got != 100 {
		t.Errorf("DAI total = %d, want 100", got)
	}

	// insufficiency is still the one Debit failure, still pre-mutation
	if err := l.Debit(bob, "REP", 51); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := l.BalanceOf(bob, "REP"); got != 50 {
		t.Errorf("failed debit mutated balance: %d, want 50", got)
	}
}

func TestTradeHistory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "trades.db")
	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	for seq := uint64(1); seq <= 5; seq++ {
		trade := &Trade{
			Seq:       seq,
			Token:     "REP",
			Price:     10,
			Qty:       int64(seq),
			TakerSide: "sell",
			Maker:     alice,
			Taker:     bob,
		}
		if err := store.SaveTrade(trade); err != nil {
			t.Fatalf("save trade %d failed: %v", seq, err)
		}
	}

	trades, err := store.LoadRecentTrades("REP", 3)
	if err != nil {
		t.Fatalf("load trades failed: %v", err)
	}
	if len(trades) != 3 {
		t.Fatalf("trades length = %d, want 3", len(trades))
	}
	// newest first
	for i, wantSeq := range []uint64{5, 4, 3} {
		if trades[i].Seq != wantSeq {
			t.Errorf("trades[%d].Seq = %d, want %d", i, trades[i].Seq, wantSeq)
		}
	}

	other, err := store.LoadRecentTrades("BAT", 10)
	if err != nil {
		t.Fatalf("load trades failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no BAT trades, got %d", len(other))
	}
}
