package token

import (
	"errors"
	"testing"
)

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	if err := r.Register("DAI", true); err != nil {
		t.Fatalf("register quote failed: %v", err)
	}
	if err := r.Register("REP", false); err != nil {
		t.Fatalf("register tradable failed: %v", err)
	}

	tok, ok := r.Lookup("DAI")
	if !ok {
		t.Fatal("DAI not found after registration")
	}
	if !tok.IsQuote {
		t.Error("DAI should be the quote token")
	}

	tok, ok = r.Lookup("REP")
	if !ok {
		t.Fatal("REP not found after registration")
	}
	if tok.IsQuote {
		t.Error("REP should not be the quote token")
	}

	if _, ok := r.Lookup("ZRX"); ok {
		t.Error("lookup of unregistered symbol should fail")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()

	if err := r.Register("REP", false); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	err := r.Register("REP", false)
	if !errors.Is(err, ErrDuplicateToken) {
		t.Errorf("expected ErrDuplicateToken, got %v", err)
	}
	if r.Count() != 1 {
		t.Errorf("count = %d, want 1", r.Count())
	}
}

func TestSingleQuoteToken(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Quote(); ok {
		t.Error("empty registry should have no quote token")
	}

	if err := r.Register("DAI", true); err != nil {
		t.Fatalf("register quote failed: %v", err)
	}
	err := r.Register("USDC", true)
	if !errors.Is(err, ErrQuoteTokenSet) {
		t.Errorf("expected ErrQuoteTokenSet, got %v", err)
	}

	quote, ok := r.Quote()
	if !ok || quote.Symbol != "DAI" {
		t.Errorf("quote = %+v, want DAI", quote)
	}
	if _, ok := r.Lookup("USDC"); ok {
		t.Error("failed registration must not leave a partial entry")
	}
}

func TestListSorted(t *testing.T) {
	r := NewRegistry()
	for _, sym := range []string{"ZRX", "DAI", "BAT", "REP"} {
		if err := r.Register(sym, sym == "DAI"); err != nil {
			t.Fatalf("register %s failed: %v", sym, err)
		}
	}

	want := []string{"BAT", "DAI", "REP", "ZRX"}
	list := r.List()
	if len(list) != len(want) {
		t.Fatalf("list length = %d, want %d", len(list), len(want))
	}
	for i, tok := range list {
		if tok.Symbol != want[i] {
			t.Errorf("list[%d] = %s, want %s", i, tok.Symbol, want[i])
		}
	}
}
