package token

import (
	"errors"
	"sort"
	"sync"
)

var (
	// ErrDuplicateToken is returned when a symbol is registered twice.
	ErrDuplicateToken = errors.New("token already registered")
	// ErrQuoteTokenSet is returned when a second quote token is registered.
	ErrQuoteTokenSet = errors.New("quote token already set")
)

// Token is a registered asset. Symbol is the fixed identifier used by the
// ledger and the order book. Exactly one registered token carries the quote
// flag; every other token trades against it.
type Token struct {
	Symbol  string `json:"symbol"`
	IsQuote bool   `json:"isQuote"`
}

// Registry maps token symbols to their metadata in a thread-safe manner.
// Entries are created once at registration and never mutated or removed.
type Registry struct {
	mu     sync.RWMutex
	tokens map[string]Token
	quote  string // symbol of the quote token, "" until one is registered
}

// NewRegistry creates an empty token registry.
func NewRegistry() *Registry {
	return &Registry{
		tokens: make(map[string]Token),
	}
}

// Register adds a token to the registry.
// Returns ErrDuplicateToken if the symbol is taken, ErrQuoteTokenSet if a
// quote token is registered while one already exists.
func (r *Registry) Register(symbol string, isQuote bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tokens[symbol]; exists {
		return ErrDuplicateToken
	}
	if isQuote && r.quote != "" {
		return ErrQuoteTokenSet
	}

	r.tokens[symbol] = Token{Symbol: symbol, IsQuote: isQuote}
	if isQuote {
		r.quote = symbol
	}
	return nil
}

// Lookup retrieves a token by symbol.
func (r *Registry) Lookup(symbol string) (Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tokens[symbol]
	return t, ok
}

// Quote returns the quote token, if one has been registered.
func (r *Registry) Quote() (Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.quote == "" {
		return Token{}, false
	}
	return r.tokens[r.quote], true
}

// List returns all registered tokens sorted by symbol.
// Sorted output keeps downstream consumers (API listings, state hashing)
// deterministic.
func (r *Registry) List() []Token {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tokens := make([]Token, 0, len(r.tokens))
	for _, t := range r.tokens {
		tokens = append(tokens, t)
	}
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].Symbol < tokens[j].Symbol
	})
	return tokens
}

// Count returns the number of registered tokens.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}
