package asset

import (
	"fmt"
	"sync"
)

// Registry is a thread-safe registry of the configured token catalogue.
// Iteration order is the registration (configuration) order.
type Registry struct {
	bySymbol map[string]*Token
	order    []*Token
	mu       sync.RWMutex
}

// NewRegistry creates a new empty token registry.
func NewRegistry() *Registry {
	return &Registry{
		bySymbol: make(map[string]*Token),
	}
}

// Register adds a token to the registry.
// Returns an error if a token with the same symbol is already registered.
func (r *Registry) Register(t *Token) error {
	if t == nil {
		return fmt.Errorf("asset: cannot register nil token")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bySymbol[t.Symbol()]; exists {
		return fmt.Errorf("asset: duplicate token symbol %q", t.Symbol())
	}

	r.bySymbol[t.Symbol()] = t
	r.order = append(r.order, t)
	return nil
}

// Get retrieves a token by its symbol.
func (r *Registry) Get(symbol string) (*Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.bySymbol[symbol]
	return t, ok
}

// MustGet retrieves a token by its symbol, panics if not found.
func (r *Registry) MustGet(symbol string) *Token {
	t, ok := r.Get(symbol)
	if !ok {
		panic(fmt.Sprintf("asset: %s not found in registry", symbol))
	}
	return t
}

// All returns all registered tokens in registration order.
func (r *Registry) All() []*Token {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Token, len(r.order))
	copy(result, r.order)
	return result
}

// Configured returns the tokens that have a deployed contract address.
func (r *Registry) Configured() []*Token {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Token
	for _, t := range r.order {
		if t.IsConfigured() {
			result = append(result, t)
		}
	}
	return result
}

// Count returns the number of registered tokens.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
