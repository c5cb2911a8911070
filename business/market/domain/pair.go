// Package domain contains the market context domain model.
package domain

import (
	"fmt"

	"github.com/kuoyehs/saga-dex-project/internal/asset"
)

// Pair is an unordered trading pair from the fixed catalogue.
// Base and Quote follow the configured listing order.
type Pair struct {
	base  *asset.Token
	quote *asset.Token
}

// NewPair creates a pair. Both tokens are required and must differ.
func NewPair(base, quote *asset.Token) (Pair, error) {
	if base == nil || quote == nil {
		return Pair{}, fmt.Errorf("pair: nil token")
	}
	if base.Equals(quote) {
		return Pair{}, fmt.Errorf("pair: identical tokens %s", base.Symbol())
	}
	return Pair{base: base, quote: quote}, nil
}

// Base returns the first token of the pair.
func (p Pair) Base() *asset.Token {
	return p.base
}

// Quote returns the second token of the pair.
func (p Pair) Quote() *asset.Token {
	return p.quote
}

// String returns the canonical "BASE-QUOTE" form.
func (p Pair) String() string {
	return p.base.Symbol() + "-" + p.quote.Symbol()
}

// Contains reports whether the token is one side of the pair.
func (p Pair) Contains(t *asset.Token) bool {
	return p.base.Equals(t) || p.quote.Equals(t)
}

// Other returns the opposite side of the pair for the given token.
func (p Pair) Other(t *asset.Token) (*asset.Token, error) {
	switch {
	case p.base.Equals(t):
		return p.quote, nil
	case p.quote.Equals(t):
		return p.base, nil
	default:
		return nil, fmt.Errorf("pair %s: token %s not in pair", p, t.Symbol())
	}
}

// IsConfigured reports whether both token contracts are deployed.
func (p Pair) IsConfigured() bool {
	return p.base.IsConfigured() && p.quote.IsConfigured()
}
