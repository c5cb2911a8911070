// Package asset provides a type-safe model for the fixed token catalogue.
// The core uses big.Int for exact on-chain representation.
// decimal.Decimal is only used at boundaries (UI, parsing, display).
package asset

import "github.com/ethereum/go-ethereum/common"

// LedgerDecimals is the fixed-point precision used by every token on the
// chainlet. All catalogue tokens mint with 18 fractional digits.
const LedgerDecimals = 18

// Token represents the metadata of one catalogue token.
// The symbol is the stable identity within the catalogue; the address is
// populated by deployment configuration and may still be the zero sentinel.
type Token struct {
	symbol   string
	name     string
	address  common.Address
	decimals uint8
}

// NewToken creates a new Token with the given parameters.
func NewToken(symbol, name string, address common.Address, decimals uint8) *Token {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 30 {
		panic("asset: suspicious decimals (>30)")
	}

	return &Token{
		symbol:   symbol,
		name:     name,
		address:  address,
		decimals: decimals,
	}
}

// Symbol returns the ticker symbol (e.g., "TEST", "USD").
func (t *Token) Symbol() string {
	return t.symbol
}

// Name returns the human-readable name (e.g., "Test Token").
func (t *Token) Name() string {
	if t.name == "" {
		return t.symbol
	}
	return t.name
}

// Address returns the token contract address.
func (t *Token) Address() common.Address {
	return t.address
}

// Decimals returns the number of decimal places.
func (t *Token) Decimals() uint8 {
	return t.decimals
}

// IsConfigured reports whether the token has a deployed contract address.
// The all-zero address is the "not yet deployed" sentinel and must be
// treated as absent by every reader.
func (t *Token) IsConfigured() bool {
	return t.address != (common.Address{})
}

// String returns a human-readable representation.
func (t *Token) String() string {
	return t.symbol
}

// Equals compares two Tokens by symbol.
func (t *Token) Equals(other *Token) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.symbol == other.symbol
}
