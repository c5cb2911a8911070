// Package app contains application services and port definitions for the market context.
package app

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNoPool is reported by ExchangeReader when the queried pair has no
// pool. A failed pool lookup and an absent pool are deliberately the
// same condition for callers.
var ErrNoPool = errors.New("market: no pool for pair")

// PoolReserves is the raw pool state as the exchange contract returns it.
type PoolReserves struct {
	ReserveA       *big.Int
	ReserveB       *big.Int
	TotalLiquidity *big.Int
}

// ExchangeReader reads swap quotes and pool state from the exchange
// contract. All values are raw ledger units.
type ExchangeReader interface {
	// GetAmountOut quotes the output of swapping amountIn of tokenIn
	// for tokenOut. Returns ErrNoPool when the pair has no pool.
	GetAmountOut(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error)

	// GetPoolInfo reads the pool reserves for a token pair.
	// Returns ErrNoPool when the pair has no pool.
	GetPoolInfo(ctx context.Context, tokenA, tokenB common.Address) (PoolReserves, error)

	// GetUserLiquidity reads the user's liquidity share in a pool.
	GetUserLiquidity(ctx context.Context, tokenA, tokenB, user common.Address) (*big.Int, error)
}

// TokenReader reads ERC-20 state for catalogue tokens.
type TokenReader interface {
	// BalanceOf reads the token balance of an account.
	BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error)

	// Allowance reads the amount spender may pull from owner.
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
}
