package domain

import (
	"math/big"

	"github.com/kuoyehs/saga-dex-project/internal/asset"
)

// PoolState is the on-chain state of one pair's liquidity pool.
type PoolState struct {
	Pair           Pair
	ReserveBase    asset.Amount
	ReserveQuote   asset.Amount
	TotalLiquidity *big.Int
}

// HasLiquidity reports whether the pool exists with deposits in it.
func (p PoolState) HasLiquidity() bool {
	return p.TotalLiquidity != nil && p.TotalLiquidity.Sign() > 0
}

// Position is a user's share of one pool.
type Position struct {
	Pair      Pair
	Liquidity *big.Int
}

// HasStake reports whether the position is non-empty.
func (p Position) HasStake() bool {
	return p.Liquidity != nil && p.Liquidity.Sign() > 0
}
