package domain

import (
	"math/big"

	"github.com/kuoyehs/saga-dex-project/internal/asset"
)

// Quote is the expected outcome of swapping AmountIn for the opposite
// side of the pair, plus the slippage-bounded minimum.
type Quote struct {
	Pair        Pair
	AmountIn    asset.Amount
	AmountOut   asset.Amount
	MinOut      asset.Amount
	SlippageBps int64
}

// IsZero reports whether the quote is the trivial zero-input quote.
func (q Quote) IsZero() bool {
	return q.AmountIn.IsZero()
}

// ApplySlippage computes the minimum acceptable output for an expected
// output: floor(out * (10000 - bps) / 10000).
func ApplySlippage(out *big.Int, bps int64) *big.Int {
	numerator := new(big.Int).Mul(out, big.NewInt(10000-bps))
	return numerator.Div(numerator, big.NewInt(10000))
}
