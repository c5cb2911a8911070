// Package app contains application services and port definitions for the trading context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kuoyehs/saga-dex-project/business/trading/domain"
)

// ExchangeWriter builds, signs and submits state-changing transactions
// against the exchange and the catalogue tokens. Submit methods return
// as soon as the transaction is in the mempool; Await settles its fate.
type ExchangeWriter interface {
	// Approve grants the exchange an exact spending allowance.
	Approve(ctx context.Context, account, token common.Address, amount *big.Int) (common.Hash, error)

	// SwapTokens submits a swap with a slippage-bounded minimum output.
	SwapTokens(ctx context.Context, account, tokenIn, tokenOut common.Address, amountIn, minAmountOut *big.Int) (common.Hash, error)

	// AddLiquidity submits a two-sided deposit.
	AddLiquidity(ctx context.Context, account, tokenA, tokenB common.Address, amountA, amountB *big.Int) (common.Hash, error)

	// RemoveLiquidity submits a liquidity withdrawal.
	RemoveLiquidity(ctx context.Context, account, tokenA, tokenB common.Address, liquidity *big.Int) (common.Hash, error)

	// Await blocks until the transaction confirms, fails on chain, or
	// the confirmation window elapses. A REMOTE_REJECTED error means
	// the chain rejected it; an UNKNOWN_OUTCOME error means the fate
	// could not be determined before the deadline.
	Await(ctx context.Context, hash common.Hash) error
}

// Reporter receives operation lifecycle events for display.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// Report sends a settled operation to be displayed/logged.
	Report(op *domain.Operation)

	// Stop gracefully shuts down the reporter.
	Stop() error
}
