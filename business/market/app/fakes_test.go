package app_test

import (
	"context"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kuoyehs/saga-dex-project/business/market/app"
	"github.com/kuoyehs/saga-dex-project/business/market/domain"
	"github.com/kuoyehs/saga-dex-project/internal/asset"
	"github.com/kuoyehs/saga-dex-project/internal/logger"
)

var (
	testToken = asset.NewToken("TEST", "Test Token",
		common.HexToAddress("0x1111111111111111111111111111111111111111"), asset.LedgerDecimals)
	usdToken = asset.NewToken("USD", "USD Token",
		common.HexToAddress("0x2222222222222222222222222222222222222222"), asset.LedgerDecimals)
	// newToken has no deployed contract.
	newToken = asset.NewToken("NEW", "New Token", common.Address{}, asset.LedgerDecimals)

	testAccount = common.HexToAddress("0xAbcD000000000000000000000000000000001234")
)

func testLogger() *logger.Logger {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

func testRegistry() *asset.Registry {
	r := asset.NewRegistry()
	_ = r.Register(testToken)
	_ = r.Register(usdToken)
	_ = r.Register(newToken)
	return r
}

func mustPair(base, quote *asset.Token) domain.Pair {
	pair, err := domain.NewPair(base, quote)
	if err != nil {
		panic(err)
	}
	return pair
}

// fakeExchange implements app.ExchangeReader with function hooks. Nil
// hooks panic so tests catch unexpected network calls.
type fakeExchange struct {
	amountOut func(tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error)
	poolInfo  func(tokenA, tokenB common.Address) (app.PoolReserves, error)
	userLiq   func(tokenA, tokenB, user common.Address) (*big.Int, error)
}

func (f *fakeExchange) GetAmountOut(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error) {
	if f.amountOut == nil {
		panic("unexpected GetAmountOut call")
	}
	return f.amountOut(tokenIn, tokenOut, amountIn)
}

func (f *fakeExchange) GetPoolInfo(ctx context.Context, tokenA, tokenB common.Address) (app.PoolReserves, error) {
	if f.poolInfo == nil {
		panic("unexpected GetPoolInfo call")
	}
	return f.poolInfo(tokenA, tokenB)
}

func (f *fakeExchange) GetUserLiquidity(ctx context.Context, tokenA, tokenB, user common.Address) (*big.Int, error) {
	if f.userLiq == nil {
		panic("unexpected GetUserLiquidity call")
	}
	return f.userLiq(tokenA, tokenB, user)
}

// fakeTokens implements app.TokenReader with function hooks.
type fakeTokens struct {
	balanceOf func(token, account common.Address) (*big.Int, error)
	allowance func(token, owner, spender common.Address) (*big.Int, error)
}

func (f *fakeTokens) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	if f.balanceOf == nil {
		panic("unexpected BalanceOf call")
	}
	return f.balanceOf(token, account)
}

func (f *fakeTokens) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	if f.allowance == nil {
		panic("unexpected Allowance call")
	}
	return f.allowance(token, owner, spender)
}
