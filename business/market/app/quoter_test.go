package app_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kuoyehs/saga-dex-project/business/market/app"
	"github.com/kuoyehs/saga-dex-project/internal/apperror"
	"github.com/kuoyehs/saga-dex-project/internal/asset"
)

func TestQuote_AppliesSlippageFloor(t *testing.T) {
	exchange := &fakeExchange{
		amountOut: func(tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error) {
			if tokenIn != testToken.Address() || tokenOut != usdToken.Address() {
				t.Errorf("unexpected direction: %s -> %s", tokenIn, tokenOut)
			}
			return big.NewInt(999), nil
		},
	}
	quoter := app.NewQuoter(exchange, 500, testLogger())

	pair := mustPair(testToken, usdToken)
	amountIn := asset.NewAmount(testToken, big.NewInt(1e18))

	quote, err := quoter.Quote(context.Background(), pair, amountIn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if quote.AmountOut.Raw().Int64() != 999 {
		t.Errorf("AmountOut = %s, want 999", quote.AmountOut.Raw())
	}
	// 999 * 9500 / 10000 = 949.05, floored to 949.
	if quote.MinOut.Raw().Int64() != 949 {
		t.Errorf("MinOut = %s, want 949", quote.MinOut.Raw())
	}
	if quote.MinOut.Token() != usdToken {
		t.Error("MinOut denominated in the wrong token")
	}
}

func TestQuote_ZeroInputSkipsNetwork(t *testing.T) {
	// All hooks nil: any contract call panics.
	quoter := app.NewQuoter(&fakeExchange{}, 500, testLogger())

	pair := mustPair(testToken, usdToken)
	quote, err := quoter.Quote(context.Background(), pair, asset.Zero(testToken))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !quote.IsZero() {
		t.Error("expected zero quote")
	}
	if !quote.AmountOut.IsZero() || !quote.MinOut.IsZero() {
		t.Error("expected zero outputs")
	}
}

func TestQuote_TokenNotInPair(t *testing.T) {
	quoter := app.NewQuoter(&fakeExchange{}, 500, testLogger())

	pair := mustPair(testToken, usdToken)
	other := asset.NewAmount(newToken, big.NewInt(1))

	_, err := quoter.Quote(context.Background(), pair, other)
	if !apperror.IsCode(err, apperror.CodeInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST, got %v", err)
	}
}

func TestQuote_NoPool(t *testing.T) {
	exchange := &fakeExchange{
		amountOut: func(_, _ common.Address, _ *big.Int) (*big.Int, error) {
			return nil, app.ErrNoPool
		},
	}
	quoter := app.NewQuoter(exchange, 500, testLogger())

	pair := mustPair(testToken, usdToken)
	_, err := quoter.Quote(context.Background(), pair, asset.NewAmount(testToken, big.NewInt(1)))
	if !apperror.IsCode(err, apperror.CodePoolNotFound) {
		t.Errorf("expected POOL_NOT_FOUND, got %v", err)
	}
}

func TestQuote_ReadFailureIsAnError(t *testing.T) {
	exchange := &fakeExchange{
		amountOut: func(_, _ common.Address, _ *big.Int) (*big.Int, error) {
			return nil, errors.New("rpc timeout")
		},
	}
	quoter := app.NewQuoter(exchange, 500, testLogger())

	pair := mustPair(testToken, usdToken)
	_, err := quoter.Quote(context.Background(), pair, asset.NewAmount(testToken, big.NewInt(1)))
	if !apperror.IsCode(err, apperror.CodeQuoteFailed) {
		t.Errorf("expected QUOTE_FAILED, got %v", err)
	}
}

func TestQuote_ReverseDirection(t *testing.T) {
	exchange := &fakeExchange{
		amountOut: func(tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error) {
			if tokenIn != usdToken.Address() || tokenOut != testToken.Address() {
				t.Errorf("unexpected direction: %s -> %s", tokenIn, tokenOut)
			}
			return big.NewInt(100), nil
		},
	}
	quoter := app.NewQuoter(exchange, 0, testLogger())

	pair := mustPair(testToken, usdToken)
	quote, err := quoter.Quote(context.Background(), pair, asset.NewAmount(usdToken, big.NewInt(1e18)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if quote.AmountOut.Token() != testToken {
		t.Error("expected output in the base token")
	}
	// Zero slippage keeps minOut equal to the expected output.
	if quote.MinOut.Raw().Int64() != 100 {
		t.Errorf("MinOut = %s, want 100", quote.MinOut.Raw())
	}
}
