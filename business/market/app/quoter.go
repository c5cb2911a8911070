package app

import (
	"context"
	"errors"

	"github.com/kuoyehs/saga-dex-project/business/market/domain"
	"github.com/kuoyehs/saga-dex-project/internal/apperror"
	"github.com/kuoyehs/saga-dex-project/internal/asset"
	"github.com/kuoyehs/saga-dex-project/internal/logger"
)

// Quoter computes swap quotes against the live pool state. A quote
// that cannot be computed is an error, never a guess: callers must
// treat a failed quote as "no expected output".
type Quoter struct {
	exchange    ExchangeReader
	slippageBps int64
	log         logger.LoggerInterface
}

// NewQuoter creates a quoter with the default slippage tolerance.
func NewQuoter(exchange ExchangeReader, slippageBps int64, log logger.LoggerInterface) *Quoter {
	return &Quoter{
		exchange:    exchange,
		slippageBps: slippageBps,
		log:         log,
	}
}

// SlippageBps returns the configured slippage tolerance.
func (q *Quoter) SlippageBps() int64 {
	return q.slippageBps
}

// Quote computes the expected output of swapping amountIn within the
// pair. A zero input short-circuits to a zero quote without touching
// the network.
func (q *Quoter) Quote(ctx context.Context, pair domain.Pair, amountIn asset.Amount) (domain.Quote, error) {
	tokenIn := amountIn.Token()
	if !pair.Contains(tokenIn) {
		return domain.Quote{}, apperror.New(apperror.CodeInvalidRequest,
			apperror.WithContext("token "+tokenIn.Symbol()+" not in pair "+pair.String()))
	}

	tokenOut, err := pair.Other(tokenIn)
	if err != nil {
		return domain.Quote{}, apperror.New(apperror.CodeInvalidRequest, apperror.WithCause(err))
	}

	if amountIn.IsZero() {
		return domain.Quote{
			Pair:        pair,
			AmountIn:    amountIn,
			AmountOut:   asset.Zero(tokenOut),
			MinOut:      asset.Zero(tokenOut),
			SlippageBps: q.slippageBps,
		}, nil
	}

	out, err := q.exchange.GetAmountOut(ctx, tokenIn.Address(), tokenOut.Address(), amountIn.Raw())
	if err != nil {
		if errors.Is(err, ErrNoPool) {
			return domain.Quote{}, apperror.New(apperror.CodePoolNotFound,
				apperror.WithCause(err),
				apperror.WithContext(pair.String()))
		}
		return domain.Quote{}, apperror.New(apperror.CodeQuoteFailed,
			apperror.WithCause(err),
			apperror.WithContext(pair.String()))
	}

	minOut := domain.ApplySlippage(out, q.slippageBps)

	return domain.Quote{
		Pair:        pair,
		AmountIn:    amountIn,
		AmountOut:   asset.NewAmount(tokenOut, out),
		MinOut:      asset.NewAmount(tokenOut, minOut),
		SlippageBps: q.slippageBps,
	}, nil
}
