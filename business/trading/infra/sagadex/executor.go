// Package sagadex submits signed transactions to the chainlet and
// settles their outcome.
package sagadex

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	marketInfra "github.com/kuoyehs/saga-dex-project/business/market/infra/sagadex"
	"github.com/kuoyehs/saga-dex-project/business/trading/app"
	walletApp "github.com/kuoyehs/saga-dex-project/business/wallet/app"
	"github.com/kuoyehs/saga-dex-project/internal/apperror"
	"github.com/kuoyehs/saga-dex-project/internal/logger"
)

const (
	tracerName = "sagadex-executor"
	meterName  = "sagadex-executor"
)

// Ensure Executor implements the write port.
var _ app.ExchangeWriter = (*Executor)(nil)

// executorMetrics holds OTEL metric instruments.
type executorMetrics struct {
	txsTotal    metric.Int64Counter
	txErrors    metric.Int64Counter
	confirmTime metric.Float64Histogram
}

// Executor builds legacy transactions, signs them through the wallet
// provider and submits them over JSON-RPC. Await settles a submitted
// transaction by polling for its receipt.
type Executor struct {
	client   *ethclient.Client
	wallet   walletApp.Provider
	chainID  *big.Int
	exchange common.Address

	exchangeABI abi.ABI
	erc20ABI    abi.ABI

	confirmationTimeout time.Duration
	pollInterval        time.Duration

	logger  logger.LoggerInterface
	tracer  trace.Tracer
	metrics *executorMetrics
}

// Config holds executor settings.
type Config struct {
	Exchange            common.Address
	ChainID             *big.Int
	ConfirmationTimeout time.Duration
	PollInterval        time.Duration
}

// NewExecutor creates a transaction executor.
func NewExecutor(client *ethclient.Client, wallet walletApp.Provider, cfg Config, log logger.LoggerInterface) (*Executor, error) {
	exchangeABI, err := abi.JSON(strings.NewReader(marketInfra.ExchangeABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse exchange ABI: %w", err)
	}

	erc20ABI, err := abi.JSON(strings.NewReader(marketInfra.ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 ABI: %w", err)
	}

	e := &Executor{
		client:              client,
		wallet:              wallet,
		chainID:             cfg.ChainID,
		exchange:            cfg.Exchange,
		exchangeABI:         exchangeABI,
		erc20ABI:            erc20ABI,
		confirmationTimeout: cfg.ConfirmationTimeout,
		pollInterval:        cfg.PollInterval,
		logger:              log,
		tracer:              otel.Tracer(tracerName),
	}

	if e.pollInterval <= 0 {
		e.pollInterval = 2 * time.Second
	}
	if e.confirmationTimeout <= 0 {
		e.confirmationTimeout = 2 * time.Minute
	}

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return e, nil
}

func (e *Executor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &executorMetrics{}

	e.metrics.txsTotal, err = meter.Int64Counter(
		"sagadex_txs_total",
		metric.WithDescription("Transactions submitted, by method"),
	)
	if err != nil {
		return err
	}

	e.metrics.txErrors, err = meter.Int64Counter(
		"sagadex_tx_errors_total",
		metric.WithDescription("Transaction submission errors, by method"),
	)
	if err != nil {
		return err
	}

	e.metrics.confirmTime, err = meter.Float64Histogram(
		"sagadex_tx_confirmation_ms",
		metric.WithDescription("Time from submission to receipt in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Approve grants the exchange an exact spending allowance on token.
func (e *Executor) Approve(ctx context.Context, account, token common.Address, amount *big.Int) (common.Hash, error) {
	data, err := e.erc20ABI.Pack("approve", e.exchange, amount)
	if err != nil {
		return common.Hash{}, apperror.New(apperror.CodeInternalError, apperror.WithCause(err))
	}
	return e.submit(ctx, account, token, data, "approve")
}

// SwapTokens submits a swap with the given minimum output.
func (e *Executor) SwapTokens(ctx context.Context, account, tokenIn, tokenOut common.Address, amountIn, minAmountOut *big.Int) (common.Hash, error) {
	data, err := e.exchangeABI.Pack("swapTokens", tokenIn, tokenOut, amountIn, minAmountOut)
	if err != nil {
		return common.Hash{}, apperror.New(apperror.CodeInternalError, apperror.WithCause(err))
	}
	return e.submit(ctx, account, e.exchange, data, "swapTokens")
}

// AddLiquidity submits a two-sided deposit.
func (e *Executor) AddLiquidity(ctx context.Context, account, tokenA, tokenB common.Address, amountA, amountB *big.Int) (common.Hash, error) {
	data, err := e.exchangeABI.Pack("addLiquidity", tokenA, tokenB, amountA, amountB)
	if err != nil {
		return common.Hash{}, apperror.New(apperror.CodeInternalError, apperror.WithCause(err))
	}
	return e.submit(ctx, account, e.exchange, data, "addLiquidity")
}

// RemoveLiquidity submits a liquidity withdrawal.
func (e *Executor) RemoveLiquidity(ctx context.Context, account, tokenA, tokenB common.Address, liquidity *big.Int) (common.Hash, error) {
	data, err := e.exchangeABI.Pack("removeLiquidity", tokenA, tokenB, liquidity)
	if err != nil {
		return common.Hash{}, apperror.New(apperror.CodeInternalError, apperror.WithCause(err))
	}
	return e.submit(ctx, account, e.exchange, data, "removeLiquidity")
}

func (e *Executor) submit(ctx context.Context, account, to common.Address, data []byte, method string) (common.Hash, error) {
	ctx, span := e.tracer.Start(ctx, "executor.submit",
		trace.WithAttributes(
			attribute.String("method", method),
			attribute.String("account", account.Hex()),
		),
	)
	defer span.End()

	attrs := metric.WithAttributes(attribute.String("method", method))
	e.metrics.txsTotal.Add(ctx, 1, attrs)

	fail := func(err error) (common.Hash, error) {
		e.metrics.txErrors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, method+" failed")
		return common.Hash{}, err
	}

	nonce, err := e.client.PendingNonceAt(ctx, account)
	if err != nil {
		return fail(apperror.New(apperror.CodeTransportError,
			apperror.WithCause(err), apperror.WithContext("nonce query failed")))
	}

	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return fail(apperror.New(apperror.CodeTransportError,
			apperror.WithCause(err), apperror.WithContext("gas price query failed")))
	}

	gasLimit, err := e.client.EstimateGas(ctx, ethereum.CallMsg{
		From: account,
		To:   &to,
		Data: data,
	})
	if err != nil {
		// An estimate revert means the chain would reject this
		// transaction outright.
		if strings.Contains(err.Error(), "execution reverted") {
			return fail(apperror.New(apperror.CodeRemoteRejected,
				apperror.WithCause(err), apperror.WithContext(method)))
		}
		return fail(apperror.New(apperror.CodeGasEstimationFailed,
			apperror.WithCause(err), apperror.WithContext(method)))
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)

	signed, err := e.wallet.SignTx(ctx, account, tx, e.chainID)
	if err != nil {
		if errors.Is(err, walletApp.ErrDeclined) {
			return fail(err)
		}
		return fail(apperror.New(apperror.CodeSigningFailed,
			apperror.WithCause(err), apperror.WithContext(method)))
	}

	if err := e.client.SendTransaction(ctx, signed); err != nil {
		return fail(apperror.New(apperror.CodeTransportError,
			apperror.WithCause(err), apperror.WithContext(method+" broadcast failed")))
	}

	hash := signed.Hash()
	span.SetAttributes(attribute.String("tx", hash.Hex()))
	e.logger.Info(ctx, "transaction submitted", "method", method, "tx", hash.Hex())

	return hash, nil
}

// Await polls for the receipt until the transaction confirms, fails on
// chain, or the confirmation window elapses. Past the window the
// outcome is unknown: the transaction may still land later, and no
// reconciliation is attempted.
func (e *Executor) Await(ctx context.Context, hash common.Hash) error {
	ctx, span := e.tracer.Start(ctx, "executor.await",
		trace.WithAttributes(attribute.String("tx", hash.Hex())),
	)
	defer span.End()

	started := time.Now()
	deadline := time.NewTimer(e.confirmationTimeout)
	defer deadline.Stop()

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := e.client.TransactionReceipt(ctx, hash)
		if err == nil {
			e.metrics.confirmTime.Record(ctx, float64(time.Since(started).Milliseconds()))

			if receipt.Status == types.ReceiptStatusFailed {
				span.SetStatus(codes.Error, "reverted")
				return apperror.New(apperror.CodeRemoteRejected,
					apperror.WithContext("transaction reverted: "+hash.Hex()))
			}

			span.SetStatus(codes.Ok, "confirmed")
			return nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			e.logger.Warn(ctx, "receipt poll failed", "tx", hash.Hex(), "error", err)
		}

		select {
		case <-ctx.Done():
			span.SetStatus(codes.Error, "context cancelled")
			return apperror.New(apperror.CodeUnknownOutcome,
				apperror.WithCause(ctx.Err()),
				apperror.WithContext("confirmation abandoned: "+hash.Hex()))
		case <-deadline.C:
			span.SetStatus(codes.Error, "confirmation timeout")
			return apperror.New(apperror.CodeUnknownOutcome,
				apperror.WithContext("no receipt within window: "+hash.Hex()))
		case <-ticker.C:
		}
	}
}
