// Package sagadex reads exchange and token state from the chainlet
// over JSON-RPC eth_call.
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
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kuoyehs/saga-dex-project/business/market/app"
	"github.com/kuoyehs/saga-dex-project/internal/apperror"
	"github.com/kuoyehs/saga-dex-project/internal/circuitbreaker"
	"github.com/kuoyehs/saga-dex-project/internal/logger"
)

const (
	tracerName = "sagadex"
	meterName  = "sagadex"
)

// Ensure Reader implements both read ports.
var (
	_ app.ExchangeReader = (*Reader)(nil)
	_ app.TokenReader    = (*Reader)(nil)
)

// readerMetrics holds OTEL metric instruments.
type readerMetrics struct {
	callsTotal  metric.Int64Counter
	callLatency metric.Float64Histogram
	callErrors  metric.Int64Counter
}

// Reader performs read-only contract calls against the exchange and
// the catalogue tokens. All calls go through a circuit breaker so a
// dead RPC endpoint fails fast instead of piling up timeouts.
type Reader struct {
	client      *ethclient.Client
	exchange    common.Address
	exchangeABI abi.ABI
	erc20ABI    abi.ABI
	callTimeout time.Duration

	logger logger.LoggerInterface
	cb     *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *readerMetrics
}

// NewReader creates a chain reader for the given exchange contract.
func NewReader(client *ethclient.Client, exchange common.Address, callTimeout time.Duration, log logger.LoggerInterface) (*Reader, error) {
	exchangeABI, err := abi.JSON(strings.NewReader(ExchangeABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse exchange ABI: %w", err)
	}

	erc20ABI, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 ABI: %w", err)
	}

	r := &Reader{
		client:      client,
		exchange:    exchange,
		exchangeABI: exchangeABI,
		erc20ABI:    erc20ABI,
		callTimeout: callTimeout,
		logger:      log,
		tracer:      otel.Tracer(tracerName),
	}

	cbCfg := circuitbreaker.DefaultConfig("sagadex-reader")
	r.cb = circuitbreaker.New[[]byte](cbCfg)

	if err := r.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return r, nil
}

func (r *Reader) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &readerMetrics{}

	r.metrics.callsTotal, err = meter.Int64Counter(
		"sagadex_calls_total",
		metric.WithDescription("Total contract read calls"),
	)
	if err != nil {
		return err
	}

	r.metrics.callLatency, err = meter.Float64Histogram(
		"sagadex_call_latency_ms",
		metric.WithDescription("Contract read call latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	r.metrics.callErrors, err = meter.Int64Counter(
		"sagadex_call_errors_total",
		metric.WithDescription("Total contract read call errors"),
	)
	if err != nil {
		return err
	}

	return nil
}

// GetAmountOut quotes a swap through the exchange contract.
func (r *Reader) GetAmountOut(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error) {
	out, err := r.callExchange(ctx, "getAmountOut", tokenIn, tokenOut, amountIn)
	if err != nil {
		return nil, err
	}

	results, err := r.exchangeABI.Unpack("getAmountOut", out)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(err))
	}

	return abi.ConvertType(results[0], new(big.Int)).(*big.Int), nil
}

// GetPoolInfo reads a pair's reserves and total liquidity.
func (r *Reader) GetPoolInfo(ctx context.Context, tokenA, tokenB common.Address) (app.PoolReserves, error) {
	out, err := r.callExchange(ctx, "getPoolInfo", tokenA, tokenB)
	if err != nil {
		return app.PoolReserves{}, err
	}

	results, err := r.exchangeABI.Unpack("getPoolInfo", out)
	if err != nil {
		return app.PoolReserves{}, apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(err))
	}

	return app.PoolReserves{
		ReserveA:       abi.ConvertType(results[0], new(big.Int)).(*big.Int),
		ReserveB:       abi.ConvertType(results[1], new(big.Int)).(*big.Int),
		TotalLiquidity: abi.ConvertType(results[2], new(big.Int)).(*big.Int),
	}, nil
}

// GetUserLiquidity reads a user's share of a pool.
func (r *Reader) GetUserLiquidity(ctx context.Context, tokenA, tokenB, user common.Address) (*big.Int, error) {
	out, err := r.callExchange(ctx, "getUserLiquidity", tokenA, tokenB, user)
	if err != nil {
		return nil, err
	}

	results, err := r.exchangeABI.Unpack("getUserLiquidity", out)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(err))
	}

	return abi.ConvertType(results[0], new(big.Int)).(*big.Int), nil
}

// BalanceOf reads an ERC-20 balance.
func (r *Reader) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	out, err := r.callToken(ctx, token, "balanceOf", account)
	if err != nil {
		return nil, err
	}

	results, err := r.erc20ABI.Unpack("balanceOf", out)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(err))
	}

	return abi.ConvertType(results[0], new(big.Int)).(*big.Int), nil
}

// Allowance reads an ERC-20 allowance.
func (r *Reader) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	out, err := r.callToken(ctx, token, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}

	results, err := r.erc20ABI.Unpack("allowance", out)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(err))
	}

	return abi.ConvertType(results[0], new(big.Int)).(*big.Int), nil
}

// errExecutionReverted marks a call the contract rejected, as opposed
// to a transport failure.
var errExecutionReverted = errors.New("sagadex: execution reverted")

func (r *Reader) callExchange(ctx context.Context, method string, args ...any) ([]byte, error) {
	data, err := r.exchangeABI.Pack(method, args...)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(err))
	}

	out, err := r.call(ctx, r.exchange, method, data)
	if errors.Is(err, errExecutionReverted) {
		// The exchange reverts pool queries for pairs without a pool;
		// callers treat that as absence, not failure.
		return nil, app.ErrNoPool
	}
	return out, err
}

func (r *Reader) callToken(ctx context.Context, token common.Address, method string, args ...any) ([]byte, error) {
	data, err := r.erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(err))
	}

	out, err := r.call(ctx, token, method, data)
	if errors.Is(err, errExecutionReverted) {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(method))
	}
	return out, err
}

func (r *Reader) call(ctx context.Context, to common.Address, method string, data []byte) ([]byte, error) {
	ctx, span := r.tracer.Start(ctx, "sagadex.call",
		trace.WithAttributes(
			attribute.String("method", method),
			attribute.String("to", to.Hex()),
		),
	)
	defer span.End()

	attrs := metric.WithAttributes(attribute.String("method", method))
	r.metrics.callsTotal.Add(ctx, 1, attrs)
	started := time.Now()

	if r.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.callTimeout)
		defer cancel()
	}

	msg := ethereum.CallMsg{To: &to, Data: data}

	out, err := r.cb.Execute(func() ([]byte, error) {
		return r.client.CallContract(ctx, msg, nil)
	})

	r.metrics.callLatency.Record(ctx, float64(time.Since(started).Milliseconds()), attrs)

	if err != nil {
		r.metrics.callErrors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, "call failed")

		if isRevert(err) {
			return nil, fmt.Errorf("%w: %s", errExecutionReverted, method)
		}
		if circuitbreaker.IsOpen(err) {
			return nil, apperror.New(apperror.CodeCircuitOpen, apperror.WithCause(err))
		}
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(method))
	}

	span.SetStatus(codes.Ok, "")
	return out, nil
}

func isRevert(err error) bool {
	return err != nil && strings.Contains(err.Error(), "execution reverted")
}
