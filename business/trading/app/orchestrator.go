package app

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	marketApp "github.com/kuoyehs/saga-dex-project/business/market/app"
	marketDomain "github.com/kuoyehs/saga-dex-project/business/market/domain"
	"github.com/kuoyehs/saga-dex-project/business/trading/domain"
	walletApp "github.com/kuoyehs/saga-dex-project/business/wallet/app"
	"github.com/kuoyehs/saga-dex-project/internal/apperror"
	"github.com/kuoyehs/saga-dex-project/internal/asset"
	"github.com/kuoyehs/saga-dex-project/internal/logger"
)

const (
	tracerName = "trading"
	meterName  = "trading"
)

// SwapCommand asks to swap AmountIn for the opposite side of the pair.
type SwapCommand struct {
	Pair     marketDomain.Pair
	AmountIn asset.Amount
}

// AddLiquidityCommand asks to deposit both sides into the pair's pool.
type AddLiquidityCommand struct {
	Pair        marketDomain.Pair
	AmountBase  asset.Amount
	AmountQuote asset.Amount
}

// RemoveLiquidityCommand asks to withdraw a liquidity share from the
// pair's pool. Withdrawals need no allowance.
type RemoveLiquidityCommand struct {
	Pair      marketDomain.Pair
	Liquidity *big.Int
}

// orchestratorMetrics holds OTEL metric instruments.
type orchestratorMetrics struct {
	opsTotal   metric.Int64Counter
	opsSettled metric.Int64Counter
	opLatency  metric.Float64Histogram
	approvals  metric.Int64Counter
}

// Orchestrator runs user operations end to end: session check,
// precondition checks, allowance grant when needed, fresh quote at
// submission time, submission and confirmation. Operations are
// serialized; one runs at a time. There are no automatic retries: a
// failed or unresolved operation is reported and left alone.
type Orchestrator struct {
	sessions   *walletApp.SessionManager
	quoter     *marketApp.Quoter
	allowances marketApp.TokenReader
	writer     ExchangeWriter
	market     *marketApp.MarketService
	spender    common.Address
	reporter   Reporter
	log        logger.LoggerInterface

	mu      sync.Mutex
	nextID  uint64
	history []*domain.Operation

	tracer  trace.Tracer
	metrics *orchestratorMetrics
}

// NewOrchestrator creates the trading orchestrator. The spender is the
// exchange contract address allowances are granted to.
func NewOrchestrator(
	sessions *walletApp.SessionManager,
	quoter *marketApp.Quoter,
	allowances marketApp.TokenReader,
	writer ExchangeWriter,
	market *marketApp.MarketService,
	spender common.Address,
	reporter Reporter,
	log logger.LoggerInterface,
) (*Orchestrator, error) {
	o := &Orchestrator{
		sessions:   sessions,
		quoter:     quoter,
		allowances: allowances,
		writer:     writer,
		market:     market,
		spender:    spender,
		reporter:   reporter,
		log:        log,
		nextID:     1,
		tracer:     otel.Tracer(tracerName),
	}

	if err := o.initMetrics(); err != nil {
		return nil, err
	}

	return o, nil
}

func (o *Orchestrator) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	o.metrics = &orchestratorMetrics{}

	o.metrics.opsTotal, err = meter.Int64Counter(
		"trading_operations_total",
		metric.WithDescription("Operations started, by kind"),
	)
	if err != nil {
		return err
	}

	o.metrics.opsSettled, err = meter.Int64Counter(
		"trading_operations_settled_total",
		metric.WithDescription("Operations settled, by kind and status"),
	)
	if err != nil {
		return err
	}

	o.metrics.opLatency, err = meter.Float64Histogram(
		"trading_operation_latency_ms",
		metric.WithDescription("End-to-end operation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	o.metrics.approvals, err = meter.Int64Counter(
		"trading_approvals_total",
		metric.WithDescription("Allowance grants submitted"),
	)
	if err != nil {
		return err
	}

	return nil
}

// History returns the settled operations, oldest first.
func (o *Orchestrator) History() []*domain.Operation {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]*domain.Operation, len(o.history))
	copy(out, o.history)
	return out
}

// Swap executes a swap: allowance on the input token if short, then a
// freshly quoted, slippage-bounded swap. The returned operation record
// is always non-nil once a session exists.
func (o *Orchestrator) Swap(ctx context.Context, cmd SwapCommand) (*domain.Operation, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ctx, span := o.tracer.Start(ctx, "trading.swap",
		trace.WithAttributes(attribute.String("pair", cmd.Pair.String())),
	)
	defer span.End()

	session, err := o.sessions.Session()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if !cmd.AmountIn.IsPositive() {
		return nil, apperror.New(apperror.CodeInvalidAmount,
			apperror.WithContext("swap amount must be positive"))
	}
	if !cmd.Pair.Contains(cmd.AmountIn.Token()) {
		return nil, apperror.New(apperror.CodeInvalidRequest,
			apperror.WithContext("input token not in pair "+cmd.Pair.String()))
	}

	op := o.begin(domain.KindSwap, cmd.Pair, session.Account(), cmd.AmountIn)

	if err := o.checkBalance(ctx, session.Account(), cmd.AmountIn); err != nil {
		return o.settle(ctx, op, domain.StatusFailed, err)
	}

	if err := o.ensureAllowance(ctx, op, cmd.AmountIn); err != nil {
		return o.settle(ctx, op, statusFor(err), err)
	}

	// Quote at the point of submission so minOut reflects the pool as
	// it is now, not as it was when the form was filled.
	quote, err := o.quoter.Quote(ctx, cmd.Pair, cmd.AmountIn)
	if err != nil {
		return o.settle(ctx, op, domain.StatusFailed, err)
	}
	op.Quote = &quote

	tokenOut := quote.AmountOut.Token()
	hash, err := o.writer.SwapTokens(ctx, op.Account,
		cmd.AmountIn.Token().Address(), tokenOut.Address(),
		cmd.AmountIn.Raw(), quote.MinOut.Raw())
	if err != nil {
		return o.settle(ctx, op, domain.StatusFailed, o.mapSubmitError(err))
	}

	op.TxHash = hash
	op.RecordStep("swap submitted", hash)

	if err := o.writer.Await(ctx, hash); err != nil {
		return o.settle(ctx, op, statusFor(err), err)
	}

	op.RecordStep("swap confirmed", hash)
	return o.settle(ctx, op, domain.StatusConfirmed, nil)
}

// AddLiquidity executes a two-sided deposit, granting allowances for
// both tokens when short.
func (o *Orchestrator) AddLiquidity(ctx context.Context, cmd AddLiquidityCommand) (*domain.Operation, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ctx, span := o.tracer.Start(ctx, "trading.add_liquidity",
		trace.WithAttributes(attribute.String("pair", cmd.Pair.String())),
	)
	defer span.End()

	session, err := o.sessions.Session()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if !cmd.AmountBase.IsPositive() || !cmd.AmountQuote.IsPositive() {
		return nil, apperror.New(apperror.CodeInvalidAmount,
			apperror.WithContext("both deposit amounts must be positive"))
	}
	if !cmd.AmountBase.Token().Equals(cmd.Pair.Base()) || !cmd.AmountQuote.Token().Equals(cmd.Pair.Quote()) {
		return nil, apperror.New(apperror.CodeInvalidRequest,
			apperror.WithContext("deposit amounts do not match pair "+cmd.Pair.String()))
	}

	op := o.begin(domain.KindAddLiquidity, cmd.Pair, session.Account(), cmd.AmountBase)

	for _, amount := range []asset.Amount{cmd.AmountBase, cmd.AmountQuote} {
		if err := o.checkBalance(ctx, op.Account, amount); err != nil {
			return o.settle(ctx, op, domain.StatusFailed, err)
		}
	}

	for _, amount := range []asset.Amount{cmd.AmountBase, cmd.AmountQuote} {
		if err := o.ensureAllowance(ctx, op, amount); err != nil {
			return o.settle(ctx, op, statusFor(err), err)
		}
	}

	hash, err := o.writer.AddLiquidity(ctx, op.Account,
		cmd.Pair.Base().Address(), cmd.Pair.Quote().Address(),
		cmd.AmountBase.Raw(), cmd.AmountQuote.Raw())
	if err != nil {
		return o.settle(ctx, op, domain.StatusFailed, o.mapSubmitError(err))
	}

	op.TxHash = hash
	op.RecordStep("deposit submitted", hash)

	if err := o.writer.Await(ctx, hash); err != nil {
		return o.settle(ctx, op, statusFor(err), err)
	}

	op.RecordStep("deposit confirmed", hash)
	return o.settle(ctx, op, domain.StatusConfirmed, nil)
}

// RemoveLiquidity executes a withdrawal. No allowance is involved: the
// pool burns the caller's own share.
func (o *Orchestrator) RemoveLiquidity(ctx context.Context, cmd RemoveLiquidityCommand) (*domain.Operation, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ctx, span := o.tracer.Start(ctx, "trading.remove_liquidity",
		trace.WithAttributes(attribute.String("pair", cmd.Pair.String())),
	)
	defer span.End()

	session, err := o.sessions.Session()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if cmd.Liquidity == nil || cmd.Liquidity.Sign() <= 0 {
		return nil, apperror.New(apperror.CodeInvalidAmount,
			apperror.WithContext("liquidity to remove must be positive"))
	}

	// A known-empty position fails locally. An unknown one (no snapshot
	// yet) goes through; the chain rejects it if the share is gone.
	if o.market != nil {
		if snap := o.market.Snapshot(); snap != nil {
			if pos, ok := snap.PositionFor(cmd.Pair.String()); ok && !pos.HasStake() {
				return nil, apperror.New(apperror.CodeInvalidRequest,
					apperror.WithContext("no liquidity held in "+cmd.Pair.String()))
			}
		}
	}

	op := o.begin(domain.KindRemoveLiquidity, cmd.Pair, session.Account(), asset.Zero(cmd.Pair.Base()))

	hash, err := o.writer.RemoveLiquidity(ctx, op.Account,
		cmd.Pair.Base().Address(), cmd.Pair.Quote().Address(), cmd.Liquidity)
	if err != nil {
		return o.settle(ctx, op, domain.StatusFailed, o.mapSubmitError(err))
	}

	op.TxHash = hash
	op.RecordStep("withdrawal submitted", hash)

	if err := o.writer.Await(ctx, hash); err != nil {
		return o.settle(ctx, op, statusFor(err), err)
	}

	op.RecordStep("withdrawal confirmed", hash)
	return o.settle(ctx, op, domain.StatusConfirmed, nil)
}

// begin opens a new operation record.
func (o *Orchestrator) begin(kind domain.Kind, pair marketDomain.Pair, account common.Address, amountIn asset.Amount) *domain.Operation {
	op := &domain.Operation{
		ID:        o.nextID,
		Kind:      kind,
		Pair:      pair,
		Account:   account,
		AmountIn:  amountIn,
		Status:    domain.StatusPending,
		StartedAt: time.Now(),
	}
	o.nextID++

	o.metrics.opsTotal.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("kind", kind.String())))

	return op
}

// checkBalance fails the operation up front when the balance is known
// to be short. An unreadable balance does not block: the chain is the
// final arbiter.
func (o *Orchestrator) checkBalance(ctx context.Context, account common.Address, amount asset.Amount) error {
	raw, err := o.allowances.BalanceOf(ctx, amount.Token().Address(), account)
	if err != nil {
		o.log.Warn(ctx, "balance precheck unavailable", "token", amount.Token().Symbol(), "error", err)
		return nil
	}

	if raw.Cmp(amount.Raw()) < 0 {
		have := asset.NewAmount(amount.Token(), raw)
		return apperror.New(apperror.CodeInvalidAmount,
			apperror.WithContext("insufficient balance: have "+have.String()+", need "+amount.String()))
	}
	return nil
}

// ensureAllowance grants the exchange an exact allowance when the
// current one is short. The grant confirms before the primary
// transaction is submitted; once confirmed it stays, whatever happens
// next.
func (o *Orchestrator) ensureAllowance(ctx context.Context, op *domain.Operation, amount asset.Amount) error {
	token := amount.Token()

	current, err := o.allowances.Allowance(ctx, token.Address(), op.Account, o.spender)
	if err != nil {
		return apperror.New(apperror.CodeTransportError,
			apperror.WithCause(err),
			apperror.WithContext("allowance read failed for "+token.Symbol()))
	}

	if current.Cmp(amount.Raw()) >= 0 {
		return nil
	}

	o.log.Info(ctx, "granting allowance",
		"token", token.Symbol(), "amount", amount.DecimalString())

	hash, err := o.writer.Approve(ctx, op.Account, token.Address(), amount.Raw())
	if err != nil {
		return o.mapSubmitError(err)
	}

	op.RecordStep("approval submitted", hash)
	o.metrics.approvals.Add(ctx, 1,
		metric.WithAttributes(attribute.String("token", token.Symbol())))

	if err := o.writer.Await(ctx, hash); err != nil {
		return err
	}

	op.RecordStep("approval confirmed", hash)
	return nil
}

// settle finalizes, records and reports the operation, then kicks off
// a snapshot refresh so the UI reflects the new chain state.
func (o *Orchestrator) settle(ctx context.Context, op *domain.Operation, status domain.Status, opErr error) (*domain.Operation, error) {
	op.Finish(status, opErr)
	o.history = append(o.history, op)

	attrs := metric.WithAttributes(
		attribute.String("kind", op.Kind.String()),
		attribute.String("status", status.String()),
	)
	o.metrics.opsSettled.Add(ctx, 1, attrs)
	o.metrics.opLatency.Record(ctx, float64(op.Duration().Milliseconds()), attrs)

	if opErr != nil {
		o.log.Warn(ctx, "operation settled with error",
			"kind", op.Kind.String(), "status", status.String(), "error", opErr)
	} else {
		o.log.Info(ctx, "operation confirmed",
			"kind", op.Kind.String(), "tx", op.TxHash.Hex())
	}

	if o.reporter != nil {
		o.reporter.Report(op)
	}

	// Reconciliation only runs for observed outcomes.
	if o.market != nil && status != domain.StatusUnresolved {
		account := op.Account
		go o.market.Refresh(context.WithoutCancel(ctx), account)
	}

	return op, opErr
}

// mapSubmitError translates wallet-level refusals into application codes.
func (o *Orchestrator) mapSubmitError(err error) error {
	if errors.Is(err, walletApp.ErrDeclined) {
		return apperror.New(apperror.CodeUserRejected, apperror.WithCause(err))
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.New(apperror.CodeTransportError, apperror.WithCause(err))
}

// statusFor maps a settlement error to the operation's final status.
// Only an unknown outcome leaves the operation unresolved.
func statusFor(err error) domain.Status {
	if apperror.IsCode(err, apperror.CodeUnknownOutcome) {
		return domain.StatusUnresolved
	}
	return domain.StatusFailed
}
