package app_test

import (
	"context"
	"errors"
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	marketApp "github.com/kuoyehs/saga-dex-project/business/market/app"
	marketDomain "github.com/kuoyehs/saga-dex-project/business/market/domain"
	"github.com/kuoyehs/saga-dex-project/business/trading/app"
	"github.com/kuoyehs/saga-dex-project/business/trading/domain"
	walletApp "github.com/kuoyehs/saga-dex-project/business/wallet/app"
	walletDomain "github.com/kuoyehs/saga-dex-project/business/wallet/domain"
	"github.com/kuoyehs/saga-dex-project/internal/apperror"
	"github.com/kuoyehs/saga-dex-project/internal/asset"
	"github.com/kuoyehs/saga-dex-project/internal/logger"
	"github.com/kuoyehs/saga-dex-project/internal/ratelimit"
)

var (
	testToken = asset.NewToken("TEST", "Test Token",
		common.HexToAddress("0x1111111111111111111111111111111111111111"), asset.LedgerDecimals)
	usdToken = asset.NewToken("USD", "USD Token",
		common.HexToAddress("0x2222222222222222222222222222222222222222"), asset.LedgerDecimals)

	testAccount = common.HexToAddress("0xAbcD000000000000000000000000000000001234")
	spender     = common.HexToAddress("0xEEEE000000000000000000000000000000000001")

	approveHash = common.HexToHash("0xaa01")
	primaryHash = common.HexToHash("0xbb02")
)

// units converts whole tokens to 18-decimal ledger units.
func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func mustPair(base, quote *asset.Token) marketDomain.Pair {
	pair, err := marketDomain.NewPair(base, quote)
	if err != nil {
		panic(err)
	}
	return pair
}

// connectedProvider is a wallet backend already on the target chain.
type connectedProvider struct{}

func (connectedProvider) Detected(ctx context.Context) bool { return true }
func (connectedProvider) Watch(fn func())                   {}
func (connectedProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	return []common.Address{testAccount}, nil
}
func (connectedProvider) RequestAccount(ctx context.Context) (common.Address, error) {
	return testAccount, nil
}
func (connectedProvider) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(2755378989728000), nil
}
func (connectedProvider) SwitchChain(ctx context.Context, chainID *big.Int) error { return nil }
func (connectedProvider) AddChain(ctx context.Context, d walletDomain.ChainDescriptor) error {
	return nil
}
func (connectedProvider) SignTx(ctx context.Context, account common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return tx, nil
}

// fakeQuoteSource implements marketApp.ExchangeReader for the quoter.
// Nil hooks panic so tests catch reads they did not expect.
type fakeQuoteSource struct {
	amountOut func(tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error)
	poolInfo  func(tokenA, tokenB common.Address) (marketApp.PoolReserves, error)
	userLiq   func(tokenA, tokenB, user common.Address) (*big.Int, error)
}

func (f *fakeQuoteSource) GetAmountOut(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error) {
	if f.amountOut == nil {
		panic("unexpected GetAmountOut call")
	}
	return f.amountOut(tokenIn, tokenOut, amountIn)
}

func (f *fakeQuoteSource) GetPoolInfo(ctx context.Context, tokenA, tokenB common.Address) (marketApp.PoolReserves, error) {
	if f.poolInfo == nil {
		panic("unexpected GetPoolInfo call")
	}
	return f.poolInfo(tokenA, tokenB)
}

func (f *fakeQuoteSource) GetUserLiquidity(ctx context.Context, tokenA, tokenB, user common.Address) (*big.Int, error) {
	if f.userLiq == nil {
		panic("unexpected GetUserLiquidity call")
	}
	return f.userLiq(tokenA, tokenB, user)
}

// fakeTokenReader implements marketApp.TokenReader.
type fakeTokenReader struct {
	balanceOf func(token, account common.Address) (*big.Int, error)
	allowance func(token, owner, spender common.Address) (*big.Int, error)
}

func (f *fakeTokenReader) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	if f.balanceOf == nil {
		return units(1000), nil
	}
	return f.balanceOf(token, account)
}

func (f *fakeTokenReader) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	if f.allowance == nil {
		panic("unexpected Allowance call")
	}
	return f.allowance(token, owner, spender)
}

// fakeWriter records submissions in order.
type fakeWriter struct {
	calls []string

	approveErr error
	swapErr    error
	awaitErr   error

	approvedTokens  []common.Address
	approvedAmounts []*big.Int
	swapMinOut      *big.Int
	swapAmountIn    *big.Int
}

func (w *fakeWriter) Approve(ctx context.Context, account, token common.Address, amount *big.Int) (common.Hash, error) {
	w.calls = append(w.calls, "approve")
	if w.approveErr != nil {
		return common.Hash{}, w.approveErr
	}
	w.approvedTokens = append(w.approvedTokens, token)
	w.approvedAmounts = append(w.approvedAmounts, new(big.Int).Set(amount))
	return approveHash, nil
}

func (w *fakeWriter) SwapTokens(ctx context.Context, account, tokenIn, tokenOut common.Address, amountIn, minAmountOut *big.Int) (common.Hash, error) {
	w.calls = append(w.calls, "swap")
	if w.swapErr != nil {
		return common.Hash{}, w.swapErr
	}
	w.swapAmountIn = new(big.Int).Set(amountIn)
	w.swapMinOut = new(big.Int).Set(minAmountOut)
	return primaryHash, nil
}

func (w *fakeWriter) AddLiquidity(ctx context.Context, account, tokenA, tokenB common.Address, amountA, amountB *big.Int) (common.Hash, error) {
	w.calls = append(w.calls, "add")
	return primaryHash, nil
}

func (w *fakeWriter) RemoveLiquidity(ctx context.Context, account, tokenA, tokenB common.Address, liquidity *big.Int) (common.Hash, error) {
	w.calls = append(w.calls, "remove")
	return primaryHash, nil
}

func (w *fakeWriter) Await(ctx context.Context, hash common.Hash) error {
	w.calls = append(w.calls, "await")
	return w.awaitErr
}

// captureReporter collects settled operations.
type captureReporter struct {
	ops []*domain.Operation
}

func (r *captureReporter) Start(ctx context.Context) error { return nil }
func (r *captureReporter) Report(op *domain.Operation)     { r.ops = append(r.ops, op) }
func (r *captureReporter) Stop() error                     { return nil }

type harness struct {
	orch     *app.Orchestrator
	sessions *walletApp.SessionManager
	writer   *fakeWriter
	tokens   *fakeTokenReader
	reporter *captureReporter
}

func newConnectedSessions(t *testing.T, log *logger.Logger) *walletApp.SessionManager {
	t.Helper()

	sessions := walletApp.NewSessionManager(connectedProvider{}, walletDomain.ChainDescriptor{
		ChainID:          big.NewInt(2755378989728000),
		Name:             "Qubit",
		RPCURL:           "https://qubit.example",
		CurrencySymbol:   "ETH",
		CurrencyName:     "Ether",
		CurrencyDecimals: 18,
	}, log)
	if _, err := sessions.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return sessions
}

// newHarness builds an orchestrator with a connected session. Defaults:
// allowance zero, ample balance, every swap quoted at 2000 units out.
func newHarness(t *testing.T) *harness {
	t.Helper()

	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	sessions := newConnectedSessions(t, log)

	quoteSource := &fakeQuoteSource{
		amountOut: func(_, _ common.Address, _ *big.Int) (*big.Int, error) {
			return units(2000), nil
		},
	}
	quoter := marketApp.NewQuoter(quoteSource, 500, log)

	tokens := &fakeTokenReader{
		allowance: func(_, _, _ common.Address) (*big.Int, error) {
			return big.NewInt(0), nil
		},
	}
	writer := &fakeWriter{}
	reporter := &captureReporter{}

	orch, err := app.NewOrchestrator(sessions, quoter, tokens, writer, nil, spender, reporter, log)
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}

	return &harness{orch: orch, sessions: sessions, writer: writer, tokens: tokens, reporter: reporter}
}

func swapCmd(n int64) app.SwapCommand {
	return app.SwapCommand{
		Pair:     mustPair(testToken, usdToken),
		AmountIn: asset.NewAmount(testToken, units(n)),
	}
}

func TestSwap_GrantsExactAllowanceWhenShort(t *testing.T) {
	h := newHarness(t)

	op, err := h.orch.Swap(context.Background(), swapCmd(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Approval confirms before the swap is submitted.
	want := []string{"approve", "await", "swap", "await"}
	if len(h.writer.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", h.writer.calls, want)
	}
	for i := range want {
		if h.writer.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", h.writer.calls, want)
		}
	}

	// Exact amount, not unlimited.
	if h.writer.approvedAmounts[0].Cmp(units(10)) != 0 {
		t.Errorf("approved %s, want %s", h.writer.approvedAmounts[0], units(10))
	}

	// minOut from the fresh quote: 2000 * 9500 / 10000 = 1900.
	if h.writer.swapMinOut.Cmp(units(1900)) != 0 {
		t.Errorf("minOut = %s, want %s", h.writer.swapMinOut, units(1900))
	}

	if op.Status != domain.StatusConfirmed {
		t.Errorf("status = %s, want confirmed", op.Status)
	}
	if op.Quote == nil {
		t.Error("expected the submission-time quote on the record")
	}
	if len(op.Steps) != 4 {
		t.Errorf("steps = %d, want 4", len(op.Steps))
	}
}

func TestSwap_SufficientAllowanceSkipsApproval(t *testing.T) {
	h := newHarness(t)
	h.tokens.allowance = func(_, _, _ common.Address) (*big.Int, error) {
		return units(1000), nil
	}

	op, err := h.orch.Swap(context.Background(), swapCmd(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(h.writer.calls) != 2 || h.writer.calls[0] != "swap" {
		t.Errorf("calls = %v, want [swap await]", h.writer.calls)
	}
	if op.Status != domain.StatusConfirmed {
		t.Errorf("status = %s, want confirmed", op.Status)
	}
}

func TestSwap_NoSession(t *testing.T) {
	h := newHarness(t)
	// Reuse the harness wiring but with a closed session.
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	sessions := walletApp.NewSessionManager(connectedProvider{}, walletDomain.ChainDescriptor{
		ChainID: big.NewInt(1),
	}, log)

	orch, err := app.NewOrchestrator(sessions, nil, h.tokens, h.writer, nil, spender, h.reporter, log)
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}

	op, err := orch.Swap(context.Background(), swapCmd(1))
	if !apperror.IsCode(err, apperror.CodeSessionClosed) {
		t.Errorf("expected SESSION_CLOSED, got %v", err)
	}
	if op != nil {
		t.Error("expected no operation record without a session")
	}
	if len(h.writer.calls) != 0 {
		t.Errorf("writer touched without a session: %v", h.writer.calls)
	}
}

func TestSwap_RejectsNonPositiveAmount(t *testing.T) {
	h := newHarness(t)

	cmd := swapCmd(1)
	cmd.AmountIn = asset.Zero(testToken)

	_, err := h.orch.Swap(context.Background(), cmd)
	if !apperror.IsCode(err, apperror.CodeInvalidAmount) {
		t.Errorf("expected INVALID_AMOUNT, got %v", err)
	}
}

func TestSwap_KnownShortBalanceFailsEarly(t *testing.T) {
	h := newHarness(t)
	h.tokens.balanceOf = func(_, _ common.Address) (*big.Int, error) {
		return units(5), nil
	}

	op, err := h.orch.Swap(context.Background(), swapCmd(10))
	if !apperror.IsCode(err, apperror.CodeInvalidAmount) {
		t.Errorf("expected INVALID_AMOUNT, got %v", err)
	}
	if op.Status != domain.StatusFailed {
		t.Errorf("status = %s, want failed", op.Status)
	}
	if len(h.writer.calls) != 0 {
		t.Errorf("nothing should be submitted: %v", h.writer.calls)
	}
}

func TestSwap_UnreadableBalanceDoesNotBlock(t *testing.T) {
	h := newHarness(t)
	h.tokens.balanceOf = func(_, _ common.Address) (*big.Int, error) {
		return nil, errors.New("rpc timeout")
	}

	op, err := h.orch.Swap(context.Background(), swapCmd(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op.Status != domain.StatusConfirmed {
		t.Errorf("status = %s, want confirmed", op.Status)
	}
}

func TestSwap_AllowanceReadFailure(t *testing.T) {
	h := newHarness(t)
	h.tokens.allowance = func(_, _, _ common.Address) (*big.Int, error) {
		return nil, errors.New("rpc timeout")
	}

	op, err := h.orch.Swap(context.Background(), swapCmd(10))
	if !apperror.IsCode(err, apperror.CodeTransportError) {
		t.Errorf("expected TRANSPORT_ERROR, got %v", err)
	}
	if op.Status != domain.StatusFailed {
		t.Errorf("status = %s, want failed", op.Status)
	}
}

func TestSwap_ChainRejection(t *testing.T) {
	h := newHarness(t)
	h.tokens.allowance = func(_, _, _ common.Address) (*big.Int, error) {
		return units(1000), nil
	}
	h.writer.awaitErr = apperror.New(apperror.CodeRemoteRejected)

	op, err := h.orch.Swap(context.Background(), swapCmd(10))
	if !apperror.IsCode(err, apperror.CodeRemoteRejected) {
		t.Errorf("expected REMOTE_REJECTED, got %v", err)
	}
	if op.Status != domain.StatusFailed {
		t.Errorf("status = %s, want failed", op.Status)
	}
}

func TestSwap_UnknownOutcomeIsUnresolved(t *testing.T) {
	h := newHarness(t)
	h.tokens.allowance = func(_, _, _ common.Address) (*big.Int, error) {
		return units(1000), nil
	}
	h.writer.awaitErr = apperror.New(apperror.CodeUnknownOutcome)

	op, err := h.orch.Swap(context.Background(), swapCmd(10))
	if !apperror.IsCode(err, apperror.CodeUnknownOutcome) {
		t.Errorf("expected UNKNOWN_OUTCOME, got %v", err)
	}
	// Not failed: the transaction may still have happened.
	if op.Status != domain.StatusUnresolved {
		t.Errorf("status = %s, want unresolved", op.Status)
	}
	if op.TxHash != primaryHash {
		t.Errorf("tx hash = %s, want %s", op.TxHash, primaryHash)
	}
}

func TestSwap_UserDeclinesSignature(t *testing.T) {
	h := newHarness(t)
	h.tokens.allowance = func(_, _, _ common.Address) (*big.Int, error) {
		return units(1000), nil
	}
	h.writer.swapErr = walletApp.ErrDeclined

	op, err := h.orch.Swap(context.Background(), swapCmd(10))
	if !apperror.IsCode(err, apperror.CodeUserRejected) {
		t.Errorf("expected USER_REJECTED, got %v", err)
	}
	if op.Status != domain.StatusFailed {
		t.Errorf("status = %s, want failed", op.Status)
	}
}

func TestSwap_ConfirmedApprovalSurvivesLaterFailure(t *testing.T) {
	h := newHarness(t)
	h.writer.swapErr = errors.New("nonce too low")

	op, err := h.orch.Swap(context.Background(), swapCmd(10))
	if err == nil {
		t.Fatal("expected error")
	}

	// The approval confirmed, then the swap failed. No rollback step
	// exists; the approval stays on the record.
	if len(h.writer.approvedAmounts) != 1 {
		t.Fatalf("approvals = %d, want 1", len(h.writer.approvedAmounts))
	}
	var names []string
	for _, s := range op.Steps {
		names = append(names, s.Name)
	}
	if len(names) != 2 || names[0] != "approval submitted" || names[1] != "approval confirmed" {
		t.Errorf("steps = %v", names)
	}
}

func TestAddLiquidity_ApprovesBothSides(t *testing.T) {
	h := newHarness(t)

	op, err := h.orch.AddLiquidity(context.Background(), app.AddLiquidityCommand{
		Pair:        mustPair(testToken, usdToken),
		AmountBase:  asset.NewAmount(testToken, units(10)),
		AmountQuote: asset.NewAmount(usdToken, units(20)),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(h.writer.approvedTokens) != 2 {
		t.Fatalf("approvals = %d, want 2", len(h.writer.approvedTokens))
	}
	if h.writer.approvedTokens[0] != testToken.Address() || h.writer.approvedTokens[1] != usdToken.Address() {
		t.Errorf("approved tokens = %v", h.writer.approvedTokens)
	}
	if op.Status != domain.StatusConfirmed {
		t.Errorf("status = %s, want confirmed", op.Status)
	}
}

func TestAddLiquidity_AmountsMustMatchPair(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.AddLiquidity(context.Background(), app.AddLiquidityCommand{
		Pair:        mustPair(testToken, usdToken),
		AmountBase:  asset.NewAmount(usdToken, units(10)), // sides flipped
		AmountQuote: asset.NewAmount(testToken, units(20)),
	})
	if !apperror.IsCode(err, apperror.CodeInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST, got %v", err)
	}
}

func TestRemoveLiquidity_NeedsNoAllowance(t *testing.T) {
	h := newHarness(t)
	// Any allowance read would panic.
	h.tokens.allowance = nil

	op, err := h.orch.RemoveLiquidity(context.Background(), app.RemoveLiquidityCommand{
		Pair:      mustPair(testToken, usdToken),
		Liquidity: big.NewInt(50),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(h.writer.calls) != 2 || h.writer.calls[0] != "remove" {
		t.Errorf("calls = %v, want [remove await]", h.writer.calls)
	}
	if op.Status != domain.StatusConfirmed {
		t.Errorf("status = %s, want confirmed", op.Status)
	}
}

func TestRemoveLiquidity_RejectsNonPositive(t *testing.T) {
	h := newHarness(t)

	for _, liquidity := range []*big.Int{nil, big.NewInt(0), big.NewInt(-1)} {
		_, err := h.orch.RemoveLiquidity(context.Background(), app.RemoveLiquidityCommand{
			Pair:      mustPair(testToken, usdToken),
			Liquidity: liquidity,
		})
		if !apperror.IsCode(err, apperror.CodeInvalidAmount) {
			t.Errorf("liquidity %v: expected INVALID_AMOUNT, got %v", liquidity, err)
		}
	}
}

// marketHarness wires an orchestrator to a real MarketService so tests
// can exercise the snapshot-dependent paths.
type marketHarness struct {
	*harness
	market   *marketApp.MarketService
	exchange *fakeQuoteSource
	refresh  chan struct{}
}

func newMarketHarness(t *testing.T, userLiquidity *big.Int) *marketHarness {
	t.Helper()
	h := newHarness(t)

	registry := asset.NewRegistry()
	for _, token := range []*asset.Token{testToken, usdToken} {
		if err := registry.Register(token); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	refresh := make(chan struct{}, 8)
	exchange := &fakeQuoteSource{
		amountOut: func(_, _ common.Address, _ *big.Int) (*big.Int, error) {
			return units(2000), nil
		},
		poolInfo: func(_, _ common.Address) (marketApp.PoolReserves, error) {
			refresh <- struct{}{}
			return marketApp.PoolReserves{
				ReserveA:       units(100),
				ReserveB:       units(200),
				TotalLiquidity: units(10),
			}, nil
		},
		userLiq: func(_, _, _ common.Address) (*big.Int, error) {
			return userLiquidity, nil
		},
	}

	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	market := marketApp.NewMarketService(exchange, h.tokens, registry,
		[]marketDomain.Pair{mustPair(testToken, usdToken)},
		ratelimit.New(1000, 4), 4, log)

	quoter := marketApp.NewQuoter(exchange, 500, log)
	orch, err := app.NewOrchestrator(h.sessions, quoter, h.tokens, h.writer, market, spender, h.reporter, log)
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}
	h.orch = orch

	return &marketHarness{harness: h, market: market, exchange: exchange, refresh: refresh}
}

func TestRemoveLiquidity_KnownEmptyPositionFailsEarly(t *testing.T) {
	mh := newMarketHarness(t, big.NewInt(0))
	mh.market.Refresh(context.Background(), testAccount)
	drain(mh.refresh)

	_, err := mh.orch.RemoveLiquidity(context.Background(), app.RemoveLiquidityCommand{
		Pair:      mustPair(testToken, usdToken),
		Liquidity: big.NewInt(50),
	})
	if !apperror.IsCode(err, apperror.CodeInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST, got %v", err)
	}
	if len(mh.writer.calls) != 0 {
		t.Errorf("calls = %v, want none", mh.writer.calls)
	}
}

func TestSettle_ConfirmedTriggersRefresh(t *testing.T) {
	mh := newMarketHarness(t, units(5))
	mh.tokens.allowance = func(_, _, _ common.Address) (*big.Int, error) {
		return units(1000), nil
	}

	if _, err := mh.orch.Swap(context.Background(), swapCmd(10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-mh.refresh:
	case <-time.After(2 * time.Second):
		t.Error("expected a snapshot refresh after confirmation")
	}
}

func TestSettle_UnresolvedSkipsRefresh(t *testing.T) {
	mh := newMarketHarness(t, units(5))
	mh.tokens.allowance = func(_, _, _ common.Address) (*big.Int, error) {
		return units(1000), nil
	}
	mh.writer.awaitErr = apperror.New(apperror.CodeUnknownOutcome)

	if _, err := mh.orch.Swap(context.Background(), swapCmd(10)); err == nil {
		t.Fatal("expected error")
	}

	select {
	case <-mh.refresh:
		t.Error("unresolved operation must not reconcile")
	case <-time.After(100 * time.Millisecond):
	}
}

func drain(ch chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func TestSettledOperationsAreReportedAndKept(t *testing.T) {
	h := newHarness(t)

	if _, err := h.orch.Swap(context.Background(), swapCmd(10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.writer.swapErr = walletApp.ErrDeclined
	if _, err := h.orch.Swap(context.Background(), swapCmd(10)); err == nil {
		t.Fatal("expected error")
	}

	if len(h.reporter.ops) != 2 {
		t.Fatalf("reported = %d, want 2", len(h.reporter.ops))
	}

	history := h.orch.History()
	if len(history) != 2 {
		t.Fatalf("history = %d, want 2", len(history))
	}
	if history[0].ID == history[1].ID {
		t.Error("operation IDs must be unique")
	}
	if history[0].Status != domain.StatusConfirmed || history[1].Status != domain.StatusFailed {
		t.Errorf("statuses = %s, %s", history[0].Status, history[1].Status)
	}
}
