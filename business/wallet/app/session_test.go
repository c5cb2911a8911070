package app_test

import (
	"context"
	"io"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/kuoyehs/saga-dex-project/business/wallet/app"
	"github.com/kuoyehs/saga-dex-project/business/wallet/domain"
	"github.com/kuoyehs/saga-dex-project/internal/apperror"
	"github.com/kuoyehs/saga-dex-project/internal/logger"
)

var testAccount = common.HexToAddress("0xAbcD000000000000000000000000000000001234")

func testDescriptor() domain.ChainDescriptor {
	return domain.ChainDescriptor{
		ChainID:          big.NewInt(2755378989728000),
		Name:             "Qubit",
		RPCURL:           "https://qubit.example",
		CurrencySymbol:   "ETH",
		CurrencyName:     "Ether",
		CurrencyDecimals: 18,
	}
}

// fakeProvider simulates a wallet backend. Zero value behaves like a
// detected wallet already on chain 1 holding one account.
type fakeProvider struct {
	notDetected  bool
	accountErr   error
	accounts     []common.Address
	accountsErr  error
	chain        *big.Int
	knowsTarget  bool
	switchErr    error
	addErr       error
	switchCalls  int
	addCalls     int
	accountCalls int
	watchers     []func()
}

func (p *fakeProvider) Detected(ctx context.Context) bool { return !p.notDetected }

func (p *fakeProvider) Watch(fn func()) { p.watchers = append(p.watchers, fn) }

// fireChange simulates the wallet signaling an account or chain change.
func (p *fakeProvider) fireChange() {
	for _, fn := range p.watchers {
		fn()
	}
}

func (p *fakeProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	if p.accountsErr != nil {
		return nil, p.accountsErr
	}
	return p.accounts, nil
}

func (p *fakeProvider) RequestAccount(ctx context.Context) (common.Address, error) {
	p.accountCalls++
	if p.accountErr != nil {
		return common.Address{}, p.accountErr
	}
	return testAccount, nil
}

func (p *fakeProvider) ChainID(ctx context.Context) (*big.Int, error) {
	if p.chain == nil {
		return big.NewInt(1), nil
	}
	return new(big.Int).Set(p.chain), nil
}

func (p *fakeProvider) SwitchChain(ctx context.Context, chainID *big.Int) error {
	p.switchCalls++
	if p.switchErr != nil {
		return p.switchErr
	}
	if !p.knowsTarget {
		return app.ErrUnknownChain
	}
	p.chain = new(big.Int).Set(chainID)
	return nil
}

func (p *fakeProvider) AddChain(ctx context.Context, descriptor domain.ChainDescriptor) error {
	p.addCalls++
	if p.addErr != nil {
		return p.addErr
	}
	p.knowsTarget = true
	return nil
}

func (p *fakeProvider) SignTx(ctx context.Context, account common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return tx, nil
}

func newManager(p app.Provider) *app.SessionManager {
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	return app.NewSessionManager(p, testDescriptor(), log)
}

func TestConnect_RegistersUnknownChain(t *testing.T) {
	// Wallet starts on chain 1 and has never seen the chainlet: the
	// first switch fails, the chain gets added, the second succeeds.
	provider := &fakeProvider{}
	manager := newManager(provider)

	session, err := manager.Connect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if session.Account() != testAccount {
		t.Errorf("account = %s, want %s", session.Account(), testAccount)
	}
	if provider.addCalls != 1 {
		t.Errorf("addCalls = %d, want 1", provider.addCalls)
	}
	if provider.switchCalls != 2 {
		t.Errorf("switchCalls = %d, want 2", provider.switchCalls)
	}
	if manager.State() != domain.StateConnected {
		t.Errorf("state = %s, want connected", manager.State())
	}
}

func TestConnect_AlreadyOnTargetChain(t *testing.T) {
	provider := &fakeProvider{chain: big.NewInt(2755378989728000), knowsTarget: true}
	manager := newManager(provider)

	if _, err := manager.Connect(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.switchCalls != 0 {
		t.Errorf("switchCalls = %d, want 0", provider.switchCalls)
	}
}

func TestConnect_Idempotent(t *testing.T) {
	provider := &fakeProvider{}
	manager := newManager(provider)

	first, err := manager.Connect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := manager.Connect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != second {
		t.Error("expected the same session on repeat connect")
	}
	if provider.accountCalls != 1 {
		t.Errorf("accountCalls = %d, want 1", provider.accountCalls)
	}
}

func TestConnect_WalletNotDetected(t *testing.T) {
	manager := newManager(&fakeProvider{notDetected: true})

	_, err := manager.Connect(context.Background())
	if !apperror.IsCode(err, apperror.CodeWalletUnavailable) {
		t.Errorf("expected WALLET_UNAVAILABLE, got %v", err)
	}
	if manager.State() != domain.StateNotDetected {
		t.Errorf("state = %s, want not detected", manager.State())
	}
}

func TestConnect_UserDeclines(t *testing.T) {
	manager := newManager(&fakeProvider{accountErr: app.ErrDeclined})

	_, err := manager.Connect(context.Background())
	if !apperror.IsCode(err, apperror.CodeUserRejected) {
		t.Errorf("expected USER_REJECTED, got %v", err)
	}
	if manager.State() != domain.StateDisconnected {
		t.Errorf("state = %s, want disconnected", manager.State())
	}
}

func TestConnect_NoAccounts(t *testing.T) {
	manager := newManager(&fakeProvider{accountErr: app.ErrNoAccounts})

	_, err := manager.Connect(context.Background())
	if !apperror.IsCode(err, apperror.CodeWalletUnavailable) {
		t.Errorf("expected WALLET_UNAVAILABLE, got %v", err)
	}
}

func TestConnect_SwitchDeclined(t *testing.T) {
	manager := newManager(&fakeProvider{switchErr: app.ErrDeclined})

	_, err := manager.Connect(context.Background())
	if !apperror.IsCode(err, apperror.CodeUserRejected) {
		t.Errorf("expected USER_REJECTED, got %v", err)
	}
}

func TestConnect_AddChainFails(t *testing.T) {
	manager := newManager(&fakeProvider{addErr: context.DeadlineExceeded})

	_, err := manager.Connect(context.Background())
	if !apperror.IsCode(err, apperror.CodeNetworkMismatch) {
		t.Errorf("expected NETWORK_MISMATCH, got %v", err)
	}
}

func TestSession_ClosedWhenDisconnected(t *testing.T) {
	manager := newManager(&fakeProvider{})

	if _, err := manager.Session(); !apperror.IsCode(err, apperror.CodeSessionClosed) {
		t.Errorf("expected SESSION_CLOSED, got %v", err)
	}

	if _, err := manager.Connect(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := manager.Session(); err != nil {
		t.Errorf("unexpected error after connect: %v", err)
	}

	manager.Disconnect(context.Background())
	if _, err := manager.Session(); !apperror.IsCode(err, apperror.CodeSessionClosed) {
		t.Errorf("expected SESSION_CLOSED after disconnect, got %v", err)
	}
}

func TestTryRestore_AuthorizedAccountOnTargetChain(t *testing.T) {
	provider := &fakeProvider{
		accounts:    []common.Address{testAccount},
		chain:       big.NewInt(2755378989728000),
		knowsTarget: true,
	}
	manager := newManager(provider)

	session, err := manager.TryRestore(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session == nil || session.Account() != testAccount {
		t.Fatalf("session = %v, want restored for %s", session, testAccount)
	}
	if manager.State() != domain.StateConnected {
		t.Errorf("state = %s, want connected", manager.State())
	}
	if provider.accountCalls != 0 {
		t.Errorf("accountCalls = %d, restore must not prompt", provider.accountCalls)
	}
}

func TestTryRestore_NothingToRestore(t *testing.T) {
	manager := newManager(&fakeProvider{})

	session, err := manager.TryRestore(context.Background())
	if err != nil {
		t.Fatalf("absent session is not an error, got %v", err)
	}
	if session != nil {
		t.Fatalf("session = %v, want nil", session)
	}
	if manager.State() != domain.StateDisconnected {
		t.Errorf("state = %s, want disconnected", manager.State())
	}
}

func TestTryRestore_WrongChainStaysDisconnected(t *testing.T) {
	// Restore never switches chains; that needs an interactive connect.
	provider := &fakeProvider{accounts: []common.Address{testAccount}}
	manager := newManager(provider)

	session, err := manager.TryRestore(context.Background())
	if err != nil || session != nil {
		t.Fatalf("got (%v, %v), want (nil, nil)", session, err)
	}
	if provider.switchCalls != 0 {
		t.Errorf("switchCalls = %d, want 0", provider.switchCalls)
	}
}

func TestProviderChange_ChainLeaveTearsDownSession(t *testing.T) {
	provider := &fakeProvider{accounts: []common.Address{testAccount}}
	manager := newManager(provider)

	if _, err := manager.Connect(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	provider.chain = big.NewInt(1)
	provider.fireChange()

	if manager.State() != domain.StateDisconnected {
		t.Errorf("state = %s, want disconnected", manager.State())
	}
	if _, err := manager.Session(); !apperror.IsCode(err, apperror.CodeSessionClosed) {
		t.Errorf("expected SESSION_CLOSED, got %v", err)
	}
}

func TestProviderChange_AccountRevokedTearsDownSession(t *testing.T) {
	provider := &fakeProvider{accounts: []common.Address{testAccount}}
	manager := newManager(provider)

	if _, err := manager.Connect(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	provider.accounts = nil
	provider.fireChange()

	if manager.State() != domain.StateDisconnected {
		t.Errorf("state = %s, want disconnected", manager.State())
	}
}

func TestProviderChange_IgnoredWhileDisconnected(t *testing.T) {
	provider := &fakeProvider{}
	_ = newManager(provider)

	// Must not panic or change anything without a session.
	provider.fireChange()
}

func TestOnChange_NotifiesTransitions(t *testing.T) {
	manager := newManager(&fakeProvider{})

	var states []domain.SessionState
	manager.OnChange(func(s domain.SessionState) {
		states = append(states, s)
	})

	if _, err := manager.Connect(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []domain.SessionState{domain.StateConnecting, domain.StateConnected}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("states[%d] = %s, want %s", i, states[i], want[i])
		}
	}
}
