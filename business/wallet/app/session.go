package app

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/kuoyehs/saga-dex-project/business/wallet/domain"
	"github.com/kuoyehs/saga-dex-project/internal/apperror"
	"github.com/kuoyehs/saga-dex-project/internal/logger"
)

// SessionManager owns the wallet session lifecycle. It connects the
// provider, pins it to the expected chain and hands out the active
// session. All methods are safe for concurrent use.
type SessionManager struct {
	provider   Provider
	descriptor domain.ChainDescriptor
	log        logger.LoggerInterface

	mu        sync.Mutex
	state     domain.SessionState
	session   *domain.Session
	listeners []func(domain.SessionState)
}

// NewSessionManager creates a session manager targeting the chain in
// the descriptor.
func NewSessionManager(provider Provider, descriptor domain.ChainDescriptor, log logger.LoggerInterface) *SessionManager {
	m := &SessionManager{
		provider:   provider,
		descriptor: descriptor,
		log:        log,
		state:      domain.StateDisconnected,
	}
	provider.Watch(m.onProviderChange)
	return m
}

// State returns the current session state.
func (m *SessionManager) State() domain.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Session returns the active session, or a SESSION_CLOSED error when
// no session is connected.
func (m *SessionManager) Session() (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != domain.StateConnected || m.session == nil {
		return nil, apperror.New(apperror.CodeSessionClosed)
	}
	return m.session, nil
}

// OnChange registers a listener notified on every state transition.
func (m *SessionManager) OnChange(fn func(domain.SessionState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// TryRestore re-establishes a session from an already-authorized
// account without prompting. Nothing to restore is not an error: it
// returns (nil, nil) and leaves the state untouched. Restoring never
// switches chains; a wallet sitting on the wrong chain needs an
// interactive Connect.
func (m *SessionManager) TryRestore(ctx context.Context) (*domain.Session, error) {
	m.mu.Lock()
	if m.state == domain.StateConnected && m.session != nil {
		session := m.session
		m.mu.Unlock()
		return session, nil
	}
	m.mu.Unlock()

	if !m.provider.Detected(ctx) {
		m.setState(domain.StateNotDetected)
		return nil, nil
	}

	accounts, err := m.provider.Accounts(ctx)
	if err != nil || len(accounts) == 0 {
		return nil, nil
	}

	current, err := m.provider.ChainID(ctx)
	if err != nil || current.Cmp(m.descriptor.ChainID) != 0 {
		return nil, nil
	}

	session := domain.NewSession(accounts[0], m.descriptor.ChainID)

	m.mu.Lock()
	m.session = session
	m.mu.Unlock()
	m.setState(domain.StateConnected)

	m.log.Info(ctx, "wallet session restored", "account", session.ShortAccount())
	return session, nil
}

// Connect establishes a session: authorize an account, then make sure
// the wallet sits on the expected chain, registering it first if the
// wallet has never seen it. Idempotent while connected.
func (m *SessionManager) Connect(ctx context.Context) (*domain.Session, error) {
	m.mu.Lock()
	if m.state == domain.StateConnected && m.session != nil {
		session := m.session
		m.mu.Unlock()
		return session, nil
	}
	m.mu.Unlock()

	if !m.provider.Detected(ctx) {
		m.setState(domain.StateNotDetected)
		return nil, apperror.New(apperror.CodeWalletUnavailable)
	}

	m.setState(domain.StateConnecting)

	account, err := m.provider.RequestAccount(ctx)
	if err != nil {
		m.setState(domain.StateDisconnected)
		switch {
		case errors.Is(err, ErrDeclined):
			return nil, apperror.New(apperror.CodeUserRejected, apperror.WithCause(err))
		case errors.Is(err, ErrNoAccounts):
			return nil, apperror.New(apperror.CodeWalletUnavailable, apperror.WithCause(err))
		default:
			return nil, apperror.New(apperror.CodeWalletUnavailable,
				apperror.WithCause(err),
				apperror.WithContext("account request failed"))
		}
	}

	if err := m.ensureChain(ctx); err != nil {
		m.setState(domain.StateDisconnected)
		return nil, err
	}

	session := domain.NewSession(account, m.descriptor.ChainID)

	m.mu.Lock()
	m.session = session
	m.mu.Unlock()
	m.setState(domain.StateConnected)

	m.log.Info(ctx, "wallet session connected",
		"account", session.ShortAccount(),
		"chain_id", m.descriptor.ChainID.String())

	return session, nil
}

// Disconnect closes the active session. Safe to call in any state.
func (m *SessionManager) Disconnect(ctx context.Context) {
	m.mu.Lock()
	hadSession := m.session != nil
	m.session = nil
	m.mu.Unlock()

	m.setState(domain.StateDisconnected)

	if hadSession {
		m.log.Info(ctx, "wallet session disconnected")
	}
}

// onProviderChange runs when the wallet reports an account or chain
// change. A connected session whose wallet left the expected chain is
// torn down; reconnecting is up to the user.
func (m *SessionManager) onProviderChange() {
	m.mu.Lock()
	session := m.session
	connected := m.state == domain.StateConnected && session != nil
	m.mu.Unlock()
	if !connected {
		return
	}

	ctx := context.Background()

	current, err := m.provider.ChainID(ctx)
	if err != nil || current.Cmp(m.descriptor.ChainID) != 0 {
		m.log.Warn(ctx, "wallet left the expected chain, closing session",
			"chain_id", chainString(current))
		m.Disconnect(ctx)
		return
	}

	accounts, err := m.provider.Accounts(ctx)
	if err != nil {
		return
	}
	for _, a := range accounts {
		if a == session.Account() {
			return
		}
	}

	m.log.Warn(ctx, "session account no longer authorized, closing session",
		"account", session.ShortAccount())
	m.Disconnect(ctx)
}

// ensureChain moves the wallet onto the expected chain, adding the
// chain first when the wallet does not know it.
func (m *SessionManager) ensureChain(ctx context.Context) error {
	current, err := m.provider.ChainID(ctx)
	if err != nil {
		return apperror.New(apperror.CodeWalletUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("chain id query failed"))
	}

	want := m.descriptor.ChainID
	if current.Cmp(want) == 0 {
		return nil
	}

	m.log.Info(ctx, "switching wallet chain",
		"from", current.String(), "to", want.String())

	err = m.provider.SwitchChain(ctx, want)
	if errors.Is(err, ErrUnknownChain) {
		if addErr := m.provider.AddChain(ctx, m.descriptor); addErr != nil {
			return m.mapChainError(addErr, "chain registration failed")
		}
		err = m.provider.SwitchChain(ctx, want)
	}
	if err != nil {
		return m.mapChainError(err, "chain switch failed")
	}

	// Verify the switch actually landed on the expected chain.
	current, err = m.provider.ChainID(ctx)
	if err != nil || current.Cmp(want) != 0 {
		return apperror.New(apperror.CodeNetworkMismatch,
			apperror.WithCause(err),
			apperror.WithContext("wallet is on chain "+chainString(current)))
	}

	return nil
}

func (m *SessionManager) mapChainError(err error, context string) error {
	if errors.Is(err, ErrDeclined) {
		return apperror.New(apperror.CodeUserRejected, apperror.WithCause(err))
	}
	return apperror.New(apperror.CodeNetworkMismatch,
		apperror.WithCause(err),
		apperror.WithContext(context))
}

func (m *SessionManager) setState(s domain.SessionState) {
	m.mu.Lock()
	if m.state == s {
		m.mu.Unlock()
		return
	}
	m.state = s
	listeners := make([]func(domain.SessionState), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

func chainString(id *big.Int) string {
	if id == nil {
		return "unknown"
	}
	return id.String()
}
