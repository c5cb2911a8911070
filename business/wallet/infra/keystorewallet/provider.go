// Package keystorewallet implements the wallet Provider over a local
// go-ethereum keystore directory.
package keystorewallet

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kuoyehs/saga-dex-project/business/wallet/app"
	"github.com/kuoyehs/saga-dex-project/business/wallet/domain"
	"github.com/kuoyehs/saga-dex-project/internal/apm"
	"github.com/kuoyehs/saga-dex-project/internal/logger"
)

const tracerName = "keystorewallet"

// Ensure Provider implements the wallet port.
var _ app.Provider = (*Provider)(nil)

// PassphrasePrompter asks the user for the passphrase protecting an
// account. Implementations return ErrPromptDeclined when the user
// cancels the prompt.
type PassphrasePrompter interface {
	Passphrase(ctx context.Context, account common.Address) (string, error)
}

// ErrPromptDeclined is returned by a prompter when the user cancels.
var ErrPromptDeclined = errors.New("keystorewallet: passphrase prompt declined")

// EnvPassphrase is a prompter reading a fixed passphrase, typically
// sourced from an environment variable. An empty value declines.
type EnvPassphrase string

func (p EnvPassphrase) Passphrase(_ context.Context, _ common.Address) (string, error) {
	if p == "" {
		return "", ErrPromptDeclined
	}
	return string(p), nil
}

// Provider is a local keystore wallet. It mimics the behavior of a
// browser wallet: it tracks its own current chain, knows only the
// chains registered with it, and refuses to switch to anything else.
type Provider struct {
	ks        *keystore.KeyStore
	prompt    PassphrasePrompter
	preferred common.Address

	mu           sync.Mutex
	currentChain *big.Int
	knownChains  map[string]domain.ChainDescriptor
	passphrases  map[common.Address]string
	watchers     []func()

	logger logger.LoggerInterface
	tracer apm.Tracer
}

// Config holds keystore provider settings.
type Config struct {
	KeystoreDir string
	// Preferred selects an account when the keystore holds several.
	// Zero address means "first account".
	Preferred common.Address
	// InitialChainID is the chain the wallet starts on. The target
	// chainlet is typically NOT known initially and must be added.
	InitialChainID *big.Int
}

// NewProvider creates a keystore-backed wallet provider.
func NewProvider(cfg Config, prompt PassphrasePrompter, log logger.LoggerInterface) *Provider {
	initial := cfg.InitialChainID
	if initial == nil {
		initial = big.NewInt(1)
	}

	return &Provider{
		ks:           keystore.NewKeyStore(cfg.KeystoreDir, keystore.StandardScryptN, keystore.StandardScryptP),
		prompt:       prompt,
		preferred:    cfg.Preferred,
		currentChain: new(big.Int).Set(initial),
		knownChains: map[string]domain.ChainDescriptor{
			initial.String(): {ChainID: new(big.Int).Set(initial)},
		},
		passphrases: make(map[common.Address]string),
		logger:      log,
		tracer:      apm.NewTracer(tracerName),
	}
}

// Detected reports whether the keystore backend is usable.
func (p *Provider) Detected(_ context.Context) bool {
	return p.ks != nil
}

// Watch registers a callback fired after the wallet switches chains.
func (p *Provider) Watch(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.watchers = append(p.watchers, fn)
}

func (p *Provider) notifyWatchers() {
	p.mu.Lock()
	watchers := make([]func(), len(p.watchers))
	copy(watchers, p.watchers)
	p.mu.Unlock()

	for _, fn := range watchers {
		fn()
	}
}

// Accounts lists the keystore's addresses without unlocking anything.
// The preferred account, when set and present, sorts first.
func (p *Provider) Accounts(_ context.Context) ([]common.Address, error) {
	all := p.ks.Accounts()
	addresses := make([]common.Address, 0, len(all))
	for _, a := range all {
		if a.Address == p.preferred {
			addresses = append([]common.Address{a.Address}, addresses...)
			continue
		}
		addresses = append(addresses, a.Address)
	}
	return addresses, nil
}

// RequestAccount picks an account and verifies the passphrase by
// unlocking the key once.
func (p *Provider) RequestAccount(ctx context.Context) (common.Address, error) {
	ctx, span := p.tracer.StartSpanFromContext(ctx, "wallet.request_account")
	defer span.End()

	all := p.ks.Accounts()
	if len(all) == 0 {
		span.SetStatus(codes.Error, "empty keystore")
		return common.Address{}, app.ErrNoAccounts
	}

	account := all[0]
	if p.preferred != (common.Address{}) {
		found := false
		for _, a := range all {
			if a.Address == p.preferred {
				account = a
				found = true
				break
			}
		}
		if !found {
			span.SetStatus(codes.Error, "preferred account missing")
			return common.Address{}, app.ErrNoAccounts
		}
	}

	passphrase, err := p.prompt.Passphrase(ctx, account.Address)
	if err != nil {
		if errors.Is(err, ErrPromptDeclined) {
			span.SetStatus(codes.Error, "prompt declined")
			return common.Address{}, app.ErrDeclined
		}
		return common.Address{}, err
	}

	// Verify the passphrase now so a bad one fails the connect, not
	// the first signing attempt.
	if err := p.ks.Unlock(account, passphrase); err != nil {
		span.NoticeError(err)
		return common.Address{}, err
	}
	_ = p.ks.Lock(account.Address)

	p.mu.Lock()
	p.passphrases[account.Address] = passphrase
	p.mu.Unlock()

	span.SetAttributes(attribute.String("account", account.Address.Hex()))
	p.logger.Debug(ctx, "keystore account authorized", "account", account.Address.Hex())

	return account.Address, nil
}

// ChainID returns the wallet's current chain.
func (p *Provider) ChainID(_ context.Context) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.currentChain), nil
}

// SwitchChain moves to a chain the wallet already knows.
func (p *Provider) SwitchChain(ctx context.Context, chainID *big.Int) error {
	p.mu.Lock()
	if _, ok := p.knownChains[chainID.String()]; !ok {
		p.mu.Unlock()
		return app.ErrUnknownChain
	}

	changed := p.currentChain.Cmp(chainID) != 0
	p.currentChain = new(big.Int).Set(chainID)
	p.mu.Unlock()

	p.logger.Debug(ctx, "wallet chain switched", "chain_id", chainID.String())
	if changed {
		p.notifyWatchers()
	}
	return nil
}

// AddChain registers a chain so it can be switched to.
func (p *Provider) AddChain(ctx context.Context, descriptor domain.ChainDescriptor) error {
	if err := descriptor.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.knownChains[descriptor.ChainID.String()] = descriptor
	p.logger.Info(ctx, "wallet chain registered",
		"chain_id", descriptor.ChainID.String(), "name", descriptor.Name)
	return nil
}

// SignTx signs with the stored passphrase for the account.
func (p *Provider) SignTx(ctx context.Context, account common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	ctx, span := p.tracer.StartSpanFromContext(ctx, "wallet.sign_tx",
		trace.WithAttributes(attribute.String("account", account.Hex())),
	)
	defer span.End()

	p.mu.Lock()
	passphrase, ok := p.passphrases[account]
	p.mu.Unlock()

	if !ok {
		passphrase2, err := p.prompt.Passphrase(ctx, account)
		if err != nil {
			if errors.Is(err, ErrPromptDeclined) {
				return nil, app.ErrDeclined
			}
			return nil, err
		}
		passphrase = passphrase2
	}

	signed, err := p.ks.SignTxWithPassphrase(accounts.Account{Address: account}, passphrase, tx, chainID)
	if err != nil {
		span.NoticeError(err)
		return nil, err
	}

	return signed, nil
}
