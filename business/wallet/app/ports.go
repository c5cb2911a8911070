// Package app contains application services and port definitions for the wallet context.
package app

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/kuoyehs/saga-dex-project/business/wallet/domain"
)

// Sentinel errors a Provider implementation reports. The session
// manager maps them to application error codes.
var (
	// ErrUnknownChain means the wallet does not know the requested
	// chain and it must be registered before switching.
	ErrUnknownChain = errors.New("wallet: unknown chain")

	// ErrDeclined means the user refused the connect or signing prompt.
	ErrDeclined = errors.New("wallet: request declined by user")

	// ErrNoAccounts means the wallet holds no usable accounts.
	ErrNoAccounts = errors.New("wallet: no accounts available")
)

// Provider is the signing wallet port. Implementations wrap a concrete
// wallet backend (local keystore, remote signer).
type Provider interface {
	// Detected reports whether a wallet backend is present at all.
	Detected(ctx context.Context) bool

	// Accounts lists already-authorized accounts without prompting.
	// An empty slice means nothing to restore, not an error.
	Accounts(ctx context.Context) ([]common.Address, error)

	// RequestAccount prompts for authorization and returns the account
	// to use. Returns ErrDeclined if the user refuses, ErrNoAccounts if
	// the wallet is empty.
	RequestAccount(ctx context.Context) (common.Address, error)

	// ChainID returns the chain the wallet is currently on.
	ChainID(ctx context.Context) (*big.Int, error)

	// SwitchChain asks the wallet to move to the given chain.
	// Returns ErrUnknownChain when the wallet has no such chain.
	SwitchChain(ctx context.Context, chainID *big.Int) error

	// AddChain registers a chain with the wallet so a subsequent
	// SwitchChain can succeed.
	AddChain(ctx context.Context, descriptor domain.ChainDescriptor) error

	// SignTx signs a transaction for the given account on the given chain.
	// Returns ErrDeclined if the user refuses to sign.
	SignTx(ctx context.Context, account common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)

	// Watch registers a callback fired when the wallet's account or
	// chain changes behind the application's back.
	Watch(fn func())
}
