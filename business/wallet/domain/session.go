// Package domain contains the wallet context domain model.
package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SessionState is the lifecycle state of a wallet session.
type SessionState int

const (
	// StateNotDetected means no signing provider is available at all.
	StateNotDetected SessionState = iota
	// StateDisconnected means a provider exists but no account is active.
	StateDisconnected
	// StateConnecting means a connect attempt is in flight.
	StateConnecting
	// StateConnected means an account is active on the expected chain.
	StateConnected
)

// String returns a human-readable state name.
func (s SessionState) String() string {
	switch s {
	case StateNotDetected:
		return "not_detected"
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Session is an active wallet session: one account bound to one chain.
// Immutable once created; a reconnect produces a new Session.
type Session struct {
	account common.Address
	chainID *big.Int
}

// NewSession creates a session for the given account and chain.
func NewSession(account common.Address, chainID *big.Int) *Session {
	return &Session{
		account: account,
		chainID: new(big.Int).Set(chainID),
	}
}

// Account returns the active account address.
func (s *Session) Account() common.Address {
	return s.account
}

// ChainID returns a copy of the session's chain id.
func (s *Session) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// ShortAccount returns a truncated display form (0x1234...abcd).
func (s *Session) ShortAccount() string {
	hex := s.account.Hex()
	if len(hex) <= 12 {
		return hex
	}
	return hex[:6] + "..." + hex[len(hex)-4:]
}
