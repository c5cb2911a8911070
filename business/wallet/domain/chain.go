package domain

import (
	"fmt"
	"math/big"
)

// ChainDescriptor carries everything a wallet needs to register an
// unknown chain: id, RPC endpoint and native currency metadata.
type ChainDescriptor struct {
	ChainID          *big.Int
	Name             string
	RPCURL           string
	CurrencySymbol   string
	CurrencyName     string
	CurrencyDecimals uint8
	ExplorerURL      string
}

// ChainIDHex returns the chain id in 0x-prefixed hexadecimal, the form
// wallet registration APIs expect.
func (d ChainDescriptor) ChainIDHex() string {
	return fmt.Sprintf("0x%x", d.ChainID)
}

// Validate checks the descriptor is complete enough to register.
func (d ChainDescriptor) Validate() error {
	if d.ChainID == nil || d.ChainID.Sign() <= 0 {
		return fmt.Errorf("chain descriptor: invalid chain id")
	}
	if d.RPCURL == "" {
		return fmt.Errorf("chain descriptor: rpc url is required")
	}
	if d.CurrencySymbol == "" {
		return fmt.Errorf("chain descriptor: currency symbol is required")
	}
	return nil
}
