// Package domain contains the trading context domain model.
package domain

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	marketDomain "github.com/kuoyehs/saga-dex-project/business/market/domain"
	"github.com/kuoyehs/saga-dex-project/internal/asset"
)

// Kind is the type of a user-initiated operation.
type Kind int

const (
	KindSwap Kind = iota
	KindAddLiquidity
	KindRemoveLiquidity
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindSwap:
		return "swap"
	case KindAddLiquidity:
		return "add_liquidity"
	case KindRemoveLiquidity:
		return "remove_liquidity"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Status is the lifecycle state of an operation.
type Status int

const (
	// StatusPending means the operation is being prepared or awaiting
	// confirmation.
	StatusPending Status = iota
	// StatusConfirmed means the primary transaction confirmed on chain.
	StatusConfirmed
	// StatusFailed means the operation definitively did not happen.
	StatusFailed
	// StatusUnresolved means a transaction was submitted but its fate
	// is unknown; the chain must be consulted manually.
	StatusUnresolved
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	case StatusUnresolved:
		return "unresolved"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Step is a named milestone inside an operation, recorded as it happens.
type Step struct {
	Name   string
	TxHash common.Hash
	At     time.Time
}

// Operation is the record of one orchestrated user action, including
// any approval that preceded the primary transaction. A confirmed
// approval is never undone by a later failure.
type Operation struct {
	ID        uint64
	Kind      Kind
	Pair      marketDomain.Pair
	Account   common.Address
	AmountIn  asset.Amount
	Quote     *marketDomain.Quote
	Status    Status
	Steps     []Step
	TxHash    common.Hash
	Err       error
	StartedAt time.Time
	EndedAt   time.Time
}

// RecordStep appends a milestone to the operation log.
func (o *Operation) RecordStep(name string, hash common.Hash) {
	o.Steps = append(o.Steps, Step{Name: name, TxHash: hash, At: time.Now()})
}

// Finish closes the operation with a final status.
func (o *Operation) Finish(status Status, err error) {
	o.Status = status
	o.Err = err
	o.EndedAt = time.Now()
}

// Duration returns how long the operation ran.
func (o *Operation) Duration() time.Duration {
	if o.EndedAt.IsZero() {
		return time.Since(o.StartedAt)
	}
	return o.EndedAt.Sub(o.StartedAt)
}
