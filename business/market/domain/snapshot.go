package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Snapshot is one consistent view of the chain state the UI reads
// from. Snapshots are immutable; a refresh builds a complete new one
// and replaces the old atomically, so readers never see a half-updated
// mix of old and new values.
type Snapshot struct {
	Account   common.Address
	TakenAt   time.Time
	Balances  []Balance
	Pools     map[string]PoolState
	Positions map[string]Position
}

// BalanceOf returns the snapshot balance for a symbol.
func (s *Snapshot) BalanceOf(symbol string) (Balance, bool) {
	for _, b := range s.Balances {
		if b.Token.Symbol() == symbol {
			return b, true
		}
	}
	return Balance{}, false
}

// PoolFor returns the snapshot pool state for a pair key ("BASE-QUOTE").
func (s *Snapshot) PoolFor(key string) (PoolState, bool) {
	p, ok := s.Pools[key]
	return p, ok
}

// PositionFor returns the user's position for a pair key.
func (s *Snapshot) PositionFor(key string) (Position, bool) {
	p, ok := s.Positions[key]
	return p, ok
}

// Age returns how stale the snapshot is.
func (s *Snapshot) Age() time.Duration {
	return time.Since(s.TakenAt)
}
