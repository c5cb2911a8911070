// Package ui provides the Bubble Tea TUI for the exchange client.
package ui

import (
	marketApp "github.com/kuoyehs/saga-dex-project/business/market/app"
	marketDomain "github.com/kuoyehs/saga-dex-project/business/market/domain"
	tradingDomain "github.com/kuoyehs/saga-dex-project/business/trading/domain"
	walletDomain "github.com/kuoyehs/saga-dex-project/business/wallet/domain"
)

// Message types for TUI updates

// SnapshotMsg is sent when a fresh state snapshot is available.
type SnapshotMsg struct {
	Snapshot *marketDomain.Snapshot
}

// SessionMsg is sent when the wallet session state changes.
type SessionMsg struct {
	State   walletDomain.SessionState
	Session *walletDomain.Session
}

// OperationMsg is sent when an operation settles.
type OperationMsg struct {
	Operation *tradingDomain.Operation
}

// OperationStartedMsg is sent when an operation begins executing.
type OperationStartedMsg struct {
	Description string
}

// PoolsMsg is sent with a fresh pool directory listing. Each entry
// carries the connected account's share when a session is active.
type PoolsMsg struct {
	Pools []marketApp.PoolEntry
	Stats marketApp.DirectoryStats
}

// QuoteMsg is sent with a display-only quote preview for the swap form.
type QuoteMsg struct {
	Quote *marketDomain.Quote
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}
