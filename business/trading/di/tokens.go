// Package di contains dependency injection tokens for the trading context.
package di

import (
	"github.com/kuoyehs/saga-dex-project/business/trading/app"
	"github.com/kuoyehs/saga-dex-project/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Orchestrator = di.NewToken[*app.Orchestrator]("trading.Orchestrator")
)

// Private dependency tokens - internal to trading module
var (
	ExchangeWriter = di.NewToken[app.ExchangeWriter]("trading:exchangeWriter")
	Reporter       = di.NewToken[app.Reporter]("trading:reporter")
)

// Helper functions for type-safe access
func GetOrchestrator(c di.ServiceRegistry) *app.Orchestrator {
	return di.GetToken(c, Orchestrator)
}

func GetExchangeWriter(c di.ServiceRegistry) app.ExchangeWriter {
	return di.GetToken(c, ExchangeWriter)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}
