// Package di contains dependency injection tokens for the wallet context.
package di

import (
	"github.com/kuoyehs/saga-dex-project/business/wallet/app"
	"github.com/kuoyehs/saga-dex-project/internal/di"
)

// Public service tokens - exposed to other modules
var (
	SessionManager = di.NewToken[*app.SessionManager]("wallet.SessionManager")
)

// Private dependency tokens - internal to wallet module
var (
	WalletProvider = di.NewToken[app.Provider]("wallet:provider")
)

// Helper functions for type-safe access
func GetSessionManager(c di.ServiceRegistry) *app.SessionManager {
	return di.GetToken(c, SessionManager)
}

func GetWalletProvider(c di.ServiceRegistry) app.Provider {
	return di.GetToken(c, WalletProvider)
}
