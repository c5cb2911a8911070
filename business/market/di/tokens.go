// Package di contains dependency injection tokens for the market context.
package di

import (
	"github.com/kuoyehs/saga-dex-project/business/market/app"
	"github.com/kuoyehs/saga-dex-project/internal/di"
)

// Public service tokens - exposed to other modules
var (
	MarketService = di.NewToken[*app.MarketService]("market.MarketService")
	Quoter        = di.NewToken[*app.Quoter]("market.Quoter")
	Directory     = di.NewToken[*app.Directory]("market.Directory")
)

// Private dependency tokens - internal to market module
var (
	ExchangeReader = di.NewToken[app.ExchangeReader]("market:exchangeReader")
	TokenReader    = di.NewToken[app.TokenReader]("market:tokenReader")
)

// Helper functions for type-safe access
func GetMarketService(c di.ServiceRegistry) *app.MarketService {
	return di.GetToken(c, MarketService)
}

func GetQuoter(c di.ServiceRegistry) *app.Quoter {
	return di.GetToken(c, Quoter)
}

func GetDirectory(c di.ServiceRegistry) *app.Directory {
	return di.GetToken(c, Directory)
}

func GetExchangeReader(c di.ServiceRegistry) app.ExchangeReader {
	return di.GetToken(c, ExchangeReader)
}

func GetTokenReader(c di.ServiceRegistry) app.TokenReader {
	return di.GetToken(c, TokenReader)
}
