// Package market implements the market bounded context: the snapshot
// cache, the swap quoter and the pool directory.
package market

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/kuoyehs/saga-dex-project/business/market/app"
	marketDI "github.com/kuoyehs/saga-dex-project/business/market/di"
	"github.com/kuoyehs/saga-dex-project/business/market/infra/sagadex"
	"github.com/kuoyehs/saga-dex-project/internal/asset"
	"github.com/kuoyehs/saga-dex-project/internal/config"
	"github.com/kuoyehs/saga-dex-project/internal/di"
	"github.com/kuoyehs/saga-dex-project/internal/logger"
	"github.com/kuoyehs/saga-dex-project/internal/monolith"
	"github.com/kuoyehs/saga-dex-project/internal/ratelimit"
)

// Module implements the market bounded context.
type Module struct{}

// RegisterServices registers all market services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register chain Reader - private dependency serving both read ports
	di.RegisterToken(c, marketDI.ExchangeReader, func(sr di.ServiceRegistry) app.ExchangeReader {
		return newReader(sr)
	})

	di.RegisterToken(c, marketDI.TokenReader, func(sr di.ServiceRegistry) app.TokenReader {
		return newReader(sr)
	})

	// Register MarketService (public - exposed to other modules)
	di.RegisterToken(c, marketDI.MarketService, func(sr di.ServiceRegistry) *app.MarketService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("tokenRegistry").(*asset.Registry)

		pairs, err := app.ParsePairs(registry, cfg.Pairs)
		if err != nil {
			panic("failed to resolve configured pairs: " + err.Error())
		}

		limiter := ratelimit.New(cfg.Exchange.ReadsPerSecond, cfg.Exchange.MaxConcurrentReads)

		return app.NewMarketService(
			marketDI.GetExchangeReader(sr),
			marketDI.GetTokenReader(sr),
			registry,
			pairs,
			limiter,
			cfg.Exchange.MaxConcurrentReads,
			log,
		)
	})

	// Register Quoter (public)
	di.RegisterToken(c, marketDI.Quoter, func(sr di.ServiceRegistry) *app.Quoter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewQuoter(marketDI.GetExchangeReader(sr), cfg.Exchange.SlippageBps, log)
	})

	// Register Directory (public)
	di.RegisterToken(c, marketDI.Directory, func(sr di.ServiceRegistry) *app.Directory {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("tokenRegistry").(*asset.Registry)

		pairs, err := app.ParsePairs(registry, cfg.Pairs)
		if err != nil {
			panic("failed to resolve configured pairs: " + err.Error())
		}

		return app.NewDirectory(marketDI.GetExchangeReader(sr), pairs, cfg.Exchange.PriceUSD, log)
	})

	return nil
}

// newReader builds the shared sagadex reader. Registered under both
// read ports, resolved once per port.
func newReader(sr di.ServiceRegistry) *sagadex.Reader {
	cfg := sr.Get("config").(*config.Config)
	log := sr.Get("logger").(logger.LoggerInterface)
	ethClient := sr.Get("ethClient").(*ethclient.Client)

	reader, err := sagadex.NewReader(ethClient, cfg.Exchange.ContractAddressHex(), cfg.Exchange.CallTimeout, log)
	if err != nil {
		panic("failed to create sagadex reader: " + err.Error())
	}
	return reader
}

// Startup initializes the market module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mono.Logger().Info(ctx, "market module started",
		"pairs", len(mono.Config().Pairs),
		"tokens", mono.TokenRegistry().Count())
	return nil
}
