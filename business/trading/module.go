// Package trading implements the trading bounded context: the
// allowance-gated operation orchestrator and its reporters.
package trading

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"

	marketDI "github.com/kuoyehs/saga-dex-project/business/market/di"
	"github.com/kuoyehs/saga-dex-project/business/trading/app"
	tradingDI "github.com/kuoyehs/saga-dex-project/business/trading/di"
	"github.com/kuoyehs/saga-dex-project/business/trading/infra"
	"github.com/kuoyehs/saga-dex-project/business/trading/infra/sagadex"
	walletDI "github.com/kuoyehs/saga-dex-project/business/wallet/di"
	"github.com/kuoyehs/saga-dex-project/internal/config"
	"github.com/kuoyehs/saga-dex-project/internal/di"
	"github.com/kuoyehs/saga-dex-project/internal/logger"
	"github.com/kuoyehs/saga-dex-project/internal/monolith"
)

// Module implements the trading bounded context.
type Module struct{}

// RegisterServices registers all trading services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register ExchangeWriter (transaction executor) - private dependency
	di.RegisterToken(c, tradingDI.ExchangeWriter, func(sr di.ServiceRegistry) app.ExchangeWriter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ethClient := sr.Get("ethClient").(*ethclient.Client)

		executorCfg := sagadex.Config{
			Exchange:            cfg.Exchange.ContractAddressHex(),
			ChainID:             new(big.Int).SetUint64(cfg.Chain.ChainID),
			ConfirmationTimeout: cfg.Exchange.ConfirmationTimeout,
			PollInterval:        cfg.Exchange.ReceiptPollInterval,
		}

		executor, err := sagadex.NewExecutor(ethClient, walletDI.GetWalletProvider(sr), executorCfg, log)
		if err != nil {
			panic("failed to create sagadex executor: " + err.Error())
		}
		return executor
	})

	// Register Reporter - private dependency, console by default.
	// The TUI swaps in its own reporter at startup.
	di.RegisterToken(c, tradingDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		return infra.NewConsoleReporter()
	})

	// Register Orchestrator (public - exposed to other modules)
	di.RegisterToken(c, tradingDI.Orchestrator, func(sr di.ServiceRegistry) *app.Orchestrator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		orchestrator, err := app.NewOrchestrator(
			walletDI.GetSessionManager(sr),
			marketDI.GetQuoter(sr),
			marketDI.GetTokenReader(sr),
			tradingDI.GetExchangeWriter(sr),
			marketDI.GetMarketService(sr),
			cfg.Exchange.ContractAddressHex(),
			tradingDI.GetReporter(sr),
			log,
		)
		if err != nil {
			panic("failed to create orchestrator: " + err.Error())
		}
		return orchestrator
	})

	return nil
}

// Startup initializes the trading module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	reporter := tradingDI.GetReporter(mono.Services())
	if err := reporter.Start(ctx); err != nil {
		return err
	}

	mono.Logger().Info(ctx, "trading module started")
	return nil
}
