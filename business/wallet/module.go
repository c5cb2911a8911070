// Package wallet implements the wallet bounded context: session
// lifecycle, chain pinning and transaction signing.
package wallet

import (
	"context"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kuoyehs/saga-dex-project/business/wallet/app"
	walletDI "github.com/kuoyehs/saga-dex-project/business/wallet/di"
	"github.com/kuoyehs/saga-dex-project/business/wallet/domain"
	"github.com/kuoyehs/saga-dex-project/business/wallet/infra/keystorewallet"
	"github.com/kuoyehs/saga-dex-project/internal/config"
	"github.com/kuoyehs/saga-dex-project/internal/di"
	"github.com/kuoyehs/saga-dex-project/internal/logger"
	"github.com/kuoyehs/saga-dex-project/internal/monolith"
)

// Module implements the wallet bounded context.
type Module struct{}

// RegisterServices registers all wallet services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Provider (local keystore) - private dependency
	di.RegisterToken(c, walletDI.WalletProvider, func(sr di.ServiceRegistry) app.Provider {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		providerCfg := keystorewallet.Config{
			KeystoreDir: cfg.Wallet.KeystoreDir,
		}
		if cfg.Wallet.Account != "" {
			providerCfg.Preferred = common.HexToAddress(cfg.Wallet.Account)
		}

		prompt := keystorewallet.EnvPassphrase(os.Getenv("SAGADEX_PASSPHRASE"))
		return keystorewallet.NewProvider(providerCfg, prompt, log)
	})

	// Register SessionManager (public - exposed to other modules)
	di.RegisterToken(c, walletDI.SessionManager, func(sr di.ServiceRegistry) *app.SessionManager {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		provider := walletDI.GetWalletProvider(sr)

		descriptor := domain.ChainDescriptor{
			ChainID:          new(big.Int).SetUint64(cfg.Chain.ChainID),
			Name:             cfg.Chain.Name,
			RPCURL:           cfg.Chain.RPCURL,
			CurrencySymbol:   cfg.Chain.CurrencySymbol,
			CurrencyName:     cfg.Chain.CurrencyName,
			CurrencyDecimals: 18,
			ExplorerURL:      cfg.Chain.ExplorerURL,
		}

		return app.NewSessionManager(provider, descriptor, log)
	})

	return nil
}

// Startup initializes the wallet module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mono.Logger().Info(ctx, "wallet module started")
	return nil
}
