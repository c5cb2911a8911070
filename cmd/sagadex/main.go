// Package main is the entry point for the Saga DEX client.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/kuoyehs/saga-dex-project/business/market"
	marketDI "github.com/kuoyehs/saga-dex-project/business/market/di"
	marketDomain "github.com/kuoyehs/saga-dex-project/business/market/domain"
	"github.com/kuoyehs/saga-dex-project/business/trading"
	tradingApp "github.com/kuoyehs/saga-dex-project/business/trading/app"
	tradingDI "github.com/kuoyehs/saga-dex-project/business/trading/di"
	tradingInfra "github.com/kuoyehs/saga-dex-project/business/trading/infra"
	"github.com/kuoyehs/saga-dex-project/business/wallet"
	walletDI "github.com/kuoyehs/saga-dex-project/business/wallet/di"
	walletDomain "github.com/kuoyehs/saga-dex-project/business/wallet/domain"
	"github.com/kuoyehs/saga-dex-project/internal/apm"
	"github.com/kuoyehs/saga-dex-project/internal/asset"
	"github.com/kuoyehs/saga-dex-project/internal/config"
	"github.com/kuoyehs/saga-dex-project/internal/health"
	"github.com/kuoyehs/saga-dex-project/internal/logger"
	"github.com/kuoyehs/saga-dex-project/internal/metrics"
	"github.com/kuoyehs/saga-dex-project/internal/monolith"
	"github.com/kuoyehs/saga-dex-project/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Parse flags
	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	op := flag.String("op", "", "CLI operation: balances | pools | swap | add | remove")
	pairName := flag.String("pair", "", "Pair for the operation, e.g. TEST-USD")
	amountStr := flag.String("amount", "", "Input amount (base side for add)")
	amount2Str := flag.String("amount2", "", "Quote side amount for add")
	liquidityStr := flag.String("liquidity", "", "Liquidity share for remove")
	reverse := flag.Bool("reverse", false, "Swap quote for base instead of base for quote")
	flag.Parse()

	if *showVersion {
		fmt.Printf("sagadex %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for scripting and debugging
	tuiMode := !*cliMode && *op == ""

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	cliOp := cliOperation{
		op:        *op,
		pair:      *pairName,
		amount:    *amountStr,
		amount2:   *amount2Str,
		liquidity: *liquidityStr,
		reverse:   *reverse,
	}

	if err := run(ctx, *configPath, tuiMode, cliOp); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type cliOperation struct {
	op        string
	pair      string
	amount    string
	amount2   string
	liquidity string
	reverse   bool
}

func run(ctx context.Context, configPath string, tuiMode bool, cliOp cliOperation) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger (suppress in TUI mode)
	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}

	var log *logger.Logger
	if tuiMode {
		log = logger.New(io.Discard, logLevel, cfg.App.Name, nil)
	} else {
		log = logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
		log.Info(ctx, "starting saga dex client",
			"version", version,
			"environment", cfg.App.Environment,
		)
	}

	// Initialize observability if enabled
	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.OTLPGRPCProvider, log))
		log.Info(ctx, "tracing initialized", "endpoint", cfg.Telemetry.OTLPEndpoint)

		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.NewPrometheusConfig()),
		)

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	// Start health check server
	healthServer := health.NewServer(8081, version, log)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	}
	defer healthServer.Stop(ctx)

	// Create monolith (application container)
	mono, err := monolith.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	healthServer.RegisterCheck("rpc", func(ctx context.Context) (bool, string) {
		if _, err := mono.EthClient().ChainID(ctx); err != nil {
			return false, err.Error()
		}
		return true, ""
	})

	// Define modules in dependency order
	modules := []monolith.Module{
		&wallet.Module{},  // Must be first - provides the signing session
		&market.Module{},  // Depends on the eth client
		&trading.Module{}, // Depends on wallet and market
	}

	// Register all module services
	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	if tuiMode {
		// The TUI renders operations itself instead of the console.
		mono.Container().Register(tradingDI.Reporter.Name(), tradingApp.Reporter(tradingInfra.NewTUIReporter()))
		return runTUI(ctx, cfg, mono, modules)
	}

	// CLI mode: start modules synchronously and run one operation
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	return runCLI(ctx, mono, cliOp, log)
}

func runCLI(ctx context.Context, mono monolith.Monolith, cliOp cliOperation, log *logger.Logger) error {
	switch cliOp.op {
	case "", "pools":
		// Use a restorable session for the share column; listing never
		// prompts for wallet access.
		account := common.Address{}
		sessions := walletDI.GetSessionManager(mono.Services())
		if session, err := sessions.TryRestore(ctx); err == nil && session != nil {
			account = session.Account()
		}

		directory := marketDI.GetDirectory(mono.Services())
		entries := directory.ListPools(ctx, account)
		stats := directory.Aggregate(entries)

		for _, entry := range entries {
			line := fmt.Sprintf("%-14s reserves %s / %s  liquidity %s",
				entry.Pool.Pair.String(), entry.Pool.ReserveBase.String(),
				entry.Pool.ReserveQuote.String(), entry.Pool.TotalLiquidity.String())
			if entry.Position.HasStake() {
				line += fmt.Sprintf("  yours %s", entry.Position.Liquidity.String())
			}
			fmt.Println(line)
		}
		fmt.Printf("%d active pools (%d yours), ~$%s value locked (indicative)\n",
			stats.PoolCount, stats.OwnedCount, stats.ValueLockedUSD.StringFixed(2))
		return nil

	case "balances":
		sessions := walletDI.GetSessionManager(mono.Services())
		session, err := sessions.Connect(ctx)
		if err != nil {
			return err
		}

		marketSvc := marketDI.GetMarketService(mono.Services())
		marketSvc.Refresh(ctx, session.Account())

		snapshot := marketSvc.Snapshot()
		if snapshot == nil {
			return fmt.Errorf("no snapshot available")
		}
		for _, balance := range snapshot.Balances {
			fmt.Printf("%-8s %s\n", balance.Token.Symbol(), balance.Display())
		}
		return nil

	case "swap":
		sessions := walletDI.GetSessionManager(mono.Services())
		if _, err := sessions.Connect(ctx); err != nil {
			return err
		}

		pair, amountIn, err := resolveSwapInput(mono, cliOp.pair, cliOp.amount, cliOp.reverse)
		if err != nil {
			return err
		}

		orchestrator := tradingDI.GetOrchestrator(mono.Services())
		_, err = orchestrator.Swap(ctx, tradingApp.SwapCommand{Pair: pair, AmountIn: amountIn})
		return err

	case "add":
		sessions := walletDI.GetSessionManager(mono.Services())
		if _, err := sessions.Connect(ctx); err != nil {
			return err
		}

		pair, err := resolvePair(mono, cliOp.pair)
		if err != nil {
			return err
		}
		amountBase, err := asset.ParseString(pair.Base(), cliOp.amount)
		if err != nil {
			return err
		}
		amountQuote, err := asset.ParseString(pair.Quote(), cliOp.amount2)
		if err != nil {
			return err
		}

		orchestrator := tradingDI.GetOrchestrator(mono.Services())
		_, err = orchestrator.AddLiquidity(ctx, tradingApp.AddLiquidityCommand{
			Pair:        pair,
			AmountBase:  amountBase,
			AmountQuote: amountQuote,
		})
		return err

	case "remove":
		sessions := walletDI.GetSessionManager(mono.Services())
		if _, err := sessions.Connect(ctx); err != nil {
			return err
		}

		pair, err := resolvePair(mono, cliOp.pair)
		if err != nil {
			return err
		}
		liquidity, ok := new(big.Int).SetString(cliOp.liquidity, 10)
		if !ok {
			return fmt.Errorf("invalid liquidity value: %q", cliOp.liquidity)
		}

		orchestrator := tradingDI.GetOrchestrator(mono.Services())
		_, err = orchestrator.RemoveLiquidity(ctx, tradingApp.RemoveLiquidityCommand{
			Pair:      pair,
			Liquidity: liquidity,
		})
		return err

	default:
		return fmt.Errorf("unknown operation: %q", cliOp.op)
	}
}

func resolvePair(mono monolith.Monolith, name string) (marketDomain.Pair, error) {
	base, quote, err := config.SplitPair(name)
	if err != nil {
		return marketDomain.Pair{}, err
	}

	registry := mono.TokenRegistry()
	baseToken, ok := registry.Get(base)
	if !ok {
		return marketDomain.Pair{}, fmt.Errorf("unknown token: %s", base)
	}
	quoteToken, ok := registry.Get(quote)
	if !ok {
		return marketDomain.Pair{}, fmt.Errorf("unknown token: %s", quote)
	}

	return marketDomain.NewPair(baseToken, quoteToken)
}

func resolveSwapInput(mono monolith.Monolith, pairName, amount string, reverse bool) (marketDomain.Pair, asset.Amount, error) {
	pair, err := resolvePair(mono, pairName)
	if err != nil {
		return marketDomain.Pair{}, asset.Amount{}, err
	}

	tokenIn := pair.Base()
	if reverse {
		tokenIn = pair.Quote()
	}

	amountIn, err := asset.ParseString(tokenIn, amount)
	if err != nil {
		return marketDomain.Pair{}, asset.Amount{}, err
	}

	return pair, amountIn, nil
}

func runTUI(ctx context.Context, cfg *config.Config, mono monolith.Monolith, modules []monolith.Module) error {
	sr := mono.Services()

	// Create the program first so callbacks can push messages into it.
	p := tea.NewProgram(ui.New(cfg.Pairs), tea.WithAltScreen())
	ui.Program = p

	ui.OnConnect = func() {
		sessions := walletDI.GetSessionManager(sr)
		session, err := sessions.Connect(ctx)
		if err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
		}
		ui.Send(ui.SessionMsg{State: sessions.State(), Session: session})
	}

	ui.OnRefresh = func() {
		sessions := walletDI.GetSessionManager(sr)
		session, err := sessions.Session()
		if err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			return
		}

		marketSvc := marketDI.GetMarketService(sr)
		marketSvc.Refresh(ctx, session.Account())
		ui.Send(ui.SnapshotMsg{Snapshot: marketSvc.Snapshot()})
	}

	ui.OnListPools = func() {
		account := common.Address{}
		sessions := walletDI.GetSessionManager(sr)
		if session, err := sessions.Session(); err == nil {
			account = session.Account()
		}

		directory := marketDI.GetDirectory(sr)
		entries := directory.ListPools(ctx, account)
		ui.Send(ui.PoolsMsg{Pools: entries, Stats: directory.Aggregate(entries)})
	}

	ui.OnQuote = func(pairName string, reverse bool, amount string) {
		pair, amountIn, err := resolveSwapInput(mono, pairName, amount, reverse)
		if err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			return
		}

		quote, err := marketDI.GetQuoter(sr).Quote(ctx, pair, amountIn)
		if err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			return
		}
		ui.Send(ui.QuoteMsg{Quote: &quote})
	}

	ui.OnSwap = func(pairName string, reverse bool, amount string) {
		pair, amountIn, err := resolveSwapInput(mono, pairName, amount, reverse)
		if err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			return
		}

		ui.Send(ui.OperationStartedMsg{Description: "swapping " + amountIn.String()})

		// The TUI reporter delivers settled operations. A pre-flight
		// failure produces no operation, so surface it directly.
		orchestrator := tradingDI.GetOrchestrator(sr)
		if op, err := orchestrator.Swap(ctx, tradingApp.SwapCommand{Pair: pair, AmountIn: amountIn}); err != nil && op == nil {
			ui.Send(ui.ErrorMsg{Error: err})
		}
	}

	ui.OnAddLiquidity = func(pairName, amountBaseStr, amountQuoteStr string) {
		pair, err := resolvePair(mono, pairName)
		if err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			return
		}
		amountBase, err := asset.ParseString(pair.Base(), amountBaseStr)
		if err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			return
		}
		amountQuote, err := asset.ParseString(pair.Quote(), amountQuoteStr)
		if err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			return
		}

		ui.Send(ui.OperationStartedMsg{Description: "adding liquidity to " + pair.String()})

		orchestrator := tradingDI.GetOrchestrator(sr)
		if op, err := orchestrator.AddLiquidity(ctx, tradingApp.AddLiquidityCommand{
			Pair:        pair,
			AmountBase:  amountBase,
			AmountQuote: amountQuote,
		}); err != nil && op == nil {
			ui.Send(ui.ErrorMsg{Error: err})
		}
	}

	ui.OnRemoveLiquidity = func(pairName, liquidityStr string) {
		pair, err := resolvePair(mono, pairName)
		if err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			return
		}
		liquidity, ok := new(big.Int).SetString(liquidityStr, 10)
		if !ok {
			ui.Send(ui.ErrorMsg{Error: fmt.Errorf("invalid liquidity value: %q", liquidityStr)})
			return
		}

		ui.Send(ui.OperationStartedMsg{Description: "removing liquidity from " + pair.String()})

		orchestrator := tradingDI.GetOrchestrator(sr)
		if op, err := orchestrator.RemoveLiquidity(ctx, tradingApp.RemoveLiquidityCommand{
			Pair:      pair,
			Liquidity: liquidity,
		}); err != nil && op == nil {
			ui.Send(ui.ErrorMsg{Error: err})
		}
	}

	// Start modules in the background so the TUI shows immediately.
	errCh := make(chan error, 1)
	go func() {
		if err := mono.StartModules(ctx, modules...); err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}

		// Watch session transitions so the header tracks disconnects too.
		sessions := walletDI.GetSessionManager(sr)
		sessions.OnChange(func(state walletDomain.SessionState) {
			session, _ := sessions.Session()
			ui.Send(ui.SessionMsg{State: state, Session: session})
		})

		// Restore a previously authorized session without prompting.
		if session, err := sessions.TryRestore(ctx); err == nil && session != nil {
			ui.Send(ui.SessionMsg{State: sessions.State(), Session: session})
		}

		<-ctx.Done()
		errCh <- nil
	}()

	// Run TUI (blocking)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
