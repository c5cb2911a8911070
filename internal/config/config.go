// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/kuoyehs/saga-dex-project/internal/asset"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	Tokens    []TokenConfig   `mapstructure:"tokens"`
	Pairs     []string        `mapstructure:"pairs"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// ChainConfig describes the target chainlet. The descriptor carries
// everything needed to register the chain with a wallet that does not
// know it yet.
type ChainConfig struct {
	Name           string        `mapstructure:"name"`
	RPCURL         string        `mapstructure:"rpc_url"`
	ChainID        uint64        `mapstructure:"chain_id"`
	CurrencySymbol string        `mapstructure:"currency_symbol"`
	CurrencyName   string        `mapstructure:"currency_name"`
	ExplorerURL    string        `mapstructure:"explorer_url"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
}

// ExchangeConfig holds the exchange contract address and trade parameters.
type ExchangeConfig struct {
	ContractAddress     string        `mapstructure:"contract_address"`
	SlippageBps         int64         `mapstructure:"slippage_bps"`
	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout"`
	ReceiptPollInterval time.Duration `mapstructure:"receipt_poll_interval"`
	CallTimeout         time.Duration `mapstructure:"call_timeout"`
	RefreshInterval     time.Duration `mapstructure:"refresh_interval"`
	MaxConcurrentReads  int           `mapstructure:"max_concurrent_reads"`
	ReadsPerSecond      float64       `mapstructure:"reads_per_second"`
	// PriceUSD maps token symbols to an indicative USD price used for
	// the approximate value-locked figure on the pools view.
	PriceUSD map[string]float64 `mapstructure:"price_usd"`
}

// ContractAddressHex returns the exchange contract address as common.Address.
func (c *ExchangeConfig) ContractAddressHex() common.Address {
	return common.HexToAddress(c.ContractAddress)
}

// TokenConfig describes one catalogue token. An all-zero address means
// the token contract is not deployed yet.
type TokenConfig struct {
	Symbol   string `mapstructure:"symbol"`
	Name     string `mapstructure:"name"`
	Address  string `mapstructure:"address"`
	Decimals uint8  `mapstructure:"decimals"`
}

// AddressHex returns the token address as common.Address.
func (c *TokenConfig) AddressHex() common.Address {
	return common.HexToAddress(c.Address)
}

// WalletConfig holds the local keystore configuration.
type WalletConfig struct {
	KeystoreDir string `mapstructure:"keystore_dir"`
	Account     string `mapstructure:"account"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("SAGADEX")
	v.AutomaticEnv()

	// Bind env vars to config keys
	bindEnvVars(v)

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "SAGADEX_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "SAGADEX_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "SAGADEX_LOG_LEVEL", "LOG_LEVEL")

	// Chain
	v.BindEnv("chain.rpc_url", "SAGADEX_RPC_URL", "CHAIN_RPC_URL")
	v.BindEnv("chain.chain_id", "SAGADEX_CHAIN_ID", "CHAIN_ID")
	v.BindEnv("chain.explorer_url", "SAGADEX_EXPLORER_URL")

	// Exchange
	v.BindEnv("exchange.contract_address", "SAGADEX_CONTRACT", "DEX_CONTRACT_ADDRESS")
	v.BindEnv("exchange.slippage_bps", "SAGADEX_SLIPPAGE_BPS")

	// Wallet
	v.BindEnv("wallet.keystore_dir", "SAGADEX_KEYSTORE_DIR", "KEYSTORE_DIR")
	v.BindEnv("wallet.account", "SAGADEX_ACCOUNT", "WALLET_ACCOUNT")

	// Telemetry
	v.BindEnv("telemetry.enabled", "SAGADEX_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "SAGADEX_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "SAGADEX_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "saga-dex")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Chainlet defaults (Saga Qubit)
	v.SetDefault("chain.name", "Qubit")
	v.SetDefault("chain.rpc_url", "https://qubit-2755378989728000-1.jsonrpc.sagarpc.io")
	v.SetDefault("chain.chain_id", uint64(2755378989728000))
	v.SetDefault("chain.currency_symbol", "ETH")
	v.SetDefault("chain.currency_name", "Ether")
	v.SetDefault("chain.dial_timeout", "10s")

	// Exchange defaults
	v.SetDefault("exchange.contract_address", "0x0000000000000000000000000000000000000000")
	v.SetDefault("exchange.slippage_bps", 500) // 5%
	v.SetDefault("exchange.confirmation_timeout", "2m")
	v.SetDefault("exchange.receipt_poll_interval", "2s")
	v.SetDefault("exchange.call_timeout", "15s")
	v.SetDefault("exchange.refresh_interval", "30s")
	v.SetDefault("exchange.max_concurrent_reads", 4)
	v.SetDefault("exchange.reads_per_second", 10.0)
	v.SetDefault("exchange.price_usd", map[string]float64{
		"USD":   1.0,
		"TEST":  0.1,
		"SAGA1": 0.1,
		"SAGA2": 0.1,
	})

	// Token catalogue defaults. Zero addresses mean not yet deployed.
	v.SetDefault("tokens", []map[string]any{
		{"symbol": "TEST", "name": "Test Token", "address": "0x0000000000000000000000000000000000000000", "decimals": asset.LedgerDecimals},
		{"symbol": "USD", "name": "USD Token", "address": "0x0000000000000000000000000000000000000000", "decimals": asset.LedgerDecimals},
		{"symbol": "SAGA1", "name": "Saga Token 1", "address": "0x0000000000000000000000000000000000000000", "decimals": asset.LedgerDecimals},
		{"symbol": "SAGA2", "name": "Saga Token 2", "address": "0x0000000000000000000000000000000000000000", "decimals": asset.LedgerDecimals},
	})

	// Tradeable pair defaults
	v.SetDefault("pairs", []string{
		"TEST-USD",
		"TEST-SAGA1",
		"TEST-SAGA2",
		"USD-SAGA1",
		"USD-SAGA2",
		"SAGA1-SAGA2",
	})

	// Wallet defaults
	v.SetDefault("wallet.keystore_dir", "./keystore")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "saga-dex")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("chain.rpc_url is required")
	}
	if c.Chain.ChainID == 0 {
		return fmt.Errorf("chain.chain_id is required")
	}
	if !common.IsHexAddress(c.Exchange.ContractAddress) {
		return fmt.Errorf("invalid exchange.contract_address: %s", c.Exchange.ContractAddress)
	}
	if c.Exchange.SlippageBps < 0 || c.Exchange.SlippageBps >= 10000 {
		return fmt.Errorf("exchange.slippage_bps must be in [0, 10000): %d", c.Exchange.SlippageBps)
	}
	if len(c.Tokens) == 0 {
		return fmt.Errorf("tokens cannot be empty")
	}

	seen := make(map[string]bool, len(c.Tokens))
	for _, t := range c.Tokens {
		if t.Symbol == "" {
			return fmt.Errorf("token symbol cannot be empty")
		}
		if seen[t.Symbol] {
			return fmt.Errorf("duplicate token symbol: %s", t.Symbol)
		}
		seen[t.Symbol] = true
		if !common.IsHexAddress(t.Address) {
			return fmt.Errorf("invalid address for token %s: %s", t.Symbol, t.Address)
		}
	}

	seenPairs := make(map[string]bool, len(c.Pairs))
	for _, p := range c.Pairs {
		base, quote, err := SplitPair(p)
		if err != nil {
			return err
		}
		if !seen[base] {
			return fmt.Errorf("pair %s references unknown token %s", p, base)
		}
		if !seen[quote] {
			return fmt.Errorf("pair %s references unknown token %s", p, quote)
		}
		// A pair is unordered: USD-TEST duplicates TEST-USD.
		key := base + "-" + quote
		if quote < base {
			key = quote + "-" + base
		}
		if seenPairs[key] {
			return fmt.Errorf("duplicate pair: %s", p)
		}
		seenPairs[key] = true
	}

	return nil
}

// SplitPair splits a "BASE-QUOTE" pair string into its two symbols.
func SplitPair(pair string) (base, quote string, err error) {
	for i := 0; i < len(pair); i++ {
		if pair[i] == '-' {
			base, quote = pair[:i], pair[i+1:]
			if base == "" || quote == "" || base == quote {
				return "", "", fmt.Errorf("invalid pair: %s", pair)
			}
			return base, quote, nil
		}
	}
	return "", "", fmt.Errorf("invalid pair: %s", pair)
}

// BuildRegistry constructs the token registry from the configured catalogue.
func (c *Config) BuildRegistry() (*asset.Registry, error) {
	registry := asset.NewRegistry()
	for _, tc := range c.Tokens {
		decimals := tc.Decimals
		if decimals == 0 {
			decimals = asset.LedgerDecimals
		}
		token := asset.NewToken(tc.Symbol, tc.Name, tc.AddressHex(), decimals)
		if err := registry.Register(token); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
