// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/pumpswap-liquidity/internal/liquidity"
)

// Config is read once at startup and never mutated afterwards.
type Config struct {
	RPCURL          string `mapstructure:"rpc_url"`
	WalletSecretKey string `mapstructure:"wallet_secret_key"`

	PoolIndex         uint16 `mapstructure:"pool_index"`
	BaseMint          string `mapstructure:"base_mint"`
	BaseMintDecimals  uint8  `mapstructure:"base_mint_decimals"`
	QuoteMint         string `mapstructure:"quote_mint"`
	QuoteMintDecimals uint8  `mapstructure:"quote_mint_decimals"`

	InitialBase      string `mapstructure:"initial_base"`
	InitialQuote     string `mapstructure:"initial_quote"`
	AddLiqAmount     string `mapstructure:"add_liq_amount"`
	WithdrawLPAmount string `mapstructure:"withdraw_lp_amount"`
	SlippageBps      int    `mapstructure:"slippage_bps"`

	Commitment       string        `mapstructure:"commitment"`
	ConfirmTimeout   time.Duration `mapstructure:"confirm_timeout"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	ComputeUnitLimit uint32        `mapstructure:"compute_unit_limit"`
	ComputeUnitPrice uint64        `mapstructure:"compute_unit_price"`
	DebugLogging     bool          `mapstructure:"debug_logging"`
	LogFile          string        `mapstructure:"log_file"`
	PushgatewayURL   string        `mapstructure:"pushgateway_url"`
}

const (
	DefaultRPCURL           = "https://api.mainnet-beta.solana.com"
	DefaultSlippageBps      = 100
	DefaultCommitment       = "confirmed"
	DefaultConfirmTimeout   = 60 * time.Second
	DefaultPollInterval     = 500 * time.Millisecond
	DefaultComputeUnitLimit = 400_000
	DefaultLogFile          = "pumplp.log"
)

// keys lists every setting so AutomaticEnv can resolve it without a config file.
var keys = []string{
	"rpc_url", "wallet_secret_key",
	"pool_index", "base_mint", "base_mint_decimals", "quote_mint", "quote_mint_decimals",
	"initial_base", "initial_quote", "add_liq_amount", "withdraw_lp_amount", "slippage_bps",
	"commitment", "confirm_timeout", "poll_interval", "compute_unit_limit", "compute_unit_price",
	"debug_logging", "log_file", "pushgateway_url",
}

// requiredKeys have no safe default: a wrong mint or precision would seed or
// drain the pool with amounts off by orders of magnitude.
var requiredKeys = []string{
	"wallet_secret_key", "base_mint", "base_mint_decimals", "quote_mint", "quote_mint_decimals",
}

// Load reads .env (if present), then the optional config file at path, then
// the environment. Environment variables win.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()

	defaults := map[string]interface{}{
		"rpc_url":            DefaultRPCURL,
		"slippage_bps":       DefaultSlippageBps,
		"commitment":         DefaultCommitment,
		"confirm_timeout":    DefaultConfirmTimeout,
		"poll_interval":      DefaultPollInterval,
		"compute_unit_limit": DefaultComputeUnitLimit,
		"log_file":           DefaultLogFile,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	loadEnvironmentVariables(v)
	if err := checkRequired(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.normalize()

	return &cfg, validateConfig(&cfg)
}

func loadEnvironmentVariables(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		// BindEnv only fails without a key.
		_ = v.BindEnv(key, strings.ToUpper(key))
	}
}

// checkRequired fails when a setting without a default was not supplied by
// the config file or the environment.
func checkRequired(v *viper.Viper) error {
	var missing []string
	for _, key := range requiredKeys {
		if !v.IsSet(key) || strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, strings.ToUpper(key))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) normalize() {
	c.RPCURL = strings.TrimSpace(c.RPCURL)
	c.WalletSecretKey = strings.TrimSpace(c.WalletSecretKey)
	c.BaseMint = strings.TrimSpace(c.BaseMint)
	c.QuoteMint = strings.TrimSpace(c.QuoteMint)
	c.Commitment = strings.ToLower(strings.TrimSpace(c.Commitment))
}

func validateConfig(cfg *Config) error {
	if cfg.RPCURL == "" {
		return errors.New("RPC_URL is required")
	}
	if err := validateURL(cfg.RPCURL, "http"); err != nil {
		return fmt.Errorf("invalid RPC_URL: %w", err)
	}
	if cfg.WalletSecretKey == "" {
		return errors.New("WALLET_SECRET_KEY is required")
	}
	if _, err := solana.PublicKeyFromBase58(cfg.BaseMint); err != nil {
		return fmt.Errorf("invalid BASE_MINT %q: %w", cfg.BaseMint, err)
	}
	if _, err := solana.PublicKeyFromBase58(cfg.QuoteMint); err != nil {
		return fmt.Errorf("invalid QUOTE_MINT %q: %w", cfg.QuoteMint, err)
	}
	if cfg.BaseMint == cfg.QuoteMint {
		return errors.New("BASE_MINT and QUOTE_MINT must differ")
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	if cfg.PushgatewayURL != "" {
		if err := validateURL(cfg.PushgatewayURL, "http"); err != nil {
			return fmt.Errorf("invalid PUSHGATEWAY_URL: %w", err)
		}
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.BaseMintDecimals > 19 || cfg.QuoteMintDecimals > 19 {
		return errors.New("mint decimals must be at most 19")
	}
	if err := liquidity.ValidateSlippage(cfg.SlippageBps); err != nil {
		return err
	}
	if _, err := commitmentType(cfg.Commitment); err != nil {
		return err
	}
	if cfg.ConfirmTimeout <= 0 {
		return errors.New("invalid confirm_timeout")
	}
	if cfg.PollInterval <= 0 || cfg.PollInterval > cfg.ConfirmTimeout {
		return errors.New("invalid poll_interval")
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) || parsed.Host == "" {
		return errors.New("invalid URL protocol")
	}
	return nil
}

func commitmentType(s string) (rpc.CommitmentType, error) {
	switch s {
	case "processed":
		return rpc.CommitmentProcessed, nil
	case "confirmed":
		return rpc.CommitmentConfirmed, nil
	case "finalized":
		return rpc.CommitmentFinalized, nil
	}
	return "", fmt.Errorf("invalid commitment %q", s)
}

// CommitmentType returns the RPC commitment the config selects.
func (c *Config) CommitmentType() rpc.CommitmentType {
	ct, _ := commitmentType(c.Commitment)
	return ct
}

// LiquidityConfig converts the settings into the orchestrator configuration.
func (c *Config) LiquidityConfig() (liquidity.Config, error) {
	baseMint, err := solana.PublicKeyFromBase58(c.BaseMint)
	if err != nil {
		return liquidity.Config{}, fmt.Errorf("invalid BASE_MINT: %w", err)
	}
	quoteMint, err := solana.PublicKeyFromBase58(c.QuoteMint)
	if err != nil {
		return liquidity.Config{}, fmt.Errorf("invalid QUOTE_MINT: %w", err)
	}

	pipeline := liquidity.DefaultPipelineOptions()
	pipeline.Commitment = rpc.ConfirmationStatusType(c.CommitmentType())
	pipeline.ConfirmTimeout = c.ConfirmTimeout
	pipeline.PollInterval = c.PollInterval
	pipeline.ComputeUnitLimit = c.ComputeUnitLimit
	pipeline.ComputeUnitPriceMicroLamports = c.ComputeUnitPrice

	return liquidity.Config{
		PoolIndex:          c.PoolIndex,
		BaseMint:           baseMint,
		QuoteMint:          quoteMint,
		BaseDecimals:       c.BaseMintDecimals,
		QuoteDecimals:      c.QuoteMintDecimals,
		DefaultSlippageBps: c.SlippageBps,
		Pipeline:           pipeline,
	}, nil
}
