package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/pumpswap-liquidity/internal/liquidity"
)

const testBaseMint = "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("RPC_URL", "https://api.mainnet-beta.solana.com")
	t.Setenv("WALLET_SECRET_KEY", "secret")
	t.Setenv("BASE_MINT", testBaseMint)
	t.Setenv("BASE_MINT_DECIMALS", "6")
	t.Setenv("QUOTE_MINT", solana.SolMint.String())
	t.Setenv("QUOTE_MINT_DECIMALS", "9")
}

func TestLoad_EnvDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.RPCURL)
	assert.Equal(t, uint8(6), cfg.BaseMintDecimals)
	assert.Equal(t, solana.SolMint.String(), cfg.QuoteMint)
	assert.Equal(t, uint8(9), cfg.QuoteMintDecimals)
	assert.Equal(t, DefaultSlippageBps, cfg.SlippageBps)
	assert.Equal(t, DefaultConfirmTimeout, cfg.ConfirmTimeout)
	assert.Equal(t, rpc.CommitmentConfirmed, cfg.CommitmentType())
}

func TestLoad_DefaultRPCURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RPC_URL", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRPCURL, cfg.RPCURL)
}

func TestLoad_RequiresMintsAndDecimals(t *testing.T) {
	for _, key := range []string{"WALLET_SECRET_KEY", "BASE_MINT", "BASE_MINT_DECIMALS", "QUOTE_MINT", "QUOTE_MINT_DECIMALS"} {
		t.Run(key, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(key, "")

			cfg, err := Load("")
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_ZeroDecimalsWhenExplicit(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BASE_MINT_DECIMALS", "0")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, uint8(0), cfg.BaseMintDecimals)
}

func TestLoad_RequiredFromConfigFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BASE_MINT_DECIMALS", "")
	path := filepath.Join(t.TempDir(), "pumplp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_mint_decimals: 6\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), cfg.BaseMintDecimals)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POOL_INDEX", "3")
	t.Setenv("SLIPPAGE_BPS", "250")
	t.Setenv("ADD_LIQ_AMOUNT", "0.5")
	t.Setenv("CONFIRM_TIMEOUT", "90s")
	t.Setenv("COMMITMENT", "Finalized")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, uint16(3), cfg.PoolIndex)
	assert.Equal(t, 250, cfg.SlippageBps)
	assert.Equal(t, "0.5", cfg.AddLiqAmount)
	assert.Equal(t, 90*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, rpc.CommitmentFinalized, cfg.CommitmentType())
}

func TestLoad_ConfigFile(t *testing.T) {
	setRequiredEnv(t)
	path := filepath.Join(t.TempDir(), "pumplp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("slippage_bps: 75\ninitial_base: \"1000\"\ninitial_quote: \"50\"\n"), 0o600))
	t.Setenv("INITIAL_QUOTE", "60")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 75, cfg.SlippageBps)
	assert.Equal(t, "1000", cfg.InitialBase)
	assert.Equal(t, "60", cfg.InitialQuote, "env wins over file")
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			RPCURL:            "http://localhost:8899",
			WalletSecretKey:   "secret",
			BaseMint:          testBaseMint,
			BaseMintDecimals:  6,
			QuoteMint:         solana.SolMint.String(),
			QuoteMintDecimals: 9,
			SlippageBps:       100,
			Commitment:        "confirmed",
			ConfirmTimeout:    time.Minute,
			PollInterval:      time.Second,
		}
	}
	require.NoError(t, validateConfig(valid()))

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing rpc", func(c *Config) { c.RPCURL = "" }},
		{"websocket rpc", func(c *Config) { c.RPCURL = "wss://example.com" }},
		{"missing key", func(c *Config) { c.WalletSecretKey = "" }},
		{"bad base mint", func(c *Config) { c.BaseMint = "not-a-key" }},
		{"same mints", func(c *Config) { c.QuoteMint = c.BaseMint }},
		{"slippage above 100%", func(c *Config) { c.SlippageBps = 10_001 }},
		{"negative slippage", func(c *Config) { c.SlippageBps = -1 }},
		{"bad commitment", func(c *Config) { c.Commitment = "max" }},
		{"poll longer than timeout", func(c *Config) { c.PollInterval = 2 * time.Minute }},
		{"too many decimals", func(c *Config) { c.BaseMintDecimals = 20 }},
		{"bad pushgateway", func(c *Config) { c.PushgatewayURL = "ftp://gw" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, validateConfig(cfg))
		})
	}
}

func TestConfig_LiquidityConfig(t *testing.T) {
	cfg := &Config{
		PoolIndex:         2,
		BaseMint:          testBaseMint,
		BaseMintDecimals:  6,
		QuoteMint:         solana.SolMint.String(),
		QuoteMintDecimals: 9,
		SlippageBps:       150,
		Commitment:        "finalized",
		ConfirmTimeout:    time.Minute,
		PollInterval:      time.Second,
		ComputeUnitLimit:  300_000,
		ComputeUnitPrice:  1_000,
	}

	lc, err := cfg.LiquidityConfig()
	require.NoError(t, err)
	assert.Equal(t, uint16(2), lc.PoolIndex)
	assert.Equal(t, solana.MustPublicKeyFromBase58(testBaseMint), lc.BaseMint)
	assert.Equal(t, solana.SolMint, lc.QuoteMint)
	assert.Equal(t, 150, lc.DefaultSlippageBps)
	assert.Equal(t, rpc.ConfirmationStatusFinalized, lc.Pipeline.Commitment)
	assert.Equal(t, uint32(300_000), lc.Pipeline.ComputeUnitLimit)
	assert.Equal(t, uint64(1_000), lc.Pipeline.ComputeUnitPriceMicroLamports)

	// MaxPollInterval keeps its default
	assert.Equal(t, liquidity.DefaultPipelineOptions().MaxPollInterval, lc.Pipeline.MaxPollInterval)
}
