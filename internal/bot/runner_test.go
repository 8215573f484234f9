package bot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rovshanmuradov/pumpswap-liquidity/internal/config"
	"github.com/rovshanmuradov/pumpswap-liquidity/internal/liquidity"
	"github.com/rovshanmuradov/pumpswap-liquidity/internal/utils/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		RPCURL:            "http://127.0.0.1:1",
		WalletSecretKey:   solana.NewWallet().PrivateKey.String(),
		BaseMint:          solana.NewWallet().PublicKey().String(),
		BaseMintDecimals:  6,
		QuoteMint:         solana.SolMint.String(),
		QuoteMintDecimals: 9,
		SlippageBps:       100,
		Commitment:        "confirmed",
		ConfirmTimeout:    time.Second,
		PollInterval:      10 * time.Millisecond,
	}
}

func testLogger(t *testing.T) *logger.Logger {
	return &logger.Logger{Logger: zaptest.NewLogger(t)}
}

func TestNewRunner(t *testing.T) {
	cfg := testConfig(t)
	r, err := NewRunner(cfg, testLogger(t))
	require.NoError(t, err)

	pool, err := r.Orchestrator().PoolAddress()
	require.NoError(t, err)
	assert.False(t, pool.IsZero())
	assert.Same(t, cfg, r.Config())
}

func TestNewRunner_BadKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.WalletSecretKey = "0OIl"
	_, err := NewRunner(cfg, testLogger(t))
	assert.Error(t, err)
}

func TestRunner_RunValidationNeverTouchesNetwork(t *testing.T) {
	r, err := NewRunner(testConfig(t), testLogger(t))
	require.NoError(t, err)

	_, err = r.Run(context.Background(), "add_liquidity", func(ctx context.Context, o *liquidity.Orchestrator) (*liquidity.TransactionOutcome, error) {
		return o.AddLiquidity(ctx, decimal.Zero, false)
	})
	assert.ErrorIs(t, err, liquidity.ErrInvalidAmount)
}

func TestRunner_RunLogsRejectionsAsWarnings(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r, err := NewRunner(testConfig(t), &logger.Logger{Logger: zap.New(core)})
	require.NoError(t, err)

	_, err = r.Run(context.Background(), "withdraw_liquidity", func(ctx context.Context, o *liquidity.Orchestrator) (*liquidity.TransactionOutcome, error) {
		return o.WithdrawLiquidity(ctx, decimal.NewFromInt(1), liquidity.WithUser(solana.NewWallet().PublicKey()))
	})
	require.ErrorIs(t, err, liquidity.ErrSignerMismatch)

	rejected := logs.FilterMessage("Operation rejected before submission").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, zapcore.WarnLevel, rejected[0].Level)
	assert.Zero(t, logs.FilterMessage("Operation failed").Len())
}

func TestRunner_ShutdownPushesMetrics(t *testing.T) {
	var pushes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pushes.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.PushgatewayURL = srv.URL
	r, err := NewRunner(cfg, testLogger(t))
	require.NoError(t, err)

	require.NoError(t, r.Shutdown(context.Background()))
	assert.Equal(t, int32(1), pushes.Load())
}

func TestShutdownHandler_ReverseOrderAndErrors(t *testing.T) {
	sh := NewShutdownHandler(zap.NewNop(), time.Second)
	var order []string
	sh.AddFunc("first", func() error { order = append(order, "first"); return nil })
	sh.AddFunc("second", func() error { order = append(order, "second"); return errors.New("boom") })

	err := sh.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "second: boom")
	assert.Equal(t, []string{"second", "first"}, order)

	assert.NoError(t, sh.Shutdown(context.Background()), "services run once")
}

func TestShutdownHandler_Timeout(t *testing.T) {
	sh := NewShutdownHandler(zap.NewNop(), 20*time.Millisecond)
	release := make(chan struct{})
	defer close(release)
	sh.AddFunc("stuck", func() error { <-release; return nil })

	err := sh.Shutdown(context.Background())
	assert.ErrorContains(t, err, "stuck: shutdown timeout")
}
