// internal/bot/runner.go
package bot

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpswap-liquidity/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pumpswap-liquidity/internal/config"
	"github.com/rovshanmuradov/pumpswap-liquidity/internal/dex/pumpswap"
	"github.com/rovshanmuradov/pumpswap-liquidity/internal/liquidity"
	"github.com/rovshanmuradov/pumpswap-liquidity/internal/utils/logger"
	"github.com/rovshanmuradov/pumpswap-liquidity/internal/utils/metrics"
	"github.com/rovshanmuradov/pumpswap-liquidity/internal/wallet"
)

const metricsJob = "pumplp"

// Runner собирает зависимости одного запуска CLI и управляет его жизненным циклом.
type Runner struct {
	logger       *logger.Logger
	config       *config.Config
	metrics      *metrics.Collector
	wallet       *wallet.Wallet
	orchestrator *liquidity.Orchestrator
	shutdown     *ShutdownHandler
}

// NewRunner принимает cfg и logger и связывает клиент, кошелёк, builder и оркестратор.
func NewRunner(cfg *config.Config, log *logger.Logger) (*Runner, error) {
	w, err := wallet.NewWallet(cfg.WalletSecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}

	liqCfg, err := cfg.LiquidityConfig()
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector()
	client := solbc.NewClient(cfg.RPCURL, log.WithComponent("rpc"),
		solbc.WithCommitment(cfg.CommitmentType()),
		solbc.WithObserver(collector))
	builder := pumpswap.NewBuilder(client, log.WithComponent("amm"), nil)

	orch, err := liquidity.NewOrchestrator(liqCfg, w, client, builder, log.Logger,
		liquidity.WithRecorder(collector))
	if err != nil {
		return nil, err
	}

	r := &Runner{
		logger:       log,
		config:       cfg,
		metrics:      collector,
		wallet:       w,
		orchestrator: orch,
		shutdown:     NewShutdownHandler(log.Logger, 10*time.Second),
	}

	if cfg.PushgatewayURL != "" {
		r.shutdown.AddFunc("metrics_push", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return collector.Push(ctx, cfg.PushgatewayURL, metricsJob)
		})
	}

	pool, err := orch.PoolAddress()
	if err != nil {
		return nil, err
	}
	log.WithPool(pool.String(), cfg.BaseMint, cfg.QuoteMint).Info("Runner initialized",
		zap.String("wallet", w.PublicKey().String()),
		zap.Uint16("pool_index", cfg.PoolIndex))

	return r, nil
}

// Config возвращает конфигурацию запуска.
func (r *Runner) Config() *config.Config { return r.config }

// Orchestrator возвращает собранный оркестратор.
func (r *Runner) Orchestrator() *liquidity.Orchestrator { return r.orchestrator }

// Run выполняет одну операцию; SIGINT/SIGTERM отменяют её контекст.
func (r *Runner) Run(ctx context.Context, op string, fn func(context.Context, *liquidity.Orchestrator) (*liquidity.TransactionOutcome, error)) (*liquidity.TransactionOutcome, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	end := r.logger.TrackPerformance(op)
	defer end()

	outcome, err := fn(ctx, r.orchestrator)
	if outcome != nil && outcome.Signature != (solana.Signature{}) {
		r.logger.WithTransaction(outcome.Signature.String()).Info("Operation finished",
			zap.String("operation", op),
			zap.Stringer("state", outcome.State),
			zap.Bool("confirmed", outcome.Confirmed))
	}
	switch {
	case err == nil:
	case liquidity.IsValidation(err):
		r.logger.Warn("Operation rejected before submission", zap.String("operation", op), zap.Error(err))
	default:
		r.logger.Error("Operation failed", zap.String("operation", op), zap.Error(err))
	}
	return outcome, err
}

// Shutdown отправляет метрики и сбрасывает буферы логгера.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.logger.Debug("Runner shutting down")
	err := r.shutdown.Shutdown(ctx)
	if syncErr := r.logger.Sync(); syncErr != nil {
		fmt.Fprintf(os.Stderr, "failed to sync logger during shutdown: %v\n", syncErr)
	}
	return err
}
