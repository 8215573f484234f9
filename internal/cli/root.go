package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/pumpswap-liquidity/internal/bot"
	"github.com/rovshanmuradov/pumpswap-liquidity/internal/config"
	"github.com/rovshanmuradov/pumpswap-liquidity/internal/utils/logger"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configFile string
	debug      bool
	logFile    string
}

// NewRootCmd builds the pumplp command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "pumplp",
		Short: "Create PumpSwap pools and manage their liquidity",
		Long: `pumplp drives the PumpSwap AMM liquidity lifecycle from one wallet:
create a pool with initial reserves, deposit balanced liquidity and withdraw it.

Settings come from .env, an optional config file and the environment
(RPC_URL, WALLET_SECRET_KEY, BASE_MINT, ...). Flags override amounts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "configuration file path (yaml, json or toml)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "override LOG_FILE")

	root.AddCommand(
		newCreatePoolCmd(opts),
		newAddLiquidityCmd(opts),
		newWithdrawLiquidityCmd(opts),
		newPoolAddressCmd(opts),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// setup loads configuration, builds the logger and wires a runner.
func setup(opts *globalOptions) (*bot.Runner, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Development = opts.debug || cfg.DebugLogging
	logCfg.LogFile = cfg.LogFile
	if opts.logFile != "" {
		logCfg.LogFile = opts.logFile
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	runner, err := bot.NewRunner(cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	return runner, nil
}

// withRunner runs fn and always shuts the runner down afterwards.
func withRunner(cmd *cobra.Command, opts *globalOptions, fn func(*bot.Runner) error) (err error) {
	runner, err := setup(opts)
	if err != nil {
		return err
	}
	defer func() {
		if shutdownErr := runner.Shutdown(context.Background()); shutdownErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "shutdown: %v\n", shutdownErr)
		}
	}()
	return fn(runner)
}

var errAmountRequired = errors.New("amount required")
