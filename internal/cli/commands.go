package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/pumpswap-liquidity/internal/bot"
	"github.com/rovshanmuradov/pumpswap-liquidity/internal/liquidity"
)

// resolveAmount picks the flag value over the configured one and parses it.
func resolveAmount(flagValue, configured, envName, flagName string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(flagValue)
	if raw == "" {
		raw = strings.TrimSpace(configured)
	}
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%w: pass --%s or set %s", errAmountRequired, flagName, envName)
	}
	return liquidity.ParseHuman(raw)
}

// liquidityFlags are shared by add-liquidity and withdraw-liquidity.
type liquidityFlags struct {
	slippageBps int
	user        string
}

func (f *liquidityFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.slippageBps, "slippage-bps", -1, "slippage tolerance in basis points (default SLIPPAGE_BPS)")
	cmd.Flags().StringVar(&f.user, "user", "", "account whose token accounts are used (default: the wallet)")
}

func (f *liquidityFlags) callOptions() ([]liquidity.CallOption, error) {
	var opts []liquidity.CallOption
	if f.slippageBps >= 0 {
		opts = append(opts, liquidity.WithSlippageBps(f.slippageBps))
	}
	if f.user != "" {
		user, err := solana.PublicKeyFromBase58(f.user)
		if err != nil {
			return nil, fmt.Errorf("invalid --user: %w", err)
		}
		opts = append(opts, liquidity.WithUser(user))
	}
	return opts, nil
}

// report prints the outcome and turns an unconfirmed outcome into an error
// so the process exits non-zero.
func report(cmd *cobra.Command, title string, pool solana.PublicKey, outcome *liquidity.TransactionOutcome, err error) error {
	fmt.Fprintln(cmd.OutOrStdout(), renderOutcome(title, pool, outcome, err))
	if err != nil {
		return err
	}
	if outcome != nil && outcome.Err != nil {
		return outcome.Err
	}
	return nil
}

func newCreatePoolCmd(opts *globalOptions) *cobra.Command {
	var base, quote string

	cmd := &cobra.Command{
		Use:   "create-pool",
		Short: "Create the configured pool with initial reserves",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRunner(cmd, opts, func(r *bot.Runner) error {
				cfg := r.Config()
				baseAmount, err := resolveAmount(base, cfg.InitialBase, "INITIAL_BASE", "base")
				if err != nil {
					return err
				}
				quoteAmount, err := resolveAmount(quote, cfg.InitialQuote, "INITIAL_QUOTE", "quote")
				if err != nil {
					return err
				}

				pool, _ := r.Orchestrator().PoolAddress()
				outcome, err := r.Run(cmd.Context(), "create_pool", func(ctx context.Context, o *liquidity.Orchestrator) (*liquidity.TransactionOutcome, error) {
					return o.CreatePool(ctx, baseAmount, quoteAmount)
				})
				return report(cmd, "Create pool", pool, outcome, err)
			})
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "initial base amount (default INITIAL_BASE)")
	cmd.Flags().StringVar(&quote, "quote", "", "initial quote amount (default INITIAL_QUOTE)")
	return cmd
}

func newAddLiquidityCmd(opts *globalOptions) *cobra.Command {
	var (
		amount      string
		inputIsBase bool
		flags       liquidityFlags
	)

	cmd := &cobra.Command{
		Use:   "add-liquidity",
		Short: "Deposit a balanced amount of both tokens into the pool",
		Long: `Deposit liquidity. The amount is denominated in the quote token unless
--base is given; the other side is computed from the current reserves.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			callOpts, err := flags.callOptions()
			if err != nil {
				return err
			}
			return withRunner(cmd, opts, func(r *bot.Runner) error {
				value, err := resolveAmount(amount, r.Config().AddLiqAmount, "ADD_LIQ_AMOUNT", "amount")
				if err != nil {
					return err
				}

				pool, _ := r.Orchestrator().PoolAddress()
				outcome, err := r.Run(cmd.Context(), "add_liquidity", func(ctx context.Context, o *liquidity.Orchestrator) (*liquidity.TransactionOutcome, error) {
					return o.AddLiquidity(ctx, value, inputIsBase, callOpts...)
				})
				return report(cmd, "Add liquidity", pool, outcome, err)
			})
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "deposit amount (default ADD_LIQ_AMOUNT)")
	cmd.Flags().BoolVar(&inputIsBase, "base", false, "amount is denominated in the base token")
	flags.register(cmd)
	return cmd
}

func newWithdrawLiquidityCmd(opts *globalOptions) *cobra.Command {
	var (
		lp    string
		flags liquidityFlags
	)

	cmd := &cobra.Command{
		Use:   "withdraw-liquidity",
		Short: "Burn LP tokens for the proportional share of reserves",
		RunE: func(cmd *cobra.Command, _ []string) error {
			callOpts, err := flags.callOptions()
			if err != nil {
				return err
			}
			return withRunner(cmd, opts, func(r *bot.Runner) error {
				value, err := resolveAmount(lp, r.Config().WithdrawLPAmount, "WITHDRAW_LP_AMOUNT", "lp")
				if err != nil {
					return err
				}

				pool, _ := r.Orchestrator().PoolAddress()
				outcome, err := r.Run(cmd.Context(), "withdraw_liquidity", func(ctx context.Context, o *liquidity.Orchestrator) (*liquidity.TransactionOutcome, error) {
					return o.WithdrawLiquidity(ctx, value, callOpts...)
				})
				return report(cmd, "Withdraw liquidity", pool, outcome, err)
			})
		},
	}
	cmd.Flags().StringVar(&lp, "lp", "", "LP tokens to burn (default WITHDRAW_LP_AMOUNT)")
	flags.register(cmd)
	return cmd
}

func newPoolAddressCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pool-address",
		Short: "Print the derived address of the configured pool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRunner(cmd, opts, func(r *bot.Runner) error {
				pool, err := r.Orchestrator().PoolAddress()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), pool.String())
				return nil
			})
		},
	}
}
