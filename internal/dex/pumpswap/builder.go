// =============================
// File: internal/dex/pumpswap/builder.go
// =============================
package pumpswap

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/pumpswap-liquidity/internal/blockchain"
	"github.com/rovshanmuradov/pumpswap-liquidity/internal/liquidity"
	"github.com/rovshanmuradov/pumpswap-liquidity/internal/wallet"
)

// Builder реализует liquidity.InstructionBuilder для PumpSwap.
type Builder struct {
	cfg    *Config
	pools  *PoolManager
	logger *zap.Logger
}

// NewBuilder создаёт Builder поверх reader. При cfg == nil используется mainnet-программа.
func NewBuilder(reader blockchain.AccountReader, logger *zap.Logger, cfg *Config, opts ...PoolManagerOptions) *Builder {
	if cfg == nil {
		cfg = GetDefaultConfig()
	}
	logger = logger.Named("pumpswap")
	return &Builder{
		cfg:    cfg,
		pools:  NewPoolManager(reader, cfg, logger, opts...),
		logger: logger,
	}
}

// DerivePoolAddress вычисляет адрес пула по его идентичности.
func (b *Builder) DerivePoolAddress(id liquidity.PoolIdentity) (solana.PublicKey, error) {
	return b.cfg.DerivePoolAddress(id.CreatorIndex, id.Creator, id.BaseMint, id.QuoteMint)
}

// InitialPrice возвращает цену base в quote, которую задаст первый депозит.
func (b *Builder) InitialPrice(base, quote liquidity.TokenAmount) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return liquidity.ToHuman(quote).Div(liquidity.ToHuman(base))
}

// checkEnabled fails when the admin disabled the operation behind flag.
func (b *Builder) checkEnabled(ctx context.Context, op string, flag uint8) error {
	gc, err := b.pools.GlobalConfig(ctx)
	if err != nil {
		return err
	}
	if gc.Disabled(flag) {
		return operationDisabled(op, flag)
	}
	return nil
}

func wrapLamports(mint solana.PublicKey, amount uint64) uint64 {
	if mint.Equals(solana.SolMint) {
		return amount
	}
	return 0
}

// CreatePoolInstructions собирает инструкции создания пула с начальной ликвидностью.
func (b *Builder) CreatePoolInstructions(ctx context.Context, id liquidity.PoolIdentity, base, quote liquidity.TokenAmount) ([]solana.Instruction, error) {
	var programs []solana.PublicKey

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.checkEnabled(gctx, "create_pool", DisableCreatePool)
	})
	g.Go(func() error {
		var err error
		programs, err = b.pools.MintPrograms(gctx, id.BaseMint, id.QuoteMint)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	baseProgram, quoteProgram := programs[0], programs[1]

	pool, err := b.DerivePoolAddress(id)
	if err != nil {
		return nil, err
	}
	lpMint, err := b.cfg.DeriveLPMint(pool)
	if err != nil {
		return nil, err
	}
	poolBaseATA, err := wallet.FindATA(pool, id.BaseMint, baseProgram)
	if err != nil {
		return nil, err
	}
	poolQuoteATA, err := wallet.FindATA(pool, id.QuoteMint, quoteProgram)
	if err != nil {
		return nil, err
	}

	accounts, err := prepareTokenAccounts(id.Creator,
		userTokenAccount{Mint: id.BaseMint, TokenProgram: baseProgram, WrapLamports: wrapLamports(id.BaseMint, base.Raw)},
		userTokenAccount{Mint: id.QuoteMint, TokenProgram: quoteProgram, WrapLamports: wrapLamports(id.QuoteMint, quote.Raw)},
		lpMint, false)
	if err != nil {
		return nil, err
	}

	ix, err := b.cfg.createPoolInstruction(&CreatePoolInstructionParams{
		Index:                 id.CreatorIndex,
		Creator:               id.Creator,
		PoolAddress:           pool,
		BaseMint:              id.BaseMint,
		QuoteMint:             id.QuoteMint,
		LPMint:                lpMint,
		UserBaseTokenAccount:  accounts.UserBaseATA,
		UserQuoteTokenAccount: accounts.UserQuoteATA,
		UserPoolTokenAccount:  accounts.UserPoolATA,
		PoolBaseTokenAccount:  poolBaseATA,
		PoolQuoteTokenAccount: poolQuoteATA,
		BaseTokenProgram:      baseProgram,
		QuoteTokenProgram:     quoteProgram,
		BaseAmountIn:          base.Raw,
		QuoteAmountIn:         quote.Raw,
	})
	if err != nil {
		return nil, err
	}

	b.logger.Debug("create_pool instructions built",
		zap.String("pool", pool.String()),
		zap.String("lp_mint", lpMint.String()),
		zap.Uint64("base_in", base.Raw),
		zap.Uint64("quote_in", quote.Raw))

	return accounts.Wrap(ix), nil
}

// LiquidityState читает пул и балансы его хранилищ одним снимком.
func (b *Builder) LiquidityState(ctx context.Context, pool, user solana.PublicKey) (*liquidity.PoolState, error) {
	snap, err := b.pools.FetchPoolSnapshot(ctx, pool)
	if errors.Is(err, errAccountNotFound) {
		return nil, poolNotFound("liquidity_state", err)
	}
	if err != nil {
		return nil, err
	}
	return &liquidity.PoolState{
		Pool:                  pool,
		User:                  user,
		BaseMint:              snap.Pool.BaseMint,
		QuoteMint:             snap.Pool.QuoteMint,
		LPMint:                snap.Pool.LPMint,
		PoolBaseTokenAccount:  snap.Pool.PoolBaseTokenAccount,
		PoolQuoteTokenAccount: snap.Pool.PoolQuoteTokenAccount,
		BaseTokenProgram:      snap.BaseTokenProgram,
		QuoteTokenProgram:     snap.QuoteTokenProgram,
		BaseReserves:          snap.BaseReserves,
		QuoteReserves:         snap.QuoteReserves,
		LPSupply:              snap.Pool.LPSupply,
	}, nil
}

// DepositInstructions собирает депозит на lp LP-токенов с максимумами,
// расширенными на slippageBps.
func (b *Builder) DepositInstructions(ctx context.Context, state *liquidity.PoolState, lp liquidity.TokenAmount, slippageBps int) ([]solana.Instruction, error) {
	if err := b.checkEnabled(ctx, "deposit", DisableDeposit); err != nil {
		return nil, err
	}
	maxBase, maxQuote, err := liquidity.DepositLimits(state, lp.Raw, slippageBps)
	if err != nil {
		return nil, err
	}

	accounts, err := prepareTokenAccounts(state.User,
		userTokenAccount{Mint: state.BaseMint, TokenProgram: state.BaseTokenProgram, WrapLamports: wrapLamports(state.BaseMint, maxBase)},
		userTokenAccount{Mint: state.QuoteMint, TokenProgram: state.QuoteTokenProgram, WrapLamports: wrapLamports(state.QuoteMint, maxQuote)},
		state.LPMint, true)
	if err != nil {
		return nil, err
	}

	ix, err := b.cfg.liquidityInstruction(b.liquidityParams(state, accounts, true, lp.Raw, maxBase, maxQuote))
	if err != nil {
		return nil, err
	}

	b.logger.Debug("deposit instructions built",
		zap.String("pool", state.Pool.String()),
		zap.Uint64("lp_out", lp.Raw),
		zap.Uint64("max_base_in", maxBase),
		zap.Uint64("max_quote_in", maxQuote))

	return accounts.Wrap(ix), nil
}

// WithdrawInstructions собирает вывод lp LP-токенов с минимумами,
// суженными на slippageBps.
func (b *Builder) WithdrawInstructions(ctx context.Context, state *liquidity.PoolState, lp liquidity.TokenAmount, slippageBps int) ([]solana.Instruction, error) {
	if err := b.checkEnabled(ctx, "withdraw", DisableWithdraw); err != nil {
		return nil, err
	}
	minBase, minQuote, err := liquidity.WithdrawLimits(state, lp.Raw, slippageBps)
	if err != nil {
		return nil, err
	}

	accounts, err := prepareTokenAccounts(state.User,
		userTokenAccount{Mint: state.BaseMint, TokenProgram: state.BaseTokenProgram},
		userTokenAccount{Mint: state.QuoteMint, TokenProgram: state.QuoteTokenProgram},
		state.LPMint, false)
	if err != nil {
		return nil, err
	}

	ix, err := b.cfg.liquidityInstruction(b.liquidityParams(state, accounts, false, lp.Raw, minBase, minQuote))
	if err != nil {
		return nil, err
	}

	b.logger.Debug("withdraw instructions built",
		zap.String("pool", state.Pool.String()),
		zap.Uint64("lp_in", lp.Raw),
		zap.Uint64("min_base_out", minBase),
		zap.Uint64("min_quote_out", minQuote))

	return accounts.Wrap(ix), nil
}

func (b *Builder) liquidityParams(state *liquidity.PoolState, accounts *PreparedTokenAccounts, deposit bool, lp, baseLimit, quoteLimit uint64) *LiquidityInstructionParams {
	return &LiquidityInstructionParams{
		IsDeposit:             deposit,
		PoolAddress:           state.Pool,
		User:                  state.User,
		BaseMint:              state.BaseMint,
		QuoteMint:             state.QuoteMint,
		LPMint:                state.LPMint,
		UserBaseTokenAccount:  accounts.UserBaseATA,
		UserQuoteTokenAccount: accounts.UserQuoteATA,
		UserPoolTokenAccount:  accounts.UserPoolATA,
		PoolBaseTokenAccount:  state.PoolBaseTokenAccount,
		PoolQuoteTokenAccount: state.PoolQuoteTokenAccount,
		LPAmount:              lp,
		BaseLimit:             baseLimit,
		QuoteLimit:            quoteLimit,
	}
}

// String возвращает краткое описание конфигурации для логов.
func (b *Builder) String() string {
	return fmt.Sprintf("pumpswap(program=%s)", b.cfg.ProgramID)
}

var _ liquidity.InstructionBuilder = (*Builder)(nil)
