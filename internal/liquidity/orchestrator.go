// =============================
// File: internal/liquidity/orchestrator.go
// =============================
package liquidity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config is fixed for the lifetime of an Orchestrator.
type Config struct {
	PoolIndex          uint16
	BaseMint           solana.PublicKey
	QuoteMint          solana.PublicKey
	BaseDecimals       uint8
	QuoteDecimals      uint8
	DefaultSlippageBps int
	Pipeline           PipelineOptions
}

// Orchestrator creates a pool and moves liquidity in and out of it.
type Orchestrator struct {
	cfg      Config
	signer   Signer
	node     Node
	builder  InstructionBuilder
	identity *Identity
	quoter   *Quoter
	pipeline *Pipeline
	logger   *zap.Logger
	recorder Recorder
	locks    *poolLocks
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder reports operation and transaction metrics to r.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// NewOrchestrator wires the liquidity lifecycle around the given collaborators.
func NewOrchestrator(cfg Config, signer Signer, node Node, builder InstructionBuilder, logger *zap.Logger, opts ...Option) (*Orchestrator, error) {
	if signer == nil || node == nil || builder == nil {
		return nil, fmt.Errorf("orchestrator requires signer, node and builder")
	}
	if err := ValidateSlippage(cfg.DefaultSlippageBps); err != nil {
		return nil, err
	}
	if cfg.BaseMint.IsZero() || cfg.QuoteMint.IsZero() {
		return nil, fmt.Errorf("base and quote mint must be set")
	}
	if cfg.BaseMint.Equals(cfg.QuoteMint) {
		return nil, fmt.Errorf("base and quote mint are the same: %s", cfg.BaseMint)
	}

	o := &Orchestrator{
		cfg:      cfg,
		signer:   signer,
		node:     node,
		builder:  builder,
		identity: NewIdentity(builder, node),
		quoter:   NewQuoter(cfg.BaseDecimals, cfg.QuoteDecimals),
		logger:   logger.Named("liquidity"),
		recorder: nopRecorder{},
		locks:    newPoolLocks(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.pipeline = NewPipeline(node, logger, cfg.Pipeline, o.recorder)
	return o, nil
}

// CallOption adjusts a single AddLiquidity or WithdrawLiquidity call.
type CallOption func(*callOptions)

type callOptions struct {
	user        solana.PublicKey
	slippageBps int
}

// WithUser names the account whose token accounts are debited and credited.
// Only the signing wallet is accepted; any other key fails with
// ErrSignerMismatch before the pool is touched.
func WithUser(user solana.PublicKey) CallOption {
	return func(c *callOptions) { c.user = user }
}

// WithSlippageBps overrides the configured default slippage.
func WithSlippageBps(bps int) CallOption {
	return func(c *callOptions) { c.slippageBps = bps }
}

func (o *Orchestrator) callOptions(opts []CallOption) callOptions {
	c := callOptions{user: o.signer.PublicKey(), slippageBps: o.cfg.DefaultSlippageBps}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// validate rejects call options the transaction could never satisfy.
// The user's token accounts are authorised by the user's own signature,
// and the pipeline signs with the wallet alone.
func (c callOptions) validate(op string, signer solana.PublicKey) error {
	if !c.user.Equals(signer) {
		return newError(op, ErrSignerMismatch,
			fmt.Errorf("user %s, signer %s", c.user, signer))
	}
	return ValidateSlippage(c.slippageBps)
}

func (o *Orchestrator) poolIdentity() PoolIdentity {
	return PoolIdentity{
		CreatorIndex: o.cfg.PoolIndex,
		Creator:      o.signer.PublicKey(),
		BaseMint:     o.cfg.BaseMint,
		QuoteMint:    o.cfg.QuoteMint,
	}
}

// PoolAddress returns the derived address of the configured pool.
func (o *Orchestrator) PoolAddress() (solana.PublicKey, error) {
	return o.identity.Derive(o.poolIdentity())
}

// CreatePool creates the configured pool seeded with the given amounts.
// An existing pool is reported as ErrPoolAlreadyExists without submitting.
func (o *Orchestrator) CreatePool(ctx context.Context, baseAmount, quoteAmount decimal.Decimal) (outcome *TransactionOutcome, err error) {
	start := time.Now()
	defer func() { o.recorder.RecordOperation("create_pool", operationErr(outcome, err), time.Since(start).Seconds()) }()

	base, err := o.nonZero("create_pool", baseAmount, o.cfg.BaseDecimals)
	if err != nil {
		return nil, err
	}
	quote, err := o.nonZero("create_pool", quoteAmount, o.cfg.QuoteDecimals)
	if err != nil {
		return nil, err
	}

	id := o.poolIdentity()
	pool, err := o.identity.Derive(id)
	if err != nil {
		return nil, err
	}
	defer o.locks.lock(pool)()

	exists, err := o.identity.Exists(ctx, pool)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, newError("create_pool", ErrPoolAlreadyExists, fmt.Errorf("pool %s", pool))
	}

	o.logger.Info("Creating pool",
		zap.String("pool", pool.String()),
		zap.Uint16("index", id.CreatorIndex),
		zap.String("base_mint", id.BaseMint.String()),
		zap.String("quote_mint", id.QuoteMint.String()),
		zap.Uint64("base_raw", base.Raw),
		zap.Uint64("quote_raw", quote.Raw),
		zap.String("initial_price", o.builder.InitialPrice(base, quote).String()))

	ixs, err := o.builder.CreatePoolInstructions(ctx, id, base, quote)
	if err != nil {
		return nil, builderError("create_pool_instructions", err)
	}

	outcome, err = o.pipeline.Execute(ctx, ixs, o.signer)
	if err != nil {
		return outcome, err
	}
	if outcome.Confirmed {
		o.logger.Info("Pool created",
			zap.String("pool", pool.String()),
			zap.String("signature", outcome.Signature.String()))
	}
	return outcome, nil
}

// AddLiquidity deposits amount of one side and the balanced amount of the
// other, minting the LP share implied by current reserves.
func (o *Orchestrator) AddLiquidity(ctx context.Context, amount decimal.Decimal, inputIsBase bool, opts ...CallOption) (outcome *TransactionOutcome, err error) {
	start := time.Now()
	defer func() { o.recorder.RecordOperation("add_liquidity", operationErr(outcome, err), time.Since(start).Seconds()) }()

	call := o.callOptions(opts)
	if err := call.validate("add_liquidity", o.signer.PublicKey()); err != nil {
		return nil, err
	}

	side, decimals := SideQuote, o.cfg.QuoteDecimals
	if inputIsBase {
		side, decimals = SideBase, o.cfg.BaseDecimals
	}
	input, err := o.nonZero("add_liquidity", amount, decimals)
	if err != nil {
		return nil, err
	}

	pool, unlock, err := o.lockExisting(ctx, "add_liquidity")
	if err != nil {
		return nil, err
	}
	defer unlock()

	state, err := o.builder.LiquidityState(ctx, pool, call.user)
	if err != nil {
		return nil, builderError("liquidity_state", err)
	}

	var q *LiquidityQuote
	if side == SideBase {
		q, err = o.quoter.QuoteDepositFromBase(state, input, call.slippageBps)
	} else {
		q, err = o.quoter.QuoteDepositFromQuote(state, input, call.slippageBps)
	}
	if err != nil {
		return nil, err
	}

	o.logger.Info("Adding liquidity",
		zap.String("pool", pool.String()),
		zap.String("user", call.user.String()),
		zap.Stringer("input_side", side),
		zap.Stringer("input", q.Input),
		zap.Stringer("counter", q.Counter),
		zap.Stringer("lp", q.LPShare),
		zap.Stringer("max_base", q.MaxBase),
		zap.Stringer("max_quote", q.MaxQuote),
		zap.Int("slippage_bps", call.slippageBps))

	ixs, err := o.builder.DepositInstructions(ctx, state, q.LPShare, call.slippageBps)
	if err != nil {
		return nil, builderError("deposit_instructions", err)
	}
	return o.pipeline.Execute(ctx, ixs, o.signer)
}

// WithdrawLiquidity burns lpAmount LP tokens for the proportional reserves.
func (o *Orchestrator) WithdrawLiquidity(ctx context.Context, lpAmount decimal.Decimal, opts ...CallOption) (outcome *TransactionOutcome, err error) {
	start := time.Now()
	defer func() { o.recorder.RecordOperation("withdraw_liquidity", operationErr(outcome, err), time.Since(start).Seconds()) }()

	call := o.callOptions(opts)
	if err := call.validate("withdraw_liquidity", o.signer.PublicKey()); err != nil {
		return nil, err
	}
	lp, err := o.nonZero("withdraw_liquidity", lpAmount, LPDecimals)
	if err != nil {
		return nil, err
	}

	pool, unlock, err := o.lockExisting(ctx, "withdraw_liquidity")
	if err != nil {
		return nil, err
	}
	defer unlock()

	state, err := o.builder.LiquidityState(ctx, pool, call.user)
	if err != nil {
		return nil, builderError("liquidity_state", err)
	}

	supply, err := o.node.TokenSupply(ctx, state.LPMint)
	if err != nil {
		return nil, newError("lp_supply", ErrNetwork, err)
	}
	if err := (LPSupplyCheck{Requested: lp, Outstanding: supply}).Validate(); err != nil {
		return nil, err
	}

	q, err := o.quoter.QuoteWithdraw(state, lp, call.slippageBps)
	if err != nil {
		return nil, err
	}

	o.logger.Info("Withdrawing liquidity",
		zap.String("pool", pool.String()),
		zap.String("user", call.user.String()),
		zap.Stringer("lp", lp),
		zap.Stringer("lp_supply", supply),
		zap.Stringer("min_base", q.MinBase),
		zap.Stringer("min_quote", q.MinQuote),
		zap.Int("slippage_bps", call.slippageBps))

	ixs, err := o.builder.WithdrawInstructions(ctx, state, lp, call.slippageBps)
	if err != nil {
		return nil, builderError("withdraw_instructions", err)
	}
	return o.pipeline.Execute(ctx, ixs, o.signer)
}

// operationErr is the error an operation is recorded with: the returned error,
// or the on-chain failure carried by the outcome.
func operationErr(outcome *TransactionOutcome, err error) error {
	if err == nil && outcome != nil {
		return outcome.Err
	}
	return err
}

func (o *Orchestrator) nonZero(op string, human decimal.Decimal, decimals uint8) (TokenAmount, error) {
	amount, err := ToFixedPoint(human, int(decimals))
	if err != nil {
		return TokenAmount{}, err
	}
	if amount.IsZero() {
		return TokenAmount{}, newError(op, ErrInvalidAmount,
			fmt.Errorf("%s is zero at %d decimals", human.String(), decimals))
	}
	return amount, nil
}

// lockExisting derives the pool, takes its lock and checks it exists. The
// returned unlock must be called once the operation finishes.
func (o *Orchestrator) lockExisting(ctx context.Context, op string) (solana.PublicKey, func(), error) {
	pool, err := o.identity.Derive(o.poolIdentity())
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	unlock := o.locks.lock(pool)
	exists, err := o.identity.Exists(ctx, pool)
	if err != nil {
		unlock()
		return solana.PublicKey{}, nil, err
	}
	if !exists {
		unlock()
		return solana.PublicKey{}, nil, newError(op, ErrPoolNotFound, fmt.Errorf("pool %s", pool))
	}
	return pool, unlock, nil
}

// builderError keeps kinds raised by the builder and classifies the rest as
// network failures, since building only reads chain state.
func builderError(op string, err error) error {
	var lerr *Error
	if errors.As(err, &lerr) {
		return err
	}
	return newError(op, ErrNetwork, err)
}

// poolLocks serialises operations per pool address.
type poolLocks struct {
	mu    sync.Mutex
	locks map[solana.PublicKey]*poolLock
}

type poolLock struct {
	mu   sync.Mutex
	refs int
}

func newPoolLocks() *poolLocks {
	return &poolLocks{locks: make(map[solana.PublicKey]*poolLock)}
}

func (p *poolLocks) lock(pool solana.PublicKey) func() {
	p.mu.Lock()
	l, ok := p.locks[pool]
	if !ok {
		l = &poolLock{}
		p.locks[pool] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, pool)
		}
		p.mu.Unlock()
	}
}
