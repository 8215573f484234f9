// =============================
// File: internal/liquidity/pipeline.go
// =============================
package liquidity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// TxState is a step of the transaction lifecycle:
// BUILT -> SIGNED -> SUBMITTED -> {CONFIRMED, FAILED}.
type TxState int

const (
	TxBuilt TxState = iota + 1
	TxSigned
	TxSubmitted
	TxConfirmed
	TxFailed
)

func (s TxState) String() string {
	switch s {
	case TxBuilt:
		return "BUILT"
	case TxSigned:
		return "SIGNED"
	case TxSubmitted:
		return "SUBMITTED"
	case TxConfirmed:
		return "CONFIRMED"
	case TxFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// PendingTransaction is an assembled transaction owned by a single call.
type PendingTransaction struct {
	Instructions    []solana.Instruction
	Signer          Signer
	RecentBlockhash solana.Hash
	Tx              *solana.Transaction
	State           TxState
}

// TransactionOutcome is the terminal report of one submission.
type TransactionOutcome struct {
	Signature solana.Signature
	Confirmed bool
	Slot      uint64
	State     TxState
	// Err is set when the transaction did not confirm. For an on-chain
	// program failure it matches ErrExecution.
	Err error
}

// PipelineOptions tunes confirmation and fee behaviour.
type PipelineOptions struct {
	Commitment      rpc.ConfirmationStatusType
	ConfirmTimeout  time.Duration
	PollInterval    time.Duration
	MaxPollInterval time.Duration

	// Prepended as compute-budget instructions when non-zero.
	ComputeUnitLimit              uint32
	ComputeUnitPriceMicroLamports uint64

	// OnTransition observes every state change.
	OnTransition func(TxState)
}

// DefaultPipelineOptions mirrors the polling cadence of the RPC client.
func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		Commitment:      rpc.ConfirmationStatusConfirmed,
		ConfirmTimeout:  30 * time.Second,
		PollInterval:    500 * time.Millisecond,
		MaxPollInterval: 4 * time.Second,
	}
}

// Pipeline assembles, signs, submits and confirms transactions. It never
// retries: a failed lifecycle has to be re-run with a fresh blockhash.
type Pipeline struct {
	node     Node
	opts     PipelineOptions
	logger   *zap.Logger
	recorder Recorder
}

var errNotConfirmed = errors.New("transaction not confirmed yet")

// NewPipeline creates a pipeline. Zero option fields fall back to defaults.
func NewPipeline(node Node, logger *zap.Logger, opts PipelineOptions, recorder Recorder) *Pipeline {
	def := DefaultPipelineOptions()
	if opts.Commitment == "" {
		opts.Commitment = def.Commitment
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = def.ConfirmTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.MaxPollInterval < opts.PollInterval {
		opts.MaxPollInterval = opts.PollInterval * 8
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Pipeline{
		node:     node,
		opts:     opts,
		logger:   logger.Named("pipeline"),
		recorder: recorder,
	}
}

func (p *Pipeline) transition(pending *PendingTransaction, state TxState) {
	pending.State = state
	p.recorder.RecordTransition(state)
	if p.opts.OnTransition != nil {
		p.opts.OnTransition(state)
	}
}

// Assemble builds one atomic transaction paid by signer. The blockhash is the
// last thing fetched so the window before signing stays short.
func (p *Pipeline) Assemble(ctx context.Context, instructions []solana.Instruction, signer Signer) (*PendingTransaction, error) {
	if len(instructions) == 0 {
		return nil, fmt.Errorf("assemble: no instructions")
	}
	if signer == nil {
		return nil, fmt.Errorf("assemble: no signer")
	}

	ixs := make([]solana.Instruction, 0, len(instructions)+2)
	if p.opts.ComputeUnitLimit > 0 {
		ixs = append(ixs, computebudget.NewSetComputeUnitLimitInstruction(p.opts.ComputeUnitLimit).Build())
	}
	if p.opts.ComputeUnitPriceMicroLamports > 0 {
		ixs = append(ixs, computebudget.NewSetComputeUnitPriceInstruction(p.opts.ComputeUnitPriceMicroLamports).Build())
	}
	ixs = append(ixs, instructions...)

	blockhash, err := p.node.LatestBlockhash(ctx)
	if err != nil {
		return nil, newError("latest_blockhash", ErrNetwork, err)
	}

	tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(signer.PublicKey()))
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}
	if n := tx.Message.Header.NumRequiredSignatures; n != 1 {
		return nil, fmt.Errorf("assemble: transaction requires %d signers, want exactly 1", n)
	}

	pending := &PendingTransaction{
		Instructions:    ixs,
		Signer:          signer,
		RecentBlockhash: blockhash,
		Tx:              tx,
	}
	p.transition(pending, TxBuilt)

	p.logger.Debug("Transaction assembled",
		zap.Int("instructions", len(ixs)),
		zap.String("blockhash", blockhash.String()),
		zap.String("payer", signer.PublicKey().String()))

	return pending, nil
}

// Sign signs a BUILT transaction.
func (p *Pipeline) Sign(pending *PendingTransaction) error {
	if pending == nil || pending.State != TxBuilt {
		return fmt.Errorf("sign: transaction is not in state %s", TxBuilt)
	}
	if err := pending.Signer.SignTransaction(pending.Tx); err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	p.transition(pending, TxSigned)
	return nil
}

// SubmitAndConfirm sends a SIGNED transaction and waits for the configured
// commitment. A node rejection returns ErrSubmission, an unknown inclusion
// status after the bound returns ErrConfirmationTimeout. A program failure is
// not returned as an error: the outcome carries it with Confirmed=false.
func (p *Pipeline) SubmitAndConfirm(ctx context.Context, pending *PendingTransaction) (*TransactionOutcome, error) {
	if pending == nil || pending.State != TxSigned {
		return nil, fmt.Errorf("submit: transaction is not in state %s", TxSigned)
	}

	raw, err := pending.Tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("submit: serialize transaction: %w", err)
	}

	// Entered before the send: a rejection goes SUBMITTED -> FAILED.
	p.transition(pending, TxSubmitted)
	sig, err := p.node.SendRawTransaction(ctx, raw)
	if err != nil {
		p.transition(pending, TxFailed)
		subErr := newError("send_transaction", ErrSubmission, err)
		p.logger.Warn("Transaction rejected by node",
			zap.Bool("stale_blockhash", IsStaleBlockhash(subErr)),
			zap.Error(err))
		return &TransactionOutcome{State: TxFailed, Err: subErr}, subErr
	}
	p.logger.Info("Transaction submitted", zap.String("signature", sig.String()))

	outcome := &TransactionOutcome{Signature: sig, State: TxSubmitted}
	status, err := p.waitForConfirmation(ctx, sig)
	if err == nil {
		outcome.Confirmed = true
		outcome.Slot = status.Slot
		p.transition(pending, TxConfirmed)
		outcome.State = TxConfirmed
		p.logger.Info("Transaction confirmed",
			zap.String("signature", sig.String()),
			zap.Uint64("slot", status.Slot))
		return outcome, nil
	}

	var failure *ExecutionFailure
	if errors.As(err, &failure) {
		p.transition(pending, TxFailed)
		outcome.State = TxFailed
		outcome.Err = newError("confirm_transaction", ErrExecution, failure)
		p.logger.Warn("Transaction failed on-chain",
			zap.String("signature", sig.String()),
			zap.Any("chain_error", failure.ChainErr))
		return outcome, nil
	}

	timeoutErr := newError("confirm_transaction", ErrConfirmationTimeout,
		fmt.Errorf("%s not %s within %s: %w", sig, p.opts.Commitment, p.opts.ConfirmTimeout, err))
	outcome.Err = timeoutErr
	p.logger.Warn("Confirmation status unknown",
		zap.String("signature", sig.String()),
		zap.Duration("timeout", p.opts.ConfirmTimeout),
		zap.Error(err))
	return outcome, timeoutErr
}

// Execute runs the whole lifecycle once.
func (p *Pipeline) Execute(ctx context.Context, instructions []solana.Instruction, signer Signer) (*TransactionOutcome, error) {
	pending, err := p.Assemble(ctx, instructions, signer)
	if err != nil {
		return nil, err
	}
	if err := p.Sign(pending); err != nil {
		return nil, err
	}
	return p.SubmitAndConfirm(ctx, pending)
}

func (p *Pipeline) waitForConfirmation(ctx context.Context, sig solana.Signature) (*SignatureStatus, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.opts.PollInterval
	policy.MaxInterval = p.opts.MaxPollInterval

	poll := func() (*SignatureStatus, error) {
		status, err := p.node.SignatureStatus(ctx, sig)
		if err != nil {
			p.logger.Warn("Error getting signature status", zap.Error(err))
			return nil, err
		}
		if status == nil {
			return nil, errNotConfirmed
		}
		if status.ChainErr != nil {
			return nil, backoff.Permanent(&ExecutionFailure{Signature: sig.String(), ChainErr: status.ChainErr})
		}
		if !reached(status.Commitment, p.opts.Commitment) {
			return nil, errNotConfirmed
		}
		return status, nil
	}

	return backoff.Retry(ctx, poll,
		backoff.WithBackOff(policy),
		backoff.WithMaxElapsedTime(p.opts.ConfirmTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			p.logger.Debug("Waiting for confirmation",
				zap.String("signature", sig.String()),
				zap.Duration("next_poll", next),
				zap.NamedError("last", err))
		}))
}

func commitmentRank(c rpc.ConfirmationStatusType) int {
	switch c {
	case rpc.ConfirmationStatusProcessed:
		return 1
	case rpc.ConfirmationStatusConfirmed:
		return 2
	case rpc.ConfirmationStatusFinalized:
		return 3
	default:
		return 0
	}
}

func reached(got, want rpc.ConfirmationStatusType) bool {
	return commitmentRank(got) > 0 && commitmentRank(got) >= commitmentRank(want)
}
