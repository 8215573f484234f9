// =============================
// File: internal/liquidity/types.go
// =============================
package liquidity

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
)

// LPDecimals is the precision of PumpSwap LP mints.
const LPDecimals = 9

// MaxSlippageBps is 100%.
const MaxSlippageBps = 10_000

// Side selects which token of the pair an input amount refers to.
type Side int

const (
	SideBase Side = iota
	SideQuote
)

func (s Side) String() string {
	if s == SideBase {
		return "base"
	}
	return "quote"
}

// PoolIdentity is everything the pool address is derived from.
type PoolIdentity struct {
	CreatorIndex uint16
	Creator      solana.PublicKey
	BaseMint     solana.PublicKey
	QuoteMint    solana.PublicKey
}

// PoolState is a single snapshot of a pool and the accounts a user needs to
// interact with it.
type PoolState struct {
	Pool      solana.PublicKey
	User      solana.PublicKey
	BaseMint  solana.PublicKey
	QuoteMint solana.PublicKey
	LPMint    solana.PublicKey

	PoolBaseTokenAccount  solana.PublicKey
	PoolQuoteTokenAccount solana.PublicKey
	BaseTokenProgram      solana.PublicKey
	QuoteTokenProgram     solana.PublicKey

	BaseReserves  uint64
	QuoteReserves uint64
	LPSupply      uint64
}

// SignatureStatus is the node's view of a submitted transaction.
type SignatureStatus struct {
	Slot uint64
	// Commitment reached so far; empty while the transaction is unknown.
	Commitment rpc.ConfirmationStatusType
	// ChainErr is the program error of an included transaction, nil on success.
	ChainErr interface{}
}

// Node is the RPC collaborator.
type Node interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	SendRawTransaction(ctx context.Context, raw []byte) (solana.Signature, error)
	// SignatureStatus returns nil while the node has not seen the transaction.
	SignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error)
	AccountExists(ctx context.Context, address solana.PublicKey) (bool, error)
	TokenSupply(ctx context.Context, mint solana.PublicKey) (TokenAmount, error)
}

// InstructionBuilder is the AMM protocol collaborator. It derives addresses and
// encodes instructions; the slippage bound it receives is enforced on-chain.
type InstructionBuilder interface {
	DerivePoolAddress(id PoolIdentity) (solana.PublicKey, error)
	CreatePoolInstructions(ctx context.Context, id PoolIdentity, base, quote TokenAmount) ([]solana.Instruction, error)
	InitialPrice(base, quote TokenAmount) decimal.Decimal
	LiquidityState(ctx context.Context, pool, user solana.PublicKey) (*PoolState, error)
	DepositInstructions(ctx context.Context, state *PoolState, lp TokenAmount, slippageBps int) ([]solana.Instruction, error)
	WithdrawInstructions(ctx context.Context, state *PoolState, lp TokenAmount, slippageBps int) ([]solana.Instruction, error)
}

// Signer is the single credential every transaction is paid and signed by.
type Signer interface {
	PublicKey() solana.PublicKey
	SignTransaction(tx *solana.Transaction) error
}

// Recorder receives operation metrics. Implemented by internal/utils/metrics.
type Recorder interface {
	RecordOperation(op string, err error, seconds float64)
	RecordTransition(state TxState)
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(string, error, float64) {}
func (nopRecorder) RecordTransition(TxState)               {}

// LPSupplyCheck guards withdrawals: the burn may not exceed what is outstanding.
type LPSupplyCheck struct {
	Requested   TokenAmount
	Outstanding TokenAmount
}

// Validate fails with ErrInsufficientSupply when Requested > Outstanding.
func (c LPSupplyCheck) Validate() error {
	if c.Requested.Raw > c.Outstanding.Raw {
		return newError("lp_supply_check", ErrInsufficientSupply,
			fmt.Errorf("requested %s lp, outstanding supply %s", c.Requested, c.Outstanding))
	}
	return nil
}
