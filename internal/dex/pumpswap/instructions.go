// =============================
// File: internal/dex/pumpswap/instructions.go
// =============================
package pumpswap

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Instruction discriminators extracted from the IDL
var (
	createPoolDiscriminator = []byte{233, 146, 209, 142, 207, 104, 64, 188}
	depositDiscriminator    = []byte{242, 35, 198, 137, 82, 225, 242, 182}
	withdrawDiscriminator   = []byte{183, 18, 70, 156, 148, 109, 161, 34}
)

// createPoolArgs mirrors the borsh layout of create_pool.
type createPoolArgs struct {
	Index         uint16
	BaseAmountIn  uint64
	QuoteAmountIn uint64
	CoinCreator   solana.PublicKey
}

// depositArgs mirrors the borsh layout of deposit.
type depositArgs struct {
	LPTokenAmountOut uint64
	MaxBaseAmountIn  uint64
	MaxQuoteAmountIn uint64
}

// withdrawArgs mirrors the borsh layout of withdraw.
type withdrawArgs struct {
	LPTokenAmountIn   uint64
	MinBaseAmountOut  uint64
	MinQuoteAmountOut uint64
}

// encodeInstructionData пишет дискриминатор и borsh-аргументы инструкции.
func encodeInstructionData(discriminator []byte, args interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(discriminator, false); err != nil {
		return nil, fmt.Errorf("failed to write discriminator: %w", err)
	}
	if err := enc.Encode(args); err != nil {
		return nil, fmt.Errorf("failed to encode instruction args: %w", err)
	}
	return buf.Bytes(), nil
}

// CreatePoolInstructionParams contains all parameters needed to create a create_pool instruction
type CreatePoolInstructionParams struct {
	Index   uint16
	Creator solana.PublicKey

	PoolAddress           solana.PublicKey
	BaseMint              solana.PublicKey
	QuoteMint             solana.PublicKey
	LPMint                solana.PublicKey
	UserBaseTokenAccount  solana.PublicKey
	UserQuoteTokenAccount solana.PublicKey
	UserPoolTokenAccount  solana.PublicKey
	PoolBaseTokenAccount  solana.PublicKey
	PoolQuoteTokenAccount solana.PublicKey
	BaseTokenProgram      solana.PublicKey
	QuoteTokenProgram     solana.PublicKey

	BaseAmountIn  uint64
	QuoteAmountIn uint64
}

// createPoolInstruction creates the PumpSwap create_pool instruction
func (cfg *Config) createPoolInstruction(params *CreatePoolInstructionParams) (solana.Instruction, error) {
	data, err := encodeInstructionData(createPoolDiscriminator, createPoolArgs{
		Index:         params.Index,
		BaseAmountIn:  params.BaseAmountIn,
		QuoteAmountIn: params.QuoteAmountIn,
	})
	if err != nil {
		return nil, err
	}

	accountMetas := []*solana.AccountMeta{
		solana.NewAccountMeta(params.PoolAddress, true, false),
		solana.NewAccountMeta(cfg.GlobalConfig, false, false),
		solana.NewAccountMeta(params.Creator, true, true),
		solana.NewAccountMeta(params.BaseMint, false, false),
		solana.NewAccountMeta(params.QuoteMint, false, false),
		solana.NewAccountMeta(params.LPMint, true, false),
		solana.NewAccountMeta(params.UserBaseTokenAccount, true, false),
		solana.NewAccountMeta(params.UserQuoteTokenAccount, true, false),
		solana.NewAccountMeta(params.UserPoolTokenAccount, true, false),
		solana.NewAccountMeta(params.PoolBaseTokenAccount, true, false),
		solana.NewAccountMeta(params.PoolQuoteTokenAccount, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(Token2022ProgramID, false, false),
		solana.NewAccountMeta(params.BaseTokenProgram, false, false),
		solana.NewAccountMeta(params.QuoteTokenProgram, false, false),
		solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
		solana.NewAccountMeta(cfg.EventAuthority, false, false),
		solana.NewAccountMeta(cfg.ProgramID, false, false),
	}

	return solana.NewInstruction(cfg.ProgramID, accountMetas, data), nil
}

// LiquidityInstructionParams contains the accounts shared by deposit and withdraw
type LiquidityInstructionParams struct {
	IsDeposit bool

	PoolAddress           solana.PublicKey
	User                  solana.PublicKey
	BaseMint              solana.PublicKey
	QuoteMint             solana.PublicKey
	LPMint                solana.PublicKey
	UserBaseTokenAccount  solana.PublicKey
	UserQuoteTokenAccount solana.PublicKey
	UserPoolTokenAccount  solana.PublicKey
	PoolBaseTokenAccount  solana.PublicKey
	PoolQuoteTokenAccount solana.PublicKey

	// For deposit: LPAmount = lp out, BaseLimit/QuoteLimit = max in
	// For withdraw: LPAmount = lp in, BaseLimit/QuoteLimit = min out
	LPAmount   uint64
	BaseLimit  uint64
	QuoteLimit uint64
}

// liquidityInstruction creates a deposit or withdraw instruction
func (cfg *Config) liquidityInstruction(params *LiquidityInstructionParams) (solana.Instruction, error) {
	var (
		data []byte
		err  error
	)
	if params.IsDeposit {
		data, err = encodeInstructionData(depositDiscriminator, depositArgs{
			LPTokenAmountOut: params.LPAmount,
			MaxBaseAmountIn:  params.BaseLimit,
			MaxQuoteAmountIn: params.QuoteLimit,
		})
	} else {
		data, err = encodeInstructionData(withdrawDiscriminator, withdrawArgs{
			LPTokenAmountIn:   params.LPAmount,
			MinBaseAmountOut:  params.BaseLimit,
			MinQuoteAmountOut: params.QuoteLimit,
		})
	}
	if err != nil {
		return nil, err
	}

	// Пул хранит токены только в классическом SPL Token программе,
	// LP-токен всегда выпускается через Token-2022.
	accountMetas := []*solana.AccountMeta{
		solana.NewAccountMeta(params.PoolAddress, true, false),
		solana.NewAccountMeta(cfg.GlobalConfig, false, false),
		solana.NewAccountMeta(params.User, false, true),
		solana.NewAccountMeta(params.BaseMint, false, false),
		solana.NewAccountMeta(params.QuoteMint, false, false),
		solana.NewAccountMeta(params.LPMint, true, false),
		solana.NewAccountMeta(params.UserBaseTokenAccount, true, false),
		solana.NewAccountMeta(params.UserQuoteTokenAccount, true, false),
		solana.NewAccountMeta(params.UserPoolTokenAccount, true, false),
		solana.NewAccountMeta(params.PoolBaseTokenAccount, true, false),
		solana.NewAccountMeta(params.PoolQuoteTokenAccount, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(Token2022ProgramID, false, false),
		solana.NewAccountMeta(cfg.EventAuthority, false, false),
		solana.NewAccountMeta(cfg.ProgramID, false, false),
	}

	return solana.NewInstruction(cfg.ProgramID, accountMetas, data), nil
}
