// =============================
// File: internal/dex/pumpswap/transaction.go
// =============================
package pumpswap

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/rovshanmuradov/pumpswap-liquidity/internal/wallet"
)

// userTokenAccount describes one of the user's ATAs touched by a transaction.
type userTokenAccount struct {
	Mint         solana.PublicKey
	TokenProgram solana.PublicKey
	// Lamports to move into the account before the main instruction. Only set
	// for wrapped SOL.
	WrapLamports uint64
}

func (a userTokenAccount) isNativeMint() bool {
	return a.Mint.Equals(solana.SolMint)
}

// PreparedTokenAccounts holds the user ATAs and the instructions that must
// surround the PumpSwap instruction.
type PreparedTokenAccounts struct {
	UserBaseATA  solana.PublicKey
	UserQuoteATA solana.PublicKey
	UserPoolATA  solana.PublicKey

	// Pre runs before the PumpSwap instruction: idempotent ATA creation and
	// WSOL wrapping.
	Pre []solana.Instruction
	// Post closes WSOL accounts so the leftover lamports return to the user.
	Post []solana.Instruction
}

// Wrap returns pre, main and post instructions in execution order.
func (p *PreparedTokenAccounts) Wrap(main solana.Instruction) []solana.Instruction {
	out := make([]solana.Instruction, 0, len(p.Pre)+1+len(p.Post))
	out = append(out, p.Pre...)
	out = append(out, main)
	return append(out, p.Post...)
}

// prepareTokenAccounts подготавливает ATA пользователя и инструкции для их создания.
// LP ATA создаётся только когда withLP установлен: при депозите и создании пула
// её может ещё не быть, при выводе она обязана существовать.
func prepareTokenAccounts(user solana.PublicKey, base, quote userTokenAccount, lpMint solana.PublicKey, withLP bool) (*PreparedTokenAccounts, error) {
	prepared := &PreparedTokenAccounts{}

	for i, acc := range []userTokenAccount{base, quote} {
		ata, err := wallet.FindATA(user, acc.Mint, acc.TokenProgram)
		if err != nil {
			return nil, fmt.Errorf("failed to derive user ata for %s: %w", acc.Mint, err)
		}
		if i == 0 {
			prepared.UserBaseATA = ata
		} else {
			prepared.UserQuoteATA = ata
		}

		createIx, err := wallet.CreateATAIdempotentInstruction(user, user, acc.Mint, acc.TokenProgram)
		if err != nil {
			return nil, err
		}
		prepared.Pre = append(prepared.Pre, createIx)

		if !acc.isNativeMint() {
			continue
		}
		if acc.WrapLamports > 0 {
			prepared.Pre = append(prepared.Pre, wrapSOLInstructions(user, ata, acc.WrapLamports)...)
		}
		prepared.Post = append(prepared.Post, unwrapSOLInstruction(user, ata))
	}

	lpATA, err := wallet.FindATA(user, lpMint, Token2022ProgramID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive user lp ata: %w", err)
	}
	prepared.UserPoolATA = lpATA
	if withLP {
		createIx, err := wallet.CreateATAIdempotentInstruction(user, user, lpMint, Token2022ProgramID)
		if err != nil {
			return nil, err
		}
		prepared.Pre = append(prepared.Pre, createIx)
	}

	return prepared, nil
}

// wrapSOLInstructions переводит lamports на WSOL-аккаунт и синхронизирует его баланс.
func wrapSOLInstructions(owner, wsolATA solana.PublicKey, lamports uint64) []solana.Instruction {
	return []solana.Instruction{
		system.NewTransferInstruction(lamports, owner, wsolATA).Build(),
		token.NewSyncNativeInstruction(wsolATA).Build(),
	}
}

// unwrapSOLInstruction закрывает WSOL-аккаунт, возвращая SOL владельцу.
func unwrapSOLInstruction(owner, wsolATA solana.PublicKey) solana.Instruction {
	return token.NewCloseAccountInstruction(wsolATA, owner, owner, []solana.PublicKey{}).Build()
}
