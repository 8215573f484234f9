package cli

import (
	"errors"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/pumpswap-liquidity/internal/dex/pumpswap"
	"github.com/rovshanmuradov/pumpswap-liquidity/internal/liquidity"
	"github.com/rovshanmuradov/pumpswap-liquidity/internal/ui/style"
)

var outcomeStyles = style.NewOutcomeStyles(style.DefaultPalette())

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		outcomeStyles.Label.Render(label),
		outcomeStyles.Value.Render(value))
}

// renderOutcome formats the result of one operation as a bordered summary.
func renderOutcome(title string, pool solana.PublicKey, outcome *liquidity.TransactionOutcome, err error) string {
	lines := []string{outcomeStyles.Title.Render(title)}
	if !pool.IsZero() {
		lines = append(lines, row("Pool", pool.String()))
	}

	if outcome != nil && outcome.Signature != (solana.Signature{}) {
		lines = append(lines, row("Signature", outcome.Signature.String()))
		if outcome.Slot > 0 {
			lines = append(lines, row("Slot", strconv.FormatUint(outcome.Slot, 10)))
		}
	}

	cause := err
	if cause == nil && outcome != nil {
		cause = outcome.Err
	}

	var status string
	switch {
	case cause == nil && outcome != nil && outcome.Confirmed:
		status = outcomeStyles.Confirmed.Render("CONFIRMED")
	case errors.Is(cause, liquidity.ErrConfirmationTimeout):
		status = outcomeStyles.Unconfirmed.Render("UNCONFIRMED")
	case outcome == nil && liquidity.IsValidation(cause):
		// nothing was signed or sent
		status = outcomeStyles.Rejected.Render("REJECTED")
	default:
		status = outcomeStyles.Failed.Render("FAILED")
	}
	lines = append(lines, row("Status", status))

	if cause != nil {
		lines = append(lines, row("Error", cause.Error()))
		if hint := hintFor(cause); hint != "" {
			lines = append(lines, outcomeStyles.Hint.Render(hint))
		}
	}

	return outcomeStyles.Container.Render(strings.Join(lines, "\n"))
}

// hintFor suggests the next step for errors a user can act on.
func hintFor(err error) string {
	switch {
	case pumpswap.IsSlippageExceededError(err):
		return "Reserves moved past the slippage bound; retry with a larger --slippage-bps."
	case liquidity.IsStaleBlockhash(err):
		return "The blockhash expired before the transaction landed; run the command again."
	case errors.Is(err, liquidity.ErrConfirmationTimeout):
		return "The transaction may still land; check the signature before retrying."
	case errors.Is(err, liquidity.ErrPoolNotFound):
		return "Create the pool first with create-pool."
	case errors.Is(err, liquidity.ErrPoolAlreadyExists):
		return "Use a different POOL_INDEX or add liquidity to the existing pool."
	case errors.Is(err, liquidity.ErrInsufficientSupply):
		return "Withdraw at most the outstanding LP supply."
	case errors.Is(err, liquidity.ErrSignerMismatch):
		return "Drop --user or pass the wallet's own address."
	}
	return ""
}
