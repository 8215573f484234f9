// =============================
// File: internal/liquidity/errors.go
// =============================
package liquidity

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every failure returned by this package matches exactly one of
// them via errors.Is.
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidSlippage     = errors.New("invalid slippage")
	ErrSignerMismatch      = errors.New("user must be the signing wallet")
	ErrPoolNotFound        = errors.New("pool not found")
	ErrPoolAlreadyExists   = errors.New("pool already exists")
	ErrEmptyPool           = errors.New("pool has no liquidity")
	ErrInsufficientSupply  = errors.New("insufficient lp supply")
	ErrOperationDisabled   = errors.New("operation disabled by program admin")
	ErrNetwork             = errors.New("network error")
	ErrSubmission          = errors.New("submission rejected")
	ErrExecution           = errors.New("execution failed")
	ErrConfirmationTimeout = errors.New("confirmation timeout")
)

// Error carries the operation that failed, its kind and the underlying cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op string, kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// IsValidation reports whether err was raised before anything reached the chain.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidSlippage) ||
		errors.Is(err, ErrSignerMismatch) ||
		errors.Is(err, ErrPoolNotFound) ||
		errors.Is(err, ErrPoolAlreadyExists) ||
		errors.Is(err, ErrEmptyPool) ||
		errors.Is(err, ErrInsufficientSupply) ||
		errors.Is(err, ErrOperationDisabled)
}

// IsStaleBlockhash reports whether the node rejected the transaction because
// its blockhash expired. The whole lifecycle has to be re-run in that case.
func IsStaleBlockhash(err error) bool {
	if err == nil || !errors.Is(err, ErrSubmission) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "BlockhashNotFound") ||
		strings.Contains(msg, "Blockhash not found") ||
		strings.Contains(msg, "block height exceeded")
}

// ExecutionFailure is the on-chain error reported for an included transaction.
type ExecutionFailure struct {
	Signature string
	ChainErr  interface{}
}

func (e *ExecutionFailure) Error() string {
	return fmt.Sprintf("transaction %s failed on-chain: %v", e.Signature, e.ChainErr)
}
