// =============================
// File: internal/dex/pumpswap/errors.go
// =============================
package pumpswap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rovshanmuradov/pumpswap-liquidity/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pumpswap-liquidity/internal/liquidity"
)

// Константы для кодов ошибок PumpSwap
const (
	SlippageExceededCode    = "0x1774"
	SlippageExceededCodeInt = 6004
)

// IsSlippageExceededError определяет, является ли ошибка ошибкой превышения проскальзывания.
// Работает и для ошибок симуляции, и для ExecutionFailure с ошибкой из статуса транзакции.
func IsSlippageExceededError(err error) bool {
	if err == nil {
		return false
	}
	var failure *liquidity.ExecutionFailure
	if errors.As(err, &failure) && chainErrIsCustom(failure.ChainErr, SlippageExceededCodeInt) {
		return true
	}
	if anchorErr, ok := solbc.AnchorErrorFrom(err); ok {
		return anchorErr.Code == SlippageExceededCodeInt
	}
	msg := err.Error()
	return strings.Contains(msg, "ExceededSlippage") ||
		strings.Contains(msg, SlippageExceededCode)
}

// chainErrIsCustom проверяет {"InstructionError":[idx,{"Custom":code}]}.
func chainErrIsCustom(chainErr interface{}, code int) bool {
	m, ok := chainErr.(map[string]interface{})
	if !ok {
		return false
	}
	parts, ok := m["InstructionError"].([]interface{})
	if !ok || len(parts) != 2 {
		return false
	}
	custom, ok := parts[1].(map[string]interface{})
	if !ok {
		return false
	}
	switch v := custom["Custom"].(type) {
	case float64:
		return int(v) == code
	case int:
		return v == code
	}
	return false
}

// operationDisabled builds the error returned when the admin switched off an operation.
func operationDisabled(op string, flag uint8) error {
	return &liquidity.Error{
		Op:   op,
		Kind: liquidity.ErrOperationDisabled,
		Err:  fmt.Errorf("global config disable flag %#x is set", flag),
	}
}

// poolNotFound maps a missing pool account to the liquidity error kind.
func poolNotFound(op string, err error) error {
	return &liquidity.Error{Op: op, Kind: liquidity.ErrPoolNotFound, Err: err}
}
