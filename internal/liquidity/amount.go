// =============================
// File: internal/liquidity/amount.go
// =============================
package liquidity

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// maxDecimals keeps 10^decimals inside uint64.
const maxDecimals = 19

var maxRaw = decimal.NewFromUint64(math.MaxUint64)

// TokenAmount is a fixed-point magnitude together with the precision it was
// scaled by.
type TokenAmount struct {
	Raw      uint64
	Decimals uint8
}

// NewTokenAmount wraps an already scaled magnitude.
func NewTokenAmount(raw uint64, decimals uint8) TokenAmount {
	return TokenAmount{Raw: raw, Decimals: decimals}
}

// IsZero reports whether the magnitude is zero.
func (a TokenAmount) IsZero() bool { return a.Raw == 0 }

// String renders the human value, e.g. "1.5".
func (a TokenAmount) String() string { return ToHuman(a).String() }

// ToFixedPoint scales a human amount by 10^decimals. Fractional digits beyond
// the precision are rounded half away from zero, so 0.0000005 with 6 decimals
// becomes 1 and 0.0000004 becomes 0.
func ToFixedPoint(human decimal.Decimal, decimals int) (TokenAmount, error) {
	if decimals < 0 || decimals > maxDecimals {
		return TokenAmount{}, newError("to_fixed_point", ErrInvalidAmount,
			fmt.Errorf("decimals %d out of range [0, %d]", decimals, maxDecimals))
	}
	if human.IsNegative() {
		return TokenAmount{}, newError("to_fixed_point", ErrInvalidAmount,
			fmt.Errorf("negative amount %s", human.String()))
	}

	scaled := human.Shift(int32(decimals)).Round(0)
	if scaled.GreaterThan(maxRaw) {
		return TokenAmount{}, newError("to_fixed_point", ErrInvalidAmount,
			fmt.Errorf("%s with %d decimals overflows u64", human.String(), decimals))
	}

	return TokenAmount{Raw: scaled.BigInt().Uint64(), Decimals: uint8(decimals)}, nil
}

// ToHuman converts a fixed-point amount back to its decimal value.
func ToHuman(amount TokenAmount) decimal.Decimal {
	return decimal.NewFromUint64(amount.Raw).Shift(-int32(amount.Decimals))
}

// ParseHuman parses a user supplied amount such as "1000" or "0.25".
func ParseHuman(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, newError("parse_amount", ErrInvalidAmount, err)
	}
	return d, nil
}
