// =============================
// File: internal/liquidity/quoter.go
// =============================
package liquidity

import (
	"fmt"
	"math/big"
)

// LiquidityQuote is computed from one PoolState snapshot and is only valid
// until the transaction built from it lands.
type LiquidityQuote struct {
	InputSide   Side
	Input       TokenAmount
	Counter     TokenAmount
	LPShare     TokenAmount
	SlippageBps int

	// Deposit limits, zero for withdrawals.
	MaxBase  TokenAmount
	MaxQuote TokenAmount
	// Withdraw limits, zero for deposits.
	MinBase  TokenAmount
	MinQuote TokenAmount
}

// Quoter balances deposits and withdrawals against current reserves.
type Quoter struct {
	baseDecimals  uint8
	quoteDecimals uint8
}

// NewQuoter returns a quoter for a pair with the given precisions.
func NewQuoter(baseDecimals, quoteDecimals uint8) *Quoter {
	return &Quoter{baseDecimals: baseDecimals, quoteDecimals: quoteDecimals}
}

// ValidateSlippage checks bps is within [0, 10000].
func ValidateSlippage(slippageBps int) error {
	if slippageBps < 0 || slippageBps > MaxSlippageBps {
		return newError("validate_slippage", ErrInvalidSlippage,
			fmt.Errorf("%d bps outside [0, %d]", slippageBps, MaxSlippageBps))
	}
	return nil
}

// QuoteDepositFromBase computes the quote amount and LP share matching a base deposit.
func (q *Quoter) QuoteDepositFromBase(state *PoolState, base TokenAmount, slippageBps int) (*LiquidityQuote, error) {
	return q.quoteDeposit(state, SideBase, base, slippageBps)
}

// QuoteDepositFromQuote computes the base amount and LP share matching a quote deposit.
func (q *Quoter) QuoteDepositFromQuote(state *PoolState, quote TokenAmount, slippageBps int) (*LiquidityQuote, error) {
	return q.quoteDeposit(state, SideQuote, quote, slippageBps)
}

func (q *Quoter) quoteDeposit(state *PoolState, side Side, input TokenAmount, slippageBps int) (*LiquidityQuote, error) {
	if err := ValidateSlippage(slippageBps); err != nil {
		return nil, err
	}
	if err := checkReserves(state); err != nil {
		return nil, err
	}
	if input.IsZero() {
		return nil, newError("quote_deposit", ErrInvalidAmount, fmt.Errorf("zero %s amount", side))
	}

	inReserve, outReserve := state.BaseReserves, state.QuoteReserves
	counterDecimals := q.quoteDecimals
	if side == SideQuote {
		inReserve, outReserve = state.QuoteReserves, state.BaseReserves
		counterDecimals = q.baseDecimals
	}

	counter, err := mulDiv(input.Raw, outReserve, inReserve, true)
	if err != nil {
		return nil, newError("quote_deposit", ErrInvalidAmount, err)
	}
	lp, err := mulDiv(input.Raw, state.LPSupply, inReserve, false)
	if err != nil {
		return nil, newError("quote_deposit", ErrInvalidAmount, err)
	}
	if lp == 0 {
		return nil, newError("quote_deposit", ErrInvalidAmount,
			fmt.Errorf("%s amount %d too small to mint lp tokens", side, input.Raw))
	}

	maxBase, maxQuote, err := DepositLimits(state, lp, slippageBps)
	if err != nil {
		return nil, err
	}

	return &LiquidityQuote{
		InputSide:   side,
		Input:       input,
		Counter:     NewTokenAmount(counter, counterDecimals),
		LPShare:     NewTokenAmount(lp, LPDecimals),
		SlippageBps: slippageBps,
		MaxBase:     NewTokenAmount(maxBase, q.baseDecimals),
		MaxQuote:    NewTokenAmount(maxQuote, q.quoteDecimals),
	}, nil
}

// QuoteWithdraw computes the minimum base and quote returned for burning lp.
func (q *Quoter) QuoteWithdraw(state *PoolState, lp TokenAmount, slippageBps int) (*LiquidityQuote, error) {
	if err := ValidateSlippage(slippageBps); err != nil {
		return nil, err
	}
	if err := checkReserves(state); err != nil {
		return nil, err
	}
	if lp.IsZero() {
		return nil, newError("quote_withdraw", ErrInvalidAmount, fmt.Errorf("zero lp amount"))
	}

	base, err := mulDiv(lp.Raw, state.BaseReserves, state.LPSupply, false)
	if err != nil {
		return nil, newError("quote_withdraw", ErrInvalidAmount, err)
	}
	quote, err := mulDiv(lp.Raw, state.QuoteReserves, state.LPSupply, false)
	if err != nil {
		return nil, newError("quote_withdraw", ErrInvalidAmount, err)
	}
	minBase, minQuote, err := WithdrawLimits(state, lp.Raw, slippageBps)
	if err != nil {
		return nil, err
	}

	return &LiquidityQuote{
		InputSide:   SideBase,
		Input:       NewTokenAmount(base, q.baseDecimals),
		Counter:     NewTokenAmount(quote, q.quoteDecimals),
		LPShare:     lp,
		SlippageBps: slippageBps,
		MinBase:     NewTokenAmount(minBase, q.baseDecimals),
		MinQuote:    NewTokenAmount(minQuote, q.quoteDecimals),
	}, nil
}

// DepositLimits returns the most base and quote the program may pull for
// minting lp tokens: ceil(lp*reserve/supply) widened by slippageBps.
func DepositLimits(state *PoolState, lp uint64, slippageBps int) (uint64, uint64, error) {
	if err := ValidateSlippage(slippageBps); err != nil {
		return 0, 0, err
	}
	if err := checkReserves(state); err != nil {
		return 0, 0, err
	}
	base, err := mulDiv(lp, state.BaseReserves, state.LPSupply, true)
	if err != nil {
		return 0, 0, newError("deposit_limits", ErrInvalidAmount, err)
	}
	quote, err := mulDiv(lp, state.QuoteReserves, state.LPSupply, true)
	if err != nil {
		return 0, 0, newError("deposit_limits", ErrInvalidAmount, err)
	}
	maxBase, err := mulDiv(base, uint64(MaxSlippageBps+slippageBps), MaxSlippageBps, true)
	if err != nil {
		return 0, 0, newError("deposit_limits", ErrInvalidAmount, err)
	}
	maxQuote, err := mulDiv(quote, uint64(MaxSlippageBps+slippageBps), MaxSlippageBps, true)
	if err != nil {
		return 0, 0, newError("deposit_limits", ErrInvalidAmount, err)
	}
	return maxBase, maxQuote, nil
}

// WithdrawLimits returns the least base and quote the program must pay out for
// burning lp: floor(lp*reserve/supply) narrowed by slippageBps.
func WithdrawLimits(state *PoolState, lp uint64, slippageBps int) (uint64, uint64, error) {
	if err := ValidateSlippage(slippageBps); err != nil {
		return 0, 0, err
	}
	if err := checkReserves(state); err != nil {
		return 0, 0, err
	}
	base, err := mulDiv(lp, state.BaseReserves, state.LPSupply, false)
	if err != nil {
		return 0, 0, newError("withdraw_limits", ErrInvalidAmount, err)
	}
	quote, err := mulDiv(lp, state.QuoteReserves, state.LPSupply, false)
	if err != nil {
		return 0, 0, newError("withdraw_limits", ErrInvalidAmount, err)
	}
	keep := uint64(MaxSlippageBps - slippageBps)
	minBase, err := mulDiv(base, keep, MaxSlippageBps, false)
	if err != nil {
		return 0, 0, newError("withdraw_limits", ErrInvalidAmount, err)
	}
	minQuote, err := mulDiv(quote, keep, MaxSlippageBps, false)
	if err != nil {
		return 0, 0, newError("withdraw_limits", ErrInvalidAmount, err)
	}
	return minBase, minQuote, nil
}

func checkReserves(state *PoolState) error {
	if state == nil {
		return newError("check_reserves", ErrEmptyPool, fmt.Errorf("no pool state"))
	}
	if state.BaseReserves == 0 || state.QuoteReserves == 0 || state.LPSupply == 0 {
		return newError("check_reserves", ErrEmptyPool, fmt.Errorf(
			"base=%d quote=%d lp_supply=%d", state.BaseReserves, state.QuoteReserves, state.LPSupply))
	}
	return nil
}

// mulDiv computes a*b/d on big.Int, rounding up when ceil is set.
func mulDiv(a, b, d uint64, ceil bool) (uint64, error) {
	if d == 0 {
		return 0, fmt.Errorf("division by zero")
	}
	num := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	den := new(big.Int).SetUint64(d)
	quo, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	if ceil && rem.Sign() != 0 {
		quo.Add(quo, big.NewInt(1))
	}
	if !quo.IsUint64() {
		return 0, fmt.Errorf("%d*%d/%d overflows u64", a, b, d)
	}
	return quo.Uint64(), nil
}
