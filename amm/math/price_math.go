package math

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/krazyTry/cpamm-go/amm/shared"
)

var hundred = decimal.NewFromInt(100)

// SpotPrice returns the marginal price of one X in units of Y, adjusted for
// token decimals.
func SpotPrice(reserveX, reserveY uint64, decimalsX, decimalsY uint8) decimal.Decimal {
	if reserveX == 0 {
		return decimal.Zero
	}
	x := ToUIAmount(reserveX, decimalsX)
	y := ToUIAmount(reserveY, decimalsY)
	return y.Div(x)
}

// ExecutionPrice is output received per unit of input.
func ExecutionPrice(amountIn, amountOut uint64) decimal.Decimal {
	if amountIn == 0 {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(u64(amountOut), 0).Div(decimal.NewFromBigInt(u64(amountIn), 0))
}

// PriceImpact returns |execution - spot| / spot in percent, where spot is
// reserveOut/reserveIn before the trade.
func PriceImpact(reserveIn, reserveOut, amountIn, amountOut uint64) (decimal.Decimal, error) {
	if amountIn == 0 {
		return decimal.Zero, nil
	}
	if amountOut == 0 {
		return decimal.Zero, errors.New("amount out must be greater than 0")
	}
	if reserveIn == 0 || reserveOut == 0 {
		return decimal.Zero, shared.ErrInsufficientLiquidity
	}
	spot := decimal.NewFromBigInt(u64(reserveOut), 0).Div(decimal.NewFromBigInt(u64(reserveIn), 0))
	execution := ExecutionPrice(amountIn, amountOut)
	return execution.Sub(spot).Abs().Div(spot).Mul(hundred), nil
}

// MinAmountWithSlippage lowers amount by slippageBps, for output floors.
func MinAmountWithSlippage(amount uint64, slippageBps uint16) uint64 {
	if slippageBps == 0 {
		return amount
	}
	if slippageBps >= shared.BasisPointMax {
		return 0
	}
	factor := big.NewInt(int64(shared.BasisPointMax - slippageBps))
	out := new(big.Int).Mul(u64(amount), factor)
	return out.Div(out, shared.BasisPointMaxBig).Uint64()
}

// MaxAmountWithSlippage raises amount by slippageBps, for input ceilings.
// The result saturates at the u64 max.
func MaxAmountWithSlippage(amount uint64, slippageBps uint16) uint64 {
	if slippageBps == 0 {
		return amount
	}
	factor := big.NewInt(int64(shared.BasisPointMax) + int64(slippageBps))
	out, _ := MulDiv(u64(amount), factor, shared.BasisPointMaxBig, shared.RoundingUp)
	v, err := ToU64(out)
	if err != nil {
		return ^uint64(0)
	}
	return v
}

// ToUIAmount converts base units to a decimal token amount.
func ToUIAmount(amount uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(u64(amount), -int32(decimals))
}

// FromUIAmount converts a decimal token amount to base units, truncating.
func FromUIAmount(amount decimal.Decimal, decimals uint8) (uint64, error) {
	if amount.IsNegative() {
		return 0, shared.ErrInvalidAmount
	}
	return ToU64(amount.Shift(int32(decimals)).Floor().BigInt())
}
