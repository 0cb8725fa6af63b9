package math

import (
	"math/big"

	"github.com/krazyTry/cpamm-go/amm/shared"
)

var bigOne = big.NewInt(1)

// MulDiv computes x*y/denominator on widened integers and rounds the single
// final division in the requested direction.
func MulDiv(x, y, denominator *big.Int, rounding shared.Rounding) (*big.Int, error) {
	if denominator.Sign() == 0 {
		return nil, shared.ErrDivisionByZero
	}
	if denominator.Sign() < 0 {
		return nil, shared.ErrInvalidAmount
	}
	mul := new(big.Int).Mul(x, y)
	// DivMod is Euclidean: with a positive denominator div is the floor.
	div, mod := new(big.Int).DivMod(mul, denominator, new(big.Int))
	if rounding == shared.RoundingUp && mod.Sign() != 0 {
		div.Add(div, bigOne)
	}
	return div, nil
}

// ToU64 narrows v, failing instead of wrapping.
func ToU64(v *big.Int) (uint64, error) {
	if v.Sign() < 0 || v.Cmp(shared.U64Max) > 0 {
		return 0, shared.ErrOverflow
	}
	return v.Uint64(), nil
}

func MulDivU64(x, y, denominator uint64, rounding shared.Rounding) (uint64, error) {
	out, err := MulDiv(u64(x), u64(y), u64(denominator), rounding)
	if err != nil {
		return 0, err
	}
	return ToU64(out)
}

func CheckedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, shared.ErrOverflow
	}
	return sum, nil
}

func CheckedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, shared.ErrOverflow
	}
	return a - b, nil
}

func Sqrt(value *big.Int) *big.Int {
	if value == nil || value.Sign() == 0 {
		return big.NewInt(0)
	}
	if value.Cmp(bigOne) == 0 {
		return big.NewInt(1)
	}

	x := new(big.Int).Set(value)
	y := new(big.Int).Add(value, bigOne)
	y.Rsh(y, 1)

	for y.Cmp(x) < 0 {
		x.Set(y)
		y = new(big.Int).Add(x, new(big.Int).Div(value, x))
		y.Rsh(y, 1)
	}

	return x
}

// Pow10 returns 10^n.
func Pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func u64(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}
