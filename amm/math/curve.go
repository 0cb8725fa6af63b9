package math

import (
	"math/big"

	binary "github.com/gagliardetto/binary"

	"github.com/krazyTry/cpamm-go/amm/shared"
	"github.com/krazyTry/cpamm-go/u128"
)

// PairAmounts is a matched pair of X and Y amounts.
type PairAmounts struct {
	X uint64
	Y uint64
}

type BootstrapResult struct {
	AmountX   uint64
	AmountY   uint64
	Liquidity uint64
}

type SwapResult struct {
	AmountIn      uint64
	AmountInNet   uint64
	Fee           uint64
	AmountOut     uint64
	NewReserveIn  uint64
	NewReserveOut uint64
}

// Bootstrap sizes the first deposit into an empty pool. The pair ratio is
// taken as given and becomes the initial price.
func Bootstrap(policy shared.BootstrapPolicy, desiredLiquidity, amountX, amountY uint64) (BootstrapResult, error) {
	if amountX == 0 || amountY == 0 || desiredLiquidity == 0 {
		return BootstrapResult{}, shared.ErrInvalidAmount
	}

	minted := desiredLiquidity
	if policy == shared.BootstrapGeometricMean {
		root := Sqrt(new(big.Int).Mul(u64(amountX), u64(amountY)))
		// sqrt of a u128 product always fits in u64
		minted = root.Uint64()
		if minted < desiredLiquidity {
			return BootstrapResult{}, shared.ErrSlippageExceeded
		}
	}

	return BootstrapResult{
		AmountX:   amountX,
		AmountY:   amountY,
		Liquidity: minted,
	}, nil
}

// QuoteDeposit returns the pair a depositor must add to receive liquidity
// shares. Amounts round up.
//
// With precisionDigits == 0 each side is ceil(liquidity*reserve/supply).
// Otherwise the share ratio liquidity/supply is first quantised to
// 10^-precisionDigits.
func QuoteDeposit(reserveX, reserveY, supply, liquidity uint64, precisionDigits uint8) (PairAmounts, error) {
	return pairFromLiquidity(reserveX, reserveY, supply, liquidity, precisionDigits, shared.RoundingUp)
}

// QuoteWithdraw returns the pair paid out for burning liquidity shares.
// Amounts round down, so a withdrawer never receives more than the exact
// pro-rata share.
func QuoteWithdraw(reserveX, reserveY, supply, liquidity uint64, precisionDigits uint8) (PairAmounts, error) {
	if liquidity > supply && supply != 0 {
		return PairAmounts{}, shared.ErrInvalidAmount
	}
	return pairFromLiquidity(reserveX, reserveY, supply, liquidity, precisionDigits, shared.RoundingDown)
}

func pairFromLiquidity(reserveX, reserveY, supply, liquidity uint64, precisionDigits uint8, rounding shared.Rounding) (PairAmounts, error) {
	if precisionDigits > shared.MaxPrecisionDigits {
		return PairAmounts{}, shared.ErrInvalidPrecision
	}
	if supply == 0 {
		return PairAmounts{}, shared.ErrDivisionByZero
	}
	if liquidity == 0 {
		return PairAmounts{}, shared.ErrInvalidAmount
	}
	if reserveX == 0 || reserveY == 0 {
		return PairAmounts{}, shared.ErrInsufficientLiquidity
	}

	numerator := u64(liquidity)
	denominator := u64(supply)
	if precisionDigits > 0 {
		scale := Pow10(precisionDigits)
		ratio, err := MulDiv(numerator, scale, denominator, rounding)
		if err != nil {
			return PairAmounts{}, err
		}
		numerator, denominator = ratio, scale
	}

	x, err := MulDiv(numerator, u64(reserveX), denominator, rounding)
	if err != nil {
		return PairAmounts{}, err
	}
	y, err := MulDiv(numerator, u64(reserveY), denominator, rounding)
	if err != nil {
		return PairAmounts{}, err
	}

	out := PairAmounts{}
	if out.X, err = ToU64(x); err != nil {
		return PairAmounts{}, err
	}
	if out.Y, err = ToU64(y); err != nil {
		return PairAmounts{}, err
	}
	return out, nil
}

// QuoteSwap prices an exact-input trade. The fee is taken from the input leg
// and stays in the pool:
//
//	amountInNet = amountIn * (10000 - feeBps) / 10000
//	amountOut   = reserveOut - ceil(reserveIn * reserveOut / (reserveIn + amountInNet))
//
// Rounding the retained reserve up keeps x*y from decreasing.
func QuoteSwap(reserveIn, reserveOut, amountIn uint64, feeBps uint16) (SwapResult, error) {
	if amountIn == 0 {
		return SwapResult{}, shared.ErrInvalidAmount
	}
	if feeBps > shared.BasisPointMax {
		return SwapResult{}, shared.ErrInvalidFee
	}
	if reserveIn == 0 || reserveOut == 0 {
		return SwapResult{}, shared.ErrInsufficientLiquidity
	}

	net, err := MulDivU64(amountIn, uint64(shared.BasisPointMax-feeBps), shared.BasisPointMax, shared.RoundingDown)
	if err != nil {
		return SwapResult{}, err
	}

	denominator := new(big.Int).Add(u64(reserveIn), u64(net))
	if denominator.Sign() == 0 {
		return SwapResult{}, shared.ErrDivisionByZero
	}
	// The retained reserve rounds up so k cannot fall at fee 0. amountOut can
	// land one unit below reserveOut*net/(reserveIn+net) truncated.
	retained, err := MulDiv(u64(reserveIn), u64(reserveOut), denominator, shared.RoundingUp)
	if err != nil {
		return SwapResult{}, err
	}
	newReserveOut, err := ToU64(retained)
	if err != nil {
		return SwapResult{}, err
	}

	amountOut, err := CheckedSub(reserveOut, newReserveOut)
	if err != nil {
		return SwapResult{}, err
	}
	if amountOut == 0 {
		return SwapResult{}, shared.ErrInsufficientOutput
	}

	newReserveIn, err := CheckedAdd(reserveIn, amountIn)
	if err != nil {
		return SwapResult{}, err
	}

	return SwapResult{
		AmountIn:      amountIn,
		AmountInNet:   net,
		Fee:           amountIn - net,
		AmountOut:     amountOut,
		NewReserveIn:  newReserveIn,
		NewReserveOut: newReserveOut,
	}, nil
}

// Invariant returns k = x*y.
func Invariant(reserveX, reserveY uint64) binary.Uint128 {
	return u128.Product(reserveX, reserveY)
}
