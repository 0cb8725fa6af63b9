package math

import (
	"errors"
	"math/big"
	"math/rand"
	"testing"

	"github.com/krazyTry/cpamm-go/amm/shared"
	"github.com/krazyTry/cpamm-go/u128"
)

func TestQuoteSwapReferenceScenario(t *testing.T) {
	got, err := QuoteSwap(1_000_000, 2_000_000, 1_000, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.AmountInNet != 997 {
		t.Fatalf("net input: got %d want 997", got.AmountInNet)
	}
	if got.Fee != 3 {
		t.Fatalf("fee: got %d want 3", got.Fee)
	}
	if got.AmountOut != 1_992 {
		t.Fatalf("amount out: got %d want 1992", got.AmountOut)
	}

	feeFree, err := QuoteSwap(1_000_000, 2_000_000, 1_000, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if feeFree.AmountOut != 1_998 {
		t.Fatalf("fee free amount out: got %d want 1998", feeFree.AmountOut)
	}
	if got.AmountOut >= feeFree.AmountOut {
		t.Fatalf("fee must reduce output: %d >= %d", got.AmountOut, feeFree.AmountOut)
	}

	if got.NewReserveIn != 1_001_000 || got.NewReserveOut != 1_998_008 {
		t.Fatalf("unexpected reserves after swap: %d %d", got.NewReserveIn, got.NewReserveOut)
	}
}

func TestQuoteSwapFeeFreeRoundsRetainedUp(t *testing.T) {
	// 2e12 / 2_002_000 = 999_000.999, so 999_001 stays in the pool
	got, err := QuoteSwap(2_000_000, 1_000_000, 2_000, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.NewReserveOut != 999_001 || got.AmountOut != 999 {
		t.Fatalf("got out %d retained %d, want 999 and 999001", got.AmountOut, got.NewReserveOut)
	}
	if u128.Cmp(u128.Product(got.NewReserveIn, got.NewReserveOut), u128.Product(2_000_000, 1_000_000)) < 0 {
		t.Fatalf("invariant decreased")
	}
}

func TestQuoteSwapErrors(t *testing.T) {
	tests := []struct {
		name       string
		reserveIn  uint64
		reserveOut uint64
		amountIn   uint64
		feeBps     uint16
		want       error
	}{
		{"zero input", 1_000, 1_000, 0, 30, shared.ErrInvalidAmount},
		{"fee above max", 1_000, 1_000, 10, 10_001, shared.ErrInvalidFee},
		{"empty reserve in", 0, 1_000, 10, 30, shared.ErrInsufficientLiquidity},
		{"empty reserve out", 1_000, 0, 10, 30, shared.ErrInsufficientLiquidity},
		{"dust trade", 1_000_000_000, 1, 1, 30, shared.ErrInsufficientOutput},
		{"full fee", 1_000, 1_000, 500, 10_000, shared.ErrInsufficientOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := QuoteSwap(tt.reserveIn, tt.reserveOut, tt.amountIn, tt.feeBps)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v want %v", err, tt.want)
			}
		})
	}
}

func TestQuoteSwapInvariantNeverDecreases(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 5_000; i++ {
		reserveIn := uint64(rng.Int63n(1<<40)) + 1
		reserveOut := uint64(rng.Int63n(1<<40)) + 1
		amountIn := uint64(rng.Int63n(1<<36)) + 1
		feeBps := uint16(rng.Intn(shared.BasisPointMax + 1))

		res, err := QuoteSwap(reserveIn, reserveOut, amountIn, feeBps)
		if errors.Is(err, shared.ErrInsufficientOutput) {
			continue
		}
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}

		before := u128.Product(reserveIn, reserveOut)
		after := u128.Product(res.NewReserveIn, res.NewReserveOut)
		if u128.Cmp(after, before) < 0 {
			t.Fatalf("case %d: invariant decreased: %s < %s", i, u128.Decimal(after), u128.Decimal(before))
		}

		// the retained reserve alone, with only the net input, must hold k
		netSide := new(big.Int).Add(new(big.Int).SetUint64(reserveIn), new(big.Int).SetUint64(res.AmountInNet))
		netSide.Mul(netSide, new(big.Int).SetUint64(res.NewReserveOut))
		if netSide.Cmp(before.BigInt()) < 0 {
			t.Fatalf("case %d: net invariant decreased", i)
		}
		if res.AmountOut >= reserveOut {
			t.Fatalf("case %d: swap drained the pool", i)
		}
	}
}

func TestBootstrap(t *testing.T) {
	got, err := Bootstrap(shared.BootstrapRequested, 1_000, 1_000, 2_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (BootstrapResult{AmountX: 1_000, AmountY: 2_000, Liquidity: 1_000}) {
		t.Fatalf("unexpected bootstrap: %+v", got)
	}

	got, err = Bootstrap(shared.BootstrapGeometricMean, 1_000, 1_000, 2_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Liquidity != 1_414 {
		t.Fatalf("geometric mean: got %d want 1414", got.Liquidity)
	}

	if _, err := Bootstrap(shared.BootstrapGeometricMean, 1_500, 1_000, 2_000); !errors.Is(err, shared.ErrSlippageExceeded) {
		t.Fatalf("expected ErrSlippageExceeded, got %v", err)
	}
	if _, err := Bootstrap(shared.BootstrapRequested, 1_000, 0, 2_000); !errors.Is(err, shared.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := Bootstrap(shared.BootstrapRequested, 1_000, 1_000, 0); !errors.Is(err, shared.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	top := ^uint64(0)
	got, err = Bootstrap(shared.BootstrapGeometricMean, 1, top, top)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Liquidity != top {
		t.Fatalf("sqrt(max*max): got %d want %d", got.Liquidity, top)
	}
}

func TestQuoteDepositAfterBootstrap(t *testing.T) {
	for _, digits := range []uint8{0, 6} {
		got, err := QuoteDeposit(1_000, 2_000, 1_000, 500, digits)
		if err != nil {
			t.Fatalf("digits %d: unexpected error: %v", digits, err)
		}
		if got != (PairAmounts{X: 500, Y: 1_000}) {
			t.Fatalf("digits %d: got %+v want {500 1000}", digits, got)
		}
	}
}

func TestQuoteDepositRoundsUp(t *testing.T) {
	got, err := QuoteDeposit(1_000_003, 2_000_011, 1_000, 7, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (PairAmounts{X: 7_001, Y: 14_001}) {
		t.Fatalf("unexpected deposit: %+v", got)
	}

	w, err := QuoteWithdraw(1_000_003, 2_000_011, 1_000, 7, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w != (PairAmounts{X: 7_000, Y: 14_000}) {
		t.Fatalf("unexpected withdraw: %+v", w)
	}
}

func TestQuoteLiquidityErrors(t *testing.T) {
	top := ^uint64(0)
	tests := []struct {
		name      string
		quote     func(x, y, s, l uint64, p uint8) (PairAmounts, error)
		x, y, s   uint64
		liquidity uint64
		digits    uint8
		want      error
	}{
		{"deposit zero supply", QuoteDeposit, 1_000, 1_000, 0, 10, 6, shared.ErrDivisionByZero},
		{"withdraw zero supply", QuoteWithdraw, 1_000, 1_000, 0, 10, 6, shared.ErrDivisionByZero},
		{"deposit zero liquidity", QuoteDeposit, 1_000, 1_000, 100, 0, 6, shared.ErrInvalidAmount},
		{"deposit empty reserve", QuoteDeposit, 0, 1_000, 100, 10, 6, shared.ErrInsufficientLiquidity},
		{"withdraw more than supply", QuoteWithdraw, 1_000, 1_000, 100, 101, 0, shared.ErrInvalidAmount},
		{"deposit overflow", QuoteDeposit, top, top, 1, top, 0, shared.ErrOverflow},
		{"deposit overflow scaled", QuoteDeposit, top, 1, 1, 2, 6, shared.ErrOverflow},
		{"precision too large", QuoteDeposit, 1_000, 1_000, 100, 10, 19, shared.ErrInvalidPrecision},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.quote(tt.x, tt.y, tt.s, tt.liquidity, tt.digits)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v want %v", err, tt.want)
			}
		})
	}
}

func TestDepositIsProportional(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 5_000; i++ {
		x := uint64(rng.Int63n(1<<40)) + 1
		y := uint64(rng.Int63n(1<<40)) + 1
		supply := uint64(rng.Int63n(1<<40)) + 1
		liquidity := uint64(rng.Int63n(int64(supply))) + 1
		digits := uint8(rng.Intn(2) * shared.DefaultPrecisionDigits)

		got, err := QuoteDeposit(x, y, supply, liquidity, digits)
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		checkDepositSide(t, i, got.X, x, supply, liquidity, digits)
		checkDepositSide(t, i, got.Y, y, supply, liquidity, digits)
	}
}

// checkDepositSide asserts exact <= required <= exact + reserve/10^p + 2.
func checkDepositSide(t *testing.T, i int, required, reserve, supply, liquidity uint64, digits uint8) {
	t.Helper()
	s := new(big.Int).SetUint64(supply)
	exact := new(big.Int).Mul(new(big.Int).SetUint64(liquidity), new(big.Int).SetUint64(reserve))
	paid := new(big.Int).Mul(new(big.Int).SetUint64(required), s)
	if paid.Cmp(exact) < 0 {
		t.Fatalf("case %d: deposit below pro-rata: %s < %s", i, paid, exact)
	}

	slack := big.NewInt(2)
	if digits > 0 {
		slack.Add(slack, new(big.Int).Div(new(big.Int).SetUint64(reserve), Pow10(digits)))
	} else {
		slack.SetInt64(1)
	}
	limit := new(big.Int).Add(exact, new(big.Int).Mul(slack, s))
	if paid.Cmp(limit) > 0 {
		t.Fatalf("case %d: deposit exceeds tolerance: %s > %s", i, paid, limit)
	}
}

func TestWithdrawNeverFavorsWithdrawer(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	for i := 0; i < 5_000; i++ {
		x := uint64(rng.Int63n(1<<40)) + 1
		y := uint64(rng.Int63n(1<<40)) + 1
		supply := uint64(rng.Int63n(1<<40)) + 1
		liquidity := uint64(rng.Int63n(int64(supply))) + 1
		digits := uint8(rng.Intn(2) * shared.DefaultPrecisionDigits)

		got, err := QuoteWithdraw(x, y, supply, liquidity, digits)
		if err != nil {
			t.Fatalf("case %d: unexpected error: %v", i, err)
		}
		for _, side := range []struct{ payout, reserve uint64 }{{got.X, x}, {got.Y, y}} {
			paid := new(big.Int).Mul(new(big.Int).SetUint64(side.payout), new(big.Int).SetUint64(supply))
			exact := new(big.Int).Mul(new(big.Int).SetUint64(liquidity), new(big.Int).SetUint64(side.reserve))
			if paid.Cmp(exact) > 0 {
				t.Fatalf("case %d: payout above pro-rata: %s > %s", i, paid, exact)
			}
		}
		if liquidity < supply && (got.X >= x || got.Y >= y) {
			t.Fatalf("case %d: partial withdraw emptied a reserve", i)
		}
	}
}

func TestDepositWithdrawRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	for i := 0; i < 2_000; i++ {
		x := uint64(rng.Int63n(1<<32)) + 1
		y := uint64(rng.Int63n(1<<32)) + 1
		supply := uint64(rng.Int63n(1<<30)) + 1
		liquidity := uint64(rng.Int63n(1<<30)) + 1

		in, err := QuoteDeposit(x, y, supply, liquidity, 0)
		if err != nil {
			t.Fatalf("case %d: deposit: %v", i, err)
		}
		out, err := QuoteWithdraw(x+in.X, y+in.Y, supply+liquidity, liquidity, 0)
		if err != nil {
			t.Fatalf("case %d: withdraw: %v", i, err)
		}
		if out.X > in.X || out.Y > in.Y {
			t.Fatalf("case %d: round trip profit: in %+v out %+v", i, in, out)
		}
		if in.X-out.X > 1 || in.Y-out.Y > 1 {
			t.Fatalf("case %d: round trip loss beyond rounding: in %+v out %+v", i, in, out)
		}
	}
}

func TestFullWithdrawEmptiesPool(t *testing.T) {
	got, err := QuoteWithdraw(1_000, 2_000, 1_000, 1_000, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (PairAmounts{X: 1_000, Y: 2_000}) {
		t.Fatalf("unexpected payout: %+v", got)
	}
}

func TestInvariant(t *testing.T) {
	k := Invariant(1_000_000, 2_000_000)
	if u128.Decimal(k) != "2000000000000" {
		t.Fatalf("unexpected k: %s", u128.Decimal(k))
	}
}
