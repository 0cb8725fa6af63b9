package u128

import (
	"errors"
	"math/big"

	binary "github.com/gagliardetto/binary"
)

var (
	// ErrNegative is returned when a negative value is converted.
	ErrNegative = errors.New("value cannot be negative")
	// ErrOverflow is returned when a value does not fit in 128 bits.
	ErrOverflow = errors.New("value overflows Uint128")

	maxU64 = new(big.Int).SetUint64(^uint64(0))
)

// FromBig narrows v into a little-endian Uint128.
func FromBig(v *big.Int) (binary.Uint128, error) {
	out := binary.NewUint128LittleEndian()
	if v == nil {
		return *out, nil
	}
	if v.Sign() < 0 {
		return binary.Uint128{}, ErrNegative
	}
	if v.BitLen() > 128 {
		return binary.Uint128{}, ErrOverflow
	}
	out.Lo = new(big.Int).And(v, maxU64).Uint64()
	out.Hi = new(big.Int).Rsh(v, 64).Uint64()
	return *out, nil
}

// Product returns a*b, which always fits in 128 bits.
func Product(a, b uint64) binary.Uint128 {
	v, _ := FromBig(new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b)))
	return v
}

// Cmp compares two values the way big.Int.Cmp does.
func Cmp(a, b binary.Uint128) int {
	switch {
	case a.Hi < b.Hi:
		return -1
	case a.Hi > b.Hi:
		return 1
	case a.Lo < b.Lo:
		return -1
	case a.Lo > b.Lo:
		return 1
	}
	return 0
}

// Decimal renders v in base 10.
func Decimal(v binary.Uint128) string {
	return v.BigInt().String()
}
