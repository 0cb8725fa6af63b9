package shared

import (
	"math/big"
	"strconv"
)

// Enums and common types shared by math and amm.
type Rounding uint8

const (
	RoundingUp   Rounding = 0
	RoundingDown Rounding = 1
)

type TradeDirection uint8

const (
	TradeDirectionXtoY TradeDirection = 0
	TradeDirectionYtoX TradeDirection = 1
)

func (d TradeDirection) String() string {
	switch d {
	case TradeDirectionXtoY:
		return "x_to_y"
	case TradeDirectionYtoX:
		return "y_to_x"
	}
	return "direction(" + strconv.Itoa(int(d)) + ")"
}

func (d TradeDirection) Valid() bool {
	return d == TradeDirectionXtoY || d == TradeDirectionYtoX
}

// IsX reports whether asset X is the one being sold.
func (d TradeDirection) IsX() bool {
	return d == TradeDirectionXtoY
}

func TradeDirectionFromIsX(isX bool) TradeDirection {
	if isX {
		return TradeDirectionXtoY
	}
	return TradeDirectionYtoX
}

// BootstrapPolicy decides how many shares the first depositor receives.
type BootstrapPolicy uint8

const (
	// BootstrapGeometricMean mints floor(sqrt(x*y)) and treats the requested
	// amount as a minimum.
	BootstrapGeometricMean BootstrapPolicy = 0
	// BootstrapRequested mints exactly the requested amount.
	BootstrapRequested BootstrapPolicy = 1
)

func (p BootstrapPolicy) String() string {
	if p == BootstrapRequested {
		return "requested"
	}
	return "geometric-mean"
}

func ParseBootstrapPolicy(s string) (BootstrapPolicy, bool) {
	switch s {
	case "", "geometric-mean", "geometric", "sqrt":
		return BootstrapGeometricMean, true
	case "requested", "caller":
		return BootstrapRequested, true
	}
	return BootstrapGeometricMean, false
}

const (
	BasisPointMax = 10_000

	DefaultPrecisionDigits = 6
	MaxPrecisionDigits     = 18

	LpMintDecimals = 6
)

var (
	BasisPointMaxBig = big.NewInt(BasisPointMax)
	U64Max           = new(big.Int).SetUint64(^uint64(0))
)
