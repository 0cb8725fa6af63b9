package shared

import "errors"

// Error kinds reported by the curve and the pool operations. Codes follow the
// on-chain custom error numbering, starting at 6000.
var (
	ErrPoolLocked             = errors.New("pool is locked")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrSlippageExceeded       = errors.New("slippage exceeded")
	ErrInsufficientOutput     = errors.New("insufficient output amount")
	ErrDivisionByZero         = errors.New("division by zero")
	ErrOverflow               = errors.New("arithmetic overflow")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrInvalidFee             = errors.New("fee exceeds basis point max")
	ErrIdenticalMints         = errors.New("mint x and mint y must differ")
	ErrPoolAlreadyInitialized = errors.New("pool already initialized")
	ErrPoolNotFound           = errors.New("pool not found")
	ErrInsufficientLiquidity  = errors.New("pool reserves are empty")
	ErrInvalidPrecision       = errors.New("invalid precision digits")
	ErrInvalidInstruction     = errors.New("invalid instruction data")
	ErrSignatureVerification  = errors.New("signature verification failed")
	ErrStaleNonce             = errors.New("envelope nonce already used")
)

const CustomErrorOffset = 6000

var errorCodes = []error{
	ErrPoolLocked,
	ErrInvalidAmount,
	ErrSlippageExceeded,
	ErrInsufficientOutput,
	ErrDivisionByZero,
	ErrOverflow,
	ErrUnauthorized,
	ErrInvalidFee,
	ErrIdenticalMints,
	ErrPoolAlreadyInitialized,
	ErrPoolNotFound,
	ErrInsufficientLiquidity,
	ErrInvalidPrecision,
	ErrInvalidInstruction,
	ErrSignatureVerification,
	ErrStaleNonce,
}

// Code returns the numeric code of the first known kind wrapped by err.
func Code(err error) (uint32, bool) {
	if err == nil {
		return 0, false
	}
	for i, kind := range errorCodes {
		if errors.Is(err, kind) {
			return uint32(CustomErrorOffset + i), true
		}
	}
	return 0, false
}

// FromCode is the inverse of Code.
func FromCode(code uint32) error {
	i := int(code) - CustomErrorOffset
	if i < 0 || i >= len(errorCodes) {
		return nil
	}
	return errorCodes[i]
}
