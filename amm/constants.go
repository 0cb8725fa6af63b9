package amm

import (
	solanago "github.com/gagliardetto/solana-go"

	"github.com/krazyTry/cpamm-go/amm/shared"
)

// ProgramID is the default address the pool PDAs are derived under.
var ProgramID = solanago.MustPublicKeyFromBase58("E9GKzL7A9YkDAjy7SavXcY8KF4emuAGMJW9vReLZxDVu")

const (
	PoolSeed   = "config"
	LpMintSeed = "lp"

	// PoolAccountName is the account name hashed into the record discriminator.
	PoolAccountName = "Config"

	// PoolAccountSize is discriminator + seed + Option<authority> + two mints + fee + locked + two bumps.
	PoolAccountSize = 8 + 8 + (1 + 32) + 32*2 + 2 + 1 + 1*2

	BasisPointMax          = shared.BasisPointMax
	DefaultPrecisionDigits = shared.DefaultPrecisionDigits
	LpMintDecimals         = shared.LpMintDecimals
)
