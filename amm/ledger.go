package amm

import (
	"context"

	solanago "github.com/gagliardetto/solana-go"
)

// Ledger is the host runtime that owns balances, mints and account data.
// Authority arguments name the identity that authorizes the movement; the
// ledger rejects the call if that identity does not control the source.
type Ledger interface {
	Balance(ctx context.Context, account solanago.PublicKey) (uint64, error)
	Supply(ctx context.Context, mint solanago.PublicKey) (uint64, error)
	MintDecimals(ctx context.Context, mint solanago.PublicKey) (uint8, error)

	Transfer(ctx context.Context, from, to solanago.PublicKey, amount uint64, authority solanago.PublicKey) error
	MintTo(ctx context.Context, mint, to solanago.PublicKey, amount uint64, authority solanago.PublicKey) error
	Burn(ctx context.Context, mint, from solanago.PublicKey, amount uint64, authority solanago.PublicKey) error

	CreateMint(ctx context.Context, mint solanago.PublicKey, decimals uint8, authority solanago.PublicKey) error
	CreateTokenAccount(ctx context.Context, account, mint, owner solanago.PublicKey) error
	AccountExists(ctx context.Context, account solanago.PublicKey) (bool, error)

	AccountData(ctx context.Context, account solanago.PublicKey) ([]byte, error)
	SetAccountData(ctx context.Context, account solanago.PublicKey, data []byte) error
}

// Transactor runs fn atomically: either every ledger effect of fn commits or
// none does. Transactions must be serialized and fn is called at most once
// per Execute; event sequence numbers are taken inside fn.
type Transactor interface {
	Execute(ctx context.Context, fn func(ctx context.Context, l Ledger) error) error
}
