package amm_test

import (
	"crypto/sha256"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/krazyTry/cpamm-go/amm"
	"github.com/krazyTry/cpamm-go/amm/shared"
)

func TestInstructionEncoding(t *testing.T) {
	authority := newWallet(t).PublicKey()
	tests := []amm.Instruction{
		&amm.InitializeArgs{Seed: 9, Fee: 25, Authority: &authority},
		&amm.InitializeArgs{Seed: 9, Fee: 25},
		&amm.DepositArgs{Amount: 1, MaxX: 2, MaxY: 3},
		&amm.WithdrawArgs{Amount: 4, MinX: 5, MinY: 6},
		&amm.SwapArgs{IsX: true, Amount: 7, Min: 8},
		&amm.LockArgs{},
		&amm.UnlockArgs{},
	}
	for _, ix := range tests {
		t.Run(ix.Name(), func(t *testing.T) {
			data, err := amm.EncodeInstruction(ix)
			require.NoError(t, err)
			hash := sha256.Sum256([]byte("global:" + ix.Name()))
			require.Equal(t, hash[:8], data[:8])

			decoded, err := amm.DecodeInstruction(data)
			require.NoError(t, err)
			require.Equal(t, ix, decoded)
		})
	}

	data, err := amm.EncodeInstruction(&amm.DepositArgs{Amount: 1})
	require.NoError(t, err)
	require.Len(t, data, 8+24)

	_, err = amm.DecodeInstruction(append(data, 0))
	require.ErrorIs(t, err, shared.ErrInvalidInstruction)
	_, err = amm.DecodeInstruction(data[:20])
	require.ErrorIs(t, err, shared.ErrInvalidInstruction)
	_, err = amm.DecodeInstruction([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	require.ErrorIs(t, err, shared.ErrInvalidInstruction)
}

func TestProcessSignedEnvelopes(t *testing.T) {
	f := newFixture(t, 30, amm.WithBootstrapPolicy(shared.BootstrapRequested))
	none := solanago.PublicKey{}

	creator := newWallet(t)
	authority := f.authority.PublicKey()
	pool, err := f.program.PoolAddress(77)
	require.NoError(t, err)

	env, err := amm.SignEnvelope(creator, pool, f.mintX, f.mintY, 1, &amm.InitializeArgs{Seed: 77, Fee: 30, Authority: &authority})
	require.NoError(t, err)
	require.NoError(t, f.program.Process(f.ctx, env))

	addrs, err := f.program.GetAddresses(f.ctx, pool)
	require.NoError(t, err)
	f.addrs = addrs

	user := newWallet(t)
	_, err = f.ledger.Fund(f.ctx, user.PublicKey(), f.mintX, 10_000, f.faucet)
	require.NoError(t, err)
	_, err = f.ledger.Fund(f.ctx, user.PublicKey(), f.mintY, 10_000, f.faucet)
	require.NoError(t, err)

	env, err = amm.SignEnvelope(user, pool, none, none, 2, &amm.DepositArgs{Amount: 1_000, MaxX: 1_000, MaxY: 2_000})
	require.NoError(t, err)
	require.NoError(t, f.program.Process(f.ctx, env))

	env, err = amm.SignEnvelope(user, pool, none, none, 3, &amm.SwapArgs{IsX: false, Amount: 100})
	require.NoError(t, err)
	require.NoError(t, f.program.Process(f.ctx, env))

	env, err = amm.SignEnvelope(user, pool, none, none, 4, &amm.WithdrawArgs{Amount: 500})
	require.NoError(t, err)
	require.NoError(t, f.program.Process(f.ctx, env))

	_, _, lp := f.balances(t, user.PublicKey())
	require.Equal(t, uint64(500), lp)

	// only the stored authority may lock, whoever signs
	env, err = amm.SignEnvelope(user, pool, none, none, 5, &amm.LockArgs{})
	require.NoError(t, err)
	require.ErrorIs(t, f.program.Process(f.ctx, env), shared.ErrUnauthorized)

	env, err = amm.SignEnvelope(f.authority, pool, none, none, 6, &amm.LockArgs{})
	require.NoError(t, err)
	require.NoError(t, f.program.Process(f.ctx, env))

	env, err = amm.SignEnvelope(f.authority, pool, none, none, 7, &amm.UnlockArgs{})
	require.NoError(t, err)
	require.NoError(t, f.program.Process(f.ctx, env))
}

func TestProcessRejectsForgedEnvelopes(t *testing.T) {
	f := newFixture(t, 30)
	none := solanago.PublicKey{}
	attacker := newWallet(t)

	// signed by the attacker but claiming to be the authority
	env, err := amm.SignEnvelope(attacker, f.pool, none, none, 8, &amm.LockArgs{})
	require.NoError(t, err)
	env.Signer = f.authority.PublicKey()
	require.ErrorIs(t, f.program.Process(f.ctx, env), shared.ErrSignatureVerification)

	// data tampered after signing
	env, err = amm.SignEnvelope(f.authority, f.pool, none, none, 9, &amm.UnlockArgs{})
	require.NoError(t, err)
	env.Data, err = amm.EncodeInstruction(&amm.LockArgs{})
	require.NoError(t, err)
	require.ErrorIs(t, f.program.Process(f.ctx, env), shared.ErrSignatureVerification)

	// initialize for an address that does not match the seed
	env, err = amm.SignEnvelope(attacker, f.pool, f.mintX, f.mintY, 10, &amm.InitializeArgs{Seed: 5})
	require.NoError(t, err)
	require.ErrorIs(t, f.program.Process(f.ctx, env), shared.ErrInvalidInstruction)

	require.ErrorIs(t, f.program.Process(f.ctx, nil), shared.ErrInvalidInstruction)

	// nonce altered after signing
	env, err = amm.SignEnvelope(f.authority, f.pool, none, none, 1, &amm.LockArgs{})
	require.NoError(t, err)
	env.Nonce = 2
	require.ErrorIs(t, f.program.Process(f.ctx, env), shared.ErrSignatureVerification)
}

func TestProcessRejectsReplayedEnvelopes(t *testing.T) {
	f := newFixture(t, 30, amm.WithBootstrapPolicy(shared.BootstrapRequested))
	none := solanago.PublicKey{}
	lpUser := f.fund(t, 1_000_000, 2_000_000)
	_, err := f.program.Deposit(f.ctx, amm.DepositParams{Pool: f.pool, User: lpUser, Liquidity: 1_000, MaxX: 1_000_000, MaxY: 2_000_000})
	require.NoError(t, err)

	trader := newWallet(t)
	_, err = f.ledger.Fund(f.ctx, trader.PublicKey(), f.mintX, 2_000, f.faucet)
	require.NoError(t, err)

	swap, err := amm.SignEnvelope(trader, f.pool, none, none, 7, &amm.SwapArgs{IsX: true, Amount: 1_000})
	require.NoError(t, err)
	require.NoError(t, f.program.Process(f.ctx, swap))

	err = f.program.Process(f.ctx, swap)
	require.ErrorIs(t, err, shared.ErrStaleNonce)
	code, ok := shared.Code(err)
	require.True(t, ok)
	require.Equal(t, uint32(6015), code)

	older, err := amm.SignEnvelope(trader, f.pool, none, none, 3, &amm.SwapArgs{IsX: true, Amount: 1_000})
	require.NoError(t, err)
	require.ErrorIs(t, f.program.Process(f.ctx, older), shared.ErrStaleNonce)

	x, _, _ := f.balances(t, trader.PublicKey())
	require.Equal(t, uint64(1_000), x)

	// nonces are per signer
	lock, err := amm.SignEnvelope(f.authority, f.pool, none, none, 1, &amm.LockArgs{})
	require.NoError(t, err)
	require.NoError(t, f.program.Process(f.ctx, lock))

	// a rejected envelope still spends its nonce
	blocked, err := amm.SignEnvelope(trader, f.pool, none, none, 8, &amm.SwapArgs{IsX: true, Amount: 1_000})
	require.NoError(t, err)
	require.ErrorIs(t, f.program.Process(f.ctx, blocked), shared.ErrPoolLocked)
	unlock, err := amm.SignEnvelope(f.authority, f.pool, none, none, 2, &amm.UnlockArgs{})
	require.NoError(t, err)
	require.NoError(t, f.program.Process(f.ctx, unlock))
	require.ErrorIs(t, f.program.Process(f.ctx, blocked), shared.ErrStaleNonce)
}
