package cpamm

import (
	"context"
	"sync"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/krazyTry/cpamm-go/amm"
	"github.com/krazyTry/cpamm-go/amm/math"
	"github.com/krazyTry/cpamm-go/amm/shared"
	"github.com/krazyTry/cpamm-go/u128"
)

func newKey(t *testing.T) solanago.PublicKey {
	t.Helper()
	key, err := solanago.NewRandomPrivateKey()
	require.NoError(t, err)
	return key.PublicKey()
}

// Concurrent traders on two pools: every operation is atomic, so tokens are
// conserved and each pool's k never drops.
func TestConcurrentSwapsConserveTokens(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger(zap.NewNop())
	sink := &amm.MemorySink{}
	program, err := New(ledger, amm.WithEventSink(sink))
	require.NoError(t, err)

	faucet, mintX, mintY := newKey(t), newKey(t), newKey(t)
	require.NoError(t, ledger.CreateMint(ctx, mintX, 6, faucet))
	require.NoError(t, ledger.CreateMint(ctx, mintY, 6, faucet))

	seeder := newKey(t)
	_, err = ledger.Fund(ctx, seeder, mintX, 20_000_000, faucet)
	require.NoError(t, err)
	_, err = ledger.Fund(ctx, seeder, mintY, 40_000_000, faucet)
	require.NoError(t, err)

	pools := make([]solanago.PublicKey, 2)
	for i := range pools {
		res, err := program.Initialize(ctx, amm.InitializeParams{Seed: uint64(i), Fee: 30, MintX: mintX, MintY: mintY})
		require.NoError(t, err)
		pools[i] = res.Pool
		_, err = program.Deposit(ctx, amm.DepositParams{Pool: res.Pool, User: seeder, Liquidity: 1, MaxX: 10_000_000, MaxY: 20_000_000})
		require.NoError(t, err)
	}

	const traders = 8
	users := make([]solanago.PublicKey, traders)
	for i := range users {
		users[i] = newKey(t)
		_, err = ledger.Fund(ctx, users[i], mintX, 100_000, faucet)
		require.NoError(t, err)
		_, err = ledger.Fund(ctx, users[i], mintY, 100_000, faucet)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, traders*20)
	for i, user := range users {
		wg.Add(1)
		go func(i int, user solanago.PublicKey) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, err := program.Swap(ctx, amm.SwapParams{
					Pool:      pools[(i+j)%2],
					User:      user,
					Direction: shared.TradeDirectionFromIsX(j%2 == 0),
					AmountIn:  1_000,
				})
				if err != nil {
					errs <- err
				}
			}
		}(i, user)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var totalX, totalY uint64
	for _, user := range append(users, seeder) {
		x, err := ledger.BalanceOf(user, mintX)
		require.NoError(t, err)
		y, err := ledger.BalanceOf(user, mintY)
		require.NoError(t, err)
		totalX += x
		totalY += y
	}
	for _, pool := range pools {
		snap, err := program.GetSnapshot(ctx, pool)
		require.NoError(t, err)
		totalX += snap.ReserveX
		totalY += snap.ReserveY
		require.GreaterOrEqual(t, u128.Cmp(math.Invariant(snap.ReserveX, snap.ReserveY), math.Invariant(10_000_000, 20_000_000)), 0)
	}
	require.Equal(t, uint64(20_000_000+traders*100_000), totalX)
	require.Equal(t, uint64(40_000_000+traders*100_000), totalY)

	events := sink.Events()
	require.Len(t, events, 2+2+traders*20)
	seen := map[uint64]bool{}
	for _, ev := range events {
		require.False(t, seen[ev.Seq])
		seen[ev.Seq] = true
	}
}
