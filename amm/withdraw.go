package amm

import (
	"context"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/krazyTry/cpamm-go/amm/math"
	"github.com/krazyTry/cpamm-go/amm/shared"
)

type WithdrawParams struct {
	Pool      solanago.PublicKey
	User      solanago.PublicKey
	Liquidity uint64
	MinX      uint64
	MinY      uint64
}

type WithdrawResult struct {
	AmountX   uint64
	AmountY   uint64
	Liquidity uint64
	Snapshot  Snapshot
}

func quoteWithdrawAt(snap Snapshot, liquidity, minX, minY uint64, precision uint8) (WithdrawResult, error) {
	payout, err := math.QuoteWithdraw(snap.ReserveX, snap.ReserveY, snap.Supply, liquidity, precision)
	if err != nil {
		return WithdrawResult{}, err
	}
	if payout.X < minX || payout.Y < minY {
		return WithdrawResult{}, shared.ErrSlippageExceeded
	}
	return WithdrawResult{AmountX: payout.X, AmountY: payout.Y, Liquidity: liquidity}, nil
}

// Withdraw burns LP shares and pays out the pro-rata pair, rounded down.
func (p *Program) Withdraw(ctx context.Context, params WithdrawParams) (*WithdrawResult, error) {
	fields := []zap.Field{
		zap.String("pool", params.Pool.String()),
		zap.String("user", params.User.String()),
		zap.Uint64("liquidity", params.Liquidity),
		zap.Uint64("min_x", params.MinX),
		zap.Uint64("min_y", params.MinY),
	}
	if params.Liquidity == 0 {
		p.logger.Debug("withdraw rejected", append(fields, zap.Error(shared.ErrInvalidAmount))...)
		return nil, fmt.Errorf("withdraw: %w", shared.ErrInvalidAmount)
	}

	var result WithdrawResult
	err := p.run(ctx, "withdraw", fields, func(ctx context.Context, l Ledger) (*Event, error) {
		pc, err := p.loadPool(ctx, l, params.Pool)
		if err != nil {
			return nil, err
		}
		if pc.pool.Locked {
			return nil, shared.ErrPoolLocked
		}

		result, err = quoteWithdrawAt(pc.snap, params.Liquidity, params.MinX, params.MinY, p.precision)
		if err != nil {
			return nil, err
		}

		userX, err := ensureTokenAccount(ctx, l, params.User, pc.pool.MintX)
		if err != nil {
			return nil, err
		}
		userY, err := ensureTokenAccount(ctx, l, params.User, pc.pool.MintY)
		if err != nil {
			return nil, err
		}
		userLp, err := DeriveUserTokenAccount(params.User, pc.addrs.LpMint)
		if err != nil {
			return nil, err
		}

		if err := l.Transfer(ctx, pc.addrs.VaultX, userX, result.AmountX, pc.signer.address); err != nil {
			return nil, fmt.Errorf("transfer x: %w", err)
		}
		if err := l.Transfer(ctx, pc.addrs.VaultY, userY, result.AmountY, pc.signer.address); err != nil {
			return nil, fmt.Errorf("transfer y: %w", err)
		}
		if err := l.Burn(ctx, pc.addrs.LpMint, userLp, result.Liquidity, params.User); err != nil {
			return nil, fmt.Errorf("burn lp: %w", err)
		}

		after, err := readSnapshot(ctx, l, pc.addrs)
		if err != nil {
			return nil, err
		}
		result.Snapshot = after

		ev := newEvent(EventWithdraw, params.Pool, params.User, pc.snap, after)
		ev.AmountXOut = result.AmountX
		ev.AmountYOut = result.AmountY
		ev.LpBurned = result.Liquidity
		return ev, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
