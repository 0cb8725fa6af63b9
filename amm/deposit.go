package amm

import (
	"context"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/krazyTry/cpamm-go/amm/math"
	"github.com/krazyTry/cpamm-go/amm/shared"
)

type DepositParams struct {
	Pool      solanago.PublicKey
	User      solanago.PublicKey
	Liquidity uint64
	MaxX      uint64
	MaxY      uint64
}

type DepositResult struct {
	AmountX   uint64
	AmountY   uint64
	Liquidity uint64
	Snapshot  Snapshot
}

// quoteDepositAt sizes a deposit against snap. An empty pool is bootstrapped
// with maxX and maxY as the exact seed amounts.
func quoteDepositAt(snap Snapshot, liquidity, maxX, maxY uint64, precision uint8, policy shared.BootstrapPolicy) (DepositResult, error) {
	if snap.Bootstrapping() {
		boot, err := math.Bootstrap(policy, liquidity, maxX, maxY)
		if err != nil {
			return DepositResult{}, err
		}
		return DepositResult{AmountX: boot.AmountX, AmountY: boot.AmountY, Liquidity: boot.Liquidity}, nil
	}
	required, err := math.QuoteDeposit(snap.ReserveX, snap.ReserveY, snap.Supply, liquidity, precision)
	if err != nil {
		return DepositResult{}, err
	}
	if required.X > maxX || required.Y > maxY {
		return DepositResult{}, shared.ErrSlippageExceeded
	}
	return DepositResult{AmountX: required.X, AmountY: required.Y, Liquidity: liquidity}, nil
}

// Deposit adds a matched pair to the pool and mints LP shares to the user.
func (p *Program) Deposit(ctx context.Context, params DepositParams) (*DepositResult, error) {
	fields := []zap.Field{
		zap.String("pool", params.Pool.String()),
		zap.String("user", params.User.String()),
		zap.Uint64("liquidity", params.Liquidity),
		zap.Uint64("max_x", params.MaxX),
		zap.Uint64("max_y", params.MaxY),
	}
	if params.Liquidity == 0 {
		p.logger.Debug("deposit rejected", append(fields, zap.Error(shared.ErrInvalidAmount))...)
		return nil, fmt.Errorf("deposit: %w", shared.ErrInvalidAmount)
	}

	var result DepositResult
	err := p.run(ctx, "deposit", fields, func(ctx context.Context, l Ledger) (*Event, error) {
		pc, err := p.loadPool(ctx, l, params.Pool)
		if err != nil {
			return nil, err
		}
		if pc.pool.Locked {
			return nil, shared.ErrPoolLocked
		}

		result, err = quoteDepositAt(pc.snap, params.Liquidity, params.MaxX, params.MaxY, p.precision, p.policy)
		if err != nil {
			return nil, err
		}

		userX, err := DeriveUserTokenAccount(params.User, pc.pool.MintX)
		if err != nil {
			return nil, err
		}
		userY, err := DeriveUserTokenAccount(params.User, pc.pool.MintY)
		if err != nil {
			return nil, err
		}
		userLp, err := ensureTokenAccount(ctx, l, params.User, pc.addrs.LpMint)
		if err != nil {
			return nil, err
		}

		if err := l.Transfer(ctx, userX, pc.addrs.VaultX, result.AmountX, params.User); err != nil {
			return nil, fmt.Errorf("transfer x: %w", err)
		}
		if err := l.Transfer(ctx, userY, pc.addrs.VaultY, result.AmountY, params.User); err != nil {
			return nil, fmt.Errorf("transfer y: %w", err)
		}
		if err := l.MintTo(ctx, pc.addrs.LpMint, userLp, result.Liquidity, pc.signer.address); err != nil {
			return nil, fmt.Errorf("mint lp: %w", err)
		}

		after, err := readSnapshot(ctx, l, pc.addrs)
		if err != nil {
			return nil, err
		}
		result.Snapshot = after

		ev := newEvent(EventDeposit, params.Pool, params.User, pc.snap, after)
		ev.AmountXIn = result.AmountX
		ev.AmountYIn = result.AmountY
		ev.LpMinted = result.Liquidity
		return ev, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
