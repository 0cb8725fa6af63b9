package amm

import (
	"context"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/krazyTry/cpamm-go/amm/math"
	"github.com/krazyTry/cpamm-go/amm/shared"
)

type SwapParams struct {
	Pool      solanago.PublicKey
	User      solanago.PublicKey
	Direction shared.TradeDirection
	AmountIn  uint64
	MinOut    uint64
}

type SwapResult struct {
	math.SwapResult
	Direction shared.TradeDirection
	Snapshot  Snapshot
}

func quoteSwapAt(snap Snapshot, direction shared.TradeDirection, amountIn, minOut uint64, feeBps uint16) (math.SwapResult, error) {
	if !direction.Valid() {
		return math.SwapResult{}, shared.ErrInvalidInstruction
	}
	reserveIn, reserveOut := snap.reserves(direction)
	quote, err := math.QuoteSwap(reserveIn, reserveOut, amountIn, feeBps)
	if err != nil {
		return math.SwapResult{}, err
	}
	if quote.AmountOut < minOut {
		return math.SwapResult{}, shared.ErrSlippageExceeded
	}
	if quote.AmountOut == 0 {
		return math.SwapResult{}, shared.ErrInsufficientOutput
	}
	return quote, nil
}

// Swap sells AmountIn of one asset for the other. The input leg is
// authorized by the user and the output leg by the pool.
func (p *Program) Swap(ctx context.Context, params SwapParams) (*SwapResult, error) {
	fields := []zap.Field{
		zap.String("pool", params.Pool.String()),
		zap.String("user", params.User.String()),
		zap.Stringer("direction", params.Direction),
		zap.Uint64("amount_in", params.AmountIn),
		zap.Uint64("min_out", params.MinOut),
	}
	if params.AmountIn == 0 {
		p.logger.Debug("swap rejected", append(fields, zap.Error(shared.ErrInvalidAmount))...)
		return nil, fmt.Errorf("swap: %w", shared.ErrInvalidAmount)
	}
	if !params.Direction.Valid() {
		p.logger.Debug("swap rejected", append(fields, zap.Error(shared.ErrInvalidInstruction))...)
		return nil, fmt.Errorf("swap: %w", shared.ErrInvalidInstruction)
	}

	result := SwapResult{Direction: params.Direction}
	err := p.run(ctx, "swap", fields, func(ctx context.Context, l Ledger) (*Event, error) {
		pc, err := p.loadPool(ctx, l, params.Pool)
		if err != nil {
			return nil, err
		}
		if pc.pool.Locked {
			return nil, shared.ErrPoolLocked
		}

		result.SwapResult, err = quoteSwapAt(pc.snap, params.Direction, params.AmountIn, params.MinOut, pc.pool.Fee)
		if err != nil {
			return nil, err
		}

		mintIn, mintOut := pc.pool.MintX, pc.pool.MintY
		vaultIn, vaultOut := pc.addrs.VaultX, pc.addrs.VaultY
		if !params.Direction.IsX() {
			mintIn, mintOut = mintOut, mintIn
			vaultIn, vaultOut = vaultOut, vaultIn
		}

		userIn, err := DeriveUserTokenAccount(params.User, mintIn)
		if err != nil {
			return nil, err
		}
		userOut, err := ensureTokenAccount(ctx, l, params.User, mintOut)
		if err != nil {
			return nil, err
		}

		if err := l.Transfer(ctx, userIn, vaultIn, result.AmountIn, params.User); err != nil {
			return nil, fmt.Errorf("transfer in: %w", err)
		}
		if err := l.Transfer(ctx, vaultOut, userOut, result.AmountOut, pc.signer.address); err != nil {
			return nil, fmt.Errorf("transfer out: %w", err)
		}

		after, err := readSnapshot(ctx, l, pc.addrs)
		if err != nil {
			return nil, err
		}
		result.Snapshot = after

		ev := newEvent(EventSwap, params.Pool, params.User, pc.snap, after)
		ev.Fee = result.Fee
		if params.Direction.IsX() {
			ev.AmountXIn, ev.AmountYOut = result.AmountIn, result.AmountOut
		} else {
			ev.AmountYIn, ev.AmountXOut = result.AmountIn, result.AmountOut
		}
		return ev, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
