package amm

import (
	"context"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/krazyTry/cpamm-go/amm/math"
	"github.com/krazyTry/cpamm-go/amm/shared"
)

type SwapQuote struct {
	math.SwapResult
	MinimumAmountOut uint64
	SpotPrice        decimal.Decimal
	ExecutionPrice   decimal.Decimal
	// PriceImpact is in percent.
	PriceImpact decimal.Decimal
}

// QuoteSwap prices a swap against the live pool without changing it.
// slippageBps derives MinimumAmountOut from the quoted output.
func (p *Program) QuoteSwap(ctx context.Context, pool solanago.PublicKey, direction shared.TradeDirection, amountIn uint64, slippageBps uint16) (*SwapQuote, error) {
	var quote *SwapQuote
	err := p.view(ctx, func(ctx context.Context, l Ledger) error {
		pc, err := p.loadPool(ctx, l, pool)
		if err != nil {
			return err
		}
		res, err := quoteSwapAt(pc.snap, direction, amountIn, 0, pc.pool.Fee)
		if err != nil {
			return err
		}
		quote, err = swapQuoteFrom(ctx, l, pc, direction, res, slippageBps)
		return err
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

func swapQuoteFrom(ctx context.Context, l Ledger, pc *poolContext, direction shared.TradeDirection, res math.SwapResult, slippageBps uint16) (*SwapQuote, error) {
	decimalsX, err := l.MintDecimals(ctx, pc.pool.MintX)
	if err != nil {
		return nil, err
	}
	decimalsY, err := l.MintDecimals(ctx, pc.pool.MintY)
	if err != nil {
		return nil, err
	}
	reserveIn, reserveOut := pc.snap.reserves(direction)
	impact, err := math.PriceImpact(reserveIn, reserveOut, res.AmountIn, res.AmountOut)
	if err != nil {
		return nil, err
	}
	return &SwapQuote{
		SwapResult:       res,
		MinimumAmountOut: math.MinAmountWithSlippage(res.AmountOut, slippageBps),
		SpotPrice:        math.SpotPrice(pc.snap.ReserveX, pc.snap.ReserveY, decimalsX, decimalsY),
		ExecutionPrice:   math.ExecutionPrice(res.AmountIn, res.AmountOut),
		PriceImpact:      impact,
	}, nil
}

// QuoteDeposit returns the pair a deposit of liquidity shares would take.
// For an empty pool maxX and maxY are the seed amounts.
func (p *Program) QuoteDeposit(ctx context.Context, pool solanago.PublicKey, liquidity, maxX, maxY uint64) (*DepositResult, error) {
	if liquidity == 0 {
		return nil, shared.ErrInvalidAmount
	}
	var result DepositResult
	err := p.view(ctx, func(ctx context.Context, l Ledger) error {
		pc, err := p.loadPool(ctx, l, pool)
		if err != nil {
			return err
		}
		result, err = quoteDepositAt(pc.snap, liquidity, maxX, maxY, p.precision, p.policy)
		result.Snapshot = pc.snap
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// QuoteWithdraw returns the pair burning liquidity shares would pay out.
func (p *Program) QuoteWithdraw(ctx context.Context, pool solanago.PublicKey, liquidity uint64) (*WithdrawResult, error) {
	if liquidity == 0 {
		return nil, shared.ErrInvalidAmount
	}
	var result WithdrawResult
	err := p.view(ctx, func(ctx context.Context, l Ledger) error {
		pc, err := p.loadPool(ctx, l, pool)
		if err != nil {
			return err
		}
		result, err = quoteWithdrawAt(pc.snap, liquidity, 0, 0, p.precision)
		result.Snapshot = pc.snap
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
