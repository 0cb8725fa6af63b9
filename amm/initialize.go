package amm

import (
	"context"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/krazyTry/cpamm-go/amm/shared"
)

type InitializeParams struct {
	Creator   solanago.PublicKey
	Seed      uint64
	Fee       uint16
	Authority *solanago.PublicKey
	MintX     solanago.PublicKey
	MintY     solanago.PublicKey
}

type InitializeResult struct {
	PoolAddresses
	Record *Pool
}

func validateInitialize(params InitializeParams) error {
	if params.Fee > BasisPointMax {
		return shared.ErrInvalidFee
	}
	if params.MintX.Equals(params.MintY) {
		return shared.ErrIdenticalMints
	}
	return nil
}

// Initialize creates the pool record for seed together with its LP mint and
// both vaults. The pool starts unlocked and empty.
func (p *Program) Initialize(ctx context.Context, params InitializeParams) (*InitializeResult, error) {
	fields := []zap.Field{
		zap.Uint64("seed", params.Seed),
		zap.Uint16("fee_bps", params.Fee),
		zap.String("mint_x", params.MintX.String()),
		zap.String("mint_y", params.MintY.String()),
	}
	if err := validateInitialize(params); err != nil {
		p.logger.Debug("initialize rejected", append(fields, zap.Error(err))...)
		return nil, fmt.Errorf("initialize: %w", err)
	}

	var result *InitializeResult
	err := p.run(ctx, "initialize", fields, func(ctx context.Context, l Ledger) (*Event, error) {
		address, configBump, err := DerivePoolAddress(p.programID, params.Seed)
		if err != nil {
			return nil, err
		}
		exists, err := l.AccountExists(ctx, address)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.ErrPoolAlreadyInitialized
		}

		for _, mint := range []solanago.PublicKey{params.MintX, params.MintY} {
			if _, err := l.MintDecimals(ctx, mint); err != nil {
				return nil, fmt.Errorf("mint %s: %w", mint, err)
			}
		}

		addrs, err := derivePoolAddresses(p.programID, address, params.MintX, params.MintY)
		if err != nil {
			return nil, err
		}
		_, lpBump, err := DeriveLpMintAddress(p.programID, address)
		if err != nil {
			return nil, err
		}

		pool := &Pool{
			Seed:       params.Seed,
			Authority:  params.Authority,
			MintX:      params.MintX,
			MintY:      params.MintY,
			Fee:        params.Fee,
			ConfigBump: configBump,
			LpBump:     lpBump,
		}
		if err := p.storePool(ctx, l, address, pool); err != nil {
			return nil, err
		}
		if err := l.CreateMint(ctx, addrs.LpMint, LpMintDecimals, address); err != nil {
			return nil, fmt.Errorf("create lp mint: %w", err)
		}
		if err := l.CreateTokenAccount(ctx, addrs.VaultX, params.MintX, address); err != nil {
			return nil, fmt.Errorf("create vault x: %w", err)
		}
		if err := l.CreateTokenAccount(ctx, addrs.VaultY, params.MintY, address); err != nil {
			return nil, fmt.Errorf("create vault y: %w", err)
		}

		result = &InitializeResult{PoolAddresses: addrs, Record: pool}
		return newEvent(EventInitialize, address, params.Creator, Snapshot{}, Snapshot{}), nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
