package amm

import (
	"context"

	solanago "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/krazyTry/cpamm-go/amm/shared"
)

// Lock stops deposits, withdrawals and swaps until Unlock.
func (p *Program) Lock(ctx context.Context, pool, caller solanago.PublicKey) error {
	return p.setLocked(ctx, pool, caller, true)
}

func (p *Program) Unlock(ctx context.Context, pool, caller solanago.PublicKey) error {
	return p.setLocked(ctx, pool, caller, false)
}

func (p *Program) setLocked(ctx context.Context, address, caller solanago.PublicKey, locked bool) error {
	op, kind := "unlock", EventUnlock
	if locked {
		op, kind = "lock", EventLock
	}
	fields := []zap.Field{
		zap.String("pool", address.String()),
		zap.String("caller", caller.String()),
	}
	return p.run(ctx, op, fields, func(ctx context.Context, l Ledger) (*Event, error) {
		pc, err := p.loadPool(ctx, l, address)
		if err != nil {
			return nil, err
		}
		// an unset authority means nobody can toggle the lock
		if pc.pool.Authority == nil || !pc.pool.Authority.Equals(caller) {
			return nil, shared.ErrUnauthorized
		}
		pc.pool.Locked = locked
		if err := p.storePool(ctx, l, address, pc.pool); err != nil {
			return nil, err
		}
		ev := newEvent(kind, address, caller, pc.snap, pc.snap)
		ev.Locked = locked
		return ev, nil
	})
}
