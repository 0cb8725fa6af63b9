package amm

import (
	"context"
	"fmt"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/krazyTry/cpamm-go/amm/shared"
)

// Program executes pool operations against a host ledger. It is safe for
// concurrent use; every operation runs in its own ledger transaction.
type Program struct {
	ledger    Transactor
	programID solanago.PublicKey
	logger    *zap.Logger
	sink      EventSink
	precision uint8
	policy    shared.BootstrapPolicy
	now       func() time.Time
	startSeq  uint64
	events    *publisher
	nonces    nonceBook
}

type Option func(*Program)

func WithLogger(logger *zap.Logger) Option {
	return func(p *Program) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithEventSink(sink EventSink) Option {
	return func(p *Program) { p.sink = sink }
}

// WithPrecisionDigits sets the share-ratio precision used by deposit and
// withdraw quotes. Zero selects exact mul-div.
func WithPrecisionDigits(digits uint8) Option {
	return func(p *Program) { p.precision = digits }
}

func WithBootstrapPolicy(policy shared.BootstrapPolicy) Option {
	return func(p *Program) { p.policy = policy }
}

func WithProgramID(id solanago.PublicKey) Option {
	return func(p *Program) { p.programID = id }
}

func WithClock(now func() time.Time) Option {
	return func(p *Program) {
		if now != nil {
			p.now = now
		}
	}
}

// WithSequenceStart continues event numbering after last, for sinks that
// already hold events from an earlier run.
func WithSequenceStart(last uint64) Option {
	return func(p *Program) { p.startSeq = last }
}

func New(ledger Transactor, opts ...Option) (*Program, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	p := &Program{
		ledger:    ledger,
		programID: ProgramID,
		logger:    zap.NewNop(),
		precision: DefaultPrecisionDigits,
		policy:    shared.BootstrapGeometricMean,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.precision > shared.MaxPrecisionDigits {
		return nil, shared.ErrInvalidPrecision
	}
	p.events = newPublisher(p.sink, p.logger, p.startSeq)
	return p, nil
}

func (p *Program) ProgramID() solanago.PublicKey { return p.programID }

// PoolAddress derives the pool for seed under this program.
func (p *Program) PoolAddress(seed uint64) (solanago.PublicKey, error) {
	addr, _, err := DerivePoolAddress(p.programID, seed)
	return addr, err
}

// run executes fn in one ledger transaction, then logs and publishes the
// event it produced. Nothing is published for a failed transaction.
func (p *Program) run(ctx context.Context, op string, fields []zap.Field, fn func(ctx context.Context, l Ledger) (*Event, error)) error {
	var (
		ev  *Event
		seq uint64
	)
	err := p.ledger.Execute(ctx, func(ctx context.Context, l Ledger) error {
		var err error
		if ev, err = fn(ctx, l); err != nil {
			return err
		}
		seq = p.events.next()
		ev.Seq = seq
		ev.Timestamp = p.now().UTC()
		return nil
	})
	if err != nil {
		if seq != 0 {
			p.events.done(ctx, seq, nil)
		}
		p.logger.Debug(op+" rejected", append(fields, zap.Error(err))...)
		return fmt.Errorf("%s: %w", op, err)
	}

	p.logger.Info(op,
		append(fields,
			zap.Uint64("seq", ev.Seq),
			zap.Uint64("reserve_x", ev.ReserveXAfter),
			zap.Uint64("reserve_y", ev.ReserveYAfter),
			zap.Uint64("supply", ev.SupplyAfter),
		)...,
	)
	p.events.done(ctx, seq, ev)
	return nil
}

// view runs a read-only fn against a consistent ledger snapshot.
func (p *Program) view(ctx context.Context, fn func(ctx context.Context, l Ledger) error) error {
	return p.ledger.Execute(ctx, fn)
}

type poolContext struct {
	address solanago.PublicKey
	pool    *Pool
	addrs   PoolAddresses
	signer  poolSigner
	snap    Snapshot
}

func (p *Program) loadPool(ctx context.Context, l Ledger, address solanago.PublicKey) (*poolContext, error) {
	exists, err := l.AccountExists(ctx, address)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, shared.ErrPoolNotFound
	}
	data, err := l.AccountData(ctx, address)
	if err != nil {
		return nil, err
	}
	pool, err := DecodePool(data)
	if err != nil {
		return nil, err
	}

	signer, err := pool.signer(p.programID)
	if err != nil {
		return nil, err
	}
	if !signer.address.Equals(address) {
		return nil, fmt.Errorf("pool %s does not match seed %d: %w", address, pool.Seed, shared.ErrPoolNotFound)
	}

	addrs, err := derivePoolAddresses(p.programID, address, pool.MintX, pool.MintY)
	if err != nil {
		return nil, err
	}
	snap, err := readSnapshot(ctx, l, addrs)
	if err != nil {
		return nil, err
	}
	return &poolContext{address: address, pool: pool, addrs: addrs, signer: signer, snap: snap}, nil
}

func readSnapshot(ctx context.Context, l Ledger, addrs PoolAddresses) (Snapshot, error) {
	var (
		s   Snapshot
		err error
	)
	if s.ReserveX, err = l.Balance(ctx, addrs.VaultX); err != nil {
		return Snapshot{}, fmt.Errorf("read vault x: %w", err)
	}
	if s.ReserveY, err = l.Balance(ctx, addrs.VaultY); err != nil {
		return Snapshot{}, fmt.Errorf("read vault y: %w", err)
	}
	if s.Supply, err = l.Supply(ctx, addrs.LpMint); err != nil {
		return Snapshot{}, fmt.Errorf("read lp supply: %w", err)
	}
	return s, nil
}

func (p *Program) storePool(ctx context.Context, l Ledger, address solanago.PublicKey, pool *Pool) error {
	data, err := EncodePool(pool)
	if err != nil {
		return err
	}
	return l.SetAccountData(ctx, address, data)
}

// ensureTokenAccount creates owner's associated account for mint if missing.
func ensureTokenAccount(ctx context.Context, l Ledger, owner, mint solanago.PublicKey) (solanago.PublicKey, error) {
	ata, err := DeriveUserTokenAccount(owner, mint)
	if err != nil {
		return solanago.PublicKey{}, err
	}
	exists, err := l.AccountExists(ctx, ata)
	if err != nil {
		return solanago.PublicKey{}, err
	}
	if !exists {
		if err := l.CreateTokenAccount(ctx, ata, mint, owner); err != nil {
			return solanago.PublicKey{}, err
		}
	}
	return ata, nil
}

// GetPool returns the stored record of a pool.
func (p *Program) GetPool(ctx context.Context, address solanago.PublicKey) (*Pool, error) {
	var pool *Pool
	err := p.view(ctx, func(ctx context.Context, l Ledger) error {
		pc, err := p.loadPool(ctx, l, address)
		if err != nil {
			return err
		}
		pool = pc.pool
		return nil
	})
	return pool, err
}

// GetSnapshot reads the live reserves and LP supply of a pool.
func (p *Program) GetSnapshot(ctx context.Context, address solanago.PublicKey) (Snapshot, error) {
	var snap Snapshot
	err := p.view(ctx, func(ctx context.Context, l Ledger) error {
		pc, err := p.loadPool(ctx, l, address)
		if err != nil {
			return err
		}
		snap = pc.snap
		return nil
	})
	return snap, err
}

// GetAddresses returns the LP mint and vaults of a pool.
func (p *Program) GetAddresses(ctx context.Context, address solanago.PublicKey) (PoolAddresses, error) {
	var addrs PoolAddresses
	err := p.view(ctx, func(ctx context.Context, l Ledger) error {
		pc, err := p.loadPool(ctx, l, address)
		if err != nil {
			return err
		}
		addrs = pc.addrs
		return nil
	})
	return addrs, err
}
