package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/krazyTry/cpamm-go/amm"
)

// Schema creates the tables the store writes to.
const Schema = `
CREATE TABLE IF NOT EXISTS pool_events (
	seq              BIGINT      NOT NULL,
	pool_address     TEXT        NOT NULL,
	kind             TEXT        NOT NULL,
	user_address     TEXT        NOT NULL,
	amount_x_in      NUMERIC(20) NOT NULL,
	amount_y_in      NUMERIC(20) NOT NULL,
	amount_x_out     NUMERIC(20) NOT NULL,
	amount_y_out     NUMERIC(20) NOT NULL,
	fee              NUMERIC(20) NOT NULL,
	lp_minted        NUMERIC(20) NOT NULL,
	lp_burned        NUMERIC(20) NOT NULL,
	reserve_x        NUMERIC(20) NOT NULL,
	reserve_y        NUMERIC(20) NOT NULL,
	supply           NUMERIC(20) NOT NULL,
	invariant        NUMERIC(39) NOT NULL,
	locked           BOOLEAN     NOT NULL,
	event_ts         TIMESTAMPTZ NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (pool_address, seq)
);
CREATE TABLE IF NOT EXISTS pools (
	pool_address TEXT        PRIMARY KEY,
	reserve_x    NUMERIC(20) NOT NULL,
	reserve_y    NUMERIC(20) NOT NULL,
	supply       NUMERIC(20) NOT NULL,
	locked       BOOLEAN     NOT NULL,
	last_seq     BIGINT      NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);`

// Store persists pool events and the latest pool state in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

// PutEvents inserts events and upserts the pool rows they touch in one batch.
// Only lock and unlock commit while a pool is locked, so e.Locked is the
// pool flag after every event.
func (s *Store) PutEvents(ctx context.Context, events []amm.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range events {
		queueEvent(batch, e)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("pool event %d: %w", i/2, err)
		}
	}
	return nil
}

func queueEvent(batch *pgx.Batch, e amm.Event) {
	batch.Queue(`
		INSERT INTO pool_events (
			seq, pool_address, kind, user_address,
			amount_x_in, amount_y_in, amount_x_out, amount_y_out, fee, lp_minted, lp_burned,
			reserve_x, reserve_y, supply, invariant, locked, event_ts
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15::numeric,$16,$17)
		ON CONFLICT (pool_address, seq) DO NOTHING
	`,
		int64(e.Seq),
		e.Pool,
		string(e.Kind),
		e.User,
		numeric(e.AmountXIn),
		numeric(e.AmountYIn),
		numeric(e.AmountXOut),
		numeric(e.AmountYOut),
		numeric(e.Fee),
		numeric(e.LpMinted),
		numeric(e.LpBurned),
		numeric(e.ReserveXAfter),
		numeric(e.ReserveYAfter),
		numeric(e.SupplyAfter),
		e.InvariantAfter,
		e.Locked,
		e.Timestamp,
	)
	batch.Queue(`
		INSERT INTO pools (pool_address, reserve_x, reserve_y, supply, locked, last_seq, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (pool_address) DO UPDATE SET
			reserve_x = EXCLUDED.reserve_x,
			reserve_y = EXCLUDED.reserve_y,
			supply = EXCLUDED.supply,
			locked = EXCLUDED.locked,
			last_seq = EXCLUDED.last_seq,
			updated_at = EXCLUDED.updated_at
		WHERE pools.last_seq < EXCLUDED.last_seq
	`,
		e.Pool,
		numeric(e.ReserveXAfter),
		numeric(e.ReserveYAfter),
		numeric(e.SupplyAfter),
		e.Locked,
		int64(e.Seq),
		e.Timestamp,
	)
}

// LastSeq returns the highest stored sequence for a pool.
func (s *Store) LastSeq(ctx context.Context, pool string) (uint64, bool, error) {
	if pool == "" {
		return 0, false, fmt.Errorf("pool address required")
	}
	var seq int64
	row := s.pool.QueryRow(ctx, `SELECT last_seq FROM pools WHERE pool_address=$1`, pool)
	if err := row.Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(seq), true, nil
}

var _ amm.EventSink = (*Store)(nil)
