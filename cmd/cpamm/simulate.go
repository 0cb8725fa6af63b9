package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/krazyTry/cpamm-go/amm"
	"github.com/krazyTry/cpamm-go/amm/math"
	"github.com/krazyTry/cpamm-go/amm/shared"
	"github.com/krazyTry/cpamm-go/internal/config"
	"github.com/krazyTry/cpamm-go/ledger"
	"github.com/krazyTry/cpamm-go/storage"
	"github.com/krazyTry/cpamm-go/storage/postgres"
)

func newSimulateCmd() *cobra.Command {
	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a scenario against an in-memory ledger",
		RunE:  runSimulate,
	}
	simulateCmd.Flags().String("scenario", "", "scenario file (yaml, json or toml)")
	simulateCmd.Flags().String("events-out", "", "append events to this JSONL file")
	simulateCmd.Flags().String("pg-dsn", "", "Postgres DSN for events")
	simulateCmd.Flags().Uint8("precision", shared.DefaultPrecisionDigits, "share ratio precision digits, 0 for exact")
	simulateCmd.Flags().String("bootstrap", shared.BootstrapGeometricMean.String(), "first deposit policy (geometric-mean, requested)")
	simulateCmd.Flags().String("program-id", "", "program id, defaults to the built-in one")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	return simulateCmd
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	scenario, err := config.LoadScenario(cfg.Scenario)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	programID := amm.ProgramID
	if cfg.ProgramID != "" {
		if programID, err = solanago.PublicKeyFromBase58(cfg.ProgramID); err != nil {
			return fmt.Errorf("program id: %w", err)
		}
	}
	opts := []amm.Option{
		amm.WithLogger(logger),
		amm.WithPrecisionDigits(cfg.PrecisionDigits),
		amm.WithBootstrapPolicy(cfg.BootstrapPolicy),
		amm.WithProgramID(programID),
	}

	sinks := storage.Multi{}
	if cfg.EventsOut != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.EventsOut))
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		sinks = append(sinks, store)

		// keep numbering past rows from earlier runs on the same pool
		pool, _, err := amm.DerivePoolAddress(programID, scenario.Pool.Seed)
		if err != nil {
			return err
		}
		last, ok, err := store.LastSeq(ctx, pool.String())
		if err != nil {
			return fmt.Errorf("last seq: %w", err)
		}
		if ok {
			logger.Info("resume sequence", zap.String("pool", pool.String()), zap.Uint64("last_seq", last))
			opts = append(opts, amm.WithSequenceStart(last))
		}
	}
	opts = append(opts, amm.WithEventSink(sinks))

	sim, err := newSimulation(ctx, logger, scenario, opts...)
	if err != nil {
		return err
	}
	logger.Info("simulate start",
		zap.String("scenario", cfg.Scenario),
		zap.String("pool", sim.pool.String()),
		zap.Int("steps", len(scenario.Steps)),
		zap.Uint8("precision", cfg.PrecisionDigits),
		zap.Stringer("bootstrap", cfg.BootstrapPolicy),
	)
	if err := sim.run(ctx); err != nil {
		return err
	}

	report, err := sim.report(ctx)
	if err != nil {
		return err
	}
	return printJSON(cmd, report)
}

type simulation struct {
	scenario config.Scenario
	ledger   *ledger.Memory
	program  *amm.Program
	logger   *zap.Logger
	faucet   solanago.PublicKey
	mintX    solanago.PublicKey
	mintY    solanago.PublicKey
	wallets  map[string]solanago.PrivateKey
	nonces   map[solanago.PublicKey]uint64
	pool     solanago.PublicKey
}

func newSimulation(ctx context.Context, logger *zap.Logger, scenario config.Scenario, opts ...amm.Option) (*simulation, error) {
	mem := ledger.NewMemory(logger)
	program, err := amm.New(mem, opts...)
	if err != nil {
		return nil, err
	}

	s := &simulation{
		scenario: scenario,
		ledger:   mem,
		program:  program,
		logger:   logger,
		wallets:  map[string]solanago.PrivateKey{},
		nonces:   map[solanago.PublicKey]uint64{},
	}
	keys := make([]solanago.PrivateKey, 3)
	for i := range keys {
		if keys[i], err = solanago.NewRandomPrivateKey(); err != nil {
			return nil, err
		}
	}
	s.faucet, s.mintX, s.mintY = keys[0].PublicKey(), keys[1].PublicKey(), keys[2].PublicKey()

	if err := mem.CreateMint(ctx, s.mintX, scenario.Mints.DecimalsX, s.faucet); err != nil {
		return nil, err
	}
	if err := mem.CreateMint(ctx, s.mintY, scenario.Mints.DecimalsY, s.faucet); err != nil {
		return nil, err
	}

	for _, w := range scenario.Wallets {
		key, err := solanago.NewRandomPrivateKey()
		if err != nil {
			return nil, err
		}
		s.wallets[w.Name] = key
		if _, err := mem.Fund(ctx, key.PublicKey(), s.mintX, w.X, s.faucet); err != nil {
			return nil, fmt.Errorf("fund %s: %w", w.Name, err)
		}
		if _, err := mem.Fund(ctx, key.PublicKey(), s.mintY, w.Y, s.faucet); err != nil {
			return nil, fmt.Errorf("fund %s: %w", w.Name, err)
		}
	}

	if s.pool, err = program.PoolAddress(scenario.Pool.Seed); err != nil {
		return nil, err
	}
	return s, nil
}

// creator signs initialize: the authority when set, otherwise a throwaway key.
func (s *simulation) creator() (solanago.PrivateKey, error) {
	if s.scenario.Pool.Authority != "" {
		return s.wallets[s.scenario.Pool.Authority], nil
	}
	return solanago.NewRandomPrivateKey()
}

func (s *simulation) nextNonce(key solanago.PrivateKey) uint64 {
	s.nonces[key.PublicKey()]++
	return s.nonces[key.PublicKey()]
}

func (s *simulation) run(ctx context.Context) error {
	creator, err := s.creator()
	if err != nil {
		return err
	}
	args := &amm.InitializeArgs{Seed: s.scenario.Pool.Seed, Fee: s.scenario.Pool.Fee}
	if s.scenario.Pool.Authority != "" {
		args.Authority = s.wallets[s.scenario.Pool.Authority].PublicKey().ToPointer()
	}
	env, err := amm.SignEnvelope(creator, s.pool, s.mintX, s.mintY, s.nextNonce(creator), args)
	if err != nil {
		return err
	}
	if err := s.program.Process(ctx, env); err != nil {
		return err
	}

	for i, step := range s.scenario.Steps {
		err := s.step(ctx, step)
		code, _ := shared.Code(err)
		switch {
		case step.ExpectCode != 0 && code == step.ExpectCode:
			s.logger.Info("step failed as expected", zap.Int("step", i), zap.String("op", step.Op), zap.Uint32("code", code))
		case step.ExpectCode != 0:
			return fmt.Errorf("step %d (%s): expected code %d, got %v", i, step.Op, step.ExpectCode, err)
		case err != nil:
			return fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
	}
	return nil
}

func (s *simulation) step(ctx context.Context, step config.StepSpec) error {
	var ix amm.Instruction
	switch step.Op {
	case "deposit":
		ix = &amm.DepositArgs{Amount: step.Amount, MaxX: step.MaxX, MaxY: step.MaxY}
	case "withdraw":
		ix = &amm.WithdrawArgs{Amount: step.Amount, MinX: step.MinX, MinY: step.MinY}
	case "swap":
		ix = &amm.SwapArgs{IsX: step.IsX, Amount: step.Amount, Min: step.Min}
	case "lock":
		ix = &amm.LockArgs{}
	case "unlock":
		ix = &amm.UnlockArgs{}
	default:
		return errors.New("unknown op " + step.Op)
	}
	var none solanago.PublicKey
	key := s.wallets[step.Wallet]
	env, err := amm.SignEnvelope(key, s.pool, none, none, s.nextNonce(key), ix)
	if err != nil {
		return err
	}
	return s.program.Process(ctx, env)
}

type walletReport struct {
	Address string `json:"address"`
	X       string `json:"x"`
	Y       string `json:"y"`
	LP      string `json:"lp"`
}

type simulationReport struct {
	Pool      string                  `json:"pool"`
	Status    string                  `json:"status"`
	Locked    bool                    `json:"locked"`
	Fee       uint16                  `json:"fee_bps"`
	ReserveX  uint64                  `json:"reserve_x"`
	ReserveY  uint64                  `json:"reserve_y"`
	Supply    uint64                  `json:"supply"`
	Invariant string                  `json:"invariant"`
	SpotPrice string                  `json:"spot_price"`
	Wallets   map[string]walletReport `json:"wallets"`
}

func (s *simulation) report(ctx context.Context) (*simulationReport, error) {
	pool, err := s.program.GetPool(ctx, s.pool)
	if err != nil {
		return nil, err
	}
	snap, err := s.program.GetSnapshot(ctx, s.pool)
	if err != nil {
		return nil, err
	}
	addrs, err := s.program.GetAddresses(ctx, s.pool)
	if err != nil {
		return nil, err
	}

	dx, dy := s.scenario.Mints.DecimalsX, s.scenario.Mints.DecimalsY
	r := &simulationReport{
		Pool:      s.pool.String(),
		Status:    pool.Status(),
		Locked:    pool.Locked,
		Fee:       pool.Fee,
		ReserveX:  snap.ReserveX,
		ReserveY:  snap.ReserveY,
		Supply:    snap.Supply,
		Invariant: math.Invariant(snap.ReserveX, snap.ReserveY).BigInt().String(),
		SpotPrice: math.SpotPrice(snap.ReserveX, snap.ReserveY, dx, dy).String(),
		Wallets:   map[string]walletReport{},
	}
	for name, key := range s.wallets {
		owner := key.PublicKey()
		x, err := s.ledger.BalanceOf(owner, s.mintX)
		if err != nil {
			return nil, err
		}
		y, err := s.ledger.BalanceOf(owner, s.mintY)
		if err != nil {
			return nil, err
		}
		lp, err := s.ledger.BalanceOf(owner, addrs.LpMint)
		if err != nil {
			return nil, err
		}
		r.Wallets[name] = walletReport{
			Address: owner.String(),
			X:       math.ToUIAmount(x, dx).String(),
			Y:       math.ToUIAmount(y, dy).String(),
			LP:      math.ToUIAmount(lp, amm.LpMintDecimals).String(),
		}
	}
	return r, nil
}
