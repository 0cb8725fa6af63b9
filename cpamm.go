package cpamm

import (
	"github.com/krazyTry/cpamm-go/amm"
	"github.com/krazyTry/cpamm-go/ledger"
)

// New creates a pool program over a host ledger.
//
// Example:
//
// program, _ := New(NewMemoryLedger(logger), amm.WithLogger(logger))
//
// program.Initialize(ctx, amm.InitializeParams{Seed: 1, Fee: 30, MintX: mintX, MintY: mintY})
//
// program.Swap(ctx, amm.SwapParams{Pool: pool, User: user, AmountIn: 1_000, MinOut: 1_980})
var New = amm.New

// NewMemoryLedger creates an in-process ledger for simulations and tests.
var NewMemoryLedger = ledger.NewMemory
