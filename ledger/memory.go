package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	solanago "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/krazyTry/cpamm-go/amm"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountExists     = errors.New("account already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOwnerMismatch     = errors.New("owner does not match")
	ErrMintMismatch      = errors.New("account mint does not match")
	ErrAccountFrozen     = errors.New("account is frozen")
	ErrAmountOverflow    = errors.New("amount overflow")
	ErrNotDataAccount    = errors.New("account holds no program data")
)

type state struct {
	mints    map[solanago.PublicKey]*Token
	accounts map[solanago.PublicKey]*Account
	records  map[solanago.PublicKey][]byte
}

func newState() *state {
	return &state{
		mints:    map[solanago.PublicKey]*Token{},
		accounts: map[solanago.PublicKey]*Account{},
		records:  map[solanago.PublicKey][]byte{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.mints {
		c.mints[k] = v.clone()
	}
	for k, v := range s.accounts {
		c.accounts[k] = v.clone()
	}
	for k, v := range s.records {
		c.records[k] = append([]byte(nil), v...)
	}
	return c
}

// Memory is an in-process ledger. Transactions are serialized; each one
// works on a private copy of the state that replaces the committed state
// only when the transaction returns nil.
//
// One mutex covers every account, so operations on different pools queue
// behind each other, and read-only views pay for a full state copy. Hosts
// that need pools to progress in parallel should implement amm.Transactor
// with per-account locking.
type Memory struct {
	mu     sync.Mutex
	st     *state
	logger *zap.Logger
	txs    uint64
}

func NewMemory(logger *zap.Logger) *Memory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Memory{st: newState(), logger: logger}
}

// Execute implements amm.Transactor. fn must not call Execute again.
func (m *Memory) Execute(ctx context.Context, fn func(ctx context.Context, l amm.Ledger) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	work := &tx{st: m.st.clone()}
	if err := fn(ctx, work); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.st = work.st
	m.txs++
	m.logger.Debug("ledger commit", zap.Uint64("tx", m.txs), zap.Int("writes", work.writes))
	return nil
}

// TokenAccount returns a copy of the committed token account.
func (m *Memory) TokenAccount(address solanago.PublicKey) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.st.accounts[address]
	if !ok {
		return nil, fmt.Errorf("%s: %w", address, ErrAccountNotFound)
	}
	return acc.clone(), nil
}

// Mint returns a copy of the committed mint.
func (m *Memory) Mint(address solanago.PublicKey) (*Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.st.mints[address]
	if !ok {
		return nil, fmt.Errorf("%s: %w", address, ErrAccountNotFound)
	}
	return t.clone(), nil
}

// BalanceOf returns the owner's associated balance of mint, zero if the
// account does not exist.
func (m *Memory) BalanceOf(owner, mint solanago.PublicKey) (uint64, error) {
	ata, _, err := solanago.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.st.accounts[ata]; ok {
		return acc.Amount, nil
	}
	return 0, nil
}

// CreateMint creates a mint in its own transaction.
func (m *Memory) CreateMint(ctx context.Context, mint solanago.PublicKey, decimals uint8, authority solanago.PublicKey) error {
	return m.Execute(ctx, func(ctx context.Context, l amm.Ledger) error {
		return l.CreateMint(ctx, mint, decimals, authority)
	})
}

// Fund mints amount of mint into owner's associated account, creating it if
// needed. authority must be the mint authority.
func (m *Memory) Fund(ctx context.Context, owner, mint solanago.PublicKey, amount uint64, authority solanago.PublicKey) (solanago.PublicKey, error) {
	ata, _, err := solanago.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solanago.PublicKey{}, err
	}
	err = m.Execute(ctx, func(ctx context.Context, l amm.Ledger) error {
		exists, err := l.AccountExists(ctx, ata)
		if err != nil {
			return err
		}
		if !exists {
			if err := l.CreateTokenAccount(ctx, ata, mint, owner); err != nil {
				return err
			}
		}
		return l.MintTo(ctx, mint, ata, amount, authority)
	})
	return ata, err
}

// SetFrozen freezes or thaws a token account.
func (m *Memory) SetFrozen(ctx context.Context, account solanago.PublicKey, frozen bool) error {
	return m.Execute(ctx, func(ctx context.Context, l amm.Ledger) error {
		acc, err := l.(*tx).account(account)
		if err != nil {
			return err
		}
		acc.IsFrozen = frozen
		return nil
	})
}

var _ amm.Transactor = (*Memory)(nil)
