package ledger

import (
	"context"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/krazyTry/cpamm-go/amm"
)

// tx is the amm.Ledger view handed to a transaction.
type tx struct {
	st     *state
	writes int
}

var _ amm.Ledger = (*tx)(nil)

func (t *tx) account(address solanago.PublicKey) (*Account, error) {
	acc, ok := t.st.accounts[address]
	if !ok {
		return nil, fmt.Errorf("token account %s: %w", address, ErrAccountNotFound)
	}
	return acc, nil
}

func (t *tx) mint(address solanago.PublicKey) (*Token, error) {
	m, ok := t.st.mints[address]
	if !ok {
		return nil, fmt.Errorf("mint %s: %w", address, ErrAccountNotFound)
	}
	return m, nil
}

func (t *tx) exists(address solanago.PublicKey) bool {
	if _, ok := t.st.accounts[address]; ok {
		return true
	}
	if _, ok := t.st.mints[address]; ok {
		return true
	}
	_, ok := t.st.records[address]
	return ok
}

func (t *tx) Balance(_ context.Context, account solanago.PublicKey) (uint64, error) {
	acc, err := t.account(account)
	if err != nil {
		return 0, err
	}
	return acc.Amount, nil
}

func (t *tx) Supply(_ context.Context, mint solanago.PublicKey) (uint64, error) {
	m, err := t.mint(mint)
	if err != nil {
		return 0, err
	}
	return m.Supply, nil
}

func (t *tx) MintDecimals(_ context.Context, mint solanago.PublicKey) (uint8, error) {
	m, err := t.mint(mint)
	if err != nil {
		return 0, err
	}
	return m.Decimals, nil
}

func (t *tx) Transfer(_ context.Context, from, to solanago.PublicKey, amount uint64, authority solanago.PublicKey) error {
	src, err := t.account(from)
	if err != nil {
		return err
	}
	dst, err := t.account(to)
	if err != nil {
		return err
	}
	if !src.Mint.Equals(dst.Mint) {
		return ErrMintMismatch
	}
	if !src.Owner.Equals(authority) {
		return fmt.Errorf("transfer from %s: %w", from, ErrOwnerMismatch)
	}
	if src.IsFrozen || dst.IsFrozen {
		return ErrAccountFrozen
	}
	if src.Amount < amount {
		return fmt.Errorf("transfer %d from %s holding %d: %w", amount, from, src.Amount, ErrInsufficientFunds)
	}
	if from.Equals(to) {
		return nil
	}
	if dst.Amount+amount < dst.Amount {
		return ErrAmountOverflow
	}
	src.Amount -= amount
	dst.Amount += amount
	t.writes += 2
	return nil
}

func (t *tx) MintTo(_ context.Context, mint, to solanago.PublicKey, amount uint64, authority solanago.PublicKey) error {
	m, err := t.mint(mint)
	if err != nil {
		return err
	}
	dst, err := t.account(to)
	if err != nil {
		return err
	}
	if !dst.Mint.Equals(mint) {
		return ErrMintMismatch
	}
	if m.MintAuthority == nil || !m.MintAuthority.Equals(authority) {
		return fmt.Errorf("mint %s: %w", mint, ErrOwnerMismatch)
	}
	if dst.IsFrozen {
		return ErrAccountFrozen
	}
	if m.Supply+amount < m.Supply || dst.Amount+amount < dst.Amount {
		return ErrAmountOverflow
	}
	m.Supply += amount
	dst.Amount += amount
	t.writes += 2
	return nil
}

func (t *tx) Burn(_ context.Context, mint, from solanago.PublicKey, amount uint64, authority solanago.PublicKey) error {
	m, err := t.mint(mint)
	if err != nil {
		return err
	}
	src, err := t.account(from)
	if err != nil {
		return err
	}
	if !src.Mint.Equals(mint) {
		return ErrMintMismatch
	}
	if !src.Owner.Equals(authority) {
		return fmt.Errorf("burn from %s: %w", from, ErrOwnerMismatch)
	}
	if src.IsFrozen {
		return ErrAccountFrozen
	}
	if src.Amount < amount {
		return fmt.Errorf("burn %d from %s holding %d: %w", amount, from, src.Amount, ErrInsufficientFunds)
	}
	src.Amount -= amount
	m.Supply -= amount
	t.writes += 2
	return nil
}

func (t *tx) CreateMint(_ context.Context, mint solanago.PublicKey, decimals uint8, authority solanago.PublicKey) error {
	if t.exists(mint) {
		return fmt.Errorf("mint %s: %w", mint, ErrAccountExists)
	}
	t.st.mints[mint] = newToken(mint, decimals, authority)
	t.writes++
	return nil
}

func (t *tx) CreateTokenAccount(_ context.Context, account, mint, owner solanago.PublicKey) error {
	if t.exists(account) {
		return fmt.Errorf("token account %s: %w", account, ErrAccountExists)
	}
	if _, err := t.mint(mint); err != nil {
		return err
	}
	t.st.accounts[account] = &Account{Address: account, Mint: mint, Owner: owner}
	t.writes++
	return nil
}

func (t *tx) AccountExists(_ context.Context, account solanago.PublicKey) (bool, error) {
	return t.exists(account), nil
}

// AccountData returns program data, or the token program layout for mints
// and token accounts.
func (t *tx) AccountData(_ context.Context, account solanago.PublicKey) ([]byte, error) {
	if data, ok := t.st.records[account]; ok {
		return append([]byte(nil), data...), nil
	}
	if acc, ok := t.st.accounts[account]; ok {
		return EncodeAccount(acc)
	}
	if m, ok := t.st.mints[account]; ok {
		return m.Encode()
	}
	return nil, fmt.Errorf("%s: %w", account, ErrAccountNotFound)
}

func (t *tx) SetAccountData(_ context.Context, account solanago.PublicKey, data []byte) error {
	if _, ok := t.st.accounts[account]; ok {
		return fmt.Errorf("%s: %w", account, ErrNotDataAccount)
	}
	if _, ok := t.st.mints[account]; ok {
		return fmt.Errorf("%s: %w", account, ErrNotDataAccount)
	}
	t.st.records[account] = append([]byte(nil), data...)
	t.writes++
	return nil
}
