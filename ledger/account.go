package ledger

import (
	"bytes"
	encbin "encoding/binary"
	"fmt"

	binary "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
)

type AccountState uint8

const (
	AccountStateUninitialized AccountState = 0
	AccountStateInitialized   AccountState = 1
	AccountStateFrozen        AccountState = 2
)

// TokenAccountSize is the length of an encoded token account.
const TokenAccountSize = 165

// Account is a token account held in the ledger.
type Account struct {
	Address solanago.PublicKey
	// Mint associated with the account
	Mint solanago.PublicKey

	// Owner of the account, the only identity that may move its tokens
	Owner solanago.PublicKey

	// Number of tokens the account holds
	Amount uint64

	IsFrozen bool
}

func (a *Account) clone() *Account {
	c := *a
	return &c
}

func (a *Account) state() AccountState {
	if a.IsFrozen {
		return AccountStateFrozen
	}
	return AccountStateInitialized
}

// EncodeAccount writes a in the token program account layout, with every
// optional field unset.
func EncodeAccount(a *Account) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := binary.NewBinEncoder(buf)
	var empty [32]byte
	steps := []func() error{
		func() error { return enc.WriteBytes(a.Mint[:], false) },
		func() error { return enc.WriteBytes(a.Owner[:], false) },
		func() error { return enc.WriteUint64(a.Amount, encbin.LittleEndian) },
		// delegate
		func() error { return enc.WriteUint32(0, encbin.LittleEndian) },
		func() error { return enc.WriteBytes(empty[:], false) },
		func() error { return enc.WriteUint8(uint8(a.state())) },
		// is native
		func() error { return enc.WriteUint32(0, encbin.LittleEndian) },
		func() error { return enc.WriteUint64(0, encbin.LittleEndian) },
		// delegated amount
		func() error { return enc.WriteUint64(0, encbin.LittleEndian) },
		// close authority
		func() error { return enc.WriteUint32(0, encbin.LittleEndian) },
		func() error { return enc.WriteBytes(empty[:], false) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// AccountLayout decodes token account data.
type AccountLayout struct {
}

func (l *AccountLayout) Decode(data []byte) (*Account, error) {
	if len(data) < TokenAccountSize {
		return nil, fmt.Errorf("token account: need %d bytes, got %d", TokenAccountSize, len(data))
	}
	dec := binary.NewBinDecoder(data)
	mint, err := dec.ReadNBytes(32)
	if err != nil {
		return nil, err
	}
	owner, err := dec.ReadNBytes(32)
	if err != nil {
		return nil, err
	}
	amount, err := dec.ReadUint64(encbin.LittleEndian)
	if err != nil {
		return nil, err
	}
	// delegate option and key
	if err := dec.SkipBytes(4 + 32); err != nil {
		return nil, err
	}
	state, err := dec.ReadUint8()
	if err != nil {
		return nil, err
	}
	if AccountState(state) == AccountStateUninitialized {
		return nil, fmt.Errorf("token account: uninitialized")
	}
	return &Account{
		Mint:     solanago.PublicKeyFromBytes(mint),
		Owner:    solanago.PublicKeyFromBytes(owner),
		Amount:   amount,
		IsFrozen: AccountState(state) == AccountStateFrozen,
	}, nil
}
