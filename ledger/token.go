package ledger

import (
	"bytes"

	binary "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

// Token is a mint held in the ledger.
type Token struct {
	token.Mint
	Address solanago.PublicKey
}

func newToken(address solanago.PublicKey, decimals uint8, authority solanago.PublicKey) *Token {
	return &Token{
		Address: address,
		Mint: token.Mint{
			MintAuthority: authority.ToPointer(),
			Decimals:      decimals,
			IsInitialized: true,
		},
	}
}

func (t *Token) clone() *Token {
	c := *t
	if t.MintAuthority != nil {
		c.MintAuthority = t.MintAuthority.ToPointer()
	}
	if t.FreezeAuthority != nil {
		c.FreezeAuthority = t.FreezeAuthority.ToPointer()
	}
	return &c
}

// Encode writes the mint in the token program layout.
func (t *Token) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := t.Mint.MarshalWithEncoder(binary.NewBinEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TokenLayout decodes mint data.
type TokenLayout struct {
}

func (l *TokenLayout) Decode(data []byte) (*Token, error) {
	mint := token.Mint{}

	if err := mint.UnmarshalWithDecoder(binary.NewBinDecoder(data)); err != nil {
		return nil, err
	}
	return &Token{Mint: mint}, nil
}
