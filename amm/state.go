package amm

import (
	"bytes"
	"crypto/sha256"
	encbin "encoding/binary"
	"fmt"

	binary "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"

	"github.com/krazyTry/cpamm-go/amm/shared"
)

// Pool is the persisted per-pair record. Reserves and LP supply live in the
// ledger and are never stored here.
type Pool struct {
	Seed       uint64
	Authority  *solanago.PublicKey
	MintX      solanago.PublicKey
	MintY      solanago.PublicKey
	Fee        uint16
	Locked     bool
	ConfigBump uint8
	LpBump     uint8
}

// Snapshot is the reserve and supply state read once at operation start.
type Snapshot struct {
	ReserveX uint64
	ReserveY uint64
	Supply   uint64
}

// Bootstrapping reports whether the pool is still waiting for its first deposit.
func (s Snapshot) Bootstrapping() bool {
	return s.Supply == 0 && s.ReserveX == 0 && s.ReserveY == 0
}

func (s Snapshot) reserves(direction shared.TradeDirection) (in, out uint64) {
	if direction == shared.TradeDirectionXtoY {
		return s.ReserveX, s.ReserveY
	}
	return s.ReserveY, s.ReserveX
}

func discriminator(prefix, name string) []byte {
	hash := sha256.Sum256([]byte(prefix + ":" + name))
	var out [8]byte
	copy(out[:], hash[:8])
	return out[:]
}

// PoolDiscriminator prefixes every encoded Pool record.
var PoolDiscriminator = discriminator("account", PoolAccountName)

func (p Pool) MarshalWithEncoder(enc *binary.Encoder) error {
	if err := enc.WriteUint64(p.Seed, encbin.LittleEndian); err != nil {
		return err
	}
	if err := enc.WriteBool(p.Authority != nil); err != nil {
		return err
	}
	if p.Authority != nil {
		if err := enc.WriteBytes(p.Authority[:], false); err != nil {
			return err
		}
	}
	if err := enc.WriteBytes(p.MintX[:], false); err != nil {
		return err
	}
	if err := enc.WriteBytes(p.MintY[:], false); err != nil {
		return err
	}
	if err := enc.WriteUint16(p.Fee, encbin.LittleEndian); err != nil {
		return err
	}
	if err := enc.WriteBool(p.Locked); err != nil {
		return err
	}
	if err := enc.WriteUint8(p.ConfigBump); err != nil {
		return err
	}
	return enc.WriteUint8(p.LpBump)
}

func (p *Pool) UnmarshalWithDecoder(dec *binary.Decoder) (err error) {
	if p.Seed, err = dec.ReadUint64(encbin.LittleEndian); err != nil {
		return err
	}
	hasAuthority, err := dec.ReadBool()
	if err != nil {
		return err
	}
	p.Authority = nil
	if hasAuthority {
		key, err := readPublicKey(dec)
		if err != nil {
			return err
		}
		p.Authority = &key
	}
	if p.MintX, err = readPublicKey(dec); err != nil {
		return err
	}
	if p.MintY, err = readPublicKey(dec); err != nil {
		return err
	}
	if p.Fee, err = dec.ReadUint16(encbin.LittleEndian); err != nil {
		return err
	}
	if p.Locked, err = dec.ReadBool(); err != nil {
		return err
	}
	if p.ConfigBump, err = dec.ReadUint8(); err != nil {
		return err
	}
	p.LpBump, err = dec.ReadUint8()
	return err
}

func readPublicKey(dec *binary.Decoder) (solanago.PublicKey, error) {
	raw, err := dec.ReadNBytes(solanago.PublicKeyLength)
	if err != nil {
		return solanago.PublicKey{}, err
	}
	return solanago.PublicKeyFromBytes(raw), nil
}

// EncodePool serializes p behind its account discriminator. The record has
// a fixed size, so an unset authority is zero-padded.
func EncodePool(p *Pool) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(PoolDiscriminator)
	if err := p.MarshalWithEncoder(binary.NewBorshEncoder(buf)); err != nil {
		return nil, err
	}
	if pad := PoolAccountSize - buf.Len(); pad > 0 {
		buf.Write(make([]byte, pad))
	}
	return buf.Bytes(), nil
}

// DecodePool parses a record written by EncodePool.
func DecodePool(data []byte) (*Pool, error) {
	if len(data) < len(PoolDiscriminator) || !bytes.Equal(data[:8], PoolDiscriminator) {
		return nil, fmt.Errorf("decode pool: %w", shared.ErrPoolNotFound)
	}
	var p Pool
	if err := p.UnmarshalWithDecoder(binary.NewBorshDecoder(data[8:])); err != nil {
		return nil, fmt.Errorf("decode pool: %w", err)
	}
	return &p, nil
}

// poolSigner is the pool's derived identity. It authorizes every outgoing
// vault transfer and every LP mint, and is never handed to callers.
type poolSigner struct {
	address solanago.PublicKey
}

func (p *Pool) signer(programID solanago.PublicKey) (poolSigner, error) {
	addr, err := solanago.CreateProgramAddress(
		[][]byte{[]byte(PoolSeed), seedBytes(p.Seed), {p.ConfigBump}},
		programID,
	)
	if err != nil {
		return poolSigner{}, fmt.Errorf("pool signer: %w", err)
	}
	return poolSigner{address: addr}, nil
}

// Status reports the state machine position of the pool.
func (p *Pool) Status() string {
	if p.Locked {
		return "locked"
	}
	return "active"
}
