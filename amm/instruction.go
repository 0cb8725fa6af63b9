package amm

import (
	"bytes"
	"context"
	encbin "encoding/binary"
	"fmt"
	"sync"

	binary "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/krazyTry/cpamm-go/amm/shared"
)

// Instruction is one decoded program call.
type Instruction interface {
	Name() string
	MarshalWithEncoder(enc *binary.Encoder) error
	UnmarshalWithDecoder(dec *binary.Decoder) error
}

type InitializeArgs struct {
	Seed      uint64
	Fee       uint16
	Authority *solanago.PublicKey
}

func (*InitializeArgs) Name() string { return "initialize" }

func (a *InitializeArgs) MarshalWithEncoder(enc *binary.Encoder) error {
	if err := enc.WriteUint64(a.Seed, encbin.LittleEndian); err != nil {
		return err
	}
	if err := enc.WriteUint16(a.Fee, encbin.LittleEndian); err != nil {
		return err
	}
	if err := enc.WriteBool(a.Authority != nil); err != nil {
		return err
	}
	if a.Authority == nil {
		return nil
	}
	return enc.WriteBytes(a.Authority[:], false)
}

func (a *InitializeArgs) UnmarshalWithDecoder(dec *binary.Decoder) (err error) {
	if a.Seed, err = dec.ReadUint64(encbin.LittleEndian); err != nil {
		return err
	}
	if a.Fee, err = dec.ReadUint16(encbin.LittleEndian); err != nil {
		return err
	}
	has, err := dec.ReadBool()
	if err != nil || !has {
		return err
	}
	key, err := readPublicKey(dec)
	if err != nil {
		return err
	}
	a.Authority = &key
	return nil
}

// DepositArgs asks for Amount LP shares paying at most MaxX and MaxY.
type DepositArgs struct {
	Amount uint64
	MaxX   uint64
	MaxY   uint64
}

func (*DepositArgs) Name() string { return "deposit" }

func (a *DepositArgs) MarshalWithEncoder(enc *binary.Encoder) error {
	return writeUint64s(enc, a.Amount, a.MaxX, a.MaxY)
}

func (a *DepositArgs) UnmarshalWithDecoder(dec *binary.Decoder) error {
	return readUint64s(dec, &a.Amount, &a.MaxX, &a.MaxY)
}

type WithdrawArgs struct {
	Amount uint64
	MinX   uint64
	MinY   uint64
}

func (*WithdrawArgs) Name() string { return "withdraw" }

func (a *WithdrawArgs) MarshalWithEncoder(enc *binary.Encoder) error {
	return writeUint64s(enc, a.Amount, a.MinX, a.MinY)
}

func (a *WithdrawArgs) UnmarshalWithDecoder(dec *binary.Decoder) error {
	return readUint64s(dec, &a.Amount, &a.MinX, &a.MinY)
}

// SwapArgs sells Amount of X when IsX is set, of Y otherwise.
type SwapArgs struct {
	IsX    bool
	Amount uint64
	Min    uint64
}

func (*SwapArgs) Name() string { return "swap" }

func (a *SwapArgs) MarshalWithEncoder(enc *binary.Encoder) error {
	if err := enc.WriteBool(a.IsX); err != nil {
		return err
	}
	return writeUint64s(enc, a.Amount, a.Min)
}

func (a *SwapArgs) UnmarshalWithDecoder(dec *binary.Decoder) (err error) {
	if a.IsX, err = dec.ReadBool(); err != nil {
		return err
	}
	return readUint64s(dec, &a.Amount, &a.Min)
}

type LockArgs struct{}

func (*LockArgs) Name() string                               { return "lock" }
func (*LockArgs) MarshalWithEncoder(*binary.Encoder) error   { return nil }
func (*LockArgs) UnmarshalWithDecoder(*binary.Decoder) error { return nil }

type UnlockArgs struct{}

func (*UnlockArgs) Name() string                               { return "unlock" }
func (*UnlockArgs) MarshalWithEncoder(*binary.Encoder) error   { return nil }
func (*UnlockArgs) UnmarshalWithDecoder(*binary.Decoder) error { return nil }

func writeUint64s(enc *binary.Encoder, values ...uint64) error {
	for _, v := range values {
		if err := enc.WriteUint64(v, encbin.LittleEndian); err != nil {
			return err
		}
	}
	return nil
}

func readUint64s(dec *binary.Decoder, values ...*uint64) (err error) {
	for _, v := range values {
		if *v, err = dec.ReadUint64(encbin.LittleEndian); err != nil {
			return err
		}
	}
	return nil
}

func InstructionDiscriminator(name string) []byte {
	return discriminator("global", name)
}

var instructionFactories = []func() Instruction{
	func() Instruction { return &InitializeArgs{} },
	func() Instruction { return &DepositArgs{} },
	func() Instruction { return &WithdrawArgs{} },
	func() Instruction { return &SwapArgs{} },
	func() Instruction { return &LockArgs{} },
	func() Instruction { return &UnlockArgs{} },
}

// EncodeInstruction returns the discriminator followed by the borsh args.
func EncodeInstruction(ix Instruction) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(InstructionDiscriminator(ix.Name()))
	if err := ix.MarshalWithEncoder(binary.NewBorshEncoder(buf)); err != nil {
		return nil, fmt.Errorf("encode %s: %w", ix.Name(), err)
	}
	return buf.Bytes(), nil
}

func DecodeInstruction(data []byte) (Instruction, error) {
	if len(data) < 8 {
		return nil, shared.ErrInvalidInstruction
	}
	for _, factory := range instructionFactories {
		ix := factory()
		if !bytes.Equal(data[:8], InstructionDiscriminator(ix.Name())) {
			continue
		}
		dec := binary.NewBorshDecoder(data[8:])
		if err := ix.UnmarshalWithDecoder(dec); err != nil {
			return nil, fmt.Errorf("decode %s: %v: %w", ix.Name(), err, shared.ErrInvalidInstruction)
		}
		if dec.Remaining() != 0 {
			return nil, fmt.Errorf("decode %s: %d trailing bytes: %w", ix.Name(), dec.Remaining(), shared.ErrInvalidInstruction)
		}
		return ix, nil
	}
	return nil, shared.ErrInvalidInstruction
}

// Envelope is a signed call. MintX and MintY are only read by initialize.
// Nonce must exceed the last nonce Process accepted from Signer.
type Envelope struct {
	Signer    solanago.PublicKey
	Pool      solanago.PublicKey
	MintX     solanago.PublicKey
	MintY     solanago.PublicKey
	Nonce     uint64
	Data      []byte
	Signature solanago.Signature
}

// message is Data ‖ Pool ‖ MintX ‖ MintY ‖ Nonce (u64 little endian).
func (e *Envelope) message() []byte {
	msg := make([]byte, 0, len(e.Data)+3*solanago.PublicKeyLength+8)
	msg = append(msg, e.Data...)
	msg = append(msg, e.Pool[:]...)
	msg = append(msg, e.MintX[:]...)
	msg = append(msg, e.MintY[:]...)
	return encbin.LittleEndian.AppendUint64(msg, e.Nonce)
}

// Verify checks that Signer signed the envelope.
func (e *Envelope) Verify() error {
	if !e.Signature.Verify(e.Signer, e.message()) {
		return shared.ErrSignatureVerification
	}
	return nil
}

// SignEnvelope encodes ix and signs it with key. Pass zero mints for every
// instruction except initialize.
func SignEnvelope(key solanago.PrivateKey, pool, mintX, mintY solanago.PublicKey, nonce uint64, ix Instruction) (*Envelope, error) {
	data, err := EncodeInstruction(ix)
	if err != nil {
		return nil, err
	}
	env := &Envelope{
		Signer: key.PublicKey(),
		Pool:   pool,
		MintX:  mintX,
		MintY:  mintY,
		Nonce:  nonce,
		Data:   data,
	}
	if env.Signature, err = key.Sign(env.message()); err != nil {
		return nil, fmt.Errorf("sign envelope: %w", err)
	}
	return env, nil
}

// Process verifies and dispatches a signed envelope. The signer is the
// caller of the operation.
func (p *Program) Process(ctx context.Context, env *Envelope) error {
	if env == nil {
		return shared.ErrInvalidInstruction
	}
	if err := env.Verify(); err != nil {
		p.logger.Debug("process rejected", zap.String("signer", env.Signer.String()), zap.Error(err))
		return err
	}
	ix, err := DecodeInstruction(env.Data)
	if err != nil {
		p.logger.Debug("process rejected", zap.String("signer", env.Signer.String()), zap.Error(err))
		return err
	}
	// consumed even if the operation fails, so a rejected envelope cannot
	// be replayed once conditions change
	if err := p.nonces.consume(env.Signer, env.Nonce); err != nil {
		p.logger.Debug("process rejected", zap.String("signer", env.Signer.String()), zap.Uint64("nonce", env.Nonce), zap.Error(err))
		return err
	}

	switch args := ix.(type) {
	case *InitializeArgs:
		expected, err := p.PoolAddress(args.Seed)
		if err != nil {
			return err
		}
		if !expected.Equals(env.Pool) {
			return fmt.Errorf("initialize: pool %s is not derived from seed %d: %w", env.Pool, args.Seed, shared.ErrInvalidInstruction)
		}
		_, err = p.Initialize(ctx, InitializeParams{
			Creator:   env.Signer,
			Seed:      args.Seed,
			Fee:       args.Fee,
			Authority: args.Authority,
			MintX:     env.MintX,
			MintY:     env.MintY,
		})
		return err
	case *DepositArgs:
		_, err := p.Deposit(ctx, DepositParams{Pool: env.Pool, User: env.Signer, Liquidity: args.Amount, MaxX: args.MaxX, MaxY: args.MaxY})
		return err
	case *WithdrawArgs:
		_, err := p.Withdraw(ctx, WithdrawParams{Pool: env.Pool, User: env.Signer, Liquidity: args.Amount, MinX: args.MinX, MinY: args.MinY})
		return err
	case *SwapArgs:
		_, err := p.Swap(ctx, SwapParams{
			Pool:      env.Pool,
			User:      env.Signer,
			Direction: shared.TradeDirectionFromIsX(args.IsX),
			AmountIn:  args.Amount,
			MinOut:    args.Min,
		})
		return err
	case *LockArgs:
		return p.Lock(ctx, env.Pool, env.Signer)
	case *UnlockArgs:
		return p.Unlock(ctx, env.Pool, env.Signer)
	}
	return shared.ErrInvalidInstruction
}

// nonceBook tracks the highest nonce accepted per signer.
type nonceBook struct {
	mu   sync.Mutex
	last map[solanago.PublicKey]uint64
}

func (n *nonceBook) consume(signer solanago.PublicKey, nonce uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.last == nil {
		n.last = map[solanago.PublicKey]uint64{}
	}
	if nonce <= n.last[signer] {
		return fmt.Errorf("nonce %d, last accepted %d: %w", nonce, n.last[signer], shared.ErrStaleNonce)
	}
	n.last[signer] = nonce
	return nil
}
