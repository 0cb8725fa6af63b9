package amm

import (
	"encoding/binary"

	solanago "github.com/gagliardetto/solana-go"
)

func seedBytes(seed uint64) []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, seed)
	return out
}

// DerivePoolAddress returns the pool PDA and its bump for a seed.
func DerivePoolAddress(programID solanago.PublicKey, seed uint64) (solanago.PublicKey, uint8, error) {
	return solanago.FindProgramAddress([][]byte{[]byte(PoolSeed), seedBytes(seed)}, programID)
}

// DeriveLpMintAddress returns the liquidity share mint owned by pool.
func DeriveLpMintAddress(programID, pool solanago.PublicKey) (solanago.PublicKey, uint8, error) {
	return solanago.FindProgramAddress([][]byte{[]byte(LpMintSeed), pool.Bytes()}, programID)
}

// DeriveVaultAddress returns the pool's reserve account for mint.
func DeriveVaultAddress(pool, mint solanago.PublicKey) (solanago.PublicKey, error) {
	addr, _, err := solanago.FindAssociatedTokenAddress(pool, mint)
	return addr, err
}

// DeriveUserTokenAccount returns the owner's account for mint.
func DeriveUserTokenAccount(owner, mint solanago.PublicKey) (solanago.PublicKey, error) {
	addr, _, err := solanago.FindAssociatedTokenAddress(owner, mint)
	return addr, err
}

// PoolAddresses groups every address a pool operation touches on the pool side.
type PoolAddresses struct {
	Pool   solanago.PublicKey
	LpMint solanago.PublicKey
	VaultX solanago.PublicKey
	VaultY solanago.PublicKey
}

func derivePoolAddresses(programID, pool, mintX, mintY solanago.PublicKey) (PoolAddresses, error) {
	lp, _, err := DeriveLpMintAddress(programID, pool)
	if err != nil {
		return PoolAddresses{}, err
	}
	vaultX, err := DeriveVaultAddress(pool, mintX)
	if err != nil {
		return PoolAddresses{}, err
	}
	vaultY, err := DeriveVaultAddress(pool, mintY)
	if err != nil {
		return PoolAddresses{}, err
	}
	return PoolAddresses{Pool: pool, LpMint: lp, VaultX: vaultX, VaultY: vaultY}, nil
}
