package main

import (
	solanago "github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/krazyTry/cpamm-go/amm"
)

func newDeriveCmd() *cobra.Command {
	deriveCmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive the pool, LP mint and vault addresses for a seed",
		RunE:  runDerive,
	}
	deriveCmd.Flags().Uint64("seed", 0, "pool seed")
	deriveCmd.Flags().String("mint-x", "", "mint of asset X")
	deriveCmd.Flags().String("mint-y", "", "mint of asset Y")
	deriveCmd.Flags().String("program-id", amm.ProgramID.String(), "program id")
	return deriveCmd
}

func runDerive(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	seed, _ := flags.GetUint64("seed")
	programIDStr, _ := flags.GetString("program-id")
	programID, err := solanago.PublicKeyFromBase58(programIDStr)
	if err != nil {
		return err
	}

	pool, bump, err := amm.DerivePoolAddress(programID, seed)
	if err != nil {
		return err
	}
	lpMint, lpBump, err := amm.DeriveLpMintAddress(programID, pool)
	if err != nil {
		return err
	}
	out := map[string]any{
		"pool":        pool.String(),
		"config_bump": bump,
		"lp_mint":     lpMint.String(),
		"lp_bump":     lpBump,
	}

	for _, side := range []string{"x", "y"} {
		mintStr, _ := flags.GetString("mint-" + side)
		if mintStr == "" {
			continue
		}
		mint, err := solanago.PublicKeyFromBase58(mintStr)
		if err != nil {
			return err
		}
		vault, err := amm.DeriveVaultAddress(pool, mint)
		if err != nil {
			return err
		}
		out["vault_"+side] = vault.String()
	}
	return printJSON(cmd, out)
}
