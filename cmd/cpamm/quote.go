package main

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/krazyTry/cpamm-go/amm/math"
	"github.com/krazyTry/cpamm-go/internal/config"
)

func newQuoteCmd() *cobra.Command {
	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote against explicit reserves without touching a ledger",
	}

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Quote an exact-input swap",
		RunE:  runQuoteSwap,
	}
	swapCmd.Flags().Uint64("reserve-in", 0, "reserve of the asset sold")
	swapCmd.Flags().Uint64("reserve-out", 0, "reserve of the asset bought")
	swapCmd.Flags().Uint64("amount-in", 0, "amount sold in base units")
	swapCmd.Flags().String("amount-in-ui", "", "amount sold in whole tokens, overrides --amount-in")
	swapCmd.Flags().Uint8("decimals-in", 6, "decimals of the asset sold, used with --amount-in-ui")
	swapCmd.Flags().Uint16("fee", 30, "fee in basis points")
	swapCmd.Flags().Uint16("slippage", 50, "slippage tolerance in basis points")

	depositCmd := &cobra.Command{
		Use:   "deposit",
		Short: "Quote the pair required for liquidity shares",
		RunE:  runQuoteLiquidity(math.QuoteDeposit, "max", math.MaxAmountWithSlippage),
	}
	withdrawCmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Quote the pair paid for burning liquidity shares",
		RunE:  runQuoteLiquidity(math.QuoteWithdraw, "min", math.MinAmountWithSlippage),
	}
	for _, cmd := range []*cobra.Command{depositCmd, withdrawCmd} {
		cmd.Flags().Uint64("reserve-x", 0, "reserve of X")
		cmd.Flags().Uint64("reserve-y", 0, "reserve of Y")
		cmd.Flags().Uint64("supply", 0, "LP supply")
		cmd.Flags().Uint64("liquidity", 0, "LP shares")
		cmd.Flags().Uint8("precision", 6, "share ratio precision digits, 0 for exact")
		cmd.Flags().Uint16("slippage", 50, "slippage tolerance in basis points for the bounds")
	}

	quoteCmd.AddCommand(swapCmd, depositCmd, withdrawCmd)
	return quoteCmd
}

func runQuoteSwap(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	reserveIn, _ := flags.GetUint64("reserve-in")
	reserveOut, _ := flags.GetUint64("reserve-out")
	amountIn, _ := flags.GetUint64("amount-in")
	fee, _ := flags.GetUint16("fee")
	slippage, _ := flags.GetUint16("slippage")
	if ui, _ := flags.GetString("amount-in-ui"); ui != "" {
		decimals, _ := flags.GetUint8("decimals-in")
		amount, err := decimal.NewFromString(ui)
		if err != nil {
			return fmt.Errorf("amount-in-ui: %w", err)
		}
		if amountIn, err = math.FromUIAmount(amount, decimals); err != nil {
			return fmt.Errorf("amount-in-ui: %w", err)
		}
	}

	res, err := math.QuoteSwap(reserveIn, reserveOut, amountIn, fee)
	if err != nil {
		return err
	}
	impact, err := math.PriceImpact(reserveIn, reserveOut, amountIn, res.AmountOut)
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]any{
		"amount_in":          res.AmountIn,
		"amount_in_net":      res.AmountInNet,
		"fee":                res.Fee,
		"amount_out":         res.AmountOut,
		"minimum_amount_out": math.MinAmountWithSlippage(res.AmountOut, slippage),
		"execution_price":    math.ExecutionPrice(res.AmountIn, res.AmountOut).String(),
		"price_impact_pct":   impact.StringFixed(4),
		"new_reserve_in":     res.NewReserveIn,
		"new_reserve_out":    res.NewReserveOut,
	})
}

type liquidityQuote func(reserveX, reserveY, supply, liquidity uint64, precision uint8) (math.PairAmounts, error)

// runQuoteLiquidity prints the quoted pair and the slippage bounds to pass
// as max_x/max_y (deposit) or min_x/min_y (withdraw).
func runQuoteLiquidity(quote liquidityQuote, bound string, withSlippage func(uint64, uint16) uint64) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		flags := cmd.Flags()
		reserveX, _ := flags.GetUint64("reserve-x")
		reserveY, _ := flags.GetUint64("reserve-y")
		supply, _ := flags.GetUint64("supply")
		liquidity, _ := flags.GetUint64("liquidity")
		slippage, _ := flags.GetUint16("slippage")

		cfgFile, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(cfgFile, flags)
		if err != nil {
			return err
		}

		pair, err := quote(reserveX, reserveY, supply, liquidity, cfg.PrecisionDigits)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]uint64{
			"x":          pair.X,
			"y":          pair.Y,
			bound + "_x": withSlippage(pair.X, slippage),
			bound + "_y": withSlippage(pair.Y, slippage),
		})
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
