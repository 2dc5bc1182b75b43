package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"catalyst-trader/internal/ledger"
	"catalyst-trader/internal/store"
)

func addPortfolioCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newPortfolioCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
	rootCmd.AddCommand(newMarkCmd(app))
	rootCmd.AddCommand(newExportCmd(app))
}

func newPortfolioCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio",
		Short: "Show account balance, positions, and performance",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			return app.withLedger(cmd, func(led *ledger.Ledger) error {
				account := led.Account()
				positions := led.Positions()
				options := led.OptionPositions()
				metrics := led.Metrics()

				if output.IsJSON() {
					return output.JSON(map[string]interface{}{
						"account":          account,
						"positions":        positions,
						"option_positions": options,
						"metrics":          metrics,
					})
				}

				output.Bold("Account %s", account.AccountID)
				output.Printf("  Cash Balance:  %s\n", FormatUSD(account.Balance))
				output.Printf("  Total Value:   %s\n", FormatUSD(metrics.TotalValue))
				output.Printf("  Total Gain:    %s (%s)\n",
					output.FormatPnL(metrics.TotalGain), output.FormatPercent(metrics.TotalGainPct))
				output.Println()

				if len(positions) > 0 {
					output.Bold("Stock Positions")
					table := output.NewTable("TICKER", "QTY", "AVG COST", "PRICE", "VALUE", "P&L", "P&L %")
					for _, pos := range positions {
						table.Append([]string{
							pos.Ticker,
							strconv.Itoa(pos.Quantity),
							fmt.Sprintf("%.2f", pos.AverageEntryPrice),
							fmt.Sprintf("%.2f", pos.CurrentPrice),
							fmt.Sprintf("%.2f", pos.CurrentValue),
							fmt.Sprintf("%+.2f", pos.UnrealizedPnL),
							fmt.Sprintf("%+.2f%%", pos.UnrealizedPnLPct),
						})
					}
					table.Render()
					output.Println()
				}

				if len(options) > 0 {
					output.Bold("Option Positions")
					table := output.NewTable("ID", "TICKER", "STRATEGY", "LEGS", "COST", "VALUE", "P&L")
					for _, pos := range options {
						table.Append([]string{
							shortID(pos.ID),
							pos.Ticker,
							pos.Strategy,
							strconv.Itoa(len(pos.Legs)),
							fmt.Sprintf("%.2f", pos.TotalCost),
							fmt.Sprintf("%.2f", pos.CurrentValue),
							fmt.Sprintf("%+.2f", pos.UnrealizedPnL),
						})
					}
					table.Render()
					output.Println()
				}

				if len(positions) == 0 && len(options) == 0 {
					output.Dim("No open positions")
					output.Println()
				}

				output.Bold("Performance")
				output.Printf("  Trades:        %d (%d closed)\n", metrics.TotalTrades, metrics.ClosedTrades)
				if metrics.ClosedTrades > 0 {
					output.Printf("  Win Rate:      %.1f%%\n", metrics.WinRate*100)
					output.Printf("  Largest Win:   %s\n", output.FormatPnL(metrics.LargestWin))
					output.Printf("  Largest Loss:  %s\n", output.FormatPnL(metrics.LargestLoss))
				}
				return nil
			})
		},
	}
}

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show trade history, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			output := NewOutput(cmd)
			return app.withLedger(cmd, func(led *ledger.Ledger) error {
				trades := led.TradeHistory()
				if limit > 0 && len(trades) > limit {
					trades = trades[:limit]
				}

				if output.IsJSON() {
					return output.JSON(trades)
				}
				if len(trades) == 0 {
					output.Dim("No trades yet")
					return nil
				}

				table := output.NewTable("TIME", "TICKER", "SIDE", "TYPE", "QTY", "PRICE", "TOTAL", "REALIZED")
				for _, trade := range trades {
					realized := ""
					if trade.RealizedPnL != nil {
						realized = fmt.Sprintf("%+.2f", *trade.RealizedPnL)
					}
					table.Append([]string{
						trade.ExecutedAt.Format("2006-01-02 15:04"),
						trade.Ticker,
						string(trade.Side),
						string(trade.Instrument),
						strconv.Itoa(trade.Quantity),
						fmt.Sprintf("%.2f", trade.ExecutedPrice),
						fmt.Sprintf("%.2f", trade.TotalValue),
						realized,
					})
				}
				table.Render()
				return nil
			})
		},
	}
	cmd.Flags().Int("limit", 0, "maximum number of trades to show (0 for all)")
	return cmd
}

func newMarkCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "mark TICKER=PRICE [TICKER=PRICE...]",
		Short: "Re-mark open positions at new prices",
		Long: `Update the current prices of open stock positions. Unrealized P&L is
recomputed and position-move or portfolio alerts may fire.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prices, err := parsePriceArgs(args)
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			return app.withLedger(cmd, func(led *ledger.Ledger) error {
				led.UpdatePrices(prices)

				if output.IsJSON() {
					return output.JSON(led.Positions())
				}
				for _, pos := range led.Positions() {
					if _, ok := prices[pos.Ticker]; !ok {
						continue
					}
					output.Printf("%s  %s  P&L %s (%s)\n",
						pos.Ticker, FormatUSD(pos.CurrentPrice),
						output.FormatPnL(pos.UnrealizedPnL), output.FormatPercent(pos.UnrealizedPnLPct))
				}
				return nil
			})
		},
	}
}

func parsePriceArgs(args []string) (map[string]float64, error) {
	prices := make(map[string]float64, len(args))
	for _, arg := range args {
		parts := strings.SplitN(arg, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid price %q, want TICKER=PRICE", arg)
		}
		price, err := strconv.ParseFloat(parts[1], 64)
		if err != nil || price <= 0 {
			return nil, fmt.Errorf("invalid price for %s: %q", parts[0], parts[1])
		}
		prices[strings.ToUpper(parts[0])] = price
	}
	return prices, nil
}

func newExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export trade history as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			outPath, _ := cmd.Flags().GetString("out")

			return app.withLedger(cmd, func(led *ledger.Ledger) error {
				trades := led.TradeHistory()

				if outPath == "" {
					return store.ExportTradesCSV(cmd.OutOrStdout(), trades)
				}
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := store.ExportTradesCSV(f, trades); err != nil {
					return err
				}
				NewOutput(cmd).Success("Exported %d trades to %s", len(trades), outPath)
				return nil
			})
		},
	}
	cmd.Flags().String("out", "", "output file path (default: stdout)")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
