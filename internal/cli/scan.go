package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"catalyst-trader/internal/logging"
	"catalyst-trader/internal/scan"
)

func newScanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Evaluate a watchlist of upcoming catalysts",
		Long: `Read a catalyst watchlist CSV and evaluate every entry concurrently:
implied volatility, ATM straddle cost, breakeven move, and the optimal
entry window. The CSV columns are:

  ticker,spot,event_date,tier,probability`,
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath, _ := cmd.Flags().GetString("file")
			workers, _ := cmd.Flags().GetInt("workers")

			f, err := os.Open(filePath)
			if err != nil {
				return err
			}
			defer f.Close()

			entries, err := scan.LoadWatchlist(f)
			if err != nil {
				return err
			}

			scanner := scan.NewScanner(app.Config.Pricing.RiskFreeRate, workers, logging.FromContext(cmd.Context()))
			results := scanner.Scan(cmd.Context(), entries, time.Now())

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(results)
			}

			table := output.NewTable("TICKER", "EVENT", "DAYS", "TIER", "IV", "STRADDLE", "BREAKEVEN", "ENTRY")
			for _, r := range results {
				if r.Err != nil {
					output.Warning("skipped %s: %v", r.Catalyst.Ticker, r.Err)
					continue
				}
				table.Append([]string{
					r.Catalyst.Ticker,
					r.Catalyst.EventDate.Format("2006-01-02"),
					fmt.Sprintf("%d", r.DaysUntil),
					r.Catalyst.RiskTier.String(),
					fmt.Sprintf("%.1f%%", r.ImpliedVol*100),
					FormatUSD(r.StraddleCost),
					fmt.Sprintf("%.1f%%", r.BreakevenPct),
					fmt.Sprintf("%dd before", r.OptimalEntry.DaysBeforeCatalyst),
				})
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().String("file", "", "watchlist CSV path")
	cmd.Flags().Int("workers", 0, "concurrent workers (0 for NumCPU)")
	cmd.MarkFlagRequired("file")
	return cmd
}
