package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"catalyst-trader/internal/chain"
	"catalyst-trader/internal/models"
	"catalyst-trader/internal/returns"
	"catalyst-trader/internal/volatility"
)

func addAnalysisCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newChainCmd(app))
	rootCmd.AddCommand(newReturnsCmd(app))
	rootCmd.AddCommand(newScanCmd(app))
}

// catalystFromFlags builds a catalyst record from the shared event flags.
func catalystFromFlags(cmd *cobra.Command, ticker string) (models.Catalyst, error) {
	eventStr, _ := cmd.Flags().GetString("event")
	tierStr, _ := cmd.Flags().GetString("tier")
	prob, _ := cmd.Flags().GetFloat64("prob")

	eventDate, err := time.Parse("2006-01-02", eventStr)
	if err != nil {
		return models.Catalyst{}, fmt.Errorf("invalid event date %q, want YYYY-MM-DD: %w", eventStr, err)
	}
	tier, err := models.ParseRiskTier(tierStr)
	if err != nil {
		return models.Catalyst{}, err
	}
	if prob < 0 || prob > 1 {
		return models.Catalyst{}, fmt.Errorf("approval probability %.2f out of range [0, 1]", prob)
	}

	return models.Catalyst{
		ID:                  fmt.Sprintf("%s-%s", ticker, eventStr),
		Ticker:              ticker,
		EventDate:           eventDate,
		RiskTier:            tier,
		ApprovalProbability: prob,
	}, nil
}

func addCatalystFlags(cmd *cobra.Command) {
	cmd.Flags().String("event", "", "catalyst event date (YYYY-MM-DD)")
	cmd.Flags().String("tier", "MODERATE", "risk tier (LOW, MODERATE, ELEVATED, SPECULATIVE)")
	cmd.Flags().Float64("prob", 0.5, "approval probability [0, 1]")
	cmd.MarkFlagRequired("event")
}

func newChainCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain TICKER",
		Short: "Generate a synthetic option chain for a catalyst",
		Long: `Generate a synthetic option chain priced around a catalyst event.

Strikes ladder ±30% around the spot price; implied volatility reflects
the catalyst's risk tier, approval probability, and proximity.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticker := args[0]
			spot, _ := cmd.Flags().GetFloat64("spot")
			if spot <= 0 {
				return fmt.Errorf("spot price must be positive, got %.2f", spot)
			}
			catalyst, err := catalystFromFlags(cmd, ticker)
			if err != nil {
				return err
			}

			now := time.Now()
			generator := chain.NewGenerator(app.Config.Pricing.RiskFreeRate)
			optionChain := generator.Generate(ticker, spot, catalyst, now)

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(optionChain)
			}
			renderChain(output, optionChain, catalyst, now)
			return nil
		},
	}

	cmd.Flags().Float64("spot", 0, "current spot price")
	cmd.MarkFlagRequired("spot")
	addCatalystFlags(cmd)
	return cmd
}

func renderChain(output *Output, c models.OptionsChain, catalyst models.Catalyst, now time.Time) {
	iv := volatility.Implied(catalyst.RiskTier, catalyst.ApprovalProbability, catalyst.DaysUntil(now))

	output.Bold("%s  spot %s  expires %s", c.Ticker, FormatUSD(c.SpotPrice), c.Expiration.Format("2006-01-02"))
	output.Dim("tier %s  approval %.0f%%  IV %.1f%%",
		catalyst.RiskTier, catalyst.ApprovalProbability*100, iv*100)
	output.Println()

	table := output.NewTable("CALL", "DELTA", "STRIKE", "PUT", "DELTA")
	for i := range c.Calls {
		call := c.Calls[i]
		put := c.Puts[i]
		table.Append([]string{
			fmt.Sprintf("%.2f", call.Premium),
			fmt.Sprintf("%.3f", call.Greeks.Delta),
			fmt.Sprintf("%.2f", call.Strike),
			fmt.Sprintf("%.2f", put.Premium),
			fmt.Sprintf("%.3f", put.Greeks.Delta),
		})
	}
	table.Render()
}

func newReturnsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "returns",
		Short: "Profile historical pre-catalyst returns by risk tier",
		Long: `Show the expected-return distribution over fixed pre-event intervals
for a risk tier, adjusted for the approval probability, along with the
entry window with the best risk-adjusted return.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tierStr, _ := cmd.Flags().GetString("tier")
			prob, _ := cmd.Flags().GetFloat64("prob")

			tier, err := models.ParseRiskTier(tierStr)
			if err != nil {
				return err
			}
			if prob < 0 || prob > 1 {
				return fmt.Errorf("approval probability %.2f out of range [0, 1]", prob)
			}

			profile := returns.Profile(tier, prob)
			optimal := returns.OptimalEntry(tier, prob)

			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"tier":          tier.String(),
					"profile":       profile,
					"optimal_entry": optimal,
				})
			}

			output.Bold("Pre-catalyst returns  tier %s  approval %.0f%%", tier, prob*100)
			output.Println()

			table := output.NewTable("WINDOW", "MEAN", "MEDIAN", "STDDEV", "P10", "P90", "SAMPLES", "CONFIDENCE")
			for _, r := range profile {
				table.Append([]string{
					string(r.Interval),
					fmt.Sprintf("%.2f%%", r.ExpectedReturnPct),
					fmt.Sprintf("%.2f%%", r.MedianReturnPct),
					fmt.Sprintf("%.2f%%", r.StdDeviation),
					fmt.Sprintf("%.2f%%", r.P10),
					fmt.Sprintf("%.2f%%", r.P90),
					fmt.Sprintf("%d", r.SampleSize),
					r.ConfidenceLevel,
				})
			}
			table.Render()

			output.Println()
			output.Info("Optimal entry: %d days before the event (%s window, %.2f%% expected)",
				optimal.DaysBeforeCatalyst, optimal.Interval, optimal.ExpectedReturnPct)
			return nil
		},
	}

	cmd.Flags().String("tier", "MODERATE", "risk tier (LOW, MODERATE, ELEVATED, SPECULATIVE)")
	cmd.Flags().Float64("prob", 0.5, "approval probability [0, 1]")
	return cmd
}
