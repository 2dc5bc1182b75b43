package cli

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"catalyst-trader/internal/chain"
	"catalyst-trader/internal/ledger"
	"catalyst-trader/internal/models"
)

func addTradingCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newBuyCmd(app))
	rootCmd.AddCommand(newSellCmd(app))
	rootCmd.AddCommand(newBuyOptionCmd(app))
	rootCmd.AddCommand(newCloseOptionCmd(app))
}

// withLedger loads the account ledger, runs fn, and persists the result when
// fn succeeds.
func (app *App) withLedger(cmd *cobra.Command, fn func(led *ledger.Ledger) error) error {
	accountID, _ := cmd.Flags().GetString("account")
	ctx := cmd.Context()

	led, err := app.openLedger(ctx, accountID)
	if err != nil {
		return err
	}
	if err := fn(led); err != nil {
		return err
	}
	return app.saveLedger(ctx, led)
}

func newBuyCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buy TICKER QUANTITY PRICE",
		Short: "Buy shares in the paper account",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticker := args[0]
			qty, err := parsePositiveInt(args[1], "quantity")
			if err != nil {
				return err
			}
			price, err := parsePositivePrice(args[2])
			if err != nil {
				return err
			}
			catalystID, _ := cmd.Flags().GetString("catalyst")

			output := NewOutput(cmd)
			return app.withLedger(cmd, func(led *ledger.Ledger) error {
				trade, err := led.BuyStock(ticker, qty, price, catalystID)
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(trade)
				}
				output.Success("Bought %d %s @ %s (total %s)",
					trade.Quantity, trade.Ticker, FormatUSD(trade.ExecutedPrice), FormatUSD(trade.TotalValue))
				output.Dim("balance %s", FormatUSD(led.Account().Balance))
				return nil
			})
		},
	}
	cmd.Flags().String("catalyst", "", "catalyst id to tag the position with")
	return cmd
}

func newSellCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sell TICKER QUANTITY PRICE",
		Short: "Sell shares from the paper account",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticker := args[0]
			qty, err := parsePositiveInt(args[1], "quantity")
			if err != nil {
				return err
			}
			price, err := parsePositivePrice(args[2])
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			return app.withLedger(cmd, func(led *ledger.Ledger) error {
				trade, err := led.SellStock(ticker, qty, price)
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(trade)
				}
				output.Success("Sold %d %s @ %s (total %s)",
					trade.Quantity, trade.Ticker, FormatUSD(trade.ExecutedPrice), FormatUSD(trade.TotalValue))
				if trade.RealizedPnL != nil {
					output.Printf("realized P&L %s (%s)\n",
						output.FormatPnL(*trade.RealizedPnL), output.FormatPercent(*trade.RealizedPct))
				}
				output.Dim("balance %s", FormatUSD(led.Account().Balance))
				return nil
			})
		},
	}
}

func newBuyOptionCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buy-option TICKER",
		Short: "Open an option position priced off a synthetic chain",
		Long: `Open an option position in the paper account. The chain is generated
from the spot price and catalyst parameters, and the position is built
from the requested strategy:

  call      long call at the given strike (or nearest ATM)
  put       long put at the given strike (or nearest ATM)
  straddle  long ATM call + put at the same strike
  strangle  long OTM call above spot + OTM put below spot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticker := args[0]
			spot, _ := cmd.Flags().GetFloat64("spot")
			if spot <= 0 {
				return fmt.Errorf("spot price must be positive, got %.2f", spot)
			}
			strategy, _ := cmd.Flags().GetString("strategy")
			contracts, _ := cmd.Flags().GetInt("contracts")
			strike, _ := cmd.Flags().GetFloat64("strike")

			catalyst, err := catalystFromFlags(cmd, ticker)
			if err != nil {
				return err
			}

			generator := chain.NewGenerator(app.Config.Pricing.RiskFreeRate)
			optionChain := generator.Generate(ticker, spot, catalyst, time.Now())

			pos, err := buildPosition(optionChain, strategy, strike, contracts)
			if err != nil {
				return err
			}

			output := NewOutput(cmd)
			return app.withLedger(cmd, func(led *ledger.Ledger) error {
				trade, err := led.BuyOption(pos)
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(trade)
				}
				output.Success("Opened %s on %s for %s (position %s)",
					pos.Strategy, pos.Ticker, FormatUSD(trade.TotalValue), pos.ID)
				for _, leg := range pos.Legs {
					output.Printf("  %s %s %.2f x%d @ %s/contract\n",
						leg.Side, leg.Type, leg.Strike, leg.Contracts, FormatUSD(leg.PremiumPerContract))
				}
				output.Dim("balance %s", FormatUSD(led.Account().Balance))
				return nil
			})
		},
	}

	cmd.Flags().Float64("spot", 0, "current spot price")
	cmd.Flags().String("strategy", "straddle", "strategy (call, put, straddle, strangle)")
	cmd.Flags().Int("contracts", 1, "contracts per leg")
	cmd.Flags().Float64("strike", 0, "strike for single-leg strategies (0 for nearest ATM)")
	cmd.MarkFlagRequired("spot")
	addCatalystFlags(cmd)
	return cmd
}

func buildPosition(c models.OptionsChain, strategy string, strike float64, contracts int) (models.OptionPosition, error) {
	switch strategy {
	case "call":
		contract, err := pickContract(c.Calls, c.SpotPrice, strike)
		if err != nil {
			return models.OptionPosition{}, err
		}
		return chain.BuildSingleLeg(contract, contracts)
	case "put":
		contract, err := pickContract(c.Puts, c.SpotPrice, strike)
		if err != nil {
			return models.OptionPosition{}, err
		}
		return chain.BuildSingleLeg(contract, contracts)
	case "straddle":
		return chain.BuildStraddle(c, contracts)
	case "strangle":
		return chain.BuildStrangle(c, contracts)
	default:
		return models.OptionPosition{}, fmt.Errorf("unknown strategy %q", strategy)
	}
}

// pickContract selects the contract at the requested strike, or the nearest
// ATM contract when strike is zero.
func pickContract(contracts []models.OptionContract, spot, strike float64) (models.OptionContract, error) {
	if len(contracts) == 0 {
		return models.OptionContract{}, fmt.Errorf("empty option chain")
	}
	target := strike
	if target == 0 {
		target = spot
	}
	best := contracts[0]
	for _, contract := range contracts[1:] {
		if math.Abs(contract.Strike-target) < math.Abs(best.Strike-target) {
			best = contract
		}
	}
	if strike != 0 && best.Strike != strike {
		return models.OptionContract{}, fmt.Errorf("no contract at strike %.2f (nearest is %.2f)", strike, best.Strike)
	}
	return best, nil
}

func newCloseOptionCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close-option POSITION_ID",
		Short: "Close an open option position",
		Long: `Close an open option position at its current mark value. Use --value
to override the mark, e.g. to settle at intrinsic value after the event.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			override, _ := cmd.Flags().GetFloat64("value")

			// A worthless settlement is an explicit --value 0, so the
			// override is detected by flag presence, not by its value.
			hasOverride := cmd.Flags().Changed("value")

			output := NewOutput(cmd)
			return app.withLedger(cmd, func(led *ledger.Ledger) error {
				markValue := override
				if !hasOverride {
					for _, pos := range led.OptionPositions() {
						if pos.ID == id {
							markValue = pos.CurrentValue
							break
						}
					}
				}
				trade, err := led.SellOption(id, markValue)
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(trade)
				}
				output.Success("Closed position %s for %s", id, FormatUSD(trade.TotalValue))
				if trade.RealizedPnL != nil {
					output.Printf("realized P&L %s (%s)\n",
						output.FormatPnL(*trade.RealizedPnL), output.FormatPercent(*trade.RealizedPct))
				}
				output.Dim("balance %s", FormatUSD(led.Account().Balance))
				return nil
			})
		},
	}
	cmd.Flags().Float64("value", 0, "override mark value for the whole position")
	return cmd
}

func parsePositiveInt(s, name string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, s)
	}
	return v, nil
}

func parsePositivePrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("price must be positive, got %q", s)
	}
	return v, nil
}
