// Package cli provides the command-line interface for the catalyst trader.
package cli

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"catalyst-trader/internal/config"
	"catalyst-trader/internal/errors"
	"catalyst-trader/internal/ledger"
	"catalyst-trader/internal/logging"
	"catalyst-trader/internal/notify"
	"catalyst-trader/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    store.LedgerStore
	Notifier notify.Notifier
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	app.Notifier = buildNotifier(cfg)

	dataStore, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, positions will not persist")
	} else {
		app.Store = dataStore
	}

	rootCmd := &cobra.Command{
		Use:   "catalyst-trader",
		Short: "Paper trading simulator for binary regulatory catalysts",
		Long: `Catalyst Trader simulates option and stock trades around binary
regulatory events such as FDA approval decisions.

It prices synthetic option chains with an event-aware volatility model,
profiles historical pre-event returns by risk tier, and tracks every
simulated trade in a paper ledger.

Use 'catalyst-trader help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			cmd.SetContext(logging.WithLogger(cmd.Context(), app.Logger))
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("account", "default", "paper account id")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addAnalysisCommands(rootCmd, app)
	addTradingCommands(rootCmd, app)
	addPortfolioCommands(rootCmd, app)

	return rootCmd
}

func buildNotifier(cfg *config.Config) notify.Notifier {
	if !cfg.Notifications.Enabled {
		return notify.Noop{}
	}
	var channels []notify.Channel
	channels = append(channels, notify.NewTerminalChannel(cfg.Notifications.Terminal))
	if cfg.Notifications.Webhook.URL != "" {
		channels = append(channels, notify.NewWebhookChannel(cfg.Notifications.Webhook.URL, cfg.Notifications.Webhook.Enabled))
	}
	return notify.NewMultiNotifier(channels...)
}

// openLedger loads the account's ledger from the store, creating a fresh one
// when the account has no saved state yet.
func (app *App) openLedger(ctx context.Context, accountID string) (*ledger.Ledger, error) {
	led := ledger.New(ledger.Config{
		AccountID:        accountID,
		StartingBalance:  app.Config.Account.StartingBalance,
		Notifier:         app.Notifier,
		Logger:           app.Logger,
		MoveThresholdPct: app.Config.Alerts.MoveThresholdPct,
		PortfolioStep:    app.Config.Alerts.PortfolioStep,
	})
	if app.Store == nil {
		return led, nil
	}

	state, err := app.Store.LoadLedger(ctx, accountID)
	if err != nil {
		if errors.Is(err, errors.ErrAccountNotFound) {
			return led, nil
		}
		return nil, err
	}
	led.Restore(state)
	return led, nil
}

// saveLedger persists the ledger snapshot when a store is available.
func (app *App) saveLedger(ctx context.Context, led *ledger.Ledger) error {
	if app.Store == nil {
		return nil
	}
	return app.Store.SaveLedger(ctx, led.Snapshot())
}

func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("Catalyst Trader v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Account")
	output.Printf("  Starting Balance: %s\n", FormatUSD(cfg.Account.StartingBalance))
	output.Println()

	output.Bold("Pricing")
	output.Printf("  Risk-Free Rate:   %.2f%%\n", cfg.Pricing.RiskFreeRate*100)
	output.Println()

	output.Bold("Alerts")
	output.Printf("  Move Threshold:   %.1f%%\n", cfg.Alerts.MoveThresholdPct)
	output.Printf("  Portfolio Step:   %s\n", FormatUSD(cfg.Alerts.PortfolioStep))
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:          %v\n", cfg.Notifications.Enabled)
	output.Printf("  Terminal:         %v\n", cfg.Notifications.Terminal)
	output.Printf("  Webhook:          %v\n", cfg.Notifications.Webhook.Enabled)
	output.Println()

	output.Bold("Store")
	output.Printf("  Path:             %s\n", cfg.Store.Path)
}
