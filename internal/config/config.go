// Package config provides configuration management for the trading simulator.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"

	"catalyst-trader/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Account       AccountConfig      `mapstructure:"account"`
	Pricing       PricingConfig      `mapstructure:"pricing"`
	Alerts        AlertConfig        `mapstructure:"alerts"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Store         StoreConfig        `mapstructure:"store"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// AccountConfig holds paper-account configuration.
type AccountConfig struct {
	StartingBalance float64 `mapstructure:"starting_balance"`
}

// PricingConfig holds option pricing configuration.
type PricingConfig struct {
	RiskFreeRate float64 `mapstructure:"risk_free_rate"`
}

// AlertConfig holds P&L alert thresholds.
type AlertConfig struct {
	// MoveThresholdPct fires a position alert when |unrealized P&L %| crosses it.
	MoveThresholdPct float64 `mapstructure:"move_threshold_pct"`
	// PortfolioStep fires a portfolio alert once per this dollar step crossed.
	PortfolioStep float64 `mapstructure:"portfolio_step"`
}

// NotificationConfig holds notification channel configuration.
type NotificationConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Terminal bool          `mapstructure:"terminal"`
	Webhook  WebhookConfig `mapstructure:"webhook"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/catalyst-trader"
	}
	return filepath.Join(home, ".config", "catalyst-trader")
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{StartingBalance: 100000},
		Pricing: PricingConfig{RiskFreeRate: 0.05},
		Alerts: AlertConfig{
			MoveThresholdPct: 10,
			PortfolioStep:    1000,
		},
		Notifications: NotificationConfig{Enabled: true, Terminal: true},
		Store:         StoreConfig{Path: filepath.Join(DefaultConfigDir(), "trader.db")},
		Logging:       LoggingConfig{Level: "info", Console: true, File: true},
	}
}

// Load loads configuration from the specified directory. If configDir is
// empty, uses the default config directory. A missing config file yields the
// defaults rather than an error.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetDefault("account.starting_balance", cfg.Account.StartingBalance)
	v.SetDefault("pricing.risk_free_rate", cfg.Pricing.RiskFreeRate)
	v.SetDefault("alerts.move_threshold_pct", cfg.Alerts.MoveThresholdPct)
	v.SetDefault("alerts.portfolio_step", cfg.Alerts.PortfolioStep)
	v.SetDefault("notifications.enabled", cfg.Notifications.Enabled)
	v.SetDefault("notifications.terminal", cfg.Notifications.Terminal)
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.console", cfg.Logging.Console)
	v.SetDefault("logging.file", cfg.Logging.File)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CATALYST_STARTING_BALANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Account.StartingBalance = f
		}
	}
	if v := os.Getenv("CATALYST_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("CATALYST_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Account.StartingBalance <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalid, "starting_balance must be positive, got %.2f", c.Account.StartingBalance)
	}
	if c.Alerts.MoveThresholdPct < 0 {
		return errors.Wrapf(errors.ErrConfigInvalid, "move_threshold_pct must be non-negative, got %.2f", c.Alerts.MoveThresholdPct)
	}
	if c.Alerts.PortfolioStep < 0 {
		return errors.Wrapf(errors.ErrConfigInvalid, "portfolio_step must be non-negative, got %.2f", c.Alerts.PortfolioStep)
	}
	if c.Notifications.Webhook.Enabled && c.Notifications.Webhook.URL == "" {
		return errors.Wrap(errors.ErrConfigInvalid, "webhook enabled but url is empty")
	}
	return nil
}
