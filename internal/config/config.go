// Package config provides configuration management for the trading application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"schwab-trader/internal/models"
)

// Config holds all application configuration.
type Config struct {
	Trading       TradingConfig          `mapstructure:"trading"`
	Assets        map[string]AssetConfig `mapstructure:"assets"`
	Scanner       ScannerConfig          `mapstructure:"scanner"`
	Margin        MarginRules            `mapstructure:"margin"`
	Execution     ExecutionConfig        `mapstructure:"execution"`
	Notifications NotificationConfig     `mapstructure:"notifications"`
	Debug         DebugConfig            `mapstructure:"debug"`
}

// TradingConfig holds trading-related configuration.
type TradingConfig struct {
	Mode      string `mapstructure:"mode"` // "live", "paper"
	AccountID string `mapstructure:"account_id"`
}

// AssetConfig holds per-underlying configuration.
type AssetConfig struct {
	Class    string  `mapstructure:"class"`    // equity, etf, leveraged_etf, broad_based_index
	Leverage float64 `mapstructure:"leverage"` // 2 or 3 for leveraged ETFs

	// Spread scanning
	StrikeWidth        float64 `mapstructure:"strike_width"` // spread between the strikes
	ScanDays           int     `mapstructure:"scan_days"`
	MinDays            int     `mapstructure:"min_days"`
	DownsideProtection float64 `mapstructure:"downside_protection"`

	// Short call rolling
	DaysWindow       int     `mapstructure:"days_window"` // roll when DTE <= this
	MinRollupGap     float64 `mapstructure:"min_rollup_gap"`
	MinStrike        float64 `mapstructure:"min_strike"`
	MinRollOutWindow int     `mapstructure:"min_roll_out_window"`
	MaxRollOutWindow int     `mapstructure:"max_roll_out_window"`
	MaxDebit         float64 `mapstructure:"max_debit"`
	AllowSameStrike  bool    `mapstructure:"allow_same_strike"`
	Contracts        int     `mapstructure:"contracts"`
}

// AssetClass returns the asset class for margin purposes.
func (a AssetConfig) AssetClass() models.AssetClass {
	switch a.Class {
	case "broad_based_index":
		return models.AssetIndex
	case "leveraged_etf":
		return models.AssetLeveragedETF
	case "equity":
		return models.AssetEquity
	default:
		return models.AssetETF
	}
}

// ScannerConfig holds spread scanner thresholds.
type ScannerConfig struct {
	MinAnnualizedReturn float64 `mapstructure:"min_annualized_return"`
	MaxLegSpread        float64 `mapstructure:"max_leg_spread"` // liquidity cutoff per leg
	MaxCandidates       int     `mapstructure:"max_candidates"` // per family, 0 = unlimited
}

// MarginRules holds configured margin percentages per asset class.
type MarginRules struct {
	IndexInitialPct    float64 `mapstructure:"index_initial_pct"`
	IndexMinPct        float64 `mapstructure:"index_min_pct"`
	EquityInitialPct   float64 `mapstructure:"equity_initial_pct"`
	EquityMinPct       float64 `mapstructure:"equity_min_pct"`
	FloorPerContract   float64 `mapstructure:"floor_per_contract"`
	EquityFloor        float64 `mapstructure:"equity_floor"`
	CoveredCallRegTPct float64 `mapstructure:"covered_call_reg_t_pct"`
}

// ExecutionConfig holds order execution controller configuration.
type ExecutionConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	PollsPerPrice   int           `mapstructure:"polls_per_price"` // unfilled polls before a replace
	MaxAttempts     int           `mapstructure:"max_attempts"`    // cancel-replace ceiling
	MaxConcession   float64       `mapstructure:"max_concession"`  // worst-acceptable price distance
	StartAggressive bool          `mapstructure:"start_aggressive"`

	LateDayCutoff string `mapstructure:"late_day_cutoff"`  // HH:MM local, shorter patience after
	LatePollsPerPrice int `mapstructure:"late_polls_per_price"`

	RetryMaxAttempts  int           `mapstructure:"retry_max_attempts"`
	RetryInitialDelay time.Duration `mapstructure:"retry_initial_delay"`
	RetryMaxDelay     time.Duration `mapstructure:"retry_max_delay"`
	RetryBackoff      float64       `mapstructure:"retry_backoff"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Level    string         `mapstructure:"level"` // all, warnings, errors
	Telegram TelegramConfig `mapstructure:"telegram"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// DebugConfig holds debug overrides.
type DebugConfig struct {
	MarketOpen    bool `mapstructure:"market_open"`     // treat the market as open
	CanSendOrders bool `mapstructure:"can_send_orders"` // false = log orders instead of sending
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/schwab-trader"
	}
	return filepath.Join(home, ".config", "schwab-trader")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	// Credentials may live in a .env next to the config; absence is fine.
	_ = godotenv.Load(filepath.Join(configDir, ".env"))

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("trading.mode", "paper")

	v.SetDefault("scanner.min_annualized_return", 0.20)
	v.SetDefault("scanner.max_leg_spread", 2.0)
	v.SetDefault("scanner.max_candidates", 10)

	v.SetDefault("margin.index_initial_pct", 0.15)
	v.SetDefault("margin.index_min_pct", 0.10)
	v.SetDefault("margin.equity_initial_pct", 0.20)
	v.SetDefault("margin.equity_min_pct", 0.10)
	v.SetDefault("margin.floor_per_contract", 100.0)
	v.SetDefault("margin.equity_floor", 2000.0)
	v.SetDefault("margin.covered_call_reg_t_pct", 0.50)

	v.SetDefault("execution.poll_interval", "5s")
	v.SetDefault("execution.polls_per_price", 12)
	v.SetDefault("execution.max_attempts", 75)
	v.SetDefault("execution.max_concession", 1.0)
	v.SetDefault("execution.start_aggressive", false)
	v.SetDefault("execution.late_day_cutoff", "15:30")
	v.SetDefault("execution.late_polls_per_price", 3)
	v.SetDefault("execution.retry_max_attempts", 3)
	v.SetDefault("execution.retry_initial_delay", "100ms")
	v.SetDefault("execution.retry_max_delay", "10s")
	v.SetDefault("execution.retry_backoff", 2.0)

	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.level", "all")

	v.SetDefault("debug.market_open", false)
	v.SetDefault("debug.can_send_orders", false)
}

func applyEnvOverrides(cfg *Config) {
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Notifications.Telegram.BotToken = token
	}
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		cfg.Notifications.Telegram.ChatID = chatID
	}
	if account := os.Getenv("SCHWAB_ACCOUNT_ID"); account != "" {
		cfg.Trading.AccountID = account
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Trading.Mode != "live" && c.Trading.Mode != "paper" {
		return fmt.Errorf("trading.mode must be live or paper, got %q", c.Trading.Mode)
	}
	if c.Execution.PollInterval <= 0 {
		return fmt.Errorf("execution.poll_interval must be positive")
	}
	if c.Execution.MaxAttempts <= 0 {
		return fmt.Errorf("execution.max_attempts must be positive")
	}
	if c.Execution.RetryBackoff < 1 {
		return fmt.Errorf("execution.retry_backoff must be >= 1")
	}
	for symbol, asset := range c.Assets {
		if asset.MinRollOutWindow > asset.MaxRollOutWindow {
			return fmt.Errorf("assets.%s: min_roll_out_window > max_roll_out_window", symbol)
		}
		if asset.MinRollupGap < 0 {
			return fmt.Errorf("assets.%s: min_rollup_gap must be >= 0", symbol)
		}
		if asset.Class == "leveraged_etf" && asset.Leverage < 2 {
			return fmt.Errorf("assets.%s: leveraged_etf needs leverage >= 2", symbol)
		}
	}
	return nil
}

// Asset returns the configuration for a symbol, with usable zero-ish
// defaults when the symbol is not configured.
func (c *Config) Asset(symbol string) AssetConfig {
	if a, ok := c.Assets[symbol]; ok {
		return a
	}
	return AssetConfig{
		Class:            "etf",
		DaysWindow:       7,
		MinRollOutWindow: 7,
		MaxRollOutWindow: 30,
		Contracts:        1,
	}
}
