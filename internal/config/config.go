// Package config loads the engine's runtime configuration from a file,
// environment variables, and defaults via viper, then translates it
// into each domain package's own Config type. No domain package depends
// back on internal/config — this package depends on all of them, never
// the other way, so there is no import cycle to avoid (§9).
package config

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/arbctl/internal/core"
	"github.com/ajitpratap0/arbctl/internal/detect"
	"github.com/ajitpratap0/arbctl/internal/pnl"
	"github.com/ajitpratap0/arbctl/internal/plan"
	"github.com/ajitpratap0/arbctl/internal/position"
	"github.com/ajitpratap0/arbctl/internal/pricing"
	"github.com/ajitpratap0/arbctl/internal/risk"
	"github.com/ajitpratap0/arbctl/internal/validate"
	"github.com/ajitpratap0/arbctl/internal/vault"
	"github.com/ajitpratap0/arbctl/internal/venue"
)

// Config aggregates every ambient and domain configuration surface the
// engine needs at startup.
type Config struct {
	App       AppConfig              `mapstructure:"app"`
	Trading   TradingConfig          `mapstructure:"trading"`
	Risk      RiskConfig             `mapstructure:"risk"`
	Sizing    SizingConfig           `mapstructure:"sizing"`
	Detection DetectionConfig        `mapstructure:"detection"`
	Pricing   PricingConfig          `mapstructure:"pricing"`
	PnL       PnLConfig              `mapstructure:"pnl"`
	Venues    map[string]VenueConfig `mapstructure:"venue"`
	Alerts    AlertsConfig           `mapstructure:"alerts"`
	Store     StoreConfig            `mapstructure:"store"`
	Bus       BusConfig              `mapstructure:"bus"`
	Vault     VaultConfig            `mapstructure:"vault"`
}

// AppConfig holds process-level settings (§8: structured logging).
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	LogLevel    string `mapstructure:"log_level"`
	Environment string `mapstructure:"environment"`
}

// TradingConfig holds the validator's executability gates.
type TradingConfig struct {
	MinProfitUSD   float64 `mapstructure:"min_profit_usd"`
	MinProfitPct   float64 `mapstructure:"min_profit_pct"`
	MinConfidence  float64 `mapstructure:"min_confidence"`
	MaxPositionUSD float64 `mapstructure:"max_position_usd"`
}

// RiskConfig holds the Risk Monitor's limits and alert thresholds.
type RiskConfig struct {
	MaxPortfolioVaR    float64 `mapstructure:"max_portfolio_var"`
	MaxLeverage        float64 `mapstructure:"max_leverage"`
	MaxConcentration   float64 `mapstructure:"max_concentration"`
	LiquidityThreshold float64 `mapstructure:"liquidity_threshold"`
	WarningThreshold   float64 `mapstructure:"warning_threshold"`
	CriticalThreshold  float64 `mapstructure:"critical_threshold"`
}

// SizingConfig selects and parameterizes the Execution Planner's
// position-sizing strategy.
type SizingConfig struct {
	Method          string  `mapstructure:"method"`
	KellyFraction   float64 `mapstructure:"kelly_fraction"`
	TargetVol       float64 `mapstructure:"target_vol"`
	MaxDrawdownLimit float64 `mapstructure:"max_drawdown_limit"`
}

// DetectionConfig holds the detection loop's cadence and the market
// cache's staleness window.
type DetectionConfig struct {
	IntervalMs        int64 `mapstructure:"interval_ms"`
	StalenessWindowMs int64 `mapstructure:"staleness_window_ms"`
}

// PricingConfig holds the Synthetic Pricer's model parameters.
type PricingConfig struct {
	PerpFundingScale float64 `mapstructure:"perp_funding_scale"`
	RiskFreeRate     float64 `mapstructure:"risk_free_rate"`
}

// PnLConfig holds the P&L Tracker's snapshot cadence and analytics
// parameters.
type PnLConfig struct {
	SnapshotIntervalMs int64   `mapstructure:"snapshot_interval_ms"`
	RetentionDays      int64   `mapstructure:"retention_days"`
	RiskFreeRate       float64 `mapstructure:"risk_free_rate"`
	Confidence         float64 `mapstructure:"confidence"`
}

// VenueConfig holds one venue adapter's reconnect backoff plus the
// mechanical wiring fields (enabled/type/symbols) §9 doesn't name keys
// for but cmd/engine needs to decide which adapters to construct.
type VenueConfig struct {
	Enabled            bool     `mapstructure:"enabled"`
	Type               string   `mapstructure:"type"` // "binance" or "paper"
	Testnet            bool     `mapstructure:"testnet"`
	Symbols            []string `mapstructure:"symbols"`
	ReconnectInitialMs int64    `mapstructure:"reconnect_initial_ms"`
	ReconnectMaxMs     int64    `mapstructure:"reconnect_max_ms"`
	Backoff            float64  `mapstructure:"backoff"`
	MaxAttempts        int      `mapstructure:"max_attempts"`
}

// AlertsConfig holds every alert-channel's configuration.
type AlertsConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig configures the Telegram alert channel.
type TelegramConfig struct {
	Enabled  bool    `mapstructure:"enabled"`
	BotToken string  `mapstructure:"bot_token"`
	ChatID   []int64 `mapstructure:"chat_id"`
}

// StoreConfig holds the persistence boundary's backend configuration.
type StoreConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig configures the Postgres-backed store.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// BusConfig holds the telemetry bus's transport configuration.
type BusConfig struct {
	NATS NATSConfig `mapstructure:"nats"`
}

// NATSConfig configures the NATS connection internal/bus dials.
type NATSConfig struct {
	URL      string `mapstructure:"url"`
	Embedded bool   `mapstructure:"embedded"`
}

// VaultConfig configures the optional Vault-backed secret overlay for
// venue credentials (§9). Disabled by default; when disabled,
// ToVaultClient returns a nil Client and LoadVenueCredentials degrades to a
// no-op.
type VaultConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	AuthMethod string `mapstructure:"auth_method"`
	MountPath  string `mapstructure:"mount_path"`
	SecretPath string `mapstructure:"secret_path"`
	Namespace  string `mapstructure:"namespace"`
}

// Load reads configuration from configPath (or ./configs/config.yaml /
// ./config.yaml if empty), overlays ARBCTL_-prefixed environment
// variables, applies defaults for anything left unset, and validates
// the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("ARBCTL")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Watch installs a viper hot-reload hook that re-unmarshals and
// re-validates the config file on every write, invoking onChange with
// the new value. A reload that fails validation is logged and
// discarded — the engine keeps running on its last-known-good config
// rather than crashing on a bad edit. Nothing in the pack this engine
// was built from calls viper.WatchConfig directly, but the hook is
// plain viper API, the same library every other config concern here
// already uses.
func Watch(configPath string, onChange func(*Config)) error {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}
	v.AutomaticEnv()
	v.SetEnvPrefix("ARBCTL")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("config: read config file: %w", err)
		}
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			log.Error().Err(err).Msg("config: reload discarded, unmarshal failed")
			return
		}
		if err := cfg.Validate(); err != nil {
			log.Error().Err(err).Msg("config: reload discarded, validation failed")
			return
		}
		onChange(&cfg)
	})
	v.WatchConfig()
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "arbctl")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("trading.min_profit_usd", 10.0)
	v.SetDefault("trading.min_profit_pct", 0.0005)
	v.SetDefault("trading.min_confidence", 0.7)
	v.SetDefault("trading.max_position_usd", 10_000.0)

	v.SetDefault("risk.max_portfolio_var", 0.05)
	v.SetDefault("risk.max_leverage", 3.0)
	v.SetDefault("risk.max_concentration", 0.25)
	v.SetDefault("risk.liquidity_threshold", 0.1)
	v.SetDefault("risk.warning_threshold", 0.8)
	v.SetDefault("risk.critical_threshold", 1.0)

	v.SetDefault("sizing.method", "Kelly")
	v.SetDefault("sizing.kelly_fraction", 0.25)
	v.SetDefault("sizing.target_vol", 0.5)
	v.SetDefault("sizing.max_drawdown_limit", 0.2)

	v.SetDefault("detection.interval_ms", 100)
	v.SetDefault("detection.staleness_window_ms", 5000)

	v.SetDefault("pricing.perp_funding_scale", 0.01)
	v.SetDefault("pricing.risk_free_rate", 0.0)

	v.SetDefault("pnl.snapshot_interval_ms", int64((5 * time.Minute).Milliseconds()))
	v.SetDefault("pnl.retention_days", 30)
	v.SetDefault("pnl.risk_free_rate", 0.0)
	v.SetDefault("pnl.confidence", 0.95)

	v.SetDefault("alerts.telegram.enabled", false)

	v.SetDefault("store.postgres.max_conns", 10)

	v.SetDefault("bus.nats.url", "nats://localhost:4222")
	v.SetDefault("bus.nats.embedded", false)

	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.auth_method", "token")
	v.SetDefault("vault.mount_path", "secret")
	v.SetDefault("vault.secret_path", "arbctl")
}

// ToDetectConfig returns the Opportunity Detector's thresholds. None of
// §9's configuration surface names a detector-specific key (its
// strategy thresholds are implementer-chosen, same as
// risk.Config.MaxFundingRate) so this always returns the detector's own
// defaults; it exists for symmetry with the other translators and as
// the place future detector keys would be wired in.
func (c *Config) ToDetectConfig() detect.Config {
	return detect.DefaultConfig()
}

// ToValidateConfig translates into the Validator/Ranker's gates.
func (c *Config) ToValidateConfig() validate.Config {
	cfg := validate.DefaultConfig()
	cfg.MinProfitUSD = c.Trading.MinProfitUSD
	cfg.MinProfitPct = c.Trading.MinProfitPct
	cfg.MinConfidence = c.Trading.MinConfidence
	cfg.MaxPositionUSD = c.Trading.MaxPositionUSD
	return cfg
}

// ToPlanConfig translates into the Execution Planner's sizing and
// cost-model parameters.
func (c *Config) ToPlanConfig() plan.Config {
	cfg := plan.DefaultConfig()
	cfg.KellyFraction = c.Sizing.KellyFraction
	cfg.RiskParityBaselineVol = c.Sizing.TargetVol
	cfg.MaxDrawdownPct = c.Sizing.MaxDrawdownLimit
	return cfg
}

// SizingMethod parses the configured sizing strategy name, defaulting
// to Kelly sizing if the configured value doesn't match a known method.
func (c *Config) SizingMethod() core.SizingMethod {
	switch c.Sizing.Method {
	case string(core.SizingFixed):
		return core.SizingFixed
	case string(core.SizingFixedPercent):
		return core.SizingFixedPercent
	case string(core.SizingVolatilityAdjusted):
		return core.SizingVolatilityAdjusted
	case string(core.SizingLiquidityConstrained):
		return core.SizingLiquidityConstrained
	case string(core.SizingRiskParity):
		return core.SizingRiskParity
	case string(core.SizingMaxDrawdownLimit):
		return core.SizingMaxDrawdownLimit
	default:
		return core.SizingKelly
	}
}

// ToPositionConfig translates into the Position Manager's exposure
// limits.
func (c *Config) ToPositionConfig() position.Config {
	cfg := position.DefaultConfig()
	cfg.MaxPositionSize = c.Trading.MaxPositionUSD
	cfg.MaxLeverage = c.Risk.MaxLeverage
	cfg.MaxConcentration = c.Risk.MaxConcentration
	return cfg
}

// ToRiskConfig translates into the Risk Monitor's limits and alert
// thresholds.
func (c *Config) ToRiskConfig() risk.Config {
	cfg := risk.DefaultConfig()
	cfg.MaxPortfolioVaR = c.Risk.MaxPortfolioVaR
	cfg.MaxLeverage = c.Risk.MaxLeverage
	cfg.MaxConcentration = c.Risk.MaxConcentration
	cfg.LiquidityThreshold = c.Risk.LiquidityThreshold
	cfg.WarningThreshold = c.Risk.WarningThreshold
	cfg.CriticalThreshold = c.Risk.CriticalThreshold
	return cfg
}

// ToPnLConfig translates into the P&L Tracker's snapshot cadence and
// analytics parameters.
func (c *Config) ToPnLConfig() pnl.Config {
	cfg := pnl.DefaultConfig()
	if c.PnL.SnapshotIntervalMs > 0 {
		cfg.SnapshotInterval = time.Duration(c.PnL.SnapshotIntervalMs) * time.Millisecond
	}
	if c.PnL.RetentionDays > 0 {
		cfg.RetentionWindow = time.Duration(c.PnL.RetentionDays) * 24 * time.Hour
	}
	cfg.RiskFreeRate = c.PnL.RiskFreeRate
	if c.PnL.Confidence > 0 {
		cfg.Confidence = c.PnL.Confidence
	}
	return cfg
}

// ToPricingConfig translates into the Synthetic Pricer's model
// parameters.
func (c *Config) ToPricingConfig() pricing.Config {
	return pricing.Config{
		PerpFundingScale: c.Pricing.PerpFundingScale,
		RiskFreeRate:     c.Pricing.RiskFreeRate,
	}
}

// ToVenueBackoff translates one venue's reconnect settings, falling
// back to venue.DefaultBackoffConfig for any field left at its zero
// value.
func (c *Config) ToVenueBackoff(name string) venue.BackoffConfig {
	cfg := venue.DefaultBackoffConfig()
	v, ok := c.Venues[name]
	if !ok {
		return cfg
	}
	if v.ReconnectInitialMs > 0 {
		cfg.InitialDelay = time.Duration(v.ReconnectInitialMs) * time.Millisecond
	}
	if v.ReconnectMaxMs > 0 {
		cfg.MaxDelay = time.Duration(v.ReconnectMaxMs) * time.Millisecond
	}
	if v.Backoff > 0 {
		cfg.Backoff = v.Backoff
	}
	cfg.MaxAttempts = v.MaxAttempts
	return cfg
}

// ToVaultClient builds a Vault client from the configured credentials
// overlay. Returns (nil, nil) when Vault integration is disabled.
func (c *Config) ToVaultClient() (*vault.Client, error) {
	if !c.Vault.Enabled {
		return nil, nil
	}
	return vault.NewClient(vault.Config{
		Enabled:    c.Vault.Enabled,
		Address:    c.Vault.Address,
		Token:      c.Vault.Token,
		AuthMethod: c.Vault.AuthMethod,
		MountPath:  c.Vault.MountPath,
		SecretPath: c.Vault.SecretPath,
		Namespace:  c.Vault.Namespace,
	})
}

// DetectionInterval is the cadence at which the Opportunity Detector
// samples the market cache.
func (c *Config) DetectionInterval() time.Duration {
	return time.Duration(c.Detection.IntervalMs) * time.Millisecond
}

// StalenessWindow is the maximum cached-quote age the Market Data Cache
// tolerates before treating a quote as stale.
func (c *Config) StalenessWindow() time.Duration {
	return time.Duration(c.Detection.StalenessWindowMs) * time.Millisecond
}
