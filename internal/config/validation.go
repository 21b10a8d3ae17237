package config

import (
	"fmt"
	"strings"
)

// ValidationError names one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors aggregates every ValidationError found during Validate.
type ValidationErrors []ValidationError

// Error implements error.
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("config: validation failed with %d error(s):\n", len(ve)))
	for i, e := range ve {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, e.Field, e.Message))
	}
	return sb.String()
}

// Validate checks the config for internally-inconsistent or
// out-of-range values. It does not verify that external resources
// (a venue, the database, Telegram) are reachable — only that the
// configuration itself is well-formed.
func (c *Config) Validate() error {
	var errs ValidationErrors

	errs = append(errs, c.validateTrading()...)
	errs = append(errs, c.validateRisk()...)
	errs = append(errs, c.validateSizing()...)
	errs = append(errs, c.validateDetection()...)
	errs = append(errs, c.validateAlerts()...)
	errs = append(errs, c.validateStore()...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (c *Config) validateTrading() ValidationErrors {
	var errs ValidationErrors
	if c.Trading.MinConfidence < 0 || c.Trading.MinConfidence > 1 {
		errs = append(errs, ValidationError{"trading.min_confidence", "must be between 0 and 1"})
	}
	if c.Trading.MaxPositionUSD < 0 {
		errs = append(errs, ValidationError{"trading.max_position_usd", "must not be negative"})
	}
	return errs
}

func (c *Config) validateRisk() ValidationErrors {
	var errs ValidationErrors
	if c.Risk.MaxLeverage <= 0 {
		errs = append(errs, ValidationError{"risk.max_leverage", "must be positive"})
	}
	if c.Risk.MaxConcentration < 0 || c.Risk.MaxConcentration > 1 {
		errs = append(errs, ValidationError{"risk.max_concentration", "must be between 0 and 1"})
	}
	if c.Risk.WarningThreshold > c.Risk.CriticalThreshold {
		errs = append(errs, ValidationError{"risk.warning_threshold", "must not exceed risk.critical_threshold"})
	}
	return errs
}

func (c *Config) validateSizing() ValidationErrors {
	var errs ValidationErrors
	if c.Sizing.KellyFraction < 0 || c.Sizing.KellyFraction > 1 {
		errs = append(errs, ValidationError{"sizing.kelly_fraction", "must be between 0 and 1"})
	}
	return errs
}

func (c *Config) validateDetection() ValidationErrors {
	var errs ValidationErrors
	if c.Detection.IntervalMs <= 0 {
		errs = append(errs, ValidationError{"detection.interval_ms", "must be positive"})
	}
	if c.Detection.StalenessWindowMs <= 0 {
		errs = append(errs, ValidationError{"detection.staleness_window_ms", "must be positive"})
	}
	return errs
}

func (c *Config) validateAlerts() ValidationErrors {
	var errs ValidationErrors
	if c.Alerts.Telegram.Enabled && c.Alerts.Telegram.BotToken == "" {
		errs = append(errs, ValidationError{"alerts.telegram.bot_token", "required when alerts.telegram.enabled is true"})
	}
	if c.Alerts.Telegram.Enabled && len(c.Alerts.Telegram.ChatID) == 0 {
		errs = append(errs, ValidationError{"alerts.telegram.chat_id", "at least one chat id is required when alerts.telegram.enabled is true"})
	}
	return errs
}

func (c *Config) validateStore() ValidationErrors {
	var errs ValidationErrors
	if c.Store.Postgres.DSN != "" && c.Store.Postgres.MaxConns <= 0 {
		errs = append(errs, ValidationError{"store.postgres.max_conns", "must be positive when store.postgres.dsn is set"})
	}
	return errs
}
