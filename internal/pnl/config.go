package pnl

import "time"

// Config holds the P&L Tracker's cadence and analytics parameters (§4.9).
type Config struct {
	SnapshotInterval   time.Duration // default 5m
	RetentionWindow    time.Duration // default 30 days
	RiskFreeRate       float64       // annualized, used by Sharpe/Sortino
	Confidence         float64       // VaR/ES confidence level
	TradingDaysPerYear float64
}

// DefaultConfig returns the tracker's default cadence and analytics parameters.
func DefaultConfig() Config {
	return Config{
		SnapshotInterval:   5 * time.Minute,
		RetentionWindow:    30 * 24 * time.Hour,
		RiskFreeRate:       0.0,
		Confidence:         0.95,
		TradingDaysPerYear: 252,
	}
}
