package risk

import "time"

// Config holds the Risk Monitor's thresholds and Monte Carlo parameters.
type Config struct {
	Confidence        float64       // VaR/ES confidence level, default 0.95
	MonteCarloSamples int           // default 10,000
	MinHistorySamples int           // below this, fall back to DefaultVolatility (default 30)
	DefaultVolatility float64       // daily-return stdev fallback, default 0.02

	MaxPortfolioVaR   float64
	MaxLeverage       float64
	MaxConcentration  float64
	MaxCorrelation    float64
	LiquidityThreshold float64
	DefaultCorrelation float64 // default 0.6; not exposed as a config-file key
	MaxFundingRate     float64 // implementer-chosen funding-risk limit, default 0.01 (§9: no config key named in spec)
	MaxDrawdownLimit   float64 // implementer-chosen drawdown limit, default 0.2 (§9: no config key named in spec)

	WarningThreshold  float64 // fraction of limit that triggers Warning, default 0.8
	CriticalThreshold float64 // fraction of limit that triggers Critical, default 1.0
	AlertTTL          time.Duration // default 30m
	SampleInterval    time.Duration // default 5s
}

// DefaultConfig returns the Risk Monitor's default thresholds.
func DefaultConfig() Config {
	return Config{
		Confidence:         0.95,
		MonteCarloSamples:  10_000,
		MinHistorySamples:  30,
		DefaultVolatility:  0.02,
		MaxPortfolioVaR:    0.10,
		MaxLeverage:        3,
		MaxConcentration:   0.25,
		MaxCorrelation:     0.9,
		LiquidityThreshold: 0.1,
		DefaultCorrelation: 0.6,
		MaxFundingRate:     0.01,
		MaxDrawdownLimit:   0.2,
		WarningThreshold:   0.8,
		CriticalThreshold:  1.0,
		AlertTTL:           30 * time.Minute,
		SampleInterval:     5 * time.Second,
	}
}
