// Package plan implements the Execution Planner: it converts a ranked,
// validated opportunity into a sized, timed, cost-estimated set of legs.
package plan

import "time"

// ExchangeFees is a venue's maker/taker/withdraw fee schedule, mirroring
// the per-exchange fee tables the detection/cost layer keys off of.
type ExchangeFees struct {
	Maker    float64
	Taker    float64
	Withdraw float64
}

// DefaultExchangeFees is used for any venue absent from Config.Fees.
var DefaultExchangeFees = ExchangeFees{Maker: 0.001, Taker: 0.001, Withdraw: 0.0005}

// Config holds the planner's sizing, scheduling and cost-model parameters.
type Config struct {
	Fees map[string]ExchangeFees

	FixedSizeUSD           float64
	FixedPercentOfCapital  float64
	KellyFraction          float64 // fractional Kelly multiplier, default 0.25
	VolatilityDampening    float64
	RiskParityBaselineVol  float64
	MaxDrawdownPct         float64 // fraction of capital a plan may risk

	SlippageTolerance float64
	StopLossThreshold float64
	SlippageScale     float64
	ImpactScale       float64 // notional divisor for market-impact estimate (default 1e6)
	OpportunityCostRate float64

	LegStagger    time.Duration
	InterPlanDelay time.Duration

	MinPositionSize           float64
	MaxSingleTradeCapitalUSD  float64
	MaxTotalCapitalUtilization float64
}

// DefaultConfig returns the planner's default parameters (§4.6).
func DefaultConfig() Config {
	return Config{
		Fees:                       map[string]ExchangeFees{},
		FixedSizeUSD:               1000,
		FixedPercentOfCapital:      0.02,
		KellyFraction:              0.25,
		VolatilityDampening:        1.0,
		RiskParityBaselineVol:      0.5,
		MaxDrawdownPct:             0.02,
		SlippageTolerance:          0.0005,
		StopLossThreshold:          0.01,
		SlippageScale:              0.0001,
		ImpactScale:                1_000_000,
		OpportunityCostRate:        0,
		LegStagger:                 100 * time.Millisecond,
		InterPlanDelay:             time.Second,
		MinPositionSize:            10,
		MaxSingleTradeCapitalUSD:   50_000,
		MaxTotalCapitalUtilization: 0.5,
	}
}

func (c Config) feesFor(venue string) ExchangeFees {
	if f, ok := c.Fees[venue]; ok {
		return f
	}
	return DefaultExchangeFees
}
