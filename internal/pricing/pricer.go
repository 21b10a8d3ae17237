// Package pricing computes synthetic fair values for perpetuals, dated
// futures, and options from observed spot/funding/volatility inputs.
package pricing

import (
	"math"
	"time"

	"github.com/ajitpratap0/arbctl/internal/core"
)

// PeriodsPerYear is the default number of funding periods per year used
// to annualize a per-period funding rate (3 periods/day, the common
// perpetual-swap cadence).
const PeriodsPerYear = 3 * 365

// Config tunes the pricer's model constants.
type Config struct {
	// PerpFundingScale is the damping constant k in
	// P_synth = S * (1 - f_annual * k). It is a heuristic, not a
	// theoretical constant: callers in markets with unusually extreme
	// funding regimes may need a different value than the 0.01 default.
	PerpFundingScale float64
	// RiskFreeRate is the annualized risk-free rate r used in
	// cost-of-carry and Black-Scholes pricing.
	RiskFreeRate float64
}

// DefaultConfig returns the pricer's default model constants.
func DefaultConfig() Config {
	return Config{PerpFundingScale: 0.01, RiskFreeRate: 0.0}
}

// Pricer computes SyntheticPrice values from observed inputs.
type Pricer struct {
	cfg Config
	now func() time.Time
}

// New builds a Pricer with cfg. A zero Config is replaced by defaults.
func New(cfg Config) *Pricer {
	if cfg.PerpFundingScale == 0 {
		cfg.PerpFundingScale = DefaultConfig().PerpFundingScale
	}
	return &Pricer{cfg: cfg, now: time.Now}
}

// confidence scores [0,1] from how many of the expected inputs are
// present and fresh; full coverage yields 1.0, each missing/stale input
// reduces it proportionally.
func confidence(present, expected int) float64 {
	if expected <= 0 {
		return 0
	}
	c := float64(present) / float64(expected)
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// SyntheticPerp computes the fair perpetual price from spot S and the
// perpetual's per-period funding rate f: P_synth = S * (1 - f_annual*k).
// Positive funding (longs pay shorts) depresses the fair perp price
// relative to spot; negative funding raises it.
func (p *Pricer) SyntheticPerp(instrumentID string, spot float64, fundingRate float64, spotFresh, fundingFresh bool) core.SyntheticPrice {
	present := 0
	if spotFresh {
		present++
	}
	if fundingFresh {
		present++
	}

	fAnnual := fundingRate * PeriodsPerYear
	adj := spot * fAnnual * p.cfg.PerpFundingScale
	price := spot - adj

	return core.SyntheticPrice{
		InstrumentID: instrumentID,
		Price:        price,
		Model:        core.ModelPerpSynthetic,
		Confidence:   confidence(present, 2),
		Components: core.PriceComponents{
			Base:              spot,
			FundingAdjustment: -adj,
		},
		Timestamp: p.now(),
	}
}

// SyntheticFuture computes the cost-of-carry fair price for a dated
// future with time to expiry tau (a duration, converted to years):
// F_synth = S * exp(r*tau) for
// tau > 0, or S otherwise (at/after expiry, spot and future converge).
func (p *Pricer) SyntheticFuture(instrumentID string, spot float64, tau time.Duration, spotFresh bool) core.SyntheticPrice {
	years := tau.Hours() / (24 * 365)
	carry := 0.0
	price := spot
	if years > 0 {
		carry = spot * math.Expm1(p.cfg.RiskFreeRate*years)
		price = spot + carry
	}

	present := 0
	if spotFresh {
		present++
	}

	return core.SyntheticPrice{
		InstrumentID: instrumentID,
		Price:        price,
		Model:        core.ModelFutureCostOfCarry,
		Confidence:   confidence(present, 1),
		Components: core.PriceComponents{
			Base:  spot,
			Carry: carry,
		},
		Timestamp: p.now(),
	}
}
