// Package validate applies executability gates to detected opportunities
// and ranks the survivors by a weighted composite score.
package validate

import (
	"math"
	"strings"
	"time"

	"github.com/ajitpratap0/arbctl/internal/core"
	"github.com/ajitpratap0/arbctl/internal/market"
)

// Config holds the validation gate thresholds and scoring weights.
type Config struct {
	MinProfitUSD         float64
	MinProfitPct         float64
	MinConfidence        float64
	MinLiquidity         float64
	MaxPositionUSD       float64
	MaxCorrelation       float64
	MinOpportunityDuration time.Duration
	MaxDataAge           time.Duration
	DefaultCorrelation   float64 // used when <30 overlapping samples exist (§9)
	RiskFreeRate         float64

	// Weights for the five composite-score components, defaults
	// 0.30/0.25/0.20/0.15/0.10 (§4.5).
	WeightProfit            float64
	WeightRiskAdjusted      float64
	WeightSharpe            float64
	WeightCapitalEfficiency float64
	WeightLiquidity         float64
}

// DefaultConfig returns the validator's default gates and weights.
func DefaultConfig() Config {
	return Config{
		MinProfitUSD:           1.0,
		MinProfitPct:           0.0005,
		MinConfidence:          0.3,
		MinLiquidity:           0.1,
		MaxPositionUSD:         1_000_000,
		MaxCorrelation:         0.9,
		MinOpportunityDuration: 0,
		MaxDataAge:             5 * time.Second,
		DefaultCorrelation:     0.6,
		RiskFreeRate:           0,
		WeightProfit:            0.30,
		WeightRiskAdjusted:      0.25,
		WeightSharpe:            0.20,
		WeightCapitalEfficiency: 0.15,
		WeightLiquidity:         0.10,
	}
}

// Validator applies gates and scores opportunities.
type Validator struct {
	cfg   Config
	cache *market.Cache
	now   func() time.Time
}

// New builds a Validator. cache is consulted to confirm every leg
// references a key still present (the "all legs reference keys present
// in cache" gate).
func New(cache *market.Cache, cfg Config) *Validator {
	return &Validator{cfg: cfg, cache: cache, now: time.Now}
}

// requiredCapital estimates per-unit notional required to open the
// opportunity's legs, used only for the max-position and
// capital-efficiency checks relative to a single unit of size.
func requiredCapital(o *core.Opportunity) float64 {
	var total float64
	for _, leg := range o.Legs {
		total += leg.Weight * leg.ReferencePrice
	}
	return total
}

// liquidityScoreOf replaces the detector's placeholder LiquidityScore
// with mean(min(1, leg_volume/1e6)) over the opportunity's legs, using
// each leg's cached 24h volume (0 when the leg's quote carries none or
// is absent, e.g. a synthetic leg).
func (v *Validator) liquidityScoreOf(o *core.Opportunity) float64 {
	if len(o.Legs) == 0 {
		return 0
	}
	var sum float64
	for _, leg := range o.Legs {
		var vol float64
		if leg.IsSynthetic {
			vol = 0
		} else if q, ok := v.cache.GetQuote(leg.Instrument, leg.Venue); ok {
			vol = q.Volume24h
		} else if q, ok := v.cache.GetQuote(o.Symbol, leg.Venue); ok {
			vol = q.Volume24h
		}
		sum += clamp01(vol / 1e6)
	}
	return sum / float64(len(o.Legs))
}

// Validate applies every gate in §4.5 and returns the opportunity
// annotated with Valid/Executable/ValidationNotes. Non-executable
// opportunities are not errors — a non-executable opportunity is a
// valid value, not an exception.
func (v *Validator) Validate(o core.Opportunity) core.Opportunity {
	var failed []string
	now := v.now()

	o.LiquidityScore = v.liquidityScoreOf(&o)

	if !(o.GrossProfitUSD >= v.cfg.MinProfitUSD && o.GrossProfitPct >= v.cfg.MinProfitPct) {
		failed = append(failed, "min_profit")
	}
	if o.Confidence < v.cfg.MinConfidence {
		failed = append(failed, "min_confidence")
	}
	if o.LiquidityScore < v.cfg.MinLiquidity {
		failed = append(failed, "min_liquidity")
	}
	capital := requiredCapital(&o)
	if capital > v.cfg.MaxPositionUSD {
		failed = append(failed, "max_position_usd")
	}
	correlation := v.correlationRisk(o)
	if correlation > v.cfg.MaxCorrelation {
		failed = append(failed, "max_correlation")
	}
	if o.EstimatedDuration < v.cfg.MinOpportunityDuration {
		failed = append(failed, "min_opportunity_duration")
	}
	if !v.legsPresentInCache(o) {
		failed = append(failed, "legs_present_in_cache")
	}
	if now.Sub(o.DetectedAt) > v.cfg.MaxDataAge {
		failed = append(failed, "max_data_age")
	}

	o.Valid = true
	o.Executable = len(failed) == 0
	o.ValidationNotes = strings.Join(failed, ",")
	return o
}

func (v *Validator) legsPresentInCache(o core.Opportunity) bool {
	for _, leg := range o.Legs {
		if leg.IsSynthetic {
			continue
		}
		if _, ok := v.cache.GetQuote(leg.Instrument, leg.Venue); ok {
			continue
		}
		// Fall back to symbol-only lookup for perp-tagged instrument ids
		// like "SYMBOL-PERP" which aren't themselves cache keys.
		if _, ok := v.cache.GetQuote(o.Symbol, leg.Venue); !ok {
			return false
		}
	}
	return true
}

// correlationRisk returns the empirical correlation between the
// opportunity's leg venues' price histories when enough overlapping
// samples exist (>=30), otherwise the configured default (§9 open
// question resolution).
func (v *Validator) correlationRisk(o core.Opportunity) float64 {
	if len(o.Legs) < 2 {
		return 0
	}
	a := v.cache.RecentPrices(core.CacheKey(o.Legs[0].Instrument, o.Legs[0].Venue), 1000)
	b := v.cache.RecentPrices(core.CacheKey(o.Legs[1].Instrument, o.Legs[1].Venue), 1000)
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 30 {
		return v.cfg.DefaultCorrelation
	}
	return pearson(a[len(a)-n:], b[len(b)-n:])
}

func pearson(a, b []core.PricePoint) float64 {
	n := len(a)
	if n == 0 {
		return 0
	}
	var sumA, sumB float64
	for i := 0; i < n; i++ {
		sumA += a[i].Price
		sumB += b[i].Price
	}
	meanA, meanB := sumA/float64(n), sumB/float64(n)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da, db := a[i].Price-meanA, b[i].Price-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}
