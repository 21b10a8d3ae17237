// Package detect runs the six opportunity-detector strategy families
// concurrently over a single point-in-time market snapshot and unions
// their candidates.
package detect

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/arbctl/internal/core"
	"github.com/ajitpratap0/arbctl/internal/indicators"
	"github.com/ajitpratap0/arbctl/internal/market"
	"github.com/ajitpratap0/arbctl/internal/pricing"
)

// Detection-time baseline cost model. This runs before any notional is
// sized, so it estimates cost as a fraction of the opportunity's own
// price scale (PriceA) rather than a real position size; the Execution
// Planner recomputes precise per-leg fee/slippage/impact figures once a
// notional is known (internal/plan's costEstimate/slippageEstimate).
// baselineTakerFee mirrors the 0.1% taker rate most venues charge.
const baselineTakerFee = 0.001

// baselineSlippageScale mirrors the Execution Planner's SlippageScale
// default, applied here against PriceA-as-notional instead of a sized
// notional.
const baselineSlippageScale = 0.0001

// Config tunes strategy thresholds. Zero values are replaced with
// defaults by New.
type Config struct {
	MinProfitPct          float64       // minimum spread/deviation percentage to emit a candidate
	FundingDiffThreshold  float64       // |funding_a - funding_b| must exceed this to emit, e.g. 0.0001 (1bp)
	ZScoreThreshold       float64       // |z| threshold for the Statistical strategy
	MinHistorySamples     int           // samples required before Volatility/Statistical run
	DefaultFundingPeriod  time.Duration // funding period used to prorate FundingRate profit
}

// DefaultConfig returns the detector's default thresholds (§4.4).
func DefaultConfig() Config {
	return Config{
		MinProfitPct:         0.001, // 0.1%
		FundingDiffThreshold: 0.0001,
		ZScoreThreshold:      2.0,
		MinHistorySamples:    30,
		DefaultFundingPeriod: 8 * time.Hour,
	}
}

// Detector runs all six strategy families over a cache snapshot.
type Detector struct {
	cfg        Config
	cache      *market.Cache
	pricer     *pricing.Pricer
	indicators *indicators.Service
	now        func() time.Time
}

// New builds a Detector. cache supplies both the live snapshot and
// bounded price history for the Volatility/Statistical strategies.
func New(cache *market.Cache, pricer *pricing.Pricer, cfg Config) *Detector {
	if cfg.MinProfitPct == 0 {
		cfg = DefaultConfig()
	}
	return &Detector{cfg: cfg, cache: cache, pricer: pricer, indicators: indicators.NewService(), now: time.Now}
}

// strategyFunc produces candidates for one strategy family from a
// snapshot. Errors are swallowed by runStrategy (panics recovered,
// missing-input cases simply return no candidates), per §4.4/§7.
type strategyFunc func(d *Detector, snap *market.Snapshot) []core.Opportunity

var strategies = []struct {
	name core.Strategy
	fn   strategyFunc
}{
	{core.StrategySpotPerp, (*Detector).spotPerp},
	{core.StrategyFundingRate, (*Detector).fundingRate},
	{core.StrategyCrossVenue, (*Detector).crossVenue},
	{core.StrategyBasis, (*Detector).basis},
	{core.StrategyVolatility, (*Detector).volatility},
	{core.StrategyStatistical, (*Detector).statistical},
}

// Detect runs every strategy concurrently over one snapshot and returns
// the union of their candidates. A panic inside one strategy is
// recovered and contributes zero candidates without aborting the rest;
// an empty snapshot yields zero candidates and no error.
func (d *Detector) Detect(ctx context.Context) ([]core.Opportunity, error) {
	snap := d.cache.Snapshot()

	results := make([][]core.Opportunity, len(strategies))
	g, _ := errgroup.WithContext(ctx)

	for i, s := range strategies {
		i, s := i, s
		g.Go(func() error {
			results[i] = d.runStrategy(s.name, s.fn, snap)
			return nil
		})
	}
	// errgroup.Wait only ever returns an error if a Go func returns one;
	// runStrategy never does, so this is always nil, kept for the
	// ctx-cancellation contract.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []core.Opportunity
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// runStrategy isolates one strategy's panic from the others (§7:
// detection-strategy exceptions are caught per strategy).
func (d *Detector) runStrategy(name core.Strategy, fn strategyFunc, snap *market.Snapshot) (out []core.Opportunity) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("strategy", string(name)).
				Interface("panic", r).
				Msg("opportunity strategy panicked, emitting zero candidates")
			out = nil
		}
	}()
	return fn(d, snap)
}

func newOpportunityID() string { return uuid.NewString() }

// percentSpread returns |a-b| over the mid of a,b as a fraction (not %).
func percentSpread(a, b float64) float64 {
	mid := (a + b) / 2
	if mid == 0 {
		return 0
	}
	return absF(a-b) / mid
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func finalizeOpportunity(o *core.Opportunity, detectedAt time.Time) {
	o.ID = newOpportunityID()
	o.DetectedAt = detectedAt
	o.GrossProfitUSD = o.GrossProfitPct * o.PriceA
	o.ExecutionCost = baselineExecutionCost(o.Legs, o.PriceA)
	o.SlippageCost = baselineSlippageCost(o.Legs, o.PriceA)
	o.NetExpectedProfit = o.GrossProfitUSD - o.ExecutionCost - o.SlippageCost
	o.Valid = true
}

// baselineExecutionCost sums a flat taker-fee estimate across legs,
// weighted the same way a sized plan would split notional across legs.
func baselineExecutionCost(legs []core.Leg, priceA float64) float64 {
	var cost float64
	for _, leg := range legs {
		cost += priceA * leg.Weight * baselineTakerFee
	}
	return cost
}

// baselineSlippageCost scales with sqrt(legNotional), matching the
// planner's slippage model in shape; legNotional here is PriceA's share
// of each leg's weight since no real notional exists yet at detection
// time.
func baselineSlippageCost(legs []core.Leg, priceA float64) float64 {
	var cost float64
	for _, leg := range legs {
		legNotional := priceA * leg.Weight
		if legNotional <= 0 {
			continue
		}
		cost += math.Sqrt(legNotional) * baselineSlippageScale
	}
	return cost
}

func instrumentIDForFuture(symbol string, expiryUnix int64) string {
	return fmt.Sprintf("%s:FUT:%d", symbol, expiryUnix)
}

// Sort ranks opportunities by composite score descending, tie-broken by
// detection time (earlier first) then ID, matching §4.4's tie-break
// rule. CompositeScore must already be populated (the validator/ranker
// does this in §4.5); Sort is reused there.
func Sort(opps []core.Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		if opps[i].CompositeScore != opps[j].CompositeScore {
			return opps[i].CompositeScore > opps[j].CompositeScore
		}
		if !opps[i].DetectedAt.Equal(opps[j].DetectedAt) {
			return opps[i].DetectedAt.Before(opps[j].DetectedAt)
		}
		return opps[i].ID < opps[j].ID
	})
}
