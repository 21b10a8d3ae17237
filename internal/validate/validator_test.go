package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/arbctl/internal/core"
	"github.com/ajitpratap0/arbctl/internal/market"
)

func newTestValidator(now time.Time) (*Validator, *market.Cache) {
	cache := market.New(market.WithClock(func() time.Time { return now }))
	v := New(cache, DefaultConfig())
	v.now = func() time.Time { return now }
	return v, cache
}

func baseOpportunity(now time.Time) core.Opportunity {
	return core.Opportunity{
		ID:       "opp-1",
		Strategy: core.StrategySpotPerp,
		Symbol:   "BTC-USD",
		Legs: []core.Leg{
			{Venue: "A", Instrument: "BTC-USD", Action: core.ActionBuy, ReferencePrice: 43500, Weight: 0.5},
			{Venue: "A", Instrument: "BTC-USD-PERP", Action: core.ActionSell, ReferencePrice: 43480, Weight: 0.5},
		},
		GrossProfitUSD:    100,
		GrossProfitPct:    0.01,
		NetExpectedProfit: 80,
		Confidence:        0.9,
		DetectedAt:        now,
		EstimatedDuration: time.Minute,
	}
}

func TestValidate_AllGatesPass_Executable(t *testing.T) {
	now := time.Now()
	v, cache := newTestValidator(now)
	cache.Update([]core.Quote{
		{Symbol: "BTC-USD", Venue: "A", Last: 43500, Volume24h: 2_000_000, ObservedAt: now},
	})

	o := v.Validate(baseOpportunity(now))
	assert.True(t, o.Valid)
	assert.True(t, o.Executable)
	assert.Empty(t, o.ValidationNotes)
}

func TestValidate_BelowMinProfit_FailsGate(t *testing.T) {
	now := time.Now()
	v, cache := newTestValidator(now)
	cache.Update([]core.Quote{{Symbol: "BTC-USD", Venue: "A", Last: 43500, Volume24h: 2_000_000, ObservedAt: now}})

	o := baseOpportunity(now)
	o.GrossProfitUSD = 0.01
	o.GrossProfitPct = 0.00001
	o = v.Validate(o)
	assert.False(t, o.Executable)
	assert.Contains(t, o.ValidationNotes, "min_profit")
}

func TestValidate_LowConfidence_FailsGate(t *testing.T) {
	now := time.Now()
	v, cache := newTestValidator(now)
	cache.Update([]core.Quote{{Symbol: "BTC-USD", Venue: "A", Last: 43500, Volume24h: 2_000_000, ObservedAt: now}})

	o := baseOpportunity(now)
	o.Confidence = 0.1
	o = v.Validate(o)
	assert.False(t, o.Executable)
	assert.Contains(t, o.ValidationNotes, "min_confidence")
}

func TestValidate_ExceedsMaxPosition_FailsGate(t *testing.T) {
	now := time.Now()
	v, cache := newTestValidator(now)
	cache.Update([]core.Quote{{Symbol: "BTC-USD", Venue: "A", Last: 43500, Volume24h: 2_000_000, ObservedAt: now}})

	o := baseOpportunity(now)
	o.Legs[0].Weight = 100000
	o.Legs[1].Weight = 100000
	o = v.Validate(o)
	assert.False(t, o.Executable)
	assert.Contains(t, o.ValidationNotes, "max_position_usd")
}

func TestValidate_StaleDetection_FailsMaxDataAge(t *testing.T) {
	now := time.Now()
	v, cache := newTestValidator(now)
	cache.Update([]core.Quote{{Symbol: "BTC-USD", Venue: "A", Last: 43500, Volume24h: 2_000_000, ObservedAt: now}})

	o := baseOpportunity(now)
	o.DetectedAt = now.Add(-1 * time.Minute)
	o = v.Validate(o)
	assert.False(t, o.Executable)
	assert.Contains(t, o.ValidationNotes, "max_data_age")
}

func TestValidate_LegNotInCache_FailsGate(t *testing.T) {
	now := time.Now()
	v, _ := newTestValidator(now) // empty cache: no quotes present at all

	o := v.Validate(baseOpportunity(now))
	assert.False(t, o.Executable)
	assert.Contains(t, o.ValidationNotes, "legs_present_in_cache")
}

func TestValidate_FewSamples_UsesDefaultCorrelation(t *testing.T) {
	now := time.Now()
	v, cache := newTestValidator(now)
	cache.Update([]core.Quote{{Symbol: "BTC-USD", Venue: "A", Last: 43500, Volume24h: 2_000_000, ObservedAt: now}})

	o := baseOpportunity(now)
	corr := v.correlationRisk(o)
	assert.Equal(t, v.cfg.DefaultCorrelation, corr)
}

func TestValidateAndRank_OrdersByCompositeScoreDescending(t *testing.T) {
	now := time.Now()
	v, cache := newTestValidator(now)
	cache.Update([]core.Quote{{Symbol: "BTC-USD", Venue: "A", Last: 43500, Volume24h: 2_000_000, ObservedAt: now}})

	weak := baseOpportunity(now)
	weak.ID = "weak"
	weak.GrossProfitPct = 0.001

	strong := baseOpportunity(now)
	strong.ID = "strong"
	strong.GrossProfitPct = 0.05

	ranked := v.ValidateAndRank([]core.Opportunity{weak, strong}, false)
	require.Len(t, ranked, 2)
	assert.Equal(t, "strong", ranked[0].ID)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, "weak", ranked[1].ID)
	assert.Equal(t, 2, ranked[1].Rank)
	assert.GreaterOrEqual(t, ranked[0].CompositeScore, ranked[1].CompositeScore)
}

func TestValidateAndRank_DropsNonExecutableByDefault(t *testing.T) {
	now := time.Now()
	v, _ := newTestValidator(now) // empty cache fails legs_present_in_cache for everything

	ranked := v.ValidateAndRank([]core.Opportunity{baseOpportunity(now)}, false)
	assert.Empty(t, ranked)
}

func TestValidateAndRank_DebugKeepsNonExecutable(t *testing.T) {
	now := time.Now()
	v, _ := newTestValidator(now)

	ranked := v.ValidateAndRank([]core.Opportunity{baseOpportunity(now)}, true)
	require.Len(t, ranked, 1)
	assert.False(t, ranked[0].Executable)
	assert.Equal(t, 1, ranked[0].Rank)
}

func TestScore_ExecutionProbability_InUnitRange(t *testing.T) {
	now := time.Now()
	v, _ := newTestValidator(now)

	o := v.Score(baseOpportunity(now))
	assert.GreaterOrEqual(t, o.ExecutionProbability, 0.0)
	assert.LessOrEqual(t, o.ExecutionProbability, 1.0)
	assert.Greater(t, o.CompositeScore, 0.0)
}
