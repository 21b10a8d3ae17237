package detect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/arbctl/internal/core"
	"github.com/ajitpratap0/arbctl/internal/market"
	"github.com/ajitpratap0/arbctl/internal/pricing"
)

func fundingPtr(f float64) *float64 { return &f }

func newTestDetector(now time.Time) (*Detector, *market.Cache) {
	cache := market.New(market.WithClock(func() time.Time { return now }))
	pricer := pricing.New(pricing.DefaultConfig())
	cfg := DefaultConfig()
	cfg.MinProfitPct = 0.0002 // 0.02%, per the literal scenarios
	d := New(cache, pricer, cfg)
	d.now = func() time.Time { return now }
	return d, cache
}

func TestDetect_SpotPerpScenario(t *testing.T) {
	now := time.Now()
	d, cache := newTestDetector(now)

	cache.Update([]core.Quote{
		{Symbol: "BTC-USD", Venue: "A", Last: 43500, Bid: 43490, Ask: 43510, ObservedAt: now},
		{Symbol: "BTC-USD", Venue: "A", Last: 43480, Bid: 43470, Ask: 43490, FundingRate: fundingPtr(0.0001), ObservedAt: now},
	})

	opps, err := d.Detect(context.Background())
	require.NoError(t, err)

	var found *core.Opportunity
	for i := range opps {
		if opps[i].Strategy == core.StrategySpotPerp {
			found = &opps[i]
		}
	}
	require.NotNil(t, found, "expected one SpotPerp opportunity")
	assert.Equal(t, 43500.0, found.PriceA)
	assert.Equal(t, 43480.0, found.PriceB)
	assert.InDelta(t, 20.0, found.AbsoluteSpread, 1e-9)
	assert.InDelta(t, 0.00046, found.PercentSpread, 0.0001)
	require.Len(t, found.Legs, 2)

	var buyPerp, sellSpot bool
	for _, leg := range found.Legs {
		if leg.Action == core.ActionBuy && leg.Instrument == "BTC-USD-PERP" {
			buyPerp = true
			assert.Equal(t, 0.5, leg.Weight)
		}
		if leg.Action == core.ActionSell && leg.Instrument == "BTC-USD" {
			sellSpot = true
			assert.Equal(t, 0.5, leg.Weight)
		}
	}
	assert.True(t, buyPerp, "expected a buy-perp leg")
	assert.True(t, sellSpot, "expected a sell-spot leg")
}

func TestDetect_CrossVenueScenario(t *testing.T) {
	now := time.Now()
	d, cache := newTestDetector(now)

	cache.Update([]core.Quote{
		{Symbol: "BTC-USD", Venue: "A", Last: 43500, Bid: 43490, Ask: 43510, ObservedAt: now},
		{Symbol: "BTC-USD", Venue: "B", Last: 43520, Bid: 43510, Ask: 43530, ObservedAt: now},
	})

	opps, err := d.Detect(context.Background())
	require.NoError(t, err)

	var found *core.Opportunity
	for i := range opps {
		if opps[i].Strategy == core.StrategyCrossVenue {
			found = &opps[i]
		}
	}
	require.NotNil(t, found, "expected one CrossVenue opportunity")

	var buyA, sellB bool
	for _, leg := range found.Legs {
		if leg.Venue == "A" && leg.Action == core.ActionBuy {
			buyA = true
		}
		if leg.Venue == "B" && leg.Action == core.ActionSell {
			sellB = true
		}
	}
	assert.True(t, buyA)
	assert.True(t, sellB)
}

func TestDetect_FundingRateScenario(t *testing.T) {
	now := time.Now()
	d, cache := newTestDetector(now)

	cache.Update([]core.Quote{
		{Symbol: "ETH-USD", Venue: "A", Last: 2000, FundingRate: fundingPtr(0.0001), ObservedAt: now},
		{Symbol: "ETH-USD", Venue: "B", Last: 2001, FundingRate: fundingPtr(0.0003), ObservedAt: now},
	})

	opps, err := d.Detect(context.Background())
	require.NoError(t, err)

	var found *core.Opportunity
	for i := range opps {
		if opps[i].Strategy == core.StrategyFundingRate {
			found = &opps[i]
		}
	}
	require.NotNil(t, found, "expected one FundingRate opportunity")
	assert.Equal(t, d.cfg.DefaultFundingPeriod, found.EstimatedDuration)

	var shortB, longA bool
	for _, leg := range found.Legs {
		if leg.Venue == "B" && leg.Action == core.ActionSell {
			shortB = true
		}
		if leg.Venue == "A" && leg.Action == core.ActionBuy {
			longA = true
		}
	}
	assert.True(t, shortB, "expected short leg on venue B (higher funding)")
	assert.True(t, longA, "expected long leg on venue A (lower funding)")
}

func TestDetect_EmptySnapshot_ZeroOpportunitiesNoError(t *testing.T) {
	d, _ := newTestDetector(time.Now())
	opps, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestDetect_NetProfitNeverExceedsGrossProfit(t *testing.T) {
	now := time.Now()
	d, cache := newTestDetector(now)
	cache.Update([]core.Quote{
		{Symbol: "BTC-USD", Venue: "A", Last: 43500, ObservedAt: now},
		{Symbol: "BTC-USD", Venue: "B", Last: 43900, ObservedAt: now},
	})

	opps, err := d.Detect(context.Background())
	require.NoError(t, err)
	for _, o := range opps {
		assert.LessOrEqualf(t, o.NetExpectedProfit, o.GrossProfitUSD, "opportunity %s violates net<=gross", o.ID)
	}
}

func TestDetect_LegWeightsSumToOne(t *testing.T) {
	now := time.Now()
	d, cache := newTestDetector(now)
	cache.Update([]core.Quote{
		{Symbol: "BTC-USD", Venue: "A", Last: 43500, ObservedAt: now},
		{Symbol: "BTC-USD", Venue: "A", Last: 43480, FundingRate: fundingPtr(0.0001), ObservedAt: now},
	})

	opps, err := d.Detect(context.Background())
	require.NoError(t, err)
	for _, o := range opps {
		sum := 0.0
		for _, leg := range o.Legs {
			sum += leg.Weight
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestDetect_ExecutionCostAndSlippageAreNonZero(t *testing.T) {
	now := time.Now()
	d, cache := newTestDetector(now)
	cache.Update([]core.Quote{
		{Symbol: "BTC-USD", Venue: "A", Last: 43500, ObservedAt: now},
		{Symbol: "BTC-USD", Venue: "B", Last: 43900, ObservedAt: now},
	})

	opps, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, opps)
	for _, o := range opps {
		assert.Greaterf(t, o.ExecutionCost, 0.0, "opportunity %s has zero ExecutionCost", o.ID)
		assert.Greaterf(t, o.SlippageCost, 0.0, "opportunity %s has zero SlippageCost", o.ID)
	}
}

func TestCrossVenue_CostPremiumDoublesNonZeroBaseline(t *testing.T) {
	now := time.Now()
	d, cache := newTestDetector(now)
	cache.Update([]core.Quote{
		{Symbol: "BTC-USD", Venue: "A", Last: 43500, ObservedAt: now},
		{Symbol: "BTC-USD", Venue: "B", Last: 43900, ObservedAt: now},
	})

	opps, err := d.Detect(context.Background())
	require.NoError(t, err)

	var found *core.Opportunity
	for i := range opps {
		if opps[i].Strategy == core.StrategyCrossVenue {
			found = &opps[i]
		}
	}
	require.NotNil(t, found, "expected one CrossVenue opportunity")

	baseFee := baselineExecutionCost(found.Legs, found.PriceA)
	baseSlip := baselineSlippageCost(found.Legs, found.PriceA)
	assert.InDelta(t, baseFee*2, found.ExecutionCost, 1e-9)
	assert.InDelta(t, baseSlip*1.5, found.SlippageCost, 1e-9)
}

func TestDetect_PanicInOneStrategyDoesNotAbortOthers(t *testing.T) {
	now := time.Now()
	d, cache := newTestDetector(now)
	cache.Update([]core.Quote{
		{Symbol: "BTC-USD", Venue: "A", Last: 43500, ObservedAt: now},
		{Symbol: "BTC-USD", Venue: "B", Last: 43900, ObservedAt: now},
	})

	orig := strategies[2].fn // crossVenue
	strategies[2].fn = func(d *Detector, snap *market.Snapshot) []core.Opportunity {
		panic("boom")
	}
	defer func() { strategies[2].fn = orig }()

	opps, err := d.Detect(context.Background())
	require.NoError(t, err)
	for _, o := range opps {
		assert.NotEqual(t, core.StrategyCrossVenue, o.Strategy)
	}
}
