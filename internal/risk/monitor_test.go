package risk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/arbctl/internal/core"
)

type fakePositions struct {
	positions []core.Position
}

func (f *fakePositions) Active() []core.Position { return f.positions }

type fakePrices struct {
	series map[string][]core.PricePoint
	quotes map[string]core.Quote
}

func newFakePrices() *fakePrices {
	return &fakePrices{series: map[string][]core.PricePoint{}, quotes: map[string]core.Quote{}}
}

func (f *fakePrices) RecentPrices(key string, n int) []core.PricePoint {
	pts := f.series[key]
	if len(pts) > n {
		return pts[len(pts)-n:]
	}
	return pts
}

func (f *fakePrices) GetQuote(symbol, venue string) (*core.Quote, bool) {
	q, ok := f.quotes[core.CacheKey(symbol, venue)]
	if !ok {
		return nil, false
	}
	return &q, true
}

func seedWalk(prices *fakePrices, key string, start float64, n int, step float64) {
	now := time.Now()
	p := start
	for i := 0; i < n; i++ {
		prices.series[key] = append(prices.series[key], core.PricePoint{Timestamp: now.Add(time.Duration(i) * time.Minute), Price: p})
		if i%2 == 0 {
			p += step
		} else {
			p -= step / 2
		}
	}
}

func TestCompute_EmptyBook_ReturnsZeroMetrics(t *testing.T) {
	m := New(DefaultConfig(), &fakePositions{}, newFakePrices(), nil, nil)
	rm, err := m.Compute(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, rm.PortfolioVaR)
	assert.Zero(t, rm.TotalExposure)
}

func TestCompute_SingleSymbolBook_ConcentrationIsOne(t *testing.T) {
	positions := &fakePositions{positions: []core.Position{
		{Symbol: "BTC-USD", Venue: "A", Size: 1, AverageEntry: 50_000, Active: true},
	}}
	prices := newFakePrices()
	seedWalk(prices, core.CacheKey("BTC-USD", "A"), 50_000, 40, 100)

	cfg := DefaultConfig()
	cfg.MonteCarloSamples = 2000
	m := New(cfg, positions, prices, nil, nil, WithSeedFunc(func() int64 { return 42 }))

	rm, err := m.Compute(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1.0, rm.Concentration)
	assert.Equal(t, 50_000.0, rm.TotalExposure)
	assert.GreaterOrEqual(t, rm.PortfolioVaR, 0.0)
	assert.GreaterOrEqual(t, rm.ExpectedShortfall, rm.PortfolioVaR, "ES averages the tail beyond VaR, so it is at least as large")
}

func TestCompute_InsufficientHistory_FallsBackToDefaultVolatility(t *testing.T) {
	positions := &fakePositions{positions: []core.Position{
		{Symbol: "ETH-USD", Venue: "A", Size: 2, AverageEntry: 2_000, Active: true},
	}}
	prices := newFakePrices() // no history seeded at all

	cfg := DefaultConfig()
	cfg.MonteCarloSamples = 2000
	m := New(cfg, positions, prices, nil, nil, WithSeedFunc(func() int64 { return 7 }))

	rm, err := m.Compute(context.Background(), time.Now())
	require.NoError(t, err)
	// With only the default 2% vol and a single position, VaR should be
	// small but nonzero given enough samples.
	assert.Greater(t, rm.PortfolioVaR, 0.0)
}

func TestCorrelationOf_TwoSymbolsBelowMinSamples_UsesDefault(t *testing.T) {
	positions := []core.Position{
		{Symbol: "BTC-USD", Venue: "A", Size: 1, AverageEntry: 50_000},
		{Symbol: "ETH-USD", Venue: "A", Size: 1, AverageEntry: 2_000},
	}
	prices := newFakePrices()
	seedWalk(prices, core.CacheKey("BTC-USD", "A"), 50_000, 5, 10)
	seedWalk(prices, core.CacheKey("ETH-USD", "A"), 2_000, 5, 5)

	cfg := DefaultConfig()
	got := correlationOf(prices, cfg, positions)
	assert.Equal(t, cfg.DefaultCorrelation, got)
}

func TestConcentrationOf_TwoSymbols_SplitsCorrectly(t *testing.T) {
	positions := []core.Position{
		{Symbol: "BTC-USD", Venue: "A", Size: 1, AverageEntry: 75_000},
		{Symbol: "ETH-USD", Venue: "A", Size: 1, AverageEntry: 25_000},
	}
	got := concentrationOf(positions)
	assert.InDelta(t, 0.75, got, 1e-9)
}

func TestLiquidityRiskOf_UsesCachedVolume(t *testing.T) {
	positions := []core.Position{{Symbol: "BTC-USD", Venue: "A", Size: 1, AverageEntry: 50_000}}
	prices := newFakePrices()
	prices.quotes[core.CacheKey("BTC-USD", "A")] = core.Quote{Symbol: "BTC-USD", Venue: "A", Volume24h: 500_000}

	got := liquidityRiskOf(prices, positions)
	assert.InDelta(t, 0.5, got, 1e-9) // 1 - min(1, 500_000/1e6)
}

func TestFundingRiskOf_AveragesAbsFundingRate(t *testing.T) {
	rateA := 0.01
	rateB := -0.03
	positions := []core.Position{
		{Symbol: "BTC-USD-PERP", Venue: "A"},
		{Symbol: "ETH-USD-PERP", Venue: "A"},
	}
	prices := newFakePrices()
	prices.quotes[core.CacheKey("BTC-USD-PERP", "A")] = core.Quote{FundingRate: &rateA}
	prices.quotes[core.CacheKey("ETH-USD-PERP", "A")] = core.Quote{FundingRate: &rateB}

	got := fundingRiskOf(prices, positions)
	assert.InDelta(t, 0.02, got, 1e-9)
}

func TestDrawdownOf_TracksPeakToTrough(t *testing.T) {
	_, maxDD := drawdownOf([]float64{100, 120, 90, 110})
	assert.InDelta(t, 0.25, maxDD, 1e-9) // (120-90)/120
}

func TestEvaluate_BreachProducesCriticalAboveLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPortfolioVaR = 0.05
	m := New(cfg, &fakePositions{}, newFakePrices(), nil, nil)

	rm := core.RiskMetrics{Timestamp: time.Now(), PortfolioVaR: 0.06}
	alerts := m.Evaluate(rm)
	require.Len(t, alerts, 1)
	assert.Equal(t, core.AlertVarBreach, alerts[0].Kind)
	assert.Equal(t, core.SeverityCritical, alerts[0].Severity)
}

func TestEvaluate_BelowWarningThreshold_NoAlert(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcentration = 0.5
	m := New(cfg, &fakePositions{}, newFakePrices(), nil, nil)

	rm := core.RiskMetrics{Timestamp: time.Now(), Concentration: 0.2}
	alerts := m.Evaluate(rm)
	assert.Empty(t, alerts)
}

func TestTick_DispatchesAndPrunesExpiredAlerts(t *testing.T) {
	var dispatched []core.RiskAlert
	cfg := DefaultConfig()
	cfg.MaxConcentration = 0.1
	cfg.AlertTTL = time.Millisecond
	cfg.MonteCarloSamples = 100

	positions := &fakePositions{positions: []core.Position{
		{Symbol: "BTC-USD", Venue: "A", Size: 1, AverageEntry: 50_000, Active: true},
	}}
	prices := newFakePrices()
	prices.quotes[core.CacheKey("BTC-USD", "A")] = core.Quote{Symbol: "BTC-USD", Venue: "A", Volume24h: 5_000_000}

	clock := time.Now()
	m := New(cfg, positions, prices, func(a core.RiskAlert) { dispatched = append(dispatched, a) }, nil,
		WithClock(func() time.Time { return clock }),
		WithSeedFunc(func() int64 { return 1 }),
	)

	_, err := m.Tick(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, dispatched)
	var sawConcentration bool
	for _, a := range dispatched {
		if a.Kind == core.AlertConcentrationBreach {
			sawConcentration = true
		}
	}
	assert.True(t, sawConcentration, "100%% concentrated book should breach the 10%% limit")

	active := m.ActiveAlerts(clock)
	assert.NotEmpty(t, active)

	clock = clock.Add(time.Hour)
	active = m.ActiveAlerts(clock)
	assert.Empty(t, active, "alert should have expired")
}

func TestRaise_DispatchesAndAppearsInActiveAlerts(t *testing.T) {
	var dispatched []core.RiskAlert
	clock := time.Now()
	m := New(DefaultConfig(), &fakePositions{}, newFakePrices(), func(a core.RiskAlert) { dispatched = append(dispatched, a) }, nil,
		WithClock(func() time.Time { return clock }),
	)

	alert := m.Raise(core.AlertLeverageBreach, core.SeverityWarning, 5, 3)
	assert.Equal(t, core.AlertLeverageBreach, alert.Kind)
	assert.Equal(t, core.SeverityWarning, alert.Severity)
	assert.Equal(t, 5.0, alert.Value)
	assert.Equal(t, 3.0, alert.Limit)

	require.Len(t, dispatched, 1)
	assert.Equal(t, core.AlertLeverageBreach, dispatched[0].Kind)

	active := m.ActiveAlerts(clock)
	require.Len(t, active, 1)
	assert.Equal(t, core.AlertLeverageBreach, active[0].Kind)
}
