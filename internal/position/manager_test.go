package position

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/arbctl/internal/core"
)

func TestOpen_WithinLimits_CreatesActivePosition(t *testing.T) {
	m := New(DefaultConfig(), nil, nil)

	pos, err := m.Open("BTC-USD", "A", "spot-perp", core.PositionLong, 43500, 1, 1, nil)
	require.NoError(t, err)
	assert.True(t, pos.Active)
	assert.Equal(t, 1.0, pos.Size)
	assert.Equal(t, 43500.0, pos.CostBasis)
}

func TestOpen_ExceedsMaxPositionSize_RejectedNoStateChange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPositionSize = 10_000
	m := New(cfg, nil, nil)

	_, err := m.Open("BTC-USD", "A", "spot-perp", core.PositionLong, 43500, 12, 1, nil)
	require.Error(t, err)
	var coreErr *core.Error
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, core.ErrRiskLimitBreach, coreErr.Kind)

	_, ok := m.Get("BTC-USD", "A")
	assert.False(t, ok, "no position should exist after a rejected open")
}

func TestOpen_RiskVeto_NotionalFarExceedsMaxPositionUSD(t *testing.T) {
	// Scenario 4: notional 500,000 with max_position_usd-equivalent limit
	// of 10,000 -> rejected, no state change, caller surfaces one warning.
	cfg := DefaultConfig()
	cfg.MaxPositionSize = 10_000
	var changes []StateChange
	m := New(cfg, func(c StateChange) { changes = append(changes, c) }, nil)

	_, err := m.Open("BTC-USD", "A", "spot-perp", core.PositionLong, 50_000, 10, 1, nil)
	require.Error(t, err)
	var coreErr *core.Error
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, core.ErrRiskLimitBreach, coreErr.Kind)
	assert.Empty(t, changes, "no state-change callback should fire on a rejected open")
}

func TestOpen_InsufficientCapital_Rejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultStrategyCapital = 1000
	m := New(cfg, nil, nil)

	_, err := m.Open("BTC-USD", "A", "spot-perp", core.PositionLong, 43500, 1, 1, nil)
	require.Error(t, err)
	var coreErr *core.Error
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, core.ErrCapitalInsufficient, coreErr.Kind)
}

func TestOpen_ExceedsMaxLeverage_Rejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLeverage = 2
	m := New(cfg, nil, nil)

	_, err := m.Open("BTC-USD", "A", "spot-perp", core.PositionLong, 100, 1, 5, nil)
	require.Error(t, err)
}

func TestOpen_ExceedsMaxLeverage_RaisesAlert(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLeverage = 2
	m := New(cfg, nil, nil)

	var gotKind core.AlertKind
	var gotSeverity core.AlertSeverity
	var gotValue, gotLimit float64
	m.SetRiskAlert(func(kind core.AlertKind, severity core.AlertSeverity, value, limit float64) {
		gotKind, gotSeverity, gotValue, gotLimit = kind, severity, value, limit
	})

	_, err := m.Open("BTC-USD", "A", "spot-perp", core.PositionLong, 100, 1, 5, nil)
	require.Error(t, err)
	assert.Equal(t, core.AlertLeverageBreach, gotKind)
	assert.Equal(t, core.SeverityWarning, gotSeverity)
	assert.Equal(t, 5.0, gotValue)
	assert.Equal(t, 2.0, gotLimit)
}

func TestOpen_NoRiskAlertHook_DoesNotPanicOnLeverageBreach(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLeverage = 2
	m := New(cfg, nil, nil)

	assert.NotPanics(t, func() {
		_, _ = m.Open("BTC-USD", "A", "spot-perp", core.PositionLong, 100, 1, 5, nil)
	})
}

func TestAdjust_SameDirection_AveragesEntryPrice(t *testing.T) {
	m := New(DefaultConfig(), nil, nil)
	_, err := m.Open("BTC-USD", "A", "spot-perp", core.PositionLong, 100, 1, 1, nil)
	require.NoError(t, err)

	realized, err := m.Adjust("BTC-USD", "A", 1, 200)
	require.NoError(t, err)
	assert.Equal(t, 0.0, realized)

	pos, _ := m.Get("BTC-USD", "A")
	assert.Equal(t, 150.0, pos.AverageEntry)
	assert.Equal(t, 2.0, pos.Size)
}

func TestAdjust_OppositeDirection_RealizesPnLAndCanClose(t *testing.T) {
	m := New(DefaultConfig(), nil, nil)
	_, err := m.Open("BTC-USD", "A", "spot-perp", core.PositionLong, 100, 1, 1, nil)
	require.NoError(t, err)

	realized, err := m.Adjust("BTC-USD", "A", -1, 150)
	require.NoError(t, err)
	assert.Equal(t, 50.0, realized)

	pos, _ := m.Get("BTC-USD", "A")
	assert.False(t, pos.Active)
}

func TestClose_ReturnsCapitalToStrategyBucket(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultStrategyCapital = 50_000
	m := New(cfg, nil, nil)

	_, err := m.Open("BTC-USD", "A", "spot-perp", core.PositionLong, 100, 10, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 49_000.0, m.capitalAvailable("spot-perp"))

	realized, err := m.Close("BTC-USD", "A", 120)
	require.NoError(t, err)
	assert.Equal(t, 200.0, realized)
	assert.Equal(t, 50_000.0, m.capitalAvailable("spot-perp"))
}

func TestClose_UnknownPosition_ReturnsPositionNotFound(t *testing.T) {
	m := New(DefaultConfig(), nil, nil)
	_, err := m.Close("BTC-USD", "A", 100)
	require.Error(t, err)
	var coreErr *core.Error
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, core.ErrPositionNotFound, coreErr.Kind)
}

func TestActive_OnlyListsOpenPositions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcentration = 1.0 // two unrelated symbols shouldn't trip concentration here
	m := New(cfg, nil, nil)
	_, err := m.Open("BTC-USD", "A", "spot-perp", core.PositionLong, 100, 1, 1, nil)
	require.NoError(t, err)
	_, err = m.Open("ETH-USD", "A", "spot-perp", core.PositionLong, 50, 1, 1, nil)
	require.NoError(t, err)
	_, err = m.Close("BTC-USD", "A", 110)
	require.NoError(t, err)

	active := m.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "ETH-USD", active[0].Symbol)
}
