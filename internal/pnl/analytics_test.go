package pnl

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ajitpratap0/arbctl/internal/core"
)

func TestReturnsOf_ComputesSimplePeriodReturns(t *testing.T) {
	got := returnsOf([]float64{100, 110, 99})
	assert.InDelta(t, 0.1, got[0], 1e-9)
	assert.InDelta(t, -0.1, got[1], 1e-9)
}

func TestReturnsOf_SkipsNonPositiveBaseline(t *testing.T) {
	got := returnsOf([]float64{0, 100, 110})
	assert.Len(t, got, 1)
}

func TestSharpeRatio_ZeroStdDev_ReturnsZero(t *testing.T) {
	got := sharpeRatio([]float64{0.01, 0.01, 0.01}, 0, 252)
	assert.Zero(t, got)
}

func TestSharpeRatio_PositiveExcessReturn_IsPositive(t *testing.T) {
	got := sharpeRatio([]float64{0.01, 0.02, -0.005, 0.015}, 0, 252)
	assert.Greater(t, got, 0.0)
}

func TestSortinoRatio_NoDownside_ReturnsZero(t *testing.T) {
	got := sortinoRatio([]float64{0.01, 0.02, 0.015}, 0, 252)
	assert.Zero(t, got)
}

func TestCalmarRatio_ZeroDrawdown_ReturnsZero(t *testing.T) {
	assert.Zero(t, calmarRatio(0.1, 0))
}

func TestHistoricalVaR_WorstTailIsNegatedForLoss(t *testing.T) {
	returns := []float64{0.05, 0.02, -0.10, 0.01, -0.03, 0.04, 0.0, -0.01, 0.03, 0.02}
	varValue, es := historicalVaR(returns, 0.9)
	assert.Greater(t, varValue, 0.0)
	assert.GreaterOrEqual(t, es, varValue)
}

func TestDrawdownOf_PeakToTrough(t *testing.T) {
	_, maxDD := drawdownOf([]float64{100, 150, 75})
	assert.InDelta(t, 0.5, maxDD, 1e-9)
}

func TestTradeStats_MixedWinLoss(t *testing.T) {
	win := 20.0
	loss := -10.0
	trades := []core.TradeRecord{
		{RealizedPnL: &win},
		{RealizedPnL: &loss},
		{RealizedPnL: nil}, // still open, excluded
	}
	winRate, avgWin, avgLoss, profitFactor, wins, losses := tradeStats(trades)
	assert.InDelta(t, 0.5, winRate, 1e-9)
	assert.Equal(t, 20.0, avgWin)
	assert.Equal(t, 10.0, avgLoss)
	assert.Equal(t, 2.0, profitFactor)
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)
}
