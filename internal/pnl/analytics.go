package pnl

import (
	"math"
	"sort"

	"github.com/ajitpratap0/arbctl/internal/core"
)

// returnsOf converts an equity curve (oldest first) into simple
// period-over-period returns. A non-positive prior equity is skipped
// (a zero or negative baseline makes a percentage return undefined).
func returnsOf(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1]
		if prev <= 0 {
			continue
		}
		out = append(out, (equity[i]-prev)/prev)
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStdDev applies Bessel's correction, matching the teacher's own
// Sharpe-ratio standard deviation.
func sampleStdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var variance float64
	for _, x := range xs {
		d := x - m
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(xs)-1))
}

// sharpeRatio annualizes daily returns and divides the annualized excess
// return by the annualized standard deviation.
func sharpeRatio(returns []float64, riskFreeRate, tradingDays float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	stdDev := sampleStdDev(returns)
	if stdDev == 0 {
		return 0
	}
	annualizedReturn := mean(returns) * tradingDays
	annualizedStdDev := stdDev * math.Sqrt(tradingDays)
	return (annualizedReturn - riskFreeRate) / annualizedStdDev
}

// sortinoRatio is the Sharpe variant that only penalizes downside
// deviation (return below zero).
func sortinoRatio(returns []float64, riskFreeRate, tradingDays float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	downsideDev := sampleStdDev(downside)
	if downsideDev == 0 {
		return 0
	}
	annualizedReturn := mean(returns) * tradingDays
	annualizedDownsideDev := downsideDev * math.Sqrt(tradingDays)
	return (annualizedReturn - riskFreeRate) / annualizedDownsideDev
}

// calmarRatio divides annualized return by max drawdown; undefined (0)
// when there has been no drawdown to divide by.
func calmarRatio(annualizedReturn, maxDrawdown float64) float64 {
	if maxDrawdown == 0 {
		return 0
	}
	return annualizedReturn / maxDrawdown
}

// historicalVaR applies the historical-simulation method: sort returns
// ascending, VaR is the negated (1-confidence) percentile, ES is the mean
// of everything at or beyond it.
func historicalVaR(returns []float64, confidence float64) (varValue, es float64) {
	if len(returns) == 0 {
		return 0, 0
	}
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	index := int(float64(len(sorted)) * (1 - confidence))
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	varValue = -sorted[index]

	var sum float64
	for i := 0; i <= index; i++ {
		sum += sorted[i]
	}
	es = -sum / float64(index+1)
	return varValue, es
}

// drawdownOf returns the current and maximum peak-to-trough drawdown of
// an equity curve.
func drawdownOf(equity []float64) (current, max float64) {
	if len(equity) == 0 {
		return 0, 0
	}
	peak := equity[0]
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > max {
				max = dd
			}
		}
	}
	if peak > 0 {
		current = (peak - equity[len(equity)-1]) / peak
	}
	return current, max
}

// tradeStats summarizes closed trades into win rate, average win/loss, and
// profit factor.
func tradeStats(trades []core.TradeRecord) (winRate, avgWin, avgLoss, profitFactor float64, wins, losses int) {
	var grossWin, grossLoss float64
	var closed int
	for _, t := range trades {
		if t.RealizedPnL == nil {
			continue
		}
		closed++
		pnl := *t.RealizedPnL
		if pnl >= 0 {
			wins++
			grossWin += pnl
		} else {
			losses++
			grossLoss += -pnl
		}
	}
	if closed > 0 {
		winRate = float64(wins) / float64(closed)
	}
	if wins > 0 {
		avgWin = grossWin / float64(wins)
	}
	if losses > 0 {
		avgLoss = grossLoss / float64(losses)
	}
	if grossLoss > 0 {
		profitFactor = grossWin / grossLoss
	}
	return winRate, avgWin, avgLoss, profitFactor, wins, losses
}
