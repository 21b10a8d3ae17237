package indicators

import (
	"github.com/cinar/indicator/v2/momentum"
)

// RSIResult is the most recent Relative Strength Index reading.
type RSIResult struct {
	Value  float64
	Signal string // "oversold", "overbought", "neutral"
}

// RSI computes the Relative Strength Index over the given period and
// returns the most recent value, or ok=false if there aren't enough
// prices to produce one.
func (s *Service) RSI(prices []float64, period int) (RSIResult, bool) {
	if period < 1 || period > len(prices) {
		return RSIResult{}, false
	}

	pricesChan := make(chan float64, len(prices))
	for _, p := range prices {
		pricesChan <- p
	}
	close(pricesChan)

	rsiChan := momentum.NewRsiWithPeriod[float64](period).Compute(pricesChan)

	var last float64
	var got bool
	for val := range rsiChan {
		last = val
		got = true
	}
	if !got {
		return RSIResult{}, false
	}

	signal := "neutral"
	switch {
	case last < 30:
		signal = "oversold"
	case last > 70:
		signal = "overbought"
	}

	return RSIResult{Value: last, Signal: signal}, true
}
