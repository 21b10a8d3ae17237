package indicators

import (
	"github.com/cinar/indicator/v2/volatility"
)

// BollingerBandsResult is the most recent Bollinger Bands reading.
type BollingerBandsResult struct {
	Upper  float64
	Middle float64
	Lower  float64
	Signal string // "buy", "sell", "neutral" — current price vs the bands
}

// BollingerBands computes Bollinger Bands over the given period (fixed
// at cinar/indicator's 2 standard deviations) and returns the most
// recent band alongside a signal comparing the latest price to it.
func (s *Service) BollingerBands(prices []float64, period int) (BollingerBandsResult, bool) {
	if period < 2 || period > len(prices) {
		return BollingerBandsResult{}, false
	}

	pricesChan := make(chan float64, len(prices))
	for _, p := range prices {
		pricesChan <- p
	}
	close(pricesChan)

	lowerChan, middleChan, upperChan := volatility.NewBollingerBandsWithPeriod[float64](period).Compute(pricesChan)

	var lower, middle, upper float64
	var got bool
	for {
		l, lok := <-lowerChan
		m, mok := <-middleChan
		u, uok := <-upperChan
		if !lok || !mok || !uok {
			break
		}
		lower, middle, upper = l, m, u
		got = true
	}
	if !got {
		return BollingerBandsResult{}, false
	}

	current := prices[len(prices)-1]
	signal := "neutral"
	switch {
	case current <= lower:
		signal = "buy"
	case current >= upper:
		signal = "sell"
	}

	return BollingerBandsResult{Upper: upper, Middle: middle, Lower: lower, Signal: signal}, true
}
