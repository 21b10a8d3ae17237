package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBollingerBands_ValidPeriods(t *testing.T) {
	service := NewService()
	prices := generatePriceData(30, 100.0, 2.0)

	for _, period := range []int{10, 15, 20} {
		result, ok := service.BollingerBands(prices, period)
		require.True(t, ok)
		assert.Greater(t, result.Upper, result.Middle)
		assert.Greater(t, result.Middle, result.Lower)
		assert.Contains(t, []string{"buy", "sell", "neutral"}, result.Signal)
	}
}

func TestBollingerBands_InvalidPeriod(t *testing.T) {
	service := NewService()
	prices := generatePriceData(30, 100.0, 2.0)

	_, ok := service.BollingerBands(prices, 1)
	assert.False(t, ok)

	_, ok = service.BollingerBands(prices, len(prices)+1)
	assert.False(t, ok)
}

func TestBollingerBands_Signals(t *testing.T) {
	service := NewService()

	buyPrices := make([]float64, 30)
	for i := range buyPrices {
		if i < 20 {
			buyPrices[i] = 100.0 + float64(i%5)
		} else {
			buyPrices[i] = 90.0 - float64(i-20)*2.0
		}
	}

	sellPrices := make([]float64, 30)
	for i := range sellPrices {
		if i < 20 {
			sellPrices[i] = 100.0 + float64(i%5)
		} else {
			sellPrices[i] = 110.0 + float64(i-20)*2.0
		}
	}

	neutralPrices := make([]float64, 30)
	for i := range neutralPrices {
		neutralPrices[i] = 100.0 + float64(i%3)
	}

	tests := []struct {
		name            string
		prices          []float64
		possibleSignals []string
	}{
		{"price dropped toward lower band", buyPrices, []string{"buy", "neutral"}},
		{"price rose toward upper band", sellPrices, []string{"sell", "neutral"}},
		{"price stayed in middle range", neutralPrices, []string{"neutral"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := service.BollingerBands(tt.prices, 20)
			require.True(t, ok)
			assert.Contains(t, tt.possibleSignals, result.Signal)
		})
	}
}
