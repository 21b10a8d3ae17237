package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRSI_ValidPeriods(t *testing.T) {
	service := NewService()
	prices := []float64{
		44.0, 44.5, 45.0, 45.5, 46.0,
		46.5, 47.0, 47.5, 48.0, 48.5,
		49.0, 49.5, 50.0, 50.5, 51.0,
		51.5, 52.0, 52.5, 53.0, 53.5,
	}

	result, ok := service.RSI(prices, 14)
	require.True(t, ok)
	assert.GreaterOrEqual(t, result.Value, 0.0)
	assert.LessOrEqual(t, result.Value, 100.0)
	assert.Contains(t, []string{"oversold", "overbought", "neutral"}, result.Signal)

	result, ok = service.RSI(prices, 10)
	require.True(t, ok)
	assert.Contains(t, []string{"oversold", "overbought", "neutral"}, result.Signal)
}

func TestRSI_InvalidPeriod(t *testing.T) {
	service := NewService()
	prices := []float64{44.0, 45.0, 46.0}

	_, ok := service.RSI(prices, len(prices)+1)
	assert.False(t, ok)

	_, ok = service.RSI(prices, 0)
	assert.False(t, ok)

	_, ok = service.RSI(nil, 14)
	assert.False(t, ok)
}

func TestRSI_Signals(t *testing.T) {
	service := NewService()

	tests := []struct {
		name           string
		prices         []float64
		expectedSignal string
	}{
		{
			name: "strongly bullish trend is overbought",
			prices: []float64{
				10.0, 12.0, 14.0, 16.0, 18.0, 20.0, 22.0, 24.0,
				26.0, 28.0, 30.0, 32.0, 34.0, 36.0, 38.0, 40.0,
			},
			expectedSignal: "overbought",
		},
		{
			name: "strongly bearish trend is oversold",
			prices: []float64{
				40.0, 38.0, 36.0, 34.0, 32.0, 30.0, 28.0, 26.0,
				24.0, 22.0, 20.0, 18.0, 16.0, 14.0, 12.0, 10.0,
			},
			expectedSignal: "oversold",
		},
		{
			name: "sideways market is neutral",
			prices: []float64{
				20.0, 21.0, 20.5, 20.0, 21.0, 20.5, 20.0, 21.0,
				20.5, 20.0, 21.0, 20.5, 20.0, 21.0, 20.5, 20.0,
			},
			expectedSignal: "neutral",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := service.RSI(tt.prices, 14)
			require.True(t, ok)
			assert.Equal(t, tt.expectedSignal, result.Signal)
		})
	}
}
