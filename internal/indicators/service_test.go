package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewService(t *testing.T) {
	assert.NotNil(t, NewService())
}

// generatePriceData builds a deterministic oscillating-around-base
// price series for indicator tests that need a long enough history.
func generatePriceData(n int, base, amplitude float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		offset := float64(i%10) - 5
		out[i] = base + amplitude*offset/5
	}
	return out
}
