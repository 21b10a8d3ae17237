package pricing

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSyntheticPerp_PositiveFundingDepressesFair(t *testing.T) {
	p := New(DefaultConfig())
	sp := p.SyntheticPerp("BTC-PERP", 100, 0.001, true, true)
	assert.Less(t, sp.Price, 100.0)
	assert.Equal(t, 1.0, sp.Confidence)
}

func TestSyntheticPerp_NegativeFundingRaisesFair(t *testing.T) {
	p := New(DefaultConfig())
	sp := p.SyntheticPerp("BTC-PERP", 100, -0.001, true, true)
	assert.Greater(t, sp.Price, 100.0)
}

func TestSyntheticPerp_MissingInputReducesConfidence(t *testing.T) {
	p := New(DefaultConfig())
	sp := p.SyntheticPerp("BTC-PERP", 100, 0.001, true, false)
	assert.Equal(t, 0.5, sp.Confidence)
}

func TestSyntheticFuture_CostOfCarryAboveSpotForPositiveRate(t *testing.T) {
	p := New(Config{RiskFreeRate: 0.05})
	sp := p.SyntheticFuture("BTC-FUT:20260101", 100, 90*24*time.Hour, true)
	assert.Greater(t, sp.Price, 100.0)
}

func TestSyntheticFuture_EqualsSpotAtOrAfterExpiry(t *testing.T) {
	p := New(Config{RiskFreeRate: 0.05})
	sp := p.SyntheticFuture("BTC-FUT:expired", 100, 0, true)
	assert.Equal(t, 100.0, sp.Price)
}

func TestBlackScholes_CallPutParity(t *testing.T) {
	p := New(DefaultConfig())
	in := OptionInputs{Spot: 100, Strike: 100, Rate: 0.01, Sigma: 0.3, Tau: 30 * 24 * time.Hour}

	call := p.BlackScholes("BTC-CALL", OptionInputs{Spot: in.Spot, Strike: in.Strike, Rate: in.Rate, Sigma: in.Sigma, Tau: in.Tau, Kind: OptionCall}, true, true)
	put := p.BlackScholes("BTC-PUT", OptionInputs{Spot: in.Spot, Strike: in.Strike, Rate: in.Rate, Sigma: in.Sigma, Tau: in.Tau, Kind: OptionPut}, true, true)

	// Put-call parity: C - P = S - K*exp(-r*tau)
	tau := in.Tau.Hours() / (24 * 365)
	expected := in.Spot - in.Strike*expNegRTau(in.Rate, tau)
	assert.InDelta(t, expected, call.Price-put.Price, 1e-6)
}

func expNegRTau(r, tau float64) float64 {
	return math.Exp(-r * tau)
}

func TestBlackScholes_DegenerateInputsFallsBackToIntrinsic(t *testing.T) {
	p := New(DefaultConfig())
	sp := p.BlackScholes("BTC-CALL", OptionInputs{Spot: 120, Strike: 100, Tau: 0, Kind: OptionCall}, true, true)
	assert.Equal(t, 20.0, sp.Price)
	assert.Equal(t, 0.0, sp.Confidence)
}
