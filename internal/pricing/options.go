package pricing

import (
	"math"
	"time"

	"github.com/ajitpratap0/arbctl/internal/core"
)

// OptionKind selects a European call or put in Black-Scholes pricing.
type OptionKind string

const (
	OptionCall OptionKind = "call"
	OptionPut  OptionKind = "put"
)

// OptionInputs are the Black-Scholes parameters: spot S, strike K,
// annualized risk-free rate R, annualized implied volatility Sigma, and
// time to expiry Tau (a duration, converted to years when pricing).
type OptionInputs struct {
	Spot   float64
	Strike float64
	Rate   float64
	Sigma  float64
	Tau    time.Duration
	Kind   OptionKind
}

// BlackScholes prices a European option in closed form. No third-party
// quant library in the dependency set models options pricing, so this
// is implemented directly against math.Erf for the normal CDF.
func (p *Pricer) BlackScholes(instrumentID string, in OptionInputs, spotFresh, sigmaFresh bool) core.SyntheticPrice {
	tau := in.Tau.Hours() / (24 * 365)

	present := 0
	if spotFresh {
		present++
	}
	if sigmaFresh {
		present++
	}

	if tau <= 0 || in.Sigma <= 0 || in.Spot <= 0 || in.Strike <= 0 {
		// At/after expiry or degenerate inputs: price collapses to
		// intrinsic value, confidence to zero coverage beyond what's
		// actually usable.
		intrinsic := intrinsicValue(in)
		return core.SyntheticPrice{
			InstrumentID: instrumentID,
			Price:        intrinsic,
			Model:        core.ModelOptionBS,
			Confidence:   0,
			Components:   core.PriceComponents{Base: in.Spot},
			Timestamp:    p.now(),
		}
	}

	sqrtTau := math.Sqrt(tau)
	d1 := (math.Log(in.Spot/in.Strike) + (in.Rate+0.5*in.Sigma*in.Sigma)*tau) / (in.Sigma * sqrtTau)
	d2 := d1 - in.Sigma*sqrtTau

	discount := math.Exp(-in.Rate * tau)
	var price, delta float64
	switch in.Kind {
	case OptionPut:
		price = in.Strike*discount*normalCDF(-d2) - in.Spot*normalCDF(-d1)
		delta = normalCDF(d1) - 1
	default: // OptionCall
		price = in.Spot*normalCDF(d1) - in.Strike*discount*normalCDF(d2)
		delta = normalCDF(d1)
	}

	return core.SyntheticPrice{
		InstrumentID: instrumentID,
		Price:        price,
		Model:        core.ModelOptionBS,
		Confidence:   confidence(present, 2),
		Components: core.PriceComponents{
			Base:         in.Spot,
			VolComponent: delta,
		},
		Timestamp: p.now(),
	}
}

func intrinsicValue(in OptionInputs) float64 {
	if in.Kind == OptionPut {
		return math.Max(in.Strike-in.Spot, 0)
	}
	return math.Max(in.Spot-in.Strike, 0)
}

// normalCDF is the standard normal cumulative distribution function,
// Phi(x) = 0.5*(1+erf(x/sqrt(2))).
func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}
