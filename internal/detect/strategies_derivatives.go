package detect

import (
	"math"
	"time"

	"github.com/ajitpratap0/arbctl/internal/core"
	"github.com/ajitpratap0/arbctl/internal/indicators"
	"github.com/ajitpratap0/arbctl/internal/market"
)

// basis: for each symbol with a spot quote and >=1 dated-future quote
// (ExpiryUnix set), compare the observed future price to the Synthetic
// Pricer's cost-of-carry fair value and emit when the deviation clears
// MinProfitPct.
func (d *Detector) basis(snap *market.Snapshot) []core.Opportunity {
	now := d.now()
	var out []core.Opportunity

	spots := make(map[string]core.Quote) // symbol -> a fresh spot quote
	var futures []core.Quote
	for k := range snap.Quotes {
		q := snap.Quotes[k]
		if q.Stale {
			continue
		}
		if q.ExpiryUnix != nil {
			futures = append(futures, q)
			continue
		}
		if q.FundingRate == nil && q.Last > 0 {
			spots[q.Symbol] = q
		}
	}

	for _, fut := range futures {
		spot, ok := spots[fut.Symbol]
		if !ok {
			continue
		}
		tau := time.Until(time.Unix(*fut.ExpiryUnix, 0))
		if tau <= 0 {
			continue
		}
		synth := d.pricer.SyntheticFuture(instrumentIDForFuture(fut.Symbol, *fut.ExpiryUnix), spot.Last, tau, !spot.Stale)
		pct := percentSpread(fut.Last, synth.Price)
		if pct < d.cfg.MinProfitPct {
			continue
		}

		// Buy whichever side is cheap (observed future or synthetic
		// fair value), sell the expensive side.
		buyReal := fut.Last < synth.Price

		legs := []core.Leg{
			{Venue: fut.Venue, Instrument: instrumentIDForFuture(fut.Symbol, *fut.ExpiryUnix), Weight: 0.5, ReferencePrice: fut.Last},
			{Venue: "synthetic", Instrument: instrumentIDForFuture(fut.Symbol, *fut.ExpiryUnix) + ":fair", Weight: 0.5, ReferencePrice: synth.Price, IsSynthetic: true},
		}
		if buyReal {
			legs[0].Action, legs[1].Action = core.ActionBuy, core.ActionSell
		} else {
			legs[0].Action, legs[1].Action = core.ActionSell, core.ActionBuy
		}

		o := core.Opportunity{
			Strategy:       core.StrategyBasis,
			Symbol:         fut.Symbol,
			Legs:           legs,
			PriceA:         fut.Last,
			PriceB:         synth.Price,
			AbsoluteSpread: absF(fut.Last - synth.Price),
			PercentSpread:  pct,
			GrossProfitPct: pct,
			TimeToExpiry:   tau,
			Confidence:     synth.Confidence,
			LiquidityScore: 0.4,
		}
		finalizeOpportunity(&o, now)
		out = append(out, o)
	}
	return out
}

// volatility: for each symbol with an implied-vol side channel and
// >=MinHistorySamples of price history, compute realized volatility
// (annualized stdev of log returns) and emit when |IV-RV|/RV clears
// MinProfitPct.
func (d *Detector) volatility(snap *market.Snapshot) []core.Opportunity {
	now := d.now()
	var out []core.Opportunity

	for key, q := range snap.Quotes {
		if q.Stale || q.ImpliedVol == nil {
			continue
		}
		hist := d.cache.RecentPrices(key, d.cfg.MinHistorySamples+1)
		if len(hist) < d.cfg.MinHistorySamples {
			continue
		}
		rv := realizedVolatility(hist)
		if rv <= 0 {
			continue
		}
		iv := *q.ImpliedVol
		pct := absF(iv-rv) / rv
		if pct < d.cfg.MinProfitPct {
			continue
		}

		// RV > IV implies the option/side-channel is underpriced for
		// the actual realized movement: go long the underlying as a
		// synthetic vol proxy. Otherwise fade it short.
		action := core.ActionSell
		if rv > iv {
			action = core.ActionBuy
		}

		o := core.Opportunity{
			Strategy: core.StrategyVolatility,
			Symbol:   q.Symbol,
			Legs: []core.Leg{
				{Venue: q.Venue, Instrument: q.Symbol, Action: action, ReferencePrice: q.Last, Weight: 1.0, IsSynthetic: true},
			},
			PriceA:         iv,
			PriceB:         rv,
			AbsoluteSpread: absF(iv - rv),
			PercentSpread:  pct,
			GrossProfitPct: pct,
			VolatilityRisk: rv,
			Confidence:     0.6,
			LiquidityScore: 0.3,
		}
		finalizeOpportunity(&o, now)
		out = append(out, o)
	}
	return out
}

// statistical: for each (symbol, venue) with >=MinHistorySamples of
// price history, compute a z-score of the latest price against the
// rolling mean/stdev and emit when |z| clears ZScoreThreshold, fading
// the move against a synthetic mean-reversion target.
func (d *Detector) statistical(snap *market.Snapshot) []core.Opportunity {
	now := d.now()
	var out []core.Opportunity

	for key, q := range snap.Quotes {
		if q.Stale || q.Last <= 0 {
			continue
		}
		hist := d.cache.RecentPrices(key, d.cfg.MinHistorySamples)
		if len(hist) < d.cfg.MinHistorySamples {
			continue
		}
		mean, stdev := meanStdev(pricesOf(hist))
		if stdev == 0 {
			continue
		}
		z := (q.Last - mean) / stdev
		if absF(z) < d.cfg.ZScoreThreshold {
			continue
		}

		action := core.ActionSell // z high: price above mean, fade by selling
		if z < 0 {
			action = core.ActionBuy
		}
		pct := absF(z) / 100 // z-units scaled to a comparable percentage-profit proxy

		o := core.Opportunity{
			Strategy: core.StrategyStatistical,
			Symbol:   q.Symbol,
			Legs: []core.Leg{
				{Venue: q.Venue, Instrument: q.Symbol, Action: action, ReferencePrice: q.Last, Weight: 1.0, IsSynthetic: true},
			},
			PriceA:         q.Last,
			PriceB:         mean,
			AbsoluteSpread: absF(q.Last - mean),
			PercentSpread:  pct,
			GrossProfitPct: pct,
			Confidence:     d.statisticalConfidence(hist, action),
			LiquidityScore: 0.3,
		}
		finalizeOpportunity(&o, now)
		out = append(out, o)
	}
	return out
}

// statisticalConfidence starts from the strategy's base confidence and
// raises it when cinar/indicator's RSI and Bollinger Bands agree with
// the z-score fade direction — independent momentum/volatility signals
// corroborating the same call.
func (d *Detector) statisticalConfidence(hist []core.PricePoint, action core.Action) float64 {
	const base, perConfirmation = 0.5, 0.1
	confidence := base
	prices := pricesOf(hist)

	const rsiPeriod = 14
	if rsi, ok := d.indicators.RSI(prices, rsiPeriod); ok {
		if (action == core.ActionSell && rsi.Signal == "overbought") ||
			(action == core.ActionBuy && rsi.Signal == "oversold") {
			confidence += perConfirmation
		}
	}

	const bbPeriod = 20
	if bb, ok := d.indicators.BollingerBands(prices, bbPeriod); ok {
		if (action == core.ActionSell && bb.Signal == "sell") ||
			(action == core.ActionBuy && bb.Signal == "buy") {
			confidence += perConfirmation
		}
	}

	return confidence
}

func pricesOf(points []core.PricePoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Price
	}
	return out
}

func meanStdev(xs []float64) (mean, stdev float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))

	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	if len(xs) > 1 {
		stdev = math.Sqrt(sq / float64(len(xs)-1))
	}
	return mean, stdev
}

// realizedVolatility computes the annualized stdev of log returns over
// points; annualization uses sqrt(seconds_per_year / sample_interval),
// where sample_interval is the mean spacing of the points' timestamps.
func realizedVolatility(points []core.PricePoint) float64 {
	if len(points) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(points)-1)
	var intervalSum time.Duration
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		if prev.Price <= 0 || cur.Price <= 0 {
			continue
		}
		returns = append(returns, logReturn(cur.Price, prev.Price))
		intervalSum += cur.Timestamp.Sub(prev.Timestamp)
	}
	if len(returns) < 2 {
		return 0
	}
	_, stdev := meanStdev(returns)
	avgInterval := intervalSum / time.Duration(len(returns))
	if avgInterval <= 0 {
		return 0
	}
	periodsPerYear := (365 * 24 * time.Hour).Seconds() / avgInterval.Seconds()
	return stdev * math.Sqrt(periodsPerYear)
}

func logReturn(cur, prev float64) float64 {
	return math.Log(cur / prev)
}
