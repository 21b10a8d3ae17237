package detect

import (
	"github.com/ajitpratap0/arbctl/internal/core"
	"github.com/ajitpratap0/arbctl/internal/market"
)

// spotPerp: for each (symbol, venue) with both a spot and a perpetual
// quote, compute the spread and emit when it clears MinProfitPct.
func (d *Detector) spotPerp(snap *market.Snapshot) []core.Opportunity {
	now := d.now()
	var out []core.Opportunity

	spots := make(map[string]core.Quote)  // symbol -> spot quote (FundingRate nil)
	perps := make(map[string]core.Quote)  // symbol -> perp quote (FundingRate non-nil)

	for _, q := range snap.Quotes {
		if q.Stale || q.Last <= 0 {
			continue
		}
		if q.FundingRate != nil {
			perps[q.Symbol+"|"+q.Venue] = q
		} else {
			spots[q.Symbol+"|"+q.Venue] = q
		}
	}

	for key, perp := range perps {
		spot, ok := spots[key]
		if !ok {
			continue
		}
		pct := percentSpread(spot.Last, perp.Last)
		if pct < d.cfg.MinProfitPct {
			continue
		}

		buyLeg, sellLeg := core.Leg{Weight: 0.5}, core.Leg{Weight: 0.5}
		if spot.Last < perp.Last {
			buyLeg.Venue, buyLeg.Instrument, buyLeg.Action, buyLeg.ReferencePrice = spot.Venue, spot.Symbol, core.ActionBuy, spot.Last
			sellLeg.Venue, sellLeg.Instrument, sellLeg.Action, sellLeg.ReferencePrice = perp.Venue, perp.Symbol+"-PERP", core.ActionSell, perp.Last
		} else {
			buyLeg.Venue, buyLeg.Instrument, buyLeg.Action, buyLeg.ReferencePrice = perp.Venue, perp.Symbol+"-PERP", core.ActionBuy, perp.Last
			sellLeg.Venue, sellLeg.Instrument, sellLeg.Action, sellLeg.ReferencePrice = spot.Venue, spot.Symbol, core.ActionSell, spot.Last
		}

		o := core.Opportunity{
			Strategy:       core.StrategySpotPerp,
			Symbol:         spot.Symbol,
			Legs:           []core.Leg{buyLeg, sellLeg},
			PriceA:         spot.Last,
			PriceB:         perp.Last,
			AbsoluteSpread: absF(spot.Last - perp.Last),
			PercentSpread:  pct,
			GrossProfitPct: pct,
			Confidence:     0.9,
			LiquidityScore: 0.5,
		}
		finalizeOpportunity(&o, now)
		out = append(out, o)
	}
	return out
}

// fundingRate: for each symbol with funding on >=2 venues, find the
// max/min funding pair and emit when their difference is strictly above
// FundingDiffThreshold (default 1bp).
func (d *Detector) fundingRate(snap *market.Snapshot) []core.Opportunity {
	now := d.now()
	var out []core.Opportunity

	bySymbol := make(map[string][]core.Quote)
	for _, q := range snap.Quotes {
		if q.Stale || q.FundingRate == nil {
			continue
		}
		bySymbol[q.Symbol] = append(bySymbol[q.Symbol], q)
	}

	for symbol, quotes := range bySymbol {
		if len(quotes) < 2 {
			continue
		}
		maxQ, minQ := quotes[0], quotes[0]
		for _, q := range quotes[1:] {
			if *q.FundingRate > *maxQ.FundingRate {
				maxQ = q
			}
			if *q.FundingRate < *minQ.FundingRate {
				minQ = q
			}
		}
		diff := *maxQ.FundingRate - *minQ.FundingRate
		if diff <= d.cfg.FundingDiffThreshold {
			continue
		}

		periodsPerYear := float64(365*24) / d.cfg.DefaultFundingPeriod.Hours()
		proratedPct := diff / periodsPerYear

		o := core.Opportunity{
			Strategy: core.StrategyFundingRate,
			Symbol:   symbol,
			Legs: []core.Leg{
				{Venue: maxQ.Venue, Instrument: symbol + "-PERP", Action: core.ActionSell, ReferencePrice: maxQ.Last, Weight: 0.5},
				{Venue: minQ.Venue, Instrument: symbol + "-PERP", Action: core.ActionBuy, ReferencePrice: minQ.Last, Weight: 0.5},
			},
			PriceA:            maxQ.Last,
			PriceB:            minQ.Last,
			AbsoluteSpread:    diff,
			PercentSpread:     diff,
			GrossProfitPct:    proratedPct,
			EstimatedDuration: d.cfg.DefaultFundingPeriod,
			Confidence:        0.85,
			LiquidityScore:    0.5,
		}
		finalizeOpportunity(&o, now)
		out = append(out, o)
	}
	return out
}

// crossVenue: for each symbol with a last price on >=2 venues, find the
// max/min-price venues and emit when the spread clears MinProfitPct.
// Costs are doubled and slippage 1.5x vs intra-venue because two venues
// are involved; confidence is reduced 0.8x.
func (d *Detector) crossVenue(snap *market.Snapshot) []core.Opportunity {
	now := d.now()
	var out []core.Opportunity

	bySymbol := make(map[string][]core.Quote)
	for _, q := range snap.Quotes {
		if q.Stale || q.Last <= 0 || q.FundingRate != nil {
			continue
		}
		bySymbol[q.Symbol] = append(bySymbol[q.Symbol], q)
	}

	for symbol, quotes := range bySymbol {
		if len(quotes) < 2 {
			continue
		}
		maxQ, minQ := quotes[0], quotes[0]
		for _, q := range quotes[1:] {
			if q.Last > maxQ.Last {
				maxQ = q
			}
			if q.Last < minQ.Last {
				minQ = q
			}
		}
		if maxQ.Venue == minQ.Venue {
			continue
		}
		pct := percentSpread(minQ.Last, maxQ.Last)
		if pct < d.cfg.MinProfitPct {
			continue
		}

		o := core.Opportunity{
			Strategy: core.StrategyCrossVenue,
			Symbol:   symbol,
			Legs: []core.Leg{
				{Venue: minQ.Venue, Instrument: symbol, Action: core.ActionBuy, ReferencePrice: minQ.Last, Weight: 0.5},
				{Venue: maxQ.Venue, Instrument: symbol, Action: core.ActionSell, ReferencePrice: maxQ.Last, Weight: 0.5},
			},
			PriceA:         minQ.Last,
			PriceB:         maxQ.Last,
			AbsoluteSpread: maxQ.Last - minQ.Last,
			PercentSpread:  pct,
			GrossProfitPct: pct,
			Confidence:     0.8 * 0.9,
			LiquidityScore: 0.4,
		}
		finalizeOpportunity(&o, now)
		// Two-venue costs double, slippage premium 1.5x, applied on top
		// of finalizeOpportunity's baseline fee/slippage estimate.
		o.ExecutionCost *= 2
		o.SlippageCost *= 1.5
		o.NetExpectedProfit = o.GrossProfitUSD - o.ExecutionCost - o.SlippageCost
		out = append(out, o)
	}
	return out
}
