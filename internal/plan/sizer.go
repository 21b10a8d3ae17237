package plan

import "github.com/ajitpratap0/arbctl/internal/core"

// sizeNotional returns the base USD notional a plan should target,
// before per-leg weighting, for the given sizing method.
func (p *Planner) sizeNotional(method core.SizingMethod, o *core.Opportunity, capital float64) float64 {
	switch method {
	case core.SizingFixed:
		return p.cfg.FixedSizeUSD

	case core.SizingFixedPercent:
		return capital * p.cfg.FixedPercentOfCapital

	case core.SizingKelly:
		return capital * clampFraction(kellyFraction(o)) * p.cfg.KellyFraction

	case core.SizingVolatilityAdjusted:
		damp := 1 + o.VolatilityRisk*p.cfg.VolatilityDampening
		return capital * p.cfg.FixedPercentOfCapital / damp

	case core.SizingLiquidityConstrained:
		return capital * clampFraction(o.LiquidityScore)

	case core.SizingRiskParity:
		vol := o.VolatilityRisk
		if vol <= 0 {
			vol = p.cfg.RiskParityBaselineVol
		}
		return capital * p.cfg.FixedPercentOfCapital * (p.cfg.RiskParityBaselineVol / vol)

	case core.SizingMaxDrawdownLimit:
		// Downside-per-unit-notional proxy: execution + slippage cost as
		// a fraction of gross profit, floored to avoid division blowup.
		downsidePerUnit := (o.ExecutionCost + o.SlippageCost) / maxF(o.GrossProfitUSD, 1)
		if downsidePerUnit <= 0 {
			downsidePerUnit = 0.01
		}
		return capital * p.cfg.MaxDrawdownPct / downsidePerUnit

	default:
		return p.cfg.FixedSizeUSD
	}
}

// kellyFraction applies the standard f* = p - q/b formula, using the
// opportunity's confidence as the win probability and the ratio of
// expected gross profit to estimated cost as the payoff ratio b.
func kellyFraction(o *core.Opportunity) float64 {
	p := o.Confidence
	q := 1 - p
	downside := o.ExecutionCost + o.SlippageCost
	if downside <= 0 {
		downside = 0.01 * o.GrossProfitUSD
	}
	if downside <= 0 {
		return 0
	}
	b := o.GrossProfitUSD / downside
	if b <= 0 {
		return 0
	}
	return p - q/b
}

func clampFraction(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
