package validate

import (
	"sort"

	"github.com/ajitpratap0/arbctl/internal/core"
)

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// executionRisk returns a composite [0,1] execution-risk proxy from an
// opportunity's volatility and liquidity readings, used as the
// "risk_score" term the scoring formulas leave for the implementer to
// parameterize (§9).
func executionRisk(o *core.Opportunity) float64 {
	return clamp01(o.VolatilityRisk + (1-o.LiquidityScore)*0.5)
}

// Score computes the five normalized [0,1] component scores and the
// weighted composite for one opportunity, given its required capital.
func (v *Validator) Score(o core.Opportunity) core.Opportunity {
	capital := requiredCapital(&o)
	risk := o.VolatilityRisk
	if risk <= 0 {
		risk = 0.01 // floor to avoid division blowup for zero-vol candidates
	}
	excessReturn := o.GrossProfitPct - v.cfg.RiskFreeRate

	profitScore := clamp01(o.GrossProfitPct / 0.10)
	riskAdjustedScore := clamp01((excessReturn / risk) / 10)
	sharpeScore := clamp01((excessReturn / risk) / 3)

	capitalEfficiency := 0.0
	if capital > 0 {
		capitalEfficiency = clamp01((o.GrossProfitPct / capital) / 1e-3)
	}

	liquidityScore := clamp01(o.LiquidityScore)

	// market_adjustment scales execution probability down when the
	// available liquidity is thin relative to the opportunity's size;
	// liquidityScore is the natural proxy already carried on the
	// opportunity (§9).
	marketAdjustment := liquidityScore
	riskScore := executionRisk(&o)

	o.RiskAdjustedReturn = excessReturn / risk
	o.ExecutionProbability = clamp01(o.Confidence * (1 - riskScore) * marketAdjustment)
	o.CompositeScore = v.cfg.WeightProfit*profitScore +
		v.cfg.WeightRiskAdjusted*riskAdjustedScore +
		v.cfg.WeightSharpe*sharpeScore +
		v.cfg.WeightCapitalEfficiency*capitalEfficiency +
		v.cfg.WeightLiquidity*liquidityScore

	return o
}

// ValidateAndRank validates every candidate, drops non-executable ones
// (unless debug is set, in which case they are kept but still excluded
// from ranking order by sorting last), scores the survivors, and
// assigns Rank 1..n by descending composite score with detection-time
// then id as a stable tie-break.
func (v *Validator) ValidateAndRank(candidates []core.Opportunity, debug bool) []core.Opportunity {
	validated := make([]core.Opportunity, 0, len(candidates))
	for _, c := range candidates {
		c = v.Validate(c)
		if !c.Executable && !debug {
			continue
		}
		c = v.Score(c)
		validated = append(validated, c)
	}

	sort.SliceStable(validated, func(i, j int) bool {
		if validated[i].Executable != validated[j].Executable {
			return validated[i].Executable
		}
		if validated[i].CompositeScore != validated[j].CompositeScore {
			return validated[i].CompositeScore > validated[j].CompositeScore
		}
		if !validated[i].DetectedAt.Equal(validated[j].DetectedAt) {
			return validated[i].DetectedAt.Before(validated[j].DetectedAt)
		}
		return validated[i].ID < validated[j].ID
	})

	for i := range validated {
		validated[i].Rank = i + 1
	}
	return validated
}
