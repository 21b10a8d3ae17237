package plan

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ajitpratap0/arbctl/internal/core"
)

// Planner converts a ranked opportunity into a sized, timed,
// cost-estimated ExecutionPlan.
type Planner struct {
	cfg      Config
	now      func() time.Time
	riskVeto func(o core.Opportunity, notional float64) error
	costAlert func(kind core.AlertKind, severity core.AlertSeverity, value, limit float64)
}

// Option configures a Planner at construction time.
type Option func(*Planner)

// WithRiskVeto attaches the Risk Monitor's veto hook: Build calls it with
// the opportunity and the sized notional, and any returned error fails
// plan validation (data flow: "Risk Monitor gates the Planner via a veto
// hook").
func WithRiskVeto(f func(o core.Opportunity, notional float64) error) Option {
	return func(p *Planner) { p.riskVeto = f }
}

// WithCostAlert attaches the Risk Monitor's Raise method (or an
// equivalent) so validate's cost-exceeds-profit warning also surfaces
// as a core.RiskAlert, alongside the ValidationWarnings entry already
// recorded on the plan.
func WithCostAlert(f func(kind core.AlertKind, severity core.AlertSeverity, value, limit float64)) Option {
	return func(p *Planner) { p.costAlert = f }
}

// New builds a Planner.
func New(cfg Config, opts ...Option) *Planner {
	p := &Planner{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Build produces an ExecutionPlan for one opportunity under one sizing
// method, given the capital currently available to the strategy bucket.
func (p *Planner) Build(o core.Opportunity, method core.SizingMethod, availableCapital float64) core.ExecutionPlan {
	now := p.now()
	notional := p.sizeNotional(method, &o, availableCapital)

	legs := make([]core.Leg, len(o.Legs))
	for i, src := range o.Legs {
		leg := src
		if leg.ReferencePrice > 0 {
			leg.Quantity = (notional * leg.Weight) / leg.ReferencePrice
		}
		leg.LimitPrice = limitPrice(leg.ReferencePrice, leg.Action, p.cfg.SlippageTolerance)
		leg.StopPrice = stopPrice(leg.ReferencePrice, leg.Action, p.cfg.StopLossThreshold)
		leg.ScheduledAt = now.Add(time.Duration(i) * p.cfg.LegStagger)
		leg.SlippageEst = p.slippageEstimate(leg, notional)
		leg.FeeEst = p.feeEstimate(leg, notional)
		legs[i] = leg
	}

	costEstimate := p.costEstimate(legs, notional)

	plan := core.ExecutionPlan{
		ID:             uuid.NewString(),
		OpportunityID:  o.ID,
		Legs:           legs,
		TimingStrategy: "staggered",
		SizingStrategy: method,
		MaxCapital:     notional,
		CostEstimate:   costEstimate,
		CreatedAt:      now,
		PlannedStartAt: now,
		Status:         core.PlanPlanned,
	}

	p.validate(&plan, &o, availableCapital)
	return plan
}

func limitPrice(ref float64, action core.Action, tolerance float64) float64 {
	if action == core.ActionBuy {
		return ref * (1 + tolerance)
	}
	return ref * (1 - tolerance)
}

func stopPrice(ref float64, action core.Action, threshold float64) float64 {
	if action == core.ActionBuy {
		return ref * (1 - threshold)
	}
	return ref * (1 + threshold)
}

// slippageEstimate scales with sqrt(notional) and inversely with leg
// liquidity (approximated here via the leg's own notional share, since
// per-leg liquidity isn't separately carried on Leg).
func (p *Planner) slippageEstimate(leg core.Leg, notional float64) float64 {
	legNotional := notional * leg.Weight
	if legNotional <= 0 {
		return 0
	}
	return math.Sqrt(legNotional) * p.cfg.SlippageScale
}

func (p *Planner) feeEstimate(leg core.Leg, notional float64) float64 {
	legNotional := notional * leg.Weight
	fees := p.cfg.feesFor(leg.Venue)
	return legNotional * fees.Taker
}

// marketImpact scales ~ notional/1M per §4.6.
func (p *Planner) marketImpact(legNotional float64) float64 {
	return legNotional * (legNotional / p.cfg.ImpactScale)
}

func (p *Planner) costEstimate(legs []core.Leg, notional float64) float64 {
	var total float64
	for _, leg := range legs {
		legNotional := notional * leg.Weight
		total += leg.FeeEst + leg.SlippageEst + p.marketImpact(legNotional)
	}
	total += notional * p.cfg.OpportunityCostRate
	return total
}

// validate applies the planner's capital/risk/per-leg sanity checks and
// records a ValidationResult directly on the plan.
func (p *Planner) validate(plan *core.ExecutionPlan, o *core.Opportunity, availableCapital float64) {
	var errs, warns []string
	score := 1.0

	if plan.MaxCapital > p.cfg.MaxSingleTradeCapitalUSD {
		errs = append(errs, "exceeds_max_single_trade_capital")
	}
	if plan.MaxCapital > availableCapital {
		errs = append(errs, "insufficient_capital")
	}
	for _, leg := range plan.Legs {
		if leg.Quantity <= 0 {
			errs = append(errs, "non_positive_leg_quantity")
		}
	}
	if plan.CostEstimate >= o.GrossProfitUSD {
		warns = append(warns, "cost_estimate_exceeds_gross_profit")
		score *= 0.5
		if p.costAlert != nil {
			p.costAlert(core.AlertExecutionCostHigh, core.SeverityWarning, plan.CostEstimate, o.GrossProfitUSD)
		}
	}
	if o.Confidence < 0.5 {
		warns = append(warns, "low_confidence_opportunity")
		score *= 0.8
	}
	if p.riskVeto != nil {
		if err := p.riskVeto(*o, plan.MaxCapital); err != nil {
			errs = append(errs, "risk_monitor_veto: "+err.Error())
		}
	}

	plan.ValidationErrors = errs
	plan.ValidationWarnings = warns
	plan.ValidationScore = score

	if len(errs) > 0 {
		plan.Status = core.PlanFailed
	} else {
		plan.Status = core.PlanReady
	}
}
