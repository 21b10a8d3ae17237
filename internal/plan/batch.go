package plan

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/arbctl/internal/core"
)

// PlanBatch builds one ExecutionPlan per ranked opportunity in rank
// order, staggering each plan's CreatedAt/PlannedStartAt by
// cfg.InterPlanDelay and skipping any plan whose capital would push
// cumulative utilization past MaxSingleTradeCapitalUSD ×
// MaxTotalCapitalUtilization. Skipped opportunity ids are logged, never
// silently dropped.
func (p *Planner) PlanBatch(ranked []core.Opportunity, method core.SizingMethod, availableCapital float64) []core.ExecutionPlan {
	capLimit := p.cfg.MaxSingleTradeCapitalUSD * p.cfg.MaxTotalCapitalUtilization
	var cumulative float64
	out := make([]core.ExecutionPlan, 0, len(ranked))

	for i, o := range ranked {
		plan := p.Build(o, method, availableCapital-cumulative)
		if cumulative+plan.MaxCapital > capLimit {
			log.Info().
				Str("opportunity_id", o.ID).
				Float64("cumulative_capital", cumulative).
				Float64("cap", capLimit).
				Msg("skipping plan: would breach cumulative capital utilization")
			continue
		}

		delay := time.Duration(i) * p.cfg.InterPlanDelay
		plan.CreatedAt = plan.CreatedAt.Add(delay)
		plan.PlannedStartAt = plan.PlannedStartAt.Add(delay)
		for j := range plan.Legs {
			plan.Legs[j].ScheduledAt = plan.Legs[j].ScheduledAt.Add(delay)
		}

		cumulative += plan.MaxCapital
		out = append(out, plan)
	}
	return out
}
