package plan

import (
	"time"

	"github.com/ajitpratap0/arbctl/internal/core"
)

// RecordFill applies a fill against plan.Legs[legIdx]. If the fill is
// partial and the remainder clears MinPositionSize, a remainder leg is
// appended to the plan (same venue/instrument/action, scheduled
// immediately) and returned; the original leg's quantity is reduced to
// the filled amount and marked executed. A remainder below
// MinPositionSize is absorbed: the leg is marked fully executed at the
// smaller filled quantity. Plan status transitions to PartiallyFilled
// while any leg remains unexecuted, Completed once all are.
func (p *Planner) RecordFill(plan *core.ExecutionPlan, legIdx int, filledQty float64, now time.Time) *core.Leg {
	leg := &plan.Legs[legIdx]
	requested := leg.Quantity

	if filledQty >= requested {
		leg.ExecutedQty = requested
		leg.IsExecuted = true
		p.refreshStatus(plan)
		return nil
	}

	remainder := requested - filledQty
	leg.Quantity = filledQty
	leg.ExecutedQty = filledQty
	leg.IsExecuted = true

	var remainderLeg *core.Leg
	if remainder >= p.cfg.MinPositionSize {
		rl := *leg
		rl.Quantity = remainder
		rl.ExecutedQty = 0
		rl.IsExecuted = false
		rl.ScheduledAt = now
		plan.Legs = append(plan.Legs, rl)
		remainderLeg = &plan.Legs[len(plan.Legs)-1]
	}

	plan.Status = core.PlanPartiallyFilled
	p.refreshStatus(plan)
	return remainderLeg
}

// refreshStatus marks the plan Completed once every leg is executed.
func (p *Planner) refreshStatus(plan *core.ExecutionPlan) {
	for _, leg := range plan.Legs {
		if !leg.IsExecuted {
			if plan.Status != core.PlanPartiallyFilled {
				plan.Status = core.PlanExecuting
			}
			return
		}
	}
	now := p.now()
	plan.Status = core.PlanCompleted
	plan.CompletionAt = &now
}
