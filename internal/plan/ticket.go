package plan

import (
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/arbctl/internal/core"
)

// OrderTicket is the final, decimal-rounded representation of one leg
// sent to a venue. Internal scoring/cost math stays float64 throughout
// the planner; only the order-ticket boundary rounds through
// shopspring/decimal, where cumulative drift across legs would
// otherwise misstate notional.
type OrderTicket struct {
	Venue      string
	Instrument string
	Action     core.Action
	Quantity   decimal.Decimal
	LimitPrice decimal.Decimal
	StopPrice  decimal.Decimal
}

// QuantityPrecision and PricePrecision are the default decimal places
// tickets round to; venue-specific lot sizes are an external-collaborator
// concern (§1) and not modeled here.
const (
	QuantityPrecision = 8
	PricePrecision    = 2
)

// TicketFor rounds one plan leg into its final order-ticket form.
func TicketFor(leg core.Leg) OrderTicket {
	return OrderTicket{
		Venue:      leg.Venue,
		Instrument: leg.Instrument,
		Action:     leg.Action,
		Quantity:   decimal.NewFromFloat(leg.Quantity).Round(QuantityPrecision),
		LimitPrice: decimal.NewFromFloat(leg.LimitPrice).Round(PricePrecision),
		StopPrice:  decimal.NewFromFloat(leg.StopPrice).Round(PricePrecision),
	}
}

// Tickets rounds every executable leg of a plan.
func Tickets(plan core.ExecutionPlan) []OrderTicket {
	out := make([]OrderTicket, 0, len(plan.Legs))
	for _, leg := range plan.Legs {
		out = append(out, TicketFor(leg))
	}
	return out
}
