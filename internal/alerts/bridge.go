package alerts

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/arbctl/internal/core"
)

// FromRiskAlert converts a risk-monitor alert into a human-facing
// notification. Separate from the bus.Publish/Prometheus telemetry the
// Risk Monitor already emits for every alert — this is the channel
// aimed at a person, not a dashboard.
func FromRiskAlert(a core.RiskAlert) Alert {
	severity := SeverityInfo
	switch a.Severity {
	case core.SeverityCritical:
		severity = SeverityCritical
	case core.SeverityWarning:
		severity = SeverityWarning
	}

	metadata := map[string]interface{}{
		"kind":  string(a.Kind),
		"value": a.Value,
		"limit": a.Limit,
	}
	if a.PositionID != "" {
		metadata["position_id"] = a.PositionID
	}

	return Alert{
		Title:     fmt.Sprintf("risk: %s", a.Kind),
		Message:   fmt.Sprintf("%s breached limit %.4f with value %.4f", a.Kind, a.Limit, a.Value),
		Severity:  severity,
		Timestamp: a.Timestamp,
		Metadata:  metadata,
	}
}

// Dispatch adapts Manager.Send to the func(core.RiskAlert) signature
// internal/risk.New expects for its dispatch hook. Delivery errors are
// logged rather than propagated: the caller is a fire-and-forget
// callback inside the Risk Monitor's sampling loop, which must not
// block on notification delivery.
func (m *Manager) Dispatch(alert core.RiskAlert) {
	if err := m.Send(context.Background(), FromRiskAlert(alert)); err != nil {
		log.Error().Err(err).Str("kind", string(alert.Kind)).Msg("risk alert notification failed")
	}
}
