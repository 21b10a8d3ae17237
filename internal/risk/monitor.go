// Package risk implements the Risk Monitor: portfolio VaR/ES by Monte
// Carlo, concentration/correlation/liquidity/funding-rate risk, and
// threshold-crossing alert generation dispatched on a fixed sampling
// loop (§4.8).
package risk

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/arbctl/internal/bus"
	"github.com/ajitpratap0/arbctl/internal/core"
	"github.com/ajitpratap0/arbctl/internal/metrics"
)

// Monitor samples portfolio risk at a fixed interval and dispatches
// alerts through a single callback.
type Monitor struct {
	cfg       Config
	positions PositionProvider
	prices    PriceSource
	equity    EquitySource // optional
	dispatch  func(core.RiskAlert)
	bus       *bus.Bus
	now       func() time.Time
	seed      func() int64

	mu    sync.Mutex
	alerts map[core.AlertKind]*core.RiskAlert // last live alert per kind
}

// Option configures a Monitor at construction time.
type Option func(*Monitor)

// WithEquitySource attaches an equity-curve provider for drawdown (§4.8
// also computes drawdown, ordinarily the P&L Tracker's equity curve).
func WithEquitySource(e EquitySource) Option {
	return func(m *Monitor) { m.equity = e }
}

// WithSeedFunc overrides the Monte Carlo RNG seed source (tests pin this
// to a fixed value for deterministic VaR/ES output).
func WithSeedFunc(f func() int64) Option {
	return func(m *Monitor) { m.seed = f }
}

// WithClock overrides the monitor's time source.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// New builds a Monitor. dispatch receives every generated alert; it may
// be nil, in which case alerts are only published on the bus (if b is
// non-nil) and counted in metrics. b may be nil.
func New(cfg Config, positions PositionProvider, prices PriceSource, dispatch func(core.RiskAlert), b *bus.Bus, opts ...Option) *Monitor {
	if dispatch == nil {
		dispatch = func(core.RiskAlert) {}
	}
	m := &Monitor{
		cfg:       cfg,
		positions: positions,
		prices:    prices,
		dispatch:  dispatch,
		bus:       b,
		now:       time.Now,
		seed:      func() int64 { return time.Now().UnixNano() },
		alerts:    make(map[core.AlertKind]*core.RiskAlert),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Compute returns a point-in-time RiskMetrics snapshot of the current
// book. It performs no I/O beyond the injected providers and is safe to
// call directly (e.g. from the Execution Planner's veto hook) outside
// the sampling loop.
func (m *Monitor) Compute(ctx context.Context, now time.Time) (core.RiskMetrics, error) {
	positions := m.positions.Active()
	if len(positions) == 0 {
		return core.RiskMetrics{Timestamp: now}, nil
	}

	varValue, es, err := monteCarloVaR(ctx, m.cfg, m.prices, positions, m.seed())
	if err != nil {
		return core.RiskMetrics{}, fmt.Errorf("monte carlo var: %w", err)
	}

	total := exposureOf(positions)
	var maxDD float64
	if m.equity != nil {
		_, maxDD = drawdownOf(m.equity.EquityCurve())
	}

	return core.RiskMetrics{
		Timestamp:         now,
		PortfolioVaR:      varValue,
		ExpectedShortfall: es,
		TotalExposure:     total,
		LeveragedExposure: total, // per-position leverage isn't retained post-open (see DESIGN.md)
		Concentration:     concentrationOf(positions),
		Correlation:        correlationOf(m.prices, m.cfg, positions),
		LiquidityRisk:      liquidityRiskOf(m.prices, positions),
		FundingRateRisk:    fundingRiskOf(m.prices, positions),
		MaxDrawdown:        maxDD,
	}, nil
}

type limitCheck struct {
	kind  core.AlertKind
	value float64
	limit float64
}

// Evaluate turns a RiskMetrics snapshot into alerts: a limit is breached
// at Warning once the value crosses warning_threshold·limit, and at
// Critical once it crosses critical_threshold·limit (§4.8).
func (m *Monitor) Evaluate(rm core.RiskMetrics) []core.RiskAlert {
	checks := []limitCheck{
		{core.AlertVarBreach, rm.PortfolioVaR, m.cfg.MaxPortfolioVaR},
		{core.AlertConcentrationBreach, rm.Concentration, m.cfg.MaxConcentration},
		{core.AlertCorrelationRisk, rm.Correlation, m.cfg.MaxCorrelation},
		{core.AlertLiquidityRisk, rm.LiquidityRisk, 1 - m.cfg.LiquidityThreshold},
		{core.AlertFundingRisk, rm.FundingRateRisk, m.cfg.MaxFundingRate},
	}

	var out []core.RiskAlert
	for _, c := range checks {
		if c.limit <= 0 {
			continue
		}
		severity, ok := severityOf(c.value, c.limit, m.cfg.WarningThreshold, m.cfg.CriticalThreshold)
		if !ok {
			continue
		}
		out = append(out, core.RiskAlert{
			ID:        uuid.NewString(),
			Severity:  severity,
			Kind:      c.kind,
			Value:     c.value,
			Limit:     c.limit,
			Timestamp: rm.Timestamp,
			ExpiresAt: rm.Timestamp.Add(m.cfg.AlertTTL),
		})
	}
	return out
}

func severityOf(value, limit, warningThreshold, criticalThreshold float64) (core.AlertSeverity, bool) {
	if value >= limit*criticalThreshold {
		return core.SeverityCritical, true
	}
	if value >= limit*warningThreshold {
		return core.SeverityWarning, true
	}
	return "", false
}

// Tick computes current metrics, evaluates alerts, prunes expired ones,
// and dispatches every newly generated alert. It is the unit of work the
// monitoring loop repeats at cfg.SampleInterval.
func (m *Monitor) Tick(ctx context.Context) (core.RiskMetrics, error) {
	now := m.now()
	rm, err := m.Compute(ctx, now)
	if err != nil {
		return core.RiskMetrics{}, err
	}
	recordMetrics(rm)

	alerts := m.Evaluate(rm)

	m.mu.Lock()
	for kind, existing := range m.alerts {
		if existing.Expired(now) {
			delete(m.alerts, kind)
		}
	}
	for _, a := range alerts {
		m.alerts[a.Kind] = &a
	}
	m.mu.Unlock()

	for _, a := range alerts {
		m.report(a)
	}
	return rm, nil
}

func recordMetrics(rm core.RiskMetrics) {
	metrics.PortfolioVaR.Set(rm.PortfolioVaR)
	metrics.PortfolioExpectedShortfall.Set(rm.ExpectedShortfall)
	metrics.PortfolioConcentration.Set(rm.Concentration)
	metrics.PortfolioCorrelation.Set(rm.Correlation)
	metrics.PortfolioLiquidityRisk.Set(rm.LiquidityRisk)
	metrics.PortfolioFundingRisk.Set(rm.FundingRateRisk)
	metrics.MaxDrawdown.Set(rm.MaxDrawdown)
}

func (m *Monitor) report(alert core.RiskAlert) {
	log.Warn().
		Str("kind", string(alert.Kind)).
		Str("severity", string(alert.Severity)).
		Float64("value", alert.Value).
		Float64("limit", alert.Limit).
		Msg("risk alert")

	m.dispatch(alert)
	m.bus.Publish("risk.alerts."+strings.ToLower(string(alert.Severity)), alert)
	metrics.RiskAlertsTotal.WithLabelValues(string(alert.Severity), string(alert.Kind)).Inc()
}

// Run samples at cfg.SampleInterval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	interval := m.cfg.SampleInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := m.Tick(ctx); err != nil {
				log.Error().Err(err).Msg("risk monitor tick failed")
			}
		}
	}
}

// Raise records and dispatches an alert that originates outside the
// sampled Evaluate pass — a hard limit rejected elsewhere in the
// pipeline, such as the Position Manager's leverage gate or the
// Execution Planner's cost-exceeds-profit check — through the same
// report/ActiveAlerts/metrics path a sampled breach takes.
func (m *Monitor) Raise(kind core.AlertKind, severity core.AlertSeverity, value, limit float64) core.RiskAlert {
	now := m.now()
	alert := core.RiskAlert{
		ID:        uuid.NewString(),
		Severity:  severity,
		Kind:      kind,
		Value:     value,
		Limit:     limit,
		Timestamp: now,
		ExpiresAt: now.Add(m.cfg.AlertTTL),
	}

	m.mu.Lock()
	m.alerts[alert.Kind] = &alert
	m.mu.Unlock()

	m.report(alert)
	return alert
}

// ActiveAlerts returns every currently unexpired alert, most recent
// first by kind.
func (m *Monitor) ActiveAlerts(now time.Time) []core.RiskAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.RiskAlert, 0, len(m.alerts))
	for _, a := range m.alerts {
		if !a.Expired(now) {
			out = append(out, *a)
		}
	}
	return out
}
