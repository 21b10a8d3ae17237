// Package pnl implements the P&L Tracker: records every fill as an
// immutable trade, snapshots portfolio equity on a fixed cadence, and
// computes realized/unrealized P&L and return analytics (§4.9).
package pnl

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/arbctl/internal/core"
	"github.com/ajitpratap0/arbctl/internal/metrics"
	"github.com/ajitpratap0/arbctl/internal/store"
)

// PositionSource gives the tracker a read-only view of the current book
// for mark-to-market unrealized P&L.
type PositionSource interface {
	Active() []core.Position
}

// Tracker owns the immutable trade history and equity-curve snapshots
// (§6: "the P&L Tracker owns the immutable trade history and
// equity-curve snapshots").
type Tracker struct {
	cfg       Config
	store     store.Store
	positions PositionSource
	now       func() time.Time

	mu          sync.Mutex
	realizedPnL float64
}

// Option configures a Tracker at construction time.
type Option func(*Tracker)

// WithClock overrides the tracker's time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New builds a Tracker backed by st for trade/snapshot persistence.
func New(cfg Config, st store.Store, positions PositionSource, opts ...Option) *Tracker {
	t := &Tracker{cfg: cfg, store: st, positions: positions, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RecordFill persists a trade record. The first call for a given
// TradeID inserts it (the trade is opened); a subsequent call with the
// same TradeID updates the close-out fields instead (store.Store
// enforces at-most-once insertion per trade_id, so "already exists" is
// not an error here — it is how a close-out is reported). Realized P&L
// is only accumulated once the trade reports itself closed.
func (t *Tracker) RecordFill(ctx context.Context, tr core.TradeRecord) error {
	err := t.store.InsertTrade(ctx, tr)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrDuplicateTrade):
		if err := t.store.UpdateTrade(ctx, tr); err != nil {
			return fmt.Errorf("pnl: update trade: %w", err)
		}
	default:
		return fmt.Errorf("pnl: insert trade: %w", err)
	}

	if tr.Closed() && tr.RealizedPnL != nil {
		t.mu.Lock()
		t.realizedPnL += *tr.RealizedPnL
		t.mu.Unlock()
	}
	return nil
}

// unrealizedPnL marks every active position at its current mark.
func (t *Tracker) unrealizedPnL() (float64, int) {
	positions := t.positions.Active()
	var total float64
	for _, p := range positions {
		total += p.UnrealizedPnL()
	}
	return total, len(positions)
}

// Snapshot takes and persists a point-in-time equity snapshot.
func (t *Tracker) Snapshot(ctx context.Context, now time.Time) (core.PnLSnapshot, error) {
	unrealized, openCount := t.unrealizedPnL()

	t.mu.Lock()
	realized := t.realizedPnL
	t.mu.Unlock()

	snap := core.PnLSnapshot{
		Timestamp:     now,
		Equity:        realized + unrealized,
		RealizedPnL:   realized,
		UnrealizedPnL: unrealized,
		OpenPositions: openCount,
	}
	if err := t.store.InsertSnapshot(ctx, snap); err != nil {
		return core.PnLSnapshot{}, fmt.Errorf("pnl: insert snapshot: %w", err)
	}
	return snap, nil
}

// Prune deletes snapshots older than the configured retention window.
func (t *Tracker) Prune(ctx context.Context, now time.Time) error {
	cutoff := now.Add(-t.cfg.RetentionWindow)
	if err := t.store.PruneSnapshots(ctx, cutoff); err != nil {
		return fmt.Errorf("pnl: prune snapshots: %w", err)
	}
	return nil
}

// Run snapshots and prunes at cfg.SnapshotInterval until ctx is cancelled.
func (t *Tracker) Run(ctx context.Context) error {
	interval := t.cfg.SnapshotInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := t.now()
			snap, err := t.Snapshot(ctx, now)
			if err != nil {
				log.Error().Err(err).Msg("pnl snapshot failed")
				continue
			}
			if err := t.Prune(ctx, now); err != nil {
				log.Error().Err(err).Msg("pnl prune failed")
			}
			analytics, err := t.Analytics(ctx)
			if err != nil {
				log.Error().Err(err).Msg("pnl analytics failed")
				continue
			}
			recordMetrics(snap, analytics)
		}
	}
}

// recordMetrics updates the Prometheus gauges this tracker owns.
// MaxDrawdown is deliberately left to internal/risk, which computes it
// from the same equity curve via EquitySource — two writers to one
// number would just be redundant, not more correct.
func recordMetrics(snap core.PnLSnapshot, analytics core.PnLAnalytics) {
	metrics.OpenPositions.Set(float64(snap.OpenPositions))
	metrics.TotalPnL.Set(analytics.TotalPnL)
	metrics.RealizedPnL.Set(analytics.RealizedPnL)
	metrics.WinRate.Set(analytics.WinRate)
	metrics.SharpeRatio.Set(analytics.SharpeRatio)
}

// EquityCurve returns every persisted equity value, oldest first. It
// satisfies internal/risk's EquitySource interface, letting the Risk
// Monitor compute drawdown from the same curve this tracker maintains.
func (t *Tracker) EquityCurve() []float64 {
	snaps, err := t.store.Snapshots(context.Background(), time.Time{})
	if err != nil {
		log.Error().Err(err).Msg("pnl: load equity curve failed")
		return nil
	}
	out := make([]float64, len(snaps))
	for i, s := range snaps {
		out[i] = s.Equity
	}
	return out
}

// Analytics computes return and risk analytics over every snapshot and
// closed trade recorded since the tracker began.
func (t *Tracker) Analytics(ctx context.Context) (core.PnLAnalytics, error) {
	snaps, err := t.store.Snapshots(ctx, time.Time{})
	if err != nil {
		return core.PnLAnalytics{}, fmt.Errorf("pnl: load snapshots: %w", err)
	}
	trades, err := t.store.Trades(ctx, time.Time{})
	if err != nil {
		return core.PnLAnalytics{}, fmt.Errorf("pnl: load trades: %w", err)
	}

	equity := make([]float64, len(snaps))
	for i, s := range snaps {
		equity[i] = s.Equity
	}
	returns := returnsOf(equity)

	unrealized, _ := t.unrealizedPnL()
	t.mu.Lock()
	realized := t.realizedPnL
	t.mu.Unlock()

	var totalReturnPct, annualizedReturn float64
	if len(equity) > 0 && equity[0] != 0 {
		totalReturnPct = (equity[len(equity)-1] - equity[0]) / equity[0]
	}
	annualizedReturn = mean(returns) * t.cfg.TradingDaysPerYear

	_, maxDD := drawdownOf(equity)
	varValue, es := historicalVaR(returns, t.cfg.Confidence)
	winRate, avgWin, avgLoss, profitFactor, wins, losses := tradeStats(trades)

	return core.PnLAnalytics{
		RealizedPnL:       realized,
		UnrealizedPnL:     unrealized,
		TotalPnL:          realized + unrealized,
		TotalReturnPct:    totalReturnPct,
		AnnualizedReturn:  annualizedReturn,
		Volatility:        sampleStdDev(returns) * math.Sqrt(t.cfg.TradingDaysPerYear),
		SharpeRatio:       sharpeRatio(returns, t.cfg.RiskFreeRate, t.cfg.TradingDaysPerYear),
		SortinoRatio:      sortinoRatio(returns, t.cfg.RiskFreeRate, t.cfg.TradingDaysPerYear),
		CalmarRatio:       calmarRatio(annualizedReturn, maxDD),
		ValueAtRisk:       varValue,
		ExpectedShortfall: es,
		MaxDrawdown:       maxDD,
		WinRate:           winRate,
		AverageWin:        avgWin,
		AverageLoss:       avgLoss,
		ProfitFactor:      profitFactor,
		TotalTrades:       wins + losses,
		WinningTrades:     wins,
		LosingTrades:      losses,
	}, nil
}
