// Package position implements the Position Manager: it opens, adjusts,
// and closes keyed-by-(symbol,venue) positions under capital,
// single-position notional, leverage, and concentration limits, and
// reports every state change to the Risk Monitor. Open does not check
// correlation with the existing book: Config.MaxCorrelation is carried
// but not consulted.
package position

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/arbctl/internal/bus"
	"github.com/ajitpratap0/arbctl/internal/core"
)

// Config holds the per-strategy-bucket risk limits §4.7 checks against.
type Config struct {
	MaxPositionSize       float64 // max single-position notional
	MaxLeverage           float64
	MaxConcentration      float64 // default 0.25: new concentration > this is rejected
	MaxCorrelation        float64
	StrategyCapital       map[string]float64 // starting capital per strategy bucket
	DefaultStrategyCapital float64
}

// DefaultConfig returns the position manager's default limits.
func DefaultConfig() Config {
	return Config{
		MaxPositionSize:        100_000,
		MaxLeverage:            3,
		MaxConcentration:       0.25,
		MaxCorrelation:         0.9,
		StrategyCapital:        map[string]float64{},
		DefaultStrategyCapital: 100_000,
	}
}

// StateChange is reported to the Risk Monitor (in-process callback) and
// published on the event bus (`positions.<symbol>`) on every open,
// adjust, and close.
type StateChange struct {
	Kind     string // "Opened"|"Adjusted"|"Closed"
	Position core.Position
	Time     time.Time
}

// Manager tracks active positions per (symbol, venue) and the capital
// allocated to each strategy bucket.
type Manager struct {
	mu        sync.RWMutex
	cfg       Config
	positions map[string]*core.Position // key -> position
	allocated map[string]float64        // strategy bucket -> capital in use
	onChange  func(StateChange)
	bus       *bus.Bus
	now       func() time.Time

	raiseAlert func(kind core.AlertKind, severity core.AlertSeverity, value, limit float64)
}

// New builds a Manager. onChange may be nil. b may be nil, in which
// case the bus publish is a no-op (additive telemetry only, §4.7).
func New(cfg Config, onChange func(StateChange), b *bus.Bus) *Manager {
	if onChange == nil {
		onChange = func(StateChange) {}
	}
	return &Manager{
		cfg:       cfg,
		positions: make(map[string]*core.Position),
		allocated: make(map[string]float64),
		onChange:  onChange,
		bus:       b,
		now:       time.Now,
	}
}

// SetRiskAlert attaches the Risk Monitor's Raise method (or an
// equivalent) so a leverage-gate rejection in Open also surfaces as a
// core.RiskAlert through the Risk Monitor's usual dispatch/bus/metrics
// path, in addition to the typed core.Error returned to the caller.
// Positions and the Risk Monitor are constructed as siblings — the
// Risk Monitor takes the Manager as its PositionProvider — so this is
// wired after both exist rather than passed in at New.
func (m *Manager) SetRiskAlert(f func(kind core.AlertKind, severity core.AlertSeverity, value, limit float64)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raiseAlert = f
}

func (m *Manager) report(change StateChange) {
	m.onChange(change)
	m.bus.Publish("positions."+change.Position.Symbol, change)
}

func (m *Manager) key(symbol, venue string) string { return core.CacheKey(symbol, venue) }

func (m *Manager) capitalAvailable(strategy string) float64 {
	total, ok := m.cfg.StrategyCapital[strategy]
	if !ok {
		total = m.cfg.DefaultStrategyCapital
	}
	return total - m.allocated[strategy]
}

// CapitalAvailable returns capital available under the default
// strategy bucket. Callers batching plans across opportunities from
// several strategies (the Execution Planner's PlanBatch takes a single
// portfolio-level figure) use this as that figure; per-strategy
// bookkeeping still applies at Open time regardless.
func (m *Manager) CapitalAvailable() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.capitalAvailable("")
}

func (m *Manager) totalExposureLocked() float64 {
	var total float64
	for _, p := range m.positions {
		if p.Active {
			total += absF(p.Size) * p.AverageEntry
		}
	}
	return total
}

// Open opens a new position, or returns a typed error without mutating
// any state if a limit is breached (§4.7, scenario 4: risk veto).
func (m *Manager) Open(symbol, venue, strategy string, side core.PositionSide, entryPrice, size, leverage float64, underlyings []string) (*core.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	notional := size * entryPrice
	if notional > m.cfg.MaxPositionSize {
		return nil, core.NewError(core.ErrRiskLimitBreach, "PositionSize", nil)
	}
	if m.capitalAvailable(strategy) < notional {
		return nil, core.NewError(core.ErrCapitalInsufficient, strategy, nil)
	}
	if leverage > m.cfg.MaxLeverage {
		if m.raiseAlert != nil {
			m.raiseAlert(core.AlertLeverageBreach, core.SeverityWarning, leverage, m.cfg.MaxLeverage)
		}
		return nil, core.NewError(core.ErrRiskLimitBreach, "Leverage", nil)
	}

	// Concentration is only meaningful once a book exists to concentrate
	// against; the very first position in an empty book cannot violate a
	// diversification limit.
	if existingExposure := m.totalExposureLocked(); existingExposure > 0 {
		newConcentration := notional / (existingExposure + notional)
		if newConcentration > m.cfg.MaxConcentration {
			return nil, core.NewError(core.ErrRiskLimitBreach, "Concentration", nil)
		}
	}

	now := m.now()
	signedSize := size
	if side == core.PositionShort {
		signedSize = -size
	}

	pos := &core.Position{
		Symbol:       symbol,
		Venue:        venue,
		Size:         signedSize,
		AverageEntry: entryPrice,
		CurrentMark:  entryPrice,
		CostBasis:    absF(signedSize) * entryPrice,
		OpenedAt:     now,
		LastUpdateAt: now,
		Active:       true,
		Synthetic:    len(underlyings) > 0,
		Underlyings:  underlyings,
		TradeIDs:     []string{uuid.NewString()},
		Strategy:     strategy,
	}

	m.positions[m.key(symbol, venue)] = pos
	m.allocated[strategy] += notional

	log.Info().
		Str("symbol", symbol).
		Str("venue", venue).
		Str("side", string(side)).
		Float64("size", size).
		Float64("entry_price", entryPrice).
		Msg("position opened")

	m.report(StateChange{Kind: "Opened", Position: *pos, Time: now})
	return pos, nil
}

// Adjust adds to or reduces an existing position at a fill price,
// re-averaging entry price on same-direction adds and realizing partial
// P&L on opposite-direction reductions. Returns realized P&L from this
// adjustment (zero on a pure add).
func (m *Manager) Adjust(symbol, venue string, deltaSize, fillPrice float64) (realizedPnL float64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[m.key(symbol, venue)]
	if !ok || !pos.Active {
		return 0, core.NewError(core.ErrPositionNotFound, m.key(symbol, venue), nil)
	}

	now := m.now()
	sameDirection := (pos.Size >= 0 && deltaSize >= 0) || (pos.Size < 0 && deltaSize < 0)

	if sameDirection {
		totalValue := absF(pos.Size)*pos.AverageEntry + absF(deltaSize)*fillPrice
		totalSize := absF(pos.Size) + absF(deltaSize)
		pos.AverageEntry = totalValue / totalSize
		if pos.Size < 0 {
			pos.Size -= absF(deltaSize)
		} else {
			pos.Size += absF(deltaSize)
		}
	} else {
		closing := minF(absF(pos.Size), absF(deltaSize))
		if pos.Size > 0 {
			realizedPnL = (fillPrice - pos.AverageEntry) * closing
			pos.Size -= closing
		} else {
			realizedPnL = (pos.AverageEntry - fillPrice) * closing
			pos.Size += closing
		}
		remainder := absF(deltaSize) - closing
		if remainder > 0 {
			// Flipped through flat: open the remainder on the other side.
			pos.AverageEntry = fillPrice
			if deltaSize > 0 {
				pos.Size = remainder
			} else {
				pos.Size = -remainder
			}
		}
	}

	prevCostBasis := pos.CostBasis
	pos.CurrentMark = fillPrice
	pos.CostBasis = absF(pos.Size) * pos.AverageEntry
	pos.LastUpdateAt = now

	if pos.Size == 0 {
		pos.Active = false
		m.allocated[pos.Strategy] -= prevCostBasis
		if m.allocated[pos.Strategy] < 0 {
			m.allocated[pos.Strategy] = 0
		}
	}

	log.Info().
		Str("symbol", symbol).
		Str("venue", venue).
		Float64("delta_size", deltaSize).
		Float64("fill_price", fillPrice).
		Float64("realized_pnl", realizedPnL).
		Msg("position adjusted")

	m.report(StateChange{Kind: "Adjusted", Position: *pos, Time: now})
	return realizedPnL, nil
}

// Close fully closes a position at exitPrice and returns freed capital
// to the strategy bucket.
func (m *Manager) Close(symbol, venue string, exitPrice float64) (realizedPnL float64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[m.key(symbol, venue)]
	if !ok || !pos.Active {
		return 0, core.NewError(core.ErrPositionNotFound, m.key(symbol, venue), nil)
	}

	realizedPnL = pos.UnrealizedPnLAt(exitPrice)
	freed := absF(pos.Size) * pos.AverageEntry
	pos.Active = false
	pos.CurrentMark = exitPrice
	pos.LastUpdateAt = m.now()
	m.allocated[pos.Strategy] -= freed
	if m.allocated[pos.Strategy] < 0 {
		m.allocated[pos.Strategy] = 0
	}

	log.Info().
		Str("symbol", symbol).
		Str("venue", venue).
		Float64("exit_price", exitPrice).
		Float64("realized_pnl", realizedPnL).
		Msg("position closed")

	m.report(StateChange{Kind: "Closed", Position: *pos, Time: pos.LastUpdateAt})
	return realizedPnL, nil
}

// Get returns the position for (symbol, venue), if any.
func (m *Manager) Get(symbol, venue string) (*core.Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.positions[m.key(symbol, venue)]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

// Active returns every active position.
func (m *Manager) Active() []core.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Position, 0, len(m.positions))
	for _, p := range m.positions {
		if p.Active {
			out = append(out, *p)
		}
	}
	return out
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
