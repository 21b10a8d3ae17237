// Command engine runs the full detect -> validate -> plan -> execute ->
// monitor pipeline: it wires every internal package into one process,
// streams venue quotes into the market cache, samples the detector on a
// fixed interval, and keeps the risk monitor and P&L tracker running on
// their own cadences until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/arbctl/internal/alerts"
	"github.com/ajitpratap0/arbctl/internal/bus"
	"github.com/ajitpratap0/arbctl/internal/config"
	"github.com/ajitpratap0/arbctl/internal/core"
	"github.com/ajitpratap0/arbctl/internal/detect"
	"github.com/ajitpratap0/arbctl/internal/market"
	"github.com/ajitpratap0/arbctl/internal/metrics"
	"github.com/ajitpratap0/arbctl/internal/plan"
	"github.com/ajitpratap0/arbctl/internal/pnl"
	"github.com/ajitpratap0/arbctl/internal/position"
	"github.com/ajitpratap0/arbctl/internal/pricing"
	"github.com/ajitpratap0/arbctl/internal/risk"
	"github.com/ajitpratap0/arbctl/internal/store"
	"github.com/ajitpratap0/arbctl/internal/validate"
	"github.com/ajitpratap0/arbctl/internal/vault"
	"github.com/ajitpratap0/arbctl/internal/venue"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults to ./configs/config.yaml or ./config.yaml)")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	applyLogLevel(cfg.App.LogLevel)

	eng, err := build(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build engine")
	}

	if err := config.Watch(*configPath, eng.applyConfig); err != nil {
		log.Warn().Err(err).Msg("config hot-reload unavailable, continuing on static configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := eng.run(ctx); err != nil && ctx.Err() == nil {
			errChan <- fmt.Errorf("engine run error: %w", err)
		}
	}()

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case err := <-errChan:
		log.Error().Err(err).Msg("engine stopped unexpectedly")
	}

	log.Info().Msg("initiating graceful shutdown")
	cancel()

	done := make(chan struct{})
	go func() {
		eng.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("engine shutdown complete")
	case <-time.After(30 * time.Second):
		log.Warn().Msg("shutdown timed out, exiting anyway")
	}

	eng.close()
}

func applyLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// engine holds every wired component. The stateless pipeline stages
// (detector, validator, planner) can be swapped wholesale on config
// reload; the stateful ones (positions, risk, P&L) keep their
// in-memory book across a reload since rebuilding them would discard
// open positions and trade history.
type engine struct {
	cfg *config.Config

	cache    *market.Cache
	pricer   *pricing.Pricer
	store    store.Store
	eventBus *bus.Bus
	alertMgr *alerts.Manager

	positions *position.Manager
	riskMon   *risk.Monitor
	pnlTrack  *pnl.Tracker

	adapters []venueBinding

	mu        sync.RWMutex
	detector  *detect.Detector
	validator *validate.Validator
	planner   *plan.Planner
	sizing    core.SizingMethod

	wg sync.WaitGroup
}

type venueBinding struct {
	adapter venue.Adapter
	backoff venue.BackoffConfig
}

func build(cfg *config.Config) (*engine, error) {
	cache := market.New(market.WithStalenessWindow(cfg.StalenessWindow()))
	pricer := pricing.New(cfg.ToPricingConfig())

	st, err := buildStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("build store: %w", err)
	}

	eventBus, err := bus.Connect(cfg.Bus.NATS.URL)
	if err != nil {
		log.Warn().Err(err).Msg("event bus unavailable, continuing without telemetry fan-out")
		eventBus = nil
	}

	alertMgr := buildAlertManager(cfg)

	positions := position.New(cfg.ToPositionConfig(), nil, eventBus)

	pnlTrack := pnl.New(cfg.ToPnLConfig(), st, positions)

	riskMon := risk.New(cfg.ToRiskConfig(), positions, cache, alertMgr.Dispatch, eventBus, risk.WithEquitySource(pnlTrack))
	positions.SetRiskAlert(func(kind core.AlertKind, severity core.AlertSeverity, value, limit float64) {
		riskMon.Raise(kind, severity, value, limit)
	})

	vaultClient, err := cfg.ToVaultClient()
	if err != nil {
		return nil, fmt.Errorf("vault client: %w", err)
	}

	adapters, err := buildVenues(cfg, vaultClient)
	if err != nil {
		return nil, fmt.Errorf("build venues: %w", err)
	}

	e := &engine{
		cfg:       cfg,
		cache:     cache,
		pricer:    pricer,
		store:     st,
		eventBus:  eventBus,
		alertMgr:  alertMgr,
		positions: positions,
		riskMon:   riskMon,
		pnlTrack:  pnlTrack,
		adapters:  adapters,
	}
	e.applyConfig(cfg)
	return e, nil
}

func buildStore(cfg *config.Config) (store.Store, error) {
	if cfg.Store.Postgres.DSN == "" {
		return store.NewMemStore(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return store.NewPostgresStore(ctx, cfg.Store.Postgres.DSN, cfg.Store.Postgres.MaxConns)
}

func buildAlertManager(cfg *config.Config) *alerts.Manager {
	channels := []alerts.Alerter{alerts.NewLogAlerter(), alerts.NewConsoleAlerter()}
	if cfg.Alerts.Telegram.Enabled {
		tg, err := alerts.NewTelegramAlerter(cfg.Alerts.Telegram.BotToken, cfg.Alerts.Telegram.ChatID)
		if err != nil {
			log.Warn().Err(err).Msg("telegram alerter unavailable, continuing without it")
		} else {
			channels = append(channels, tg)
		}
	}
	return alerts.NewManager(channels...)
}

func buildVenues(cfg *config.Config, vaultClient *vault.Client) ([]venueBinding, error) {
	var out []venueBinding
	for name, vc := range cfg.Venues {
		if !vc.Enabled {
			continue
		}

		var adapter venue.Adapter
		switch vc.Type {
		case "binance":
			creds, err := vault.LoadVenueCredentials(context.Background(), vaultClient, name)
			if err != nil {
				log.Warn().Err(err).Str("venue", name).Msg("failed to load vault credentials, continuing with market-data-only access")
			}
			adapter = venue.NewBinanceAdapter(venue.BinanceAdapterConfig{
				APIKey:    creds.APIKey,
				SecretKey: creds.APISecret,
				Testnet:   vc.Testnet,
			})
		case "paper", "":
			adapter = venue.NewPaperAdapter(name)
		default:
			return nil, fmt.Errorf("venue %q: unknown type %q", name, vc.Type)
		}

		out = append(out, venueBinding{adapter: adapter, backoff: cfg.ToVenueBackoff(name)})
	}
	return out, nil
}

// applyConfig rebuilds the stateless pipeline stages from cfg and
// atomically swaps them in. Stateful components (positions, risk
// thresholds baked at construction, P&L cadence) are not rebuilt here;
// changing those requires a restart, logged below rather than silently
// ignored.
func (e *engine) applyConfig(cfg *config.Config) {
	applyLogLevel(cfg.App.LogLevel)

	detector := detect.New(e.cache, e.pricer, cfg.ToDetectConfig())
	validator := validate.New(e.cache, cfg.ToValidateConfig())
	planner := plan.New(cfg.ToPlanConfig(), plan.WithRiskVeto(e.riskVeto), plan.WithCostAlert(func(kind core.AlertKind, severity core.AlertSeverity, value, limit float64) {
		e.riskMon.Raise(kind, severity, value, limit)
	}))

	e.mu.Lock()
	e.cfg = cfg
	e.detector = detector
	e.validator = validator
	e.planner = planner
	e.sizing = cfg.SizingMethod()
	e.mu.Unlock()

	log.Info().Msg("configuration reloaded: detection/validation/planning thresholds updated (risk/position/pnl limits require a restart)")
}

// riskVeto rejects a plan outright while any Critical risk alert is
// active, giving the Risk Monitor a hard veto over new capital
// commitment independent of the plan's own cost/capital checks (§4.7
// scenario 4).
func (e *engine) riskVeto(_ core.Opportunity, _ float64) error {
	for _, a := range e.riskMon.ActiveAlerts(time.Now()) {
		if a.Severity == core.SeverityCritical {
			return fmt.Errorf("risk monitor: active critical alert %s", a.Kind)
		}
	}
	return nil
}

func (e *engine) snapshot() (*detect.Detector, *validate.Validator, *plan.Planner, core.SizingMethod) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.detector, e.validator, e.planner, e.sizing
}

// run starts every background loop and blocks until ctx is cancelled or
// one of them returns a non-context error.
func (e *engine) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, v := range e.adapters {
		v := v
		e.wg.Add(1)
		g.Go(func() error {
			defer e.wg.Done()
			reconnector := venue.NewReconnector(v.backoff)
			err := venue.Run(gctx, v.adapter, reconnector, e.onVenueEvent)
			if gctx.Err() != nil {
				return nil
			}
			return err
		})
	}

	e.wg.Add(1)
	g.Go(func() error {
		defer e.wg.Done()
		err := e.riskMon.Run(gctx)
		if gctx.Err() != nil {
			return nil
		}
		return err
	})

	e.wg.Add(1)
	g.Go(func() error {
		defer e.wg.Done()
		err := e.pnlTrack.Run(gctx)
		if gctx.Err() != nil {
			return nil
		}
		return err
	})

	e.wg.Add(1)
	g.Go(func() error {
		defer e.wg.Done()
		return e.detectLoop(gctx)
	})

	return g.Wait()
}

func (e *engine) onVenueEvent(ev venue.Event) {
	metrics.VenueConnectionState.WithLabelValues(ev.Quote.Venue).Set(1)
	e.cache.Update([]core.Quote{ev.Quote})
}

// detectLoop samples the pipeline at the configured detection interval
// until ctx is cancelled.
func (e *engine) detectLoop(ctx context.Context) error {
	e.mu.RLock()
	interval := e.cfg.DetectionInterval()
	e.mu.RUnlock()
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := e.tick(ctx); err != nil {
				log.Error().Err(err).Msg("detection tick failed")
			}
		}
	}
}

func (e *engine) tick(ctx context.Context) error {
	detector, validator, planner, sizing := e.snapshot()

	candidates, err := detector.Detect(ctx)
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}
	for _, c := range candidates {
		metrics.OpportunitiesDetected.WithLabelValues(string(c.Strategy)).Inc()
	}

	ranked := validator.ValidateAndRank(candidates, false)
	metrics.OpportunitiesExecutable.Set(float64(len(ranked)))

	capital := e.positions.CapitalAvailable()
	plans := planner.PlanBatch(ranked, sizing, capital)

	for _, p := range plans {
		metrics.PlansCreated.WithLabelValues(string(p.Status)).Inc()
		if p.Status != core.PlanReady {
			continue
		}
		metrics.PlanCostEstimate.Set(p.CostEstimate)
		e.execute(ctx, p)
	}
	return nil
}

// execute simulates immediate fills for a Ready plan's legs: opening a
// position per leg at its reference price and recording the fill in
// the trade history. A real exchange-facing order router is outside
// this engine's scope (submit_plan is represented by this in-process
// simulation rather than a live venue call).
func (e *engine) execute(ctx context.Context, p core.ExecutionPlan) {
	for _, leg := range p.Legs {
		side := core.PositionLong
		if leg.Action == core.ActionSell {
			side = core.PositionShort
		}

		if _, err := e.positions.Open(leg.Instrument, leg.Venue, string(p.SizingStrategy), side, leg.ReferencePrice, leg.Quantity, 1, nil); err != nil {
			log.Warn().Err(err).Str("plan_id", p.ID).Str("leg_venue", leg.Venue).Msg("position open rejected")
			continue
		}

		tr := core.TradeRecord{
			TradeID:    leg.Venue + ":" + leg.Instrument + ":" + p.ID,
			PlanID:     p.ID,
			Venue:      leg.Venue,
			Symbol:     leg.Instrument,
			Action:     leg.Action,
			Quantity:   leg.Quantity,
			EntryPrice: leg.ReferencePrice,
			EntryTime:  time.Now(),
			TotalCosts: leg.FeeEst + leg.SlippageEst,
		}
		if err := e.pnlTrack.RecordFill(ctx, tr); err != nil {
			log.Error().Err(err).Str("plan_id", p.ID).Msg("failed to record fill")
		}
	}
}

func (e *engine) close() {
	e.eventBus.Close()
	if closer, ok := e.store.(interface{ Close() }); ok {
		closer.Close()
	}
}
