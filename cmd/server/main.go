// Command server exposes a read-only HTTP control surface over the
// engine's in-memory state: health, Prometheus metrics, the most
// recent detected opportunities, open positions, and active risk
// alerts. It never places or cancels orders — this engine has no
// live order-entry surface for an HTTP client to drive.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/arbctl/internal/config"
	"github.com/ajitpratap0/arbctl/internal/core"
	"github.com/ajitpratap0/arbctl/internal/detect"
	"github.com/ajitpratap0/arbctl/internal/market"
	"github.com/ajitpratap0/arbctl/internal/metrics"
	"github.com/ajitpratap0/arbctl/internal/pnl"
	"github.com/ajitpratap0/arbctl/internal/position"
	"github.com/ajitpratap0/arbctl/internal/pricing"
	"github.com/ajitpratap0/arbctl/internal/risk"
	"github.com/ajitpratap0/arbctl/internal/store"
	"github.com/ajitpratap0/arbctl/internal/validate"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	addr := flag.String("addr", ":8090", "HTTP listen address")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	cache := market.New(market.WithStalenessWindow(cfg.StalenessWindow()))
	pricer := pricing.New(cfg.ToPricingConfig())
	positions := position.New(cfg.ToPositionConfig(), nil, nil)
	detector := detect.New(cache, pricer, cfg.ToDetectConfig())
	validator := validate.New(cache, cfg.ToValidateConfig())
	riskMon := risk.New(cfg.ToRiskConfig(), positions, cache, func(core.RiskAlert) {}, nil)

	st, err := buildReadStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	pnlTrack := pnl.New(cfg.ToPnLConfig(), st, positions)

	srv := newServer(detector, validator, positions, riskMon, pnlTrack)
	httpSrv := &http.Server{Addr: *addr, Handler: srv.router}

	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", *addr).Msg("control surface listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case err := <-errChan:
		log.Error().Err(err).Msg("control surface failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during control surface shutdown")
	}
}

// server exposes read-only views over the pipeline's live components.
// It holds no engine of its own: in a full deployment it would be
// pointed at the same cache/positions/riskMon a cmd/engine process
// populates, wired via a shared store or an in-process handoff; here it
// owns its own (initially empty) instances so it runs standalone too.
type server struct {
	router    *gin.Engine
	detector  *detect.Detector
	validator *validate.Validator
	positions *position.Manager
	riskMon   *risk.Monitor
	pnlTrack  *pnl.Tracker
}

func buildReadStore(cfg *config.Config) (store.Store, error) {
	if cfg.Store.Postgres.DSN == "" {
		return store.NewMemStore(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return store.NewPostgresStore(ctx, cfg.Store.Postgres.DSN, cfg.Store.Postgres.MaxConns)
}

func newServer(d *detect.Detector, v *validate.Validator, p *position.Manager, r *risk.Monitor, t *pnl.Tracker) *server {
	s := &server{detector: d, validator: v, positions: p, riskMon: r, pnlTrack: t}

	router := gin.New()
	router.Use(metrics.GinMiddleware())
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
	}))

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/api/v1")
	v1.GET("/opportunities", s.handleOpportunities)
	v1.GET("/positions", s.handlePositions)
	v1.GET("/risk", s.handleRisk)
	v1.GET("/pnl", s.handlePnL)

	s.router = router
	return s
}

func (s *server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

func (s *server) handleOpportunities(c *gin.Context) {
	candidates, err := s.detector.Detect(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ranked := s.validator.ValidateAndRank(candidates, false)
	c.JSON(http.StatusOK, gin.H{"opportunities": ranked, "count": len(ranked)})
}

func (s *server) handlePositions(c *gin.Context) {
	active := s.positions.Active()
	c.JSON(http.StatusOK, gin.H{"positions": active, "count": len(active)})
}

func (s *server) handleRisk(c *gin.Context) {
	alerts := s.riskMon.ActiveAlerts(time.Now())
	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "count": len(alerts)})
}

func (s *server) handlePnL(c *gin.Context) {
	analytics, err := s.pnlTrack.Analytics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, analytics)
}
