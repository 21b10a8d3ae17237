// Package metrics defines the Prometheus gauges/counters the engine
// exposes, registered once at package init via promauto the same way
// the teacher's metrics package does.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Detection and validation pipeline metrics.
var (
	OpportunitiesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbctl_opportunities_detected_total",
		Help: "Opportunities emitted by the detector, by strategy",
	}, []string{"strategy"})

	OpportunitiesExecutable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbctl_opportunities_executable",
		Help: "Executable opportunities in the most recent validation pass",
	})

	ValidationGateFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbctl_validation_gate_failures_total",
		Help: "Validation gate failures, by gate name",
	}, []string{"gate"})
)

// Planning and execution metrics.
var (
	PlansCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbctl_plans_created_total",
		Help: "Execution plans created, by status",
	}, []string{"status"})

	PlanCostEstimate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbctl_plan_cost_estimate_usd",
		Help: "Most recent plan's estimated execution cost in USD",
	})
)

// Position and P&L metrics.
var (
	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbctl_open_positions",
		Help: "Currently open positions",
	})

	TotalPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbctl_total_pnl_usd",
		Help: "Realized plus unrealized P&L in USD",
	})

	RealizedPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbctl_realized_pnl_usd",
		Help: "Realized P&L in USD",
	})

	WinRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbctl_win_rate",
		Help: "Fraction of closed trades with positive realized P&L",
	})

	SharpeRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbctl_sharpe_ratio",
		Help: "Annualized Sharpe ratio of the equity curve",
	})

	MaxDrawdown = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbctl_max_drawdown",
		Help: "Maximum peak-to-trough drawdown of the equity curve",
	})
)

// Risk Monitor metrics.
var (
	PortfolioVaR = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbctl_portfolio_var",
		Help: "Portfolio Value at Risk at the configured confidence level",
	})

	PortfolioExpectedShortfall = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbctl_portfolio_expected_shortfall",
		Help: "Mean loss in the worst (1-confidence) tail of the simulated portfolio return distribution",
	})

	PortfolioConcentration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbctl_portfolio_concentration",
		Help: "Largest single-symbol exposure as a fraction of total exposure",
	})

	PortfolioCorrelation = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbctl_portfolio_correlation",
		Help: "Mean pairwise correlation across open positions' price histories",
	})

	PortfolioLiquidityRisk = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbctl_portfolio_liquidity_risk",
		Help: "Mean illiquidity (1 - liquidity score) across open positions",
	})

	PortfolioFundingRisk = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arbctl_portfolio_funding_risk",
		Help: "Mean absolute funding rate across open perpetual positions",
	})

	RiskAlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbctl_risk_alerts_total",
		Help: "Risk alerts dispatched, by severity and kind",
	}, []string{"severity", "kind"})
)

// Venue connectivity and bus metrics.
var (
	VenueConnectionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arbctl_venue_connection_state",
		Help: "Venue adapter connection state (1 = Connected, 0 otherwise)",
	}, []string{"venue"})

	NATSMessagesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbctl_nats_messages_published_total",
		Help: "Messages published to the event bus",
	})
)

// Credential-vault metrics.
var (
	VaultRequestErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbctl_vault_request_errors_total",
		Help: "Failed Vault HTTP requests",
	})

	VaultRequestDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arbctl_vault_request_duration_ms",
		Help:    "Vault HTTP request latency in milliseconds",
		Buckets: prometheus.DefBuckets,
	})
)

// Control-surface HTTP metrics.
var (
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbctl_api_requests_total",
		Help: "Control-surface HTTP requests, by method/path/status",
	}, []string{"method", "path", "status"})

	APIRequestDurationMs = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arbctl_api_request_duration_ms",
		Help:    "Control-surface HTTP request latency in milliseconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Handler returns the Prometheus scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// GinMiddleware instruments every request cmd/server's router handles,
// keyed by route pattern (not raw path, to avoid an unbounded label
// cardinality from path parameters).
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		duration := float64(time.Since(start).Milliseconds())
		status := strconv.Itoa(c.Writer.Status())

		APIRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		APIRequestDurationMs.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}
