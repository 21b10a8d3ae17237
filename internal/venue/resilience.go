package venue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

// RESTBreakerSettings configures the circuit breaker wrapping a venue's
// outbound REST calls (used for the fallback path when the WS feed is
// down or for one-off snapshot fetches).
type RESTBreakerSettings struct {
	MinRequests     uint32
	FailureRatio    float64
	OpenTimeout     time.Duration
	HalfOpenMaxReqs uint32
	CountInterval   time.Duration
}

// DefaultRESTBreakerSettings mirrors the exchange-call tier: trip after a
// majority of at least 5 requests fail within a 10s window, stay open 30s.
func DefaultRESTBreakerSettings() RESTBreakerSettings {
	return RESTBreakerSettings{
		MinRequests:     5,
		FailureRatio:    0.6,
		OpenTimeout:     30 * time.Second,
		HalfOpenMaxReqs: 3,
		CountInterval:   10 * time.Second,
	}
}

var breakerMetrics = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "venue_rest_breaker_state",
		Help: "Venue REST circuit breaker state (0=closed, 1=open, 2=half_open)",
	},
	[]string{"venue"},
)

// NewRESTBreaker builds a gobreaker.CircuitBreaker named for venue,
// wired to update breakerMetrics on every state transition.
func NewRESTBreaker(venue string, s RESTBreakerSettings) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        venue + "-rest",
		MaxRequests: s.HalfOpenMaxReqs,
		Interval:    s.CountInterval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= s.MinRequests &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			breakerMetrics.WithLabelValues(venue).Set(float64(to))
		},
	})
}
