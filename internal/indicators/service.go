// Package indicators wraps cinar/indicator/v2 momentum and volatility
// calculations behind a plain float64-slice API, for the Opportunity
// Detector's Statistical strategy to use as a confirmation signal on
// top of its own z-score/mean-reversion calc.
package indicators

// Service computes technical indicators over a price series.
type Service struct{}

// NewService creates an indicator service.
func NewService() *Service {
	return &Service{}
}
