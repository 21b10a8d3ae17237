// Package alerts fans risk and execution events out to human-facing
// notification channels (Telegram, console, log) independent of the
// Prometheus/NATS telemetry internal/risk already emits on its own (§8).
package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Severity mirrors core.AlertSeverity but stays decoupled from it — an
// alerter should not need to import internal/core just to format a
// notification.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Alert is a single human-facing notification.
type Alert struct {
	Title     string
	Message   string
	Severity  Severity
	Timestamp time.Time
	Metadata  map[string]interface{}
}

// Alerter delivers an Alert to one channel.
type Alerter interface {
	Send(ctx context.Context, alert Alert) error
}

// Manager fans an alert out to every configured channel. A channel
// failing does not stop the others from being tried.
type Manager struct {
	alerters []Alerter
}

// NewManager builds a Manager over the given channels.
func NewManager(alerters ...Alerter) *Manager {
	return &Manager{alerters: alerters}
}

// Send delivers alert to every configured channel, returning the last
// error encountered (if any) after trying them all.
func (m *Manager) Send(ctx context.Context, alert Alert) error {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}

	var lastErr error
	for _, alerter := range m.alerters {
		if err := alerter.Send(ctx, alert); err != nil {
			log.Error().Err(err).Str("title", alert.Title).Msg("alert delivery failed")
			lastErr = err
		}
	}
	return lastErr
}

// SendCritical is a convenience wrapper for a critical-severity alert.
func (m *Manager) SendCritical(ctx context.Context, title, message string, metadata map[string]interface{}) error {
	return m.Send(ctx, Alert{Title: title, Message: message, Severity: SeverityCritical, Metadata: metadata})
}

// SendWarning is a convenience wrapper for a warning-severity alert.
func (m *Manager) SendWarning(ctx context.Context, title, message string, metadata map[string]interface{}) error {
	return m.Send(ctx, Alert{Title: title, Message: message, Severity: SeverityWarning, Metadata: metadata})
}

// SendInfo is a convenience wrapper for an info-severity alert.
func (m *Manager) SendInfo(ctx context.Context, title, message string, metadata map[string]interface{}) error {
	return m.Send(ctx, Alert{Title: title, Message: message, Severity: SeverityInfo, Metadata: metadata})
}

// LogAlerter logs alerts through zerolog at a level matched to severity.
type LogAlerter struct{}

// NewLogAlerter builds a LogAlerter.
func NewLogAlerter() *LogAlerter { return &LogAlerter{} }

// Send logs the alert.
func (l *LogAlerter) Send(ctx context.Context, alert Alert) error {
	event := log.Log()
	switch alert.Severity {
	case SeverityCritical:
		event = log.Error()
	case SeverityWarning:
		event = log.Warn()
	case SeverityInfo:
		event = log.Info()
	}

	for key, value := range alert.Metadata {
		event = event.Interface(key, value)
	}

	event.
		Str("alert_title", alert.Title).
		Str("alert_severity", string(alert.Severity)).
		Time("alert_time", alert.Timestamp).
		Msg(alert.Message)

	return nil
}

// ConsoleAlerter prints alerts to stdout with a severity-coded banner.
// Useful for a local/dev run with no Telegram bot configured.
type ConsoleAlerter struct{}

// NewConsoleAlerter builds a ConsoleAlerter.
func NewConsoleAlerter() *ConsoleAlerter { return &ConsoleAlerter{} }

// Send prints the alert.
func (c *ConsoleAlerter) Send(ctx context.Context, alert Alert) error {
	banner := "INFO"
	switch alert.Severity {
	case SeverityCritical:
		banner = "CRITICAL"
	case SeverityWarning:
		banner = "WARNING"
	}

	fmt.Println("----------------------------------------")
	fmt.Printf("[%s] %s\n", banner, alert.Title)
	fmt.Println(alert.Message)
	for key, value := range alert.Metadata {
		fmt.Printf("  %s: %v\n", key, value)
	}
	fmt.Printf("time: %s\n", alert.Timestamp.Format(time.RFC3339))
	fmt.Println("----------------------------------------")

	return nil
}
