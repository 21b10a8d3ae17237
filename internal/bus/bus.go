// Package bus is a thin NATS publish wrapper used as fire-and-forget
// telemetry by the Position Manager and Risk Monitor: publish failures
// are logged, never propagated, since the bus is additive observability,
// never a correctness dependency for in-process bookkeeping (§4.7).
package bus

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/arbctl/internal/metrics"
)

// Bus publishes JSON-encoded payloads to NATS subjects.
type Bus struct {
	conn *nats.Conn
}

// Connect dials a NATS server. Pass "" to use nats.DefaultURL.
func Connect(url string) (*Bus, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Bus{conn: conn}, nil
}

// Publish marshals v and publishes it to subject. Errors are logged and
// swallowed — see the package doc comment.
func (b *Bus) Publish(subject string, v interface{}) {
	if b == nil || b.conn == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("bus: marshal failed")
		return
	}
	if err := b.conn.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("bus: publish failed")
		return
	}
	metrics.NATSMessagesPublished.Inc()
}

// Close drains and closes the underlying connection.
func (b *Bus) Close() {
	if b == nil || b.conn == nil {
		return
	}
	_ = b.conn.Drain()
}
