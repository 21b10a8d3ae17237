// Package venue defines the Adapter interface through which the core
// consumes venue connectivity, plus a paper and a Binance-backed
// implementation sharing a common reconnect state machine.
package venue

import (
	"context"
	"time"

	"github.com/ajitpratap0/arbctl/internal/core"
)

// BackoffConfig configures a Reconnector's exponential backoff.
type BackoffConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Backoff      float64
	MaxAttempts  int
}

// DefaultBackoffConfig matches the spec's reconnect scenario: initial 1s,
// factor 2, cap 30s.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Backoff:      2.0,
		MaxAttempts:  0, // 0 = unlimited
	}
}

// Reconnector tracks the current backoff delay across consecutive
// connection failures and resets on success. It is not safe for
// concurrent use by more than one adapter connection loop at a time,
// matching the one-reconnection-task-per-adapter scheduling model.
type Reconnector struct {
	cfg     BackoffConfig
	delay   time.Duration
	attempt int
}

// NewReconnector builds a Reconnector at its initial delay.
func NewReconnector(cfg BackoffConfig) *Reconnector {
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.Backoff <= 1 {
		cfg.Backoff = 2.0
	}
	return &Reconnector{cfg: cfg, delay: cfg.InitialDelay}
}

// NextDelay returns the delay to wait before the next reconnect attempt
// and advances internal state for the attempt after that, doubling (up
// to MaxDelay) as required by consecutive failures.
func (r *Reconnector) NextDelay() time.Duration {
	d := r.delay
	r.attempt++
	next := time.Duration(float64(r.delay) * r.cfg.Backoff)
	if next > r.cfg.MaxDelay {
		next = r.cfg.MaxDelay
	}
	r.delay = next
	return d
}

// Reset resets the backoff to its initial delay on a successful connect.
func (r *Reconnector) Reset() {
	r.delay = r.cfg.InitialDelay
	r.attempt = 0
}

// Exhausted reports whether MaxAttempts (if any) has been reached.
func (r *Reconnector) Exhausted() bool {
	return r.cfg.MaxAttempts > 0 && r.attempt >= r.cfg.MaxAttempts
}

// Wait blocks for the next backoff delay or until ctx is done, whichever
// comes first, so shutdown unblocks a reconnect wait within one poll
// interval rather than the full backoff.
func (r *Reconnector) Wait(ctx context.Context) error {
	if r.Exhausted() {
		return core.NewError(core.ErrVenueDisconnected, "reconnect attempts exhausted", nil)
	}
	d := r.NextDelay()
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
