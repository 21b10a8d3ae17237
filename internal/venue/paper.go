package venue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ajitpratap0/arbctl/internal/core"
)

// PaperAdapter is a deterministic, in-memory Adapter fed by injected
// price ticks rather than a live exchange, for tests and paper trading.
type PaperAdapter struct {
	name string

	mu      sync.Mutex
	state   core.ConnectionState
	subs    map[string]map[SubKind]bool
	events  chan Event
	closed  bool

	// failConnectRemaining, when positive, makes the next N Connect calls fail before
	// succeeding, to exercise reconnect/backoff paths deterministically.
	failConnectRemaining int
}

// NewPaperAdapter builds a PaperAdapter named name.
func NewPaperAdapter(name string) *PaperAdapter {
	return &PaperAdapter{
		name:   name,
		state:  core.StateDisconnected,
		subs:   make(map[string]map[SubKind]bool),
		events: make(chan Event, 256),
	}
}

// FailNextConnects makes the next n Connect calls return an error.
func (p *PaperAdapter) FailNextConnects(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failConnectRemaining = n
}

func (p *PaperAdapter) Name() string { return p.name }

func (p *PaperAdapter) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failConnectRemaining > 0 {
		p.failConnectRemaining--
		p.state = core.StateError
		return core.NewError(core.ErrVenueDisconnected, fmt.Sprintf("%s: simulated connect failure", p.name), nil)
	}
	p.state = core.StateConnected
	return nil
}

func (p *PaperAdapter) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = core.StateDisconnected
	return nil
}

func (p *PaperAdapter) Subscribe(ctx context.Context, symbol string, kinds ...SubKind) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	set, ok := p.subs[symbol]
	if !ok {
		set = make(map[SubKind]bool)
		p.subs[symbol] = set
	}
	for _, k := range kinds {
		set[k] = true
	}
	return nil
}

func (p *PaperAdapter) Unsubscribe(ctx context.Context, symbol string, kinds ...SubKind) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	set, ok := p.subs[symbol]
	if !ok {
		return nil
	}
	for _, k := range kinds {
		delete(set, k)
	}
	return nil
}

func (p *PaperAdapter) Events() <-chan Event { return p.events }

func (p *PaperAdapter) State() core.ConnectionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// PushQuote injects a quote tick as if received from the wire. It is a
// no-op once the adapter is closed.
func (p *PaperAdapter) PushQuote(q core.Quote) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}
	if q.ObservedAt.IsZero() {
		q.ObservedAt = time.Now()
	}
	select {
	case p.events <- Event{Kind: SubTicker, Quote: q}:
	default:
		// Backpressure: drop rather than block the injector; a slow
		// consumer should widen the buffer, not stall ingestion.
	}
}

// Close permanently stops the adapter's event stream.
func (p *PaperAdapter) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.events)
}
