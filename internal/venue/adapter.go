package venue

import (
	"context"

	"github.com/ajitpratap0/arbctl/internal/core"
)

// SubKind is a subscribable data channel on a venue.
type SubKind string

const (
	SubOrderBook SubKind = "order_book"
	SubTrades    SubKind = "trades"
	SubTicker    SubKind = "ticker"
	SubFunding   SubKind = "funding"
	SubMark      SubKind = "mark"
)

// Event is a normalized update emitted by an Adapter. Exactly one of the
// payload fields is populated, selected by Kind.
type Event struct {
	Kind  SubKind
	Quote core.Quote
}

// Adapter is the capability set the core consumes from a venue
// connection: connect/disconnect lifecycle, per-symbol subscription
// management, and a normalized event stream. Implementations push
// Events; they never reach into the cache directly.
type Adapter interface {
	// Name identifies the venue (e.g. "binance", "paper").
	Name() string

	// Connect establishes connectivity. It blocks until Connected or ctx
	// is cancelled, and does not itself retry; retry/backoff is driven
	// by the caller via Reconnector.
	Connect(ctx context.Context) error

	// Disconnect tears down connectivity. Idempotent.
	Disconnect(ctx context.Context) error

	// Subscribe registers interest in a (symbol, kind) feed.
	Subscribe(ctx context.Context, symbol string, kinds ...SubKind) error

	// Unsubscribe removes interest in a (symbol, kind) feed.
	Unsubscribe(ctx context.Context, symbol string, kinds ...SubKind) error

	// Events returns the channel of normalized updates. The channel is
	// closed when the adapter is permanently stopped.
	Events() <-chan Event

	// State reports the current connection lifecycle state.
	State() core.ConnectionState
}

// Run drives an Adapter's connect/reconnect loop until ctx is cancelled,
// pushing inbound Events to onEvent. Reconnect uses exponential backoff
// via a Reconnector and resets it on every successful (re)connection.
// A closed event channel is treated as a disconnect: Run waits out the
// backoff and connects again. Run returns when ctx is done or the
// Reconnector's attempts are exhausted.
func Run(ctx context.Context, a Adapter, r *Reconnector, onEvent func(Event)) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := a.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if waitErr := r.Wait(ctx); waitErr != nil {
				return waitErr
			}
			continue
		}
		r.Reset()

		events := a.Events()
		for {
			select {
			case <-ctx.Done():
				_ = a.Disconnect(context.Background())
				return ctx.Err()
			case ev, ok := <-events:
				if !ok {
					// Adapter closed its stream; treat as disconnect and
					// reconnect with backoff.
					goto reconnect
				}
				onEvent(ev)
			}
		}
	reconnect:
		if waitErr := r.Wait(ctx); waitErr != nil {
			return waitErr
		}
	}
}
