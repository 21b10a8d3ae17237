package venue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/arbctl/internal/core"
)

func TestRun_DeliversEventsFromPaperAdapter(t *testing.T) {
	p := NewPaperAdapter("paper")
	r := NewReconnector(BackoffConfig{InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Backoff: 2.0})

	ctx, cancel := context.WithCancel(context.Background())
	var received int32
	var mu sync.Mutex
	var lastSymbol string

	go Run(ctx, p, r, func(ev Event) {
		atomic.AddInt32(&received, 1)
		mu.Lock()
		lastSymbol = ev.Quote.Symbol
		mu.Unlock()
	})

	// Give Run a moment to connect.
	time.Sleep(20 * time.Millisecond)
	p.PushQuote(core.Quote{Symbol: "BTC-USD", Venue: "paper", Last: 100, ObservedAt: time.Now()})

	require.Eventually(t, func() bool { return atomic.LoadInt32(&received) == 1 }, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, "BTC-USD", lastSymbol)
	mu.Unlock()

	cancel()
}

func TestRun_ReconnectsAfterConnectFailure(t *testing.T) {
	p := NewPaperAdapter("paper")
	p.FailNextConnects(2)
	r := NewReconnector(BackoffConfig{InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Backoff: 2.0})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Run(ctx, p, r, func(Event) {})

	require.Eventually(t, func() bool {
		return p.State() == core.StateConnected
	}, time.Second, 2*time.Millisecond, "adapter should eventually connect after transient failures")
}
