package venue

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/ajitpratap0/arbctl/internal/core"
)

// BinanceAdapter streams normalized book-ticker quotes (best bid/ask,
// Last set to their midpoint) from Binance over websocket. It has no
// mark-price or funding stream. RESTSnapshot fetches one quote over REST
// behind a circuit breaker and rate limiter; nothing calls it
// automatically when a socket is down.
type BinanceAdapter struct {
	client  *binance.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter

	mu       sync.RWMutex
	state    core.ConnectionState
	symbols  map[string]map[SubKind]bool
	stopC    chan struct{}
	doneC    chan struct{}
	events   chan Event
	testnet  bool
}

// BinanceAdapterConfig configures a BinanceAdapter.
type BinanceAdapterConfig struct {
	APIKey       string
	SecretKey    string
	Testnet      bool
	RESTRateRPS  float64 // REST fallback rate limit, requests per second
	RESTBurst    int
	Breaker      RESTBreakerSettings
}

// NewBinanceAdapter builds a BinanceAdapter. API credentials may be
// empty for market-data-only usage (public streams require none).
func NewBinanceAdapter(cfg BinanceAdapterConfig) *BinanceAdapter {
	if cfg.RESTRateRPS <= 0 {
		cfg.RESTRateRPS = 5
	}
	if cfg.RESTBurst <= 0 {
		cfg.RESTBurst = 10
	}
	client := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.Testnet {
		binance.UseTestnet = true
	}
	return &BinanceAdapter{
		client:  client,
		breaker: NewRESTBreaker("binance", cfg.Breaker),
		limiter: rate.NewLimiter(rate.Limit(cfg.RESTRateRPS), cfg.RESTBurst),
		state:   core.StateDisconnected,
		symbols: make(map[string]map[SubKind]bool),
		events:  make(chan Event, 1024),
		testnet: cfg.Testnet,
	}
}

func (b *BinanceAdapter) Name() string { return "binance" }

// Connect transitions the adapter to Connected; it opens no streams
// itself. Each symbol's book-ticker stream is opened by its first
// Subscribe call, and a later Connect does not reopen streams that
// Disconnect stopped.
func (b *BinanceAdapter) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == core.StateConnected {
		return nil
	}
	b.state = core.StateConnecting
	b.stopC = make(chan struct{})
	b.doneC = make(chan struct{})
	b.state = core.StateConnected
	log.Info().Bool("testnet", b.testnet).Msg("binance adapter connected")
	return nil
}

func (b *BinanceAdapter) Disconnect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == core.StateDisconnected {
		return nil
	}
	if b.stopC != nil {
		close(b.stopC)
	}
	b.state = core.StateDisconnected
	return nil
}

// Subscribe opens a book-ticker websocket stream for symbol if not
// already open, tagging it with the requested kinds.
func (b *BinanceAdapter) Subscribe(ctx context.Context, symbol string, kinds ...SubKind) error {
	b.mu.Lock()
	set, exists := b.symbols[symbol]
	if !exists {
		set = make(map[SubKind]bool)
		b.symbols[symbol] = set
	}
	for _, k := range kinds {
		set[k] = true
	}
	b.mu.Unlock()

	if exists {
		return nil
	}
	return b.streamSymbol(symbol)
}

func (b *BinanceAdapter) Unsubscribe(ctx context.Context, symbol string, kinds ...SubKind) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.symbols[symbol]
	if !ok {
		return nil
	}
	for _, k := range kinds {
		delete(set, k)
	}
	return nil
}

func (b *BinanceAdapter) Events() <-chan Event { return b.events }

func (b *BinanceAdapter) State() core.ConnectionState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// streamSymbol opens a Binance book-ticker websocket for symbol and
// forwards ticks as normalized Events until the adapter is disconnected.
func (b *BinanceAdapter) streamSymbol(symbol string) error {
	wsHandler := func(ev *binance.WsBookTickerEvent) {
		bid, _ := strconv.ParseFloat(ev.BestBidPrice, 64)
		ask, _ := strconv.ParseFloat(ev.BestAskPrice, 64)
		q := core.Quote{
			Symbol:     symbol,
			Venue:      b.Name(),
			Bid:        bid,
			Ask:        ask,
			Last:       (bid + ask) / 2,
			ObservedAt: time.Now(),
		}
		select {
		case b.events <- Event{Kind: SubTicker, Quote: q}:
		default:
			log.Warn().Str("symbol", symbol).Msg("binance adapter event buffer full, dropping tick")
		}
	}
	errHandler := func(err error) {
		log.Error().Err(err).Str("symbol", symbol).Msg("binance book ticker stream error")
	}

	doneC, stopC, err := binance.WsBookTickerServe(symbol, wsHandler, errHandler)
	if err != nil {
		return core.NewError(core.ErrVenueDisconnected, fmt.Sprintf("subscribe %s", symbol), err)
	}

	go func() {
		select {
		case <-b.stopC:
			stopC <- struct{}{}
		case <-doneC:
		}
	}()
	return nil
}

// RESTSnapshot fetches a single book-ticker price via REST, behind the
// circuit breaker and rate limiter, for use as a fallback when the
// websocket stream for symbol has not yet delivered a tick.
func (b *BinanceAdapter) RESTSnapshot(ctx context.Context, symbol string) (core.Quote, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return core.Quote{}, err
	}

	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.client.NewListBookTickersService().Symbol(symbol).Do(ctx)
	})
	if err != nil {
		return core.Quote{}, core.NewError(core.ErrVenueDisconnected, "rest snapshot "+symbol, err)
	}

	tickers, ok := result.([]*binance.BookTicker)
	if !ok || len(tickers) == 0 {
		return core.Quote{}, core.NewError(core.ErrQuoteMissing, "rest snapshot "+symbol, nil)
	}
	t := tickers[0]
	bid, _ := strconv.ParseFloat(t.BidPrice, 64)
	ask, _ := strconv.ParseFloat(t.AskPrice, 64)
	return core.Quote{
		Symbol:     symbol,
		Venue:      b.Name(),
		Bid:        bid,
		Ask:        ask,
		Last:       (bid + ask) / 2,
		ObservedAt: time.Now(),
	}, nil
}
