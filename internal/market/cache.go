// Package market implements the Market Data Cache: the latest quote per
// (symbol, venue) and a bounded price history per key, fed by venue
// adapters and consumed read-only by the pricer and detector.
package market

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/arbctl/internal/core"
)

// DefaultStalenessWindow is the maximum age at which a cached quote
// remains usable by detection (§4.1).
const DefaultStalenessWindow = 5 * time.Second

const (
	// VolatilitySeriesCap is the ring size used for volatility-oriented
	// price history (§3 default 1,000).
	VolatilitySeriesCap = 1000
	// EquitySeriesCap is the equity-curve ring size (§3 default 10,000).
	// No series in this package is created with it: every per-key series
	// uses VolatilitySeriesCap.
	EquitySeriesCap = 10000
)

// Cache holds the latest Quote per (symbol, venue) and a bounded
// PriceSeries per key. Writers serialize per key; reads never observe a
// quote mid-mutation because each write replaces the map entry with a
// freshly built *core.Quote rather than mutating one in place.
type Cache struct {
	mu      sync.RWMutex
	quotes  map[string]*core.Quote
	series  map[string]*PriceSeries
	staleAfter time.Duration
	now     func() time.Time
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithStalenessWindow overrides the default staleness window.
func WithStalenessWindow(d time.Duration) Option {
	return func(c *Cache) { c.staleAfter = d }
}

// WithClock overrides the cache's time source (for deterministic tests).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New builds an empty Market Data Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		quotes:     make(map[string]*core.Quote),
		series:     make(map[string]*PriceSeries),
		staleAfter: DefaultStalenessWindow,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Update applies a batch of quotes. Each quote replaces any prior quote
// for its (symbol, venue) key (last-writer-wins) and appends to that
// key's price history. Applying the same batch twice is idempotent: the
// resulting map is byte-identical because the last write for each key
// wins regardless of how many times it is replayed.
func (c *Cache) Update(quotes []core.Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range quotes {
		q := quotes[i]
		key := q.Key()
		stored := q
		stored.Stale = c.isStaleLocked(&stored)
		c.quotes[key] = &stored

		if stored.Last > 0 {
			c.seriesLocked(key, VolatilitySeriesCap).push(stored.ObservedAt, stored.Last)
		}
	}
}

func (c *Cache) isStaleLocked(q *core.Quote) bool {
	if q.ObservedAt.IsZero() {
		return true
	}
	if q.Bid > 0 && q.Ask > 0 && q.Last > 0 {
		if !(q.Bid <= q.Last && q.Last <= q.Ask) {
			return true
		}
	}
	return c.now().Sub(q.ObservedAt) > c.staleAfter
}

// GetQuote returns the latest quote for (symbol, venue). The second
// return value is false if no quote has ever been observed for the key.
// A stale quote is still returned (with Stale=true set) so callers can
// decide; detection itself must check Stale/QuoteStale via GetFreshQuote.
func (c *Cache) GetQuote(symbol, venue string) (*core.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q, ok := c.quotes[core.CacheKey(symbol, venue)]
	if !ok {
		return nil, false
	}
	cp := *q
	cp.Stale = c.isStaleLocked(&cp)
	return &cp, true
}

// GetFreshQuote returns the quote for (symbol, venue), or a core.Error
// of kind QuoteMissing / QuoteStale if it cannot be used by detection.
func (c *Cache) GetFreshQuote(symbol, venue string) (*core.Quote, error) {
	q, ok := c.GetQuote(symbol, venue)
	if !ok {
		return nil, core.NewError(core.ErrQuoteMissing, core.CacheKey(symbol, venue), nil)
	}
	if q.Stale {
		return nil, core.NewError(core.ErrQuoteStale, core.CacheKey(symbol, venue), nil)
	}
	return q, nil
}

// GetSpot returns the last traded price for (symbol, venue) if fresh.
func (c *Cache) GetSpot(symbol, venue string) (float64, bool) {
	q, err := c.GetFreshQuote(symbol, venue)
	if err != nil || q.Last <= 0 {
		return 0, false
	}
	return q.Last, true
}

// GetPerp returns the mark price for (symbol, venue) if it is a fresh
// perpetual quote (i.e. carries a funding rate).
func (c *Cache) GetPerp(symbol, venue string) (float64, bool) {
	q, err := c.GetFreshQuote(symbol, venue)
	if err != nil || q.FundingRate == nil {
		return 0, false
	}
	if q.MarkPrice != nil {
		return *q.MarkPrice, true
	}
	if q.Last > 0 {
		return q.Last, true
	}
	return 0, false
}

// GetFunding returns the funding rate for (symbol, venue) if fresh.
func (c *Cache) GetFunding(symbol, venue string) (float64, bool) {
	q, err := c.GetFreshQuote(symbol, venue)
	if err != nil || q.FundingRate == nil {
		return 0, false
	}
	return *q.FundingRate, true
}

// UpdatePriceHistory appends a single price sample to a key's ring,
// independent of Update, for series that are not driven by quote
// ingestion (e.g. a synthetic-price or equity-curve series).
func (c *Cache) UpdatePriceHistory(key string, price float64, cap int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seriesLocked(key, cap).push(c.now(), price)
}

// RecentPrices returns up to n most recent (timestamp, price) samples
// for key, oldest first.
func (c *Cache) RecentPrices(key string, n int) []core.PricePoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.series[key]
	if !ok {
		return nil
	}
	return s.recent(n)
}

func (c *Cache) seriesLocked(key string, cap int) *PriceSeries {
	s, ok := c.series[key]
	if !ok {
		s = newPriceSeries(cap, key)
		c.series[key] = s
	}
	return s
}

// Snapshot is a point-in-time, read-only copy of every cached quote.
// Strategies iterate a Snapshot rather than the live Cache so that
// concurrent strategy execution cannot race with cache writers and
// cannot, even accidentally, mutate cache state (§4.4).
type Snapshot struct {
	Quotes map[string]core.Quote // key -> quote, copied
}

// Snapshot takes a consistent point-in-time copy of the cache for the
// opportunity detector to run strategies over.
func (c *Cache) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]core.Quote, len(c.quotes))
	for k, q := range c.quotes {
		cp := *q
		cp.Stale = c.isStaleLocked(&cp)
		out[k] = cp
	}
	return &Snapshot{Quotes: out}
}

// BySymbol groups the snapshot's fresh quotes by symbol -> venue -> quote.
func (s *Snapshot) BySymbol() map[string]map[string]core.Quote {
	out := make(map[string]map[string]core.Quote)
	for _, q := range s.Quotes {
		if q.Stale {
			continue
		}
		venues, ok := out[q.Symbol]
		if !ok {
			venues = make(map[string]core.Quote)
			out[q.Symbol] = venues
		}
		venues[q.Venue] = q
	}
	return out
}

// Len reports the number of distinct (symbol, venue) keys in the cache.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.quotes)
}

// logEviction is called by PriceSeries when it evicts the oldest sample;
// kept as a named hook so tests can assert on FIFO behavior via logs if
// needed, and so the eviction policy is visibly intentional.
func logEviction(key string, evicted core.PricePoint) {
	log.Debug().
		Str("key", key).
		Time("evicted_at", evicted.Timestamp).
		Msg("price series evicted oldest sample")
}
