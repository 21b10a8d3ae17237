package market

import (
	"time"

	"github.com/ajitpratap0/arbctl/internal/core"
)

// PriceSeries is a bounded ring of (timestamp, price) pairs. Eviction is
// strictly FIFO: once the ring is full, each push evicts the oldest
// sample (§3).
type PriceSeries struct {
	buf   []core.PricePoint
	cap   int
	head  int // index of the oldest sample
	count int
	key   string
}

func newPriceSeries(capacity int, key string) *PriceSeries {
	if capacity <= 0 {
		capacity = VolatilitySeriesCap
	}
	return &PriceSeries{
		buf: make([]core.PricePoint, capacity),
		cap: capacity,
		key: key,
	}
}

// push appends one (timestamp, price) sample, evicting the oldest if the
// ring is full.
func (s *PriceSeries) push(ts time.Time, price float64) {
	s.pushPoint(core.PricePoint{Timestamp: ts, Price: price})
}

// pushPoint appends one sample, evicting the oldest if the ring is full.
func (s *PriceSeries) pushPoint(p core.PricePoint) {
	if s.count < s.cap {
		idx := (s.head + s.count) % s.cap
		s.buf[idx] = p
		s.count++
		return
	}

	evicted := s.buf[s.head]
	s.buf[s.head] = p
	s.head = (s.head + 1) % s.cap
	logEviction(s.key, evicted)
}

// recent returns up to n most recent samples, oldest first.
func (s *PriceSeries) recent(n int) []core.PricePoint {
	if n <= 0 || s.count == 0 {
		return nil
	}
	if n > s.count {
		n = s.count
	}
	out := make([]core.PricePoint, n)
	start := s.count - n
	for i := 0; i < n; i++ {
		idx := (s.head + start + i) % s.cap
		out[i] = s.buf[idx]
	}
	return out
}
