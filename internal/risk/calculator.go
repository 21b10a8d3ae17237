package risk

import (
	"context"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/arbctl/internal/core"
)

// PositionProvider supplies the currently open book. *position.Manager
// satisfies this via its own Active method.
type PositionProvider interface {
	Active() []core.Position
}

// PriceSource supplies price history and quotes for the volatility,
// correlation, liquidity, and funding-rate inputs below. *market.Cache
// satisfies this directly.
type PriceSource interface {
	RecentPrices(key string, n int) []core.PricePoint
	GetQuote(symbol, venue string) (*core.Quote, bool)
}

// EquitySource supplies an equity curve for drawdown. Optional: a nil
// source degrades MaxDrawdown to 0 rather than failing Compute.
type EquitySource interface {
	EquityCurve() []float64
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// volatilityOf returns the sample standard deviation of daily returns for
// (symbol, venue) from the last 1,000 price samples, falling back to
// cfg.DefaultVolatility when fewer than cfg.MinHistorySamples are on
// record (§4.8).
func volatilityOf(prices PriceSource, cfg Config, symbol, venue string) float64 {
	pts := prices.RecentPrices(core.CacheKey(symbol, venue), 1000)
	if len(pts) < cfg.MinHistorySamples {
		return cfg.DefaultVolatility
	}
	returns := make([]float64, 0, len(pts)-1)
	for i := 1; i < len(pts); i++ {
		if pts[i-1].Price > 0 {
			returns = append(returns, (pts[i].Price-pts[i-1].Price)/pts[i-1].Price)
		}
	}
	if len(returns) < 2 {
		return cfg.DefaultVolatility
	}
	return stdDev(returns)
}

func stdDev(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// pearson computes the Pearson correlation coefficient between two equal
// length samples. Duplicated from the shape of the validator's own
// correlation helper rather than shared across packages, matching the
// teacher's own per-file stats-helper duplication in internal/risk.
func pearson(a, b []float64) float64 {
	n := len(a)
	if n == 0 {
		return 0
	}
	var sumA, sumB float64
	for i := 0; i < n; i++ {
		sumA += a[i]
		sumB += b[i]
	}
	meanA, meanB := sumA/float64(n), sumB/float64(n)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

// monteCarloVaR simulates portfolio daily returns by sampling each
// position's return from a normal distribution parameterized by its own
// historical (or fallback) volatility, weighted by notional share of the
// book, then reads VaR/ES off the simulated loss distribution's tail.
// Sampling is fanned out across GOMAXPROCS workers via errgroup, a pure
// CPU-bound computation consistent with §5's no-I/O-on-core-path rule.
func monteCarloVaR(ctx context.Context, cfg Config, prices PriceSource, positions []core.Position, seed int64) (varValue, es float64, err error) {
	type weighted struct{ notional, vol float64 }

	var total float64
	ws := make([]weighted, 0, len(positions))
	for _, p := range positions {
		notional := absF(p.Size) * p.AverageEntry
		vol := volatilityOf(prices, cfg, p.Symbol, p.Venue)
		ws = append(ws, weighted{notional: notional, vol: vol})
		total += notional
	}
	if total == 0 {
		return 0, 0, nil
	}

	samples := cfg.MonteCarloSamples
	if samples <= 0 {
		samples = 10_000
	}
	results := make([]float64, samples)

	workers := runtime.GOMAXPROCS(0)
	if workers > samples {
		workers = samples
	}
	if workers < 1 {
		workers = 1
	}
	chunk := (samples + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > samples {
			end = samples
		}
		if start >= end {
			continue
		}
		workerSeed := seed + int64(w)
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			rng := rand.New(rand.NewSource(workerSeed))
			for i := start; i < end; i++ {
				var portfolioReturn float64
				for _, wt := range ws {
					portfolioReturn += (wt.notional / total) * (rng.NormFloat64() * wt.vol)
				}
				results[i] = portfolioReturn
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	sort.Float64s(results)
	tailIndex := int(float64(len(results)) * (1 - cfg.Confidence))
	if tailIndex >= len(results) {
		tailIndex = len(results) - 1
	}
	if tailIndex < 0 {
		tailIndex = 0
	}
	varValue = -results[tailIndex]

	var tailSum float64
	for i := 0; i <= tailIndex; i++ {
		tailSum += results[i]
	}
	es = -tailSum / float64(tailIndex+1)

	return varValue, es, nil
}

// concentrationOf returns the largest single-symbol exposure as a
// fraction of total exposure across the book.
func concentrationOf(positions []core.Position) float64 {
	exposureBySymbol := make(map[string]float64)
	var total float64
	for _, p := range positions {
		notional := absF(p.Size) * p.AverageEntry
		exposureBySymbol[p.Symbol] += notional
		total += notional
	}
	if total == 0 {
		return 0
	}
	var max float64
	for _, v := range exposureBySymbol {
		if v > max {
			max = v
		}
	}
	return max / total
}

// correlationOf returns the mean pairwise Pearson correlation across
// distinct symbols in the book, using for each symbol the price history
// of the venue of the last position listed for it. Falls back to cfg.DefaultCorrelation for any
// pair without at least cfg.MinHistorySamples overlapping samples, and
// returns 0 for a single-symbol book (nothing to correlate against).
func correlationOf(prices PriceSource, cfg Config, positions []core.Position) float64 {
	bySymbol := make(map[string]core.Position)
	for _, p := range positions {
		bySymbol[p.Symbol] = p
	}
	symbols := make([]string, 0, len(bySymbol))
	for s := range bySymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	if len(symbols) < 2 {
		return 0
	}

	var sum float64
	var pairs int
	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			a := prices.RecentPrices(core.CacheKey(symbols[i], bySymbol[symbols[i]].Venue), 1000)
			b := prices.RecentPrices(core.CacheKey(symbols[j], bySymbol[symbols[j]].Venue), 1000)
			n := len(a)
			if len(b) < n {
				n = len(b)
			}
			var corr float64
			if n < cfg.MinHistorySamples {
				corr = cfg.DefaultCorrelation
			} else {
				pa := make([]float64, n)
				pb := make([]float64, n)
				for k := 0; k < n; k++ {
					pa[k] = a[len(a)-n+k].Price
					pb[k] = b[len(b)-n+k].Price
				}
				corr = pearson(pa, pb)
			}
			sum += corr
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return sum / float64(pairs)
}

// liquidityRiskOf returns the mean illiquidity (1 - clamp(volume/1e6, 1))
// across the book's positions, using each position's cached 24h volume —
// the same liquidity-score formula §4.5 uses for opportunities, applied
// here to the realized book instead of candidate legs.
func liquidityRiskOf(prices PriceSource, positions []core.Position) float64 {
	if len(positions) == 0 {
		return 0
	}
	var sum float64
	for _, p := range positions {
		var vol float64
		if q, ok := prices.GetQuote(p.Symbol, p.Venue); ok {
			vol = q.Volume24h
		}
		score := vol / 1e6
		if score > 1 {
			score = 1
		}
		if score < 0 {
			score = 0
		}
		sum += 1 - score
	}
	return sum / float64(len(positions))
}

// fundingRiskOf returns the mean absolute funding rate across the book's
// perpetual positions (0 if none carry a funding rate).
func fundingRiskOf(prices PriceSource, positions []core.Position) float64 {
	var sum float64
	var n int
	for _, p := range positions {
		q, ok := prices.GetQuote(p.Symbol, p.Venue)
		if !ok || q.FundingRate == nil {
			continue
		}
		sum += absF(*q.FundingRate)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// drawdownOf mirrors the teacher's CalculateDrawdown: tracks the running
// peak of an equity curve and returns the current and maximum
// peak-to-trough decline.
func drawdownOf(equityCurve []float64) (currentDD, maxDD float64) {
	if len(equityCurve) == 0 {
		return 0, 0
	}
	peak := equityCurve[0]
	for _, equity := range equityCurve {
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			dd := (peak - equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	current := equityCurve[len(equityCurve)-1]
	if current < peak && peak > 0 {
		currentDD = (peak - current) / peak
	}
	return currentDD, maxDD
}

func exposureOf(positions []core.Position) (total float64) {
	for _, p := range positions {
		total += absF(p.Size) * p.AverageEntry
	}
	return total
}
