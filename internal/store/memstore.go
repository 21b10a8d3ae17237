package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ajitpratap0/arbctl/internal/core"
)

// MemStore is an in-memory Store for tests and single-process
// deployments: append-only slices guarded by a mutex, readers take a
// copied-slice snapshot (internal/db's append+snapshot pattern, §6).
type MemStore struct {
	mu         sync.Mutex
	trades     map[string]core.TradeRecord
	tradeOrder []string
	snapshots  []core.PnLSnapshot
	positions  map[string]core.Position
}

// NewMemStore builds an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		trades:    make(map[string]core.TradeRecord),
		positions: make(map[string]core.Position),
	}
}

func (s *MemStore) InsertTrade(_ context.Context, t core.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.trades[t.TradeID]; exists {
		return ErrDuplicateTrade
	}
	s.trades[t.TradeID] = t
	s.tradeOrder = append(s.tradeOrder, t.TradeID)
	return nil
}

func (s *MemStore) UpdateTrade(_ context.Context, t core.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, exists := s.trades[t.TradeID]
	if !exists {
		return nil
	}
	existing.ExitPrice = t.ExitPrice
	existing.ExitTime = t.ExitTime
	existing.RealizedPnL = t.RealizedPnL
	existing.TotalCosts = t.TotalCosts
	s.trades[t.TradeID] = existing
	return nil
}

func (s *MemStore) Trades(_ context.Context, since time.Time) ([]core.TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.TradeRecord, 0, len(s.tradeOrder))
	for _, id := range s.tradeOrder {
		t := s.trades[id]
		if t.EntryTime.Before(since) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryTime.Before(out[j].EntryTime) })
	return out, nil
}

func (s *MemStore) InsertSnapshot(_ context.Context, snap core.PnLSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snap)
	return nil
}

func (s *MemStore) Snapshots(_ context.Context, since time.Time) ([]core.PnLSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.PnLSnapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		if snap.Timestamp.Before(since) {
			continue
		}
		out = append(out, snap)
	}
	return out, nil
}

func (s *MemStore) PruneSnapshots(_ context.Context, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.snapshots[:0]
	for _, snap := range s.snapshots {
		if snap.Timestamp.Before(before) {
			continue
		}
		kept = append(kept, snap)
	}
	s.snapshots = kept
	return nil
}

func (s *MemStore) UpsertPosition(_ context.Context, p core.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[core.CacheKey(p.Symbol, p.Venue)] = p
	return nil
}

func (s *MemStore) ActivePositions(_ context.Context) ([]core.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Position, 0, len(s.positions))
	for _, p := range s.positions {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemStore) Close() {}
