package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/arbctl/internal/core"
)

func TestMemStore_InsertTrade_DuplicateTradeIDRejected(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	tr := core.TradeRecord{TradeID: "t1", Symbol: "BTC-USD", EntryTime: time.Now()}

	require.NoError(t, s.InsertTrade(ctx, tr))
	err := s.InsertTrade(ctx, tr)
	assert.ErrorIs(t, err, ErrDuplicateTrade)
}

func TestMemStore_Trades_FiltersAndOrdersBySince(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.InsertTrade(ctx, core.TradeRecord{TradeID: "old", EntryTime: now.Add(-time.Hour)}))
	require.NoError(t, s.InsertTrade(ctx, core.TradeRecord{TradeID: "new", EntryTime: now}))

	trades, err := s.Trades(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "new", trades[0].TradeID)
}

func TestMemStore_PruneSnapshots_RemovesOlderThanCutoff(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.InsertSnapshot(ctx, core.PnLSnapshot{Timestamp: now.Add(-48 * time.Hour)}))
	require.NoError(t, s.InsertSnapshot(ctx, core.PnLSnapshot{Timestamp: now}))

	require.NoError(t, s.PruneSnapshots(ctx, now.Add(-24*time.Hour)))

	snaps, err := s.Snapshots(ctx, now.Add(-72*time.Hour))
	require.NoError(t, err)
	require.Len(t, snaps, 1)
}

func TestMemStore_ActivePositions_OnlyReturnsActive(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.UpsertPosition(ctx, core.Position{Symbol: "BTC-USD", Venue: "A", Active: true}))
	require.NoError(t, s.UpsertPosition(ctx, core.Position{Symbol: "ETH-USD", Venue: "A", Active: false}))

	positions, err := s.ActivePositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "BTC-USD", positions[0].Symbol)
}

func TestMemStore_UpsertPosition_OverwritesBySymbolVenue(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.UpsertPosition(ctx, core.Position{Symbol: "BTC-USD", Venue: "A", Size: 1, Active: true}))
	require.NoError(t, s.UpsertPosition(ctx, core.Position{Symbol: "BTC-USD", Venue: "A", Size: 2, Active: true}))

	positions, err := s.ActivePositions(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, 2.0, positions[0].Size)
}
