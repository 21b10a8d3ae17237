package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/arbctl/internal/core"
)

func TestPostgresStore_InsertTrade_DuplicateMapsToErrDuplicateTrade(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresStoreFromPool(mock)
	tr := core.TradeRecord{TradeID: "t1", Venue: "A", Symbol: "BTC-USD", Action: core.ActionBuy, EntryTime: time.Now()}

	mock.ExpectExec("INSERT INTO trades").
		WithArgs(tr.TradeID, tr.PlanID, tr.Venue, tr.Symbol, string(tr.Action), tr.Quantity, tr.EntryPrice, tr.EntryTime, tr.ExitPrice, tr.ExitTime, tr.RealizedPnL, tr.TotalCosts).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = s.InsertTrade(context.Background(), tr)
	assert.ErrorIs(t, err, ErrDuplicateTrade)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertTrade_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresStoreFromPool(mock)
	tr := core.TradeRecord{TradeID: "t2", Venue: "A", Symbol: "ETH-USD", Action: core.ActionSell, EntryTime: time.Now()}

	mock.ExpectExec("INSERT INTO trades").
		WithArgs(tr.TradeID, tr.PlanID, tr.Venue, tr.Symbol, string(tr.Action), tr.Quantity, tr.EntryPrice, tr.EntryTime, tr.ExitPrice, tr.ExitTime, tr.RealizedPnL, tr.TotalCosts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.InsertTrade(context.Background(), tr))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Trades_ScansRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresStoreFromPool(mock)
	since := time.Now().Add(-time.Hour)
	entryTime := time.Now()

	rows := pgxmock.NewRows([]string{"trade_id", "plan_id", "venue", "symbol", "action", "quantity", "entry_price", "entry_time", "exit_price", "exit_time", "realized_pnl", "total_costs"}).
		AddRow("t1", "", "A", "BTC-USD", "Buy", 1.0, 50_000.0, entryTime, nil, nil, nil, 5.0)

	mock.ExpectQuery("SELECT trade_id").WithArgs(since).WillReturnRows(rows)

	trades, err := s.Trades(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "t1", trades[0].TradeID)
	assert.Equal(t, core.ActionBuy, trades[0].Action)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ActivePositions_ScansRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresStoreFromPool(mock)
	now := time.Now()

	rows := pgxmock.NewRows([]string{"symbol", "venue", "size", "average_entry", "current_mark", "cost_basis", "opened_at", "last_update_at", "active", "strategy"}).
		AddRow("BTC-USD", "A", 1.0, 50_000.0, 50_100.0, 50_000.0, now, now, true, "spot_perp")

	mock.ExpectQuery("SELECT symbol, venue").WillReturnRows(rows)

	positions, err := s.ActivePositions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "BTC-USD", positions[0].Symbol)
	require.NoError(t, mock.ExpectationsWereMet())
}
