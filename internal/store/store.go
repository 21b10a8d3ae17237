// Package store defines the persistence boundary for trade records,
// P&L snapshots, and positions, implemented by a Postgres-backed
// PostgresStore (pgx/v5) and an in-memory MemStore used in tests,
// mirroring internal/db's append+snapshot read pattern translated to
// an in-process store (§6).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ajitpratap0/arbctl/internal/core"
)

// ErrDuplicateTrade is returned when InsertTrade is called twice with the
// same TradeID: trades are append-only and insertion is at-most-once
// per trade_id (§6).
var ErrDuplicateTrade = errors.New("store: trade already recorded")

// Store is the persistence boundary the P&L Tracker and Position Manager
// consume. Implementations must enforce at-most-once insertion per
// TradeID (unique index in Postgres, map check in MemStore).
type Store interface {
	// InsertTrade appends an immutable trade record. Returns
	// ErrDuplicateTrade if TradeID was already recorded.
	InsertTrade(ctx context.Context, t core.TradeRecord) error
	// UpdateTrade updates the close-out fields of a previously inserted
	// trade (exit price/time/realized P&L); it never rewrites entry
	// fields.
	UpdateTrade(ctx context.Context, t core.TradeRecord) error
	// Trades returns every trade with EntryTime at or after since,
	// oldest first.
	Trades(ctx context.Context, since time.Time) ([]core.TradeRecord, error)

	// InsertSnapshot appends a P&L snapshot.
	InsertSnapshot(ctx context.Context, s core.PnLSnapshot) error
	// Snapshots returns every snapshot at or after since, oldest first.
	Snapshots(ctx context.Context, since time.Time) ([]core.PnLSnapshot, error)
	// PruneSnapshots deletes snapshots older than before.
	PruneSnapshots(ctx context.Context, before time.Time) error

	// UpsertPosition persists the current state of a position keyed by
	// (symbol, venue).
	UpsertPosition(ctx context.Context, p core.Position) error
	// ActivePositions returns every position with Active == true.
	ActivePositions(ctx context.Context) ([]core.Position, error)

	// Close releases any underlying resources.
	Close()
}
