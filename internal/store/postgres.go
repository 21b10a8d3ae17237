package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/ajitpratap0/arbctl/internal/core"
)

// pgPool is the subset of *pgxpool.Pool the store needs, narrow enough
// that pgxmock's mock pool satisfies it in tests.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id     TEXT PRIMARY KEY,
	plan_id      TEXT,
	venue        TEXT NOT NULL,
	symbol       TEXT NOT NULL,
	action       TEXT NOT NULL,
	quantity     DOUBLE PRECISION NOT NULL,
	entry_price  DOUBLE PRECISION NOT NULL,
	entry_time   TIMESTAMPTZ NOT NULL,
	exit_price   DOUBLE PRECISION,
	exit_time    TIMESTAMPTZ,
	realized_pnl DOUBLE PRECISION,
	total_costs  DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS trades_entry_time_idx ON trades (entry_time);

CREATE TABLE IF NOT EXISTS pnl_snapshots (
	id             BIGSERIAL PRIMARY KEY,
	taken_at       TIMESTAMPTZ NOT NULL,
	equity         DOUBLE PRECISION NOT NULL,
	realized_pnl   DOUBLE PRECISION NOT NULL,
	unrealized_pnl DOUBLE PRECISION NOT NULL,
	open_positions INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS pnl_snapshots_taken_at_idx ON pnl_snapshots (taken_at);

CREATE TABLE IF NOT EXISTS positions (
	symbol         TEXT NOT NULL,
	venue          TEXT NOT NULL,
	size           DOUBLE PRECISION NOT NULL,
	average_entry  DOUBLE PRECISION NOT NULL,
	current_mark   DOUBLE PRECISION NOT NULL,
	cost_basis     DOUBLE PRECISION NOT NULL,
	opened_at      TIMESTAMPTZ NOT NULL,
	last_update_at TIMESTAMPTZ NOT NULL,
	active         BOOLEAN NOT NULL,
	strategy       TEXT NOT NULL,
	PRIMARY KEY (symbol, venue)
);
`

// PostgresStore is a pgx/v5-backed Store. Every call is routed through a
// gobreaker circuit breaker so a degraded database fails fast instead of
// piling up blocked callers, following internal/risk's CircuitBreakerManager
// per-service breaker shape.
type PostgresStore struct {
	pool pgPool
	cb   *gobreaker.CircuitBreaker
}

// NewPostgresStore opens a pool against dsn and ensures the schema exists.
func NewPostgresStore(ctx context.Context, dsn string, maxConns int32) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("store: parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	s := newPostgresStoreFromPool(pool)
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreFromPool builds a PostgresStore around an existing pool,
// used by tests to inject a pgxmock pool. The schema is assumed to exist
// already; callers that need it created should call migrate themselves
// against a real pool.
func NewPostgresStoreFromPool(pool pgPool) *PostgresStore {
	return newPostgresStoreFromPool(pool)
}

func newPostgresStoreFromPool(pool pgPool) *PostgresStore {
	return &PostgresStore{
		pool: pool,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "store.postgres",
			MaxRequests: 5,
			Interval:    10 * time.Second,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.Requests >= 10 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
			},
		}),
	}
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaDDL)
	if err != nil {
		return fmt.Errorf("store: migrate schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) exec(ctx context.Context, op func() (interface{}, error)) error {
	_, err := s.cb.Execute(op)
	if errors.Is(err, gobreaker.ErrOpenState) {
		return fmt.Errorf("store: circuit open: %w", err)
	}
	return err
}

func (s *PostgresStore) InsertTrade(ctx context.Context, t core.TradeRecord) error {
	return s.exec(ctx, func() (interface{}, error) {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO trades (trade_id, plan_id, venue, symbol, action, quantity, entry_price, entry_time, exit_price, exit_time, realized_pnl, total_costs)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, t.TradeID, t.PlanID, t.Venue, t.Symbol, string(t.Action), t.Quantity, t.EntryPrice, t.EntryTime, t.ExitPrice, t.ExitTime, t.RealizedPnL, t.TotalCosts)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return nil, ErrDuplicateTrade
			}
			return nil, fmt.Errorf("store: insert trade: %w", err)
		}
		return nil, nil
	})
}

func (s *PostgresStore) UpdateTrade(ctx context.Context, t core.TradeRecord) error {
	return s.exec(ctx, func() (interface{}, error) {
		_, err := s.pool.Exec(ctx, `
			UPDATE trades SET exit_price = $2, exit_time = $3, realized_pnl = $4, total_costs = $5
			WHERE trade_id = $1
		`, t.TradeID, t.ExitPrice, t.ExitTime, t.RealizedPnL, t.TotalCosts)
		if err != nil {
			return nil, fmt.Errorf("store: update trade: %w", err)
		}
		return nil, nil
	})
}

func (s *PostgresStore) Trades(ctx context.Context, since time.Time) ([]core.TradeRecord, error) {
	var out []core.TradeRecord
	err := s.exec(ctx, func() (interface{}, error) {
		rows, err := s.pool.Query(ctx, `
			SELECT trade_id, plan_id, venue, symbol, action, quantity, entry_price, entry_time, exit_price, exit_time, realized_pnl, total_costs
			FROM trades WHERE entry_time >= $1 ORDER BY entry_time ASC
		`, since)
		if err != nil {
			return nil, fmt.Errorf("store: query trades: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var t core.TradeRecord
			var action string
			if err := rows.Scan(&t.TradeID, &t.PlanID, &t.Venue, &t.Symbol, &action, &t.Quantity, &t.EntryPrice, &t.EntryTime, &t.ExitPrice, &t.ExitTime, &t.RealizedPnL, &t.TotalCosts); err != nil {
				return nil, fmt.Errorf("store: scan trade: %w", err)
			}
			t.Action = core.Action(action)
			out = append(out, t)
		}
		return nil, rows.Err()
	})
	return out, err
}

func (s *PostgresStore) InsertSnapshot(ctx context.Context, snap core.PnLSnapshot) error {
	return s.exec(ctx, func() (interface{}, error) {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO pnl_snapshots (taken_at, equity, realized_pnl, unrealized_pnl, open_positions)
			VALUES ($1, $2, $3, $4, $5)
		`, snap.Timestamp, snap.Equity, snap.RealizedPnL, snap.UnrealizedPnL, snap.OpenPositions)
		if err != nil {
			return nil, fmt.Errorf("store: insert snapshot: %w", err)
		}
		return nil, nil
	})
}

func (s *PostgresStore) Snapshots(ctx context.Context, since time.Time) ([]core.PnLSnapshot, error) {
	var out []core.PnLSnapshot
	err := s.exec(ctx, func() (interface{}, error) {
		rows, err := s.pool.Query(ctx, `
			SELECT taken_at, equity, realized_pnl, unrealized_pnl, open_positions
			FROM pnl_snapshots WHERE taken_at >= $1 ORDER BY taken_at ASC
		`, since)
		if err != nil {
			return nil, fmt.Errorf("store: query snapshots: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var snap core.PnLSnapshot
			if err := rows.Scan(&snap.Timestamp, &snap.Equity, &snap.RealizedPnL, &snap.UnrealizedPnL, &snap.OpenPositions); err != nil {
				return nil, fmt.Errorf("store: scan snapshot: %w", err)
			}
			out = append(out, snap)
		}
		return nil, rows.Err()
	})
	return out, err
}

func (s *PostgresStore) PruneSnapshots(ctx context.Context, before time.Time) error {
	return s.exec(ctx, func() (interface{}, error) {
		_, err := s.pool.Exec(ctx, `DELETE FROM pnl_snapshots WHERE taken_at < $1`, before)
		if err != nil {
			return nil, fmt.Errorf("store: prune snapshots: %w", err)
		}
		return nil, nil
	})
}

func (s *PostgresStore) UpsertPosition(ctx context.Context, p core.Position) error {
	return s.exec(ctx, func() (interface{}, error) {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO positions (symbol, venue, size, average_entry, current_mark, cost_basis, opened_at, last_update_at, active, strategy)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (symbol, venue) DO UPDATE SET
				size = EXCLUDED.size, average_entry = EXCLUDED.average_entry, current_mark = EXCLUDED.current_mark,
				cost_basis = EXCLUDED.cost_basis, last_update_at = EXCLUDED.last_update_at, active = EXCLUDED.active,
				strategy = EXCLUDED.strategy
		`, p.Symbol, p.Venue, p.Size, p.AverageEntry, p.CurrentMark, p.CostBasis, p.OpenedAt, p.LastUpdateAt, p.Active, p.Strategy)
		if err != nil {
			return nil, fmt.Errorf("store: upsert position: %w", err)
		}
		return nil, nil
	})
}

func (s *PostgresStore) ActivePositions(ctx context.Context) ([]core.Position, error) {
	var out []core.Position
	err := s.exec(ctx, func() (interface{}, error) {
		rows, err := s.pool.Query(ctx, `
			SELECT symbol, venue, size, average_entry, current_mark, cost_basis, opened_at, last_update_at, active, strategy
			FROM positions WHERE active = TRUE
		`)
		if err != nil {
			return nil, fmt.Errorf("store: query positions: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var p core.Position
			if err := rows.Scan(&p.Symbol, &p.Venue, &p.Size, &p.AverageEntry, &p.CurrentMark, &p.CostBasis, &p.OpenedAt, &p.LastUpdateAt, &p.Active, &p.Strategy); err != nil {
				return nil, fmt.Errorf("store: scan position: %w", err)
			}
			out = append(out, p)
		}
		return nil, rows.Err()
	})
	return out, err
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
		log.Info().Msg("store: postgres pool closed")
	}
}
