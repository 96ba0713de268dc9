// Package database provides PostgreSQL connection management using pgx.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Options holds pool settings resolved by the config package.
type Options struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	ConnectAttempts int
	RetryDelay      time.Duration
}

// NewPool creates and validates a pgxpool connection pool.
// It retries to accommodate a database container that is still starting.
func NewPool(ctx context.Context, opts Options) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	poolCfg.MaxConns = opts.MaxConns
	poolCfg.MinConns = opts.MinConns
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	attempts := max(opts.ConnectAttempts, 1)

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= attempts; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		slog.Warn("db connect attempt failed",
			"attempt", attempt, "of", attempts, "retry_in", opts.RetryDelay.String(), "err", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.RetryDelay):
		}
	}
	return nil, fmt.Errorf("connect to postgres: %w", err)
}

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	capacity    INTEGER NOT NULL CHECK (capacity >= 0),
	total_slots INTEGER NOT NULL CHECK (total_slots >= 0),
	description TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS reservations (
	id         TEXT PRIMARY KEY,
	room_id    TEXT NOT NULL REFERENCES rooms (id) ON DELETE CASCADE,
	owner_id   TEXT NOT NULL,
	title      TEXT NOT NULL,
	start_time TIMESTAMP NOT NULL,
	end_time   TIMESTAMP NOT NULL,
	purpose    TEXT NOT NULL DEFAULT '',
	attendees  INTEGER NOT NULL DEFAULT 1 CHECK (attendees >= 1),
	created_at TIMESTAMP NOT NULL,
	CHECK (start_time < end_time)
);

CREATE INDEX IF NOT EXISTS reservations_room_window_idx ON reservations (room_id, start_time, end_time);
CREATE INDEX IF NOT EXISTS reservations_end_time_idx ON reservations (end_time);
CREATE INDEX IF NOT EXISTS reservations_owner_idx ON reservations (owner_id);
`

// EnsureSchema creates the tables and indexes if they are missing.
// Timestamps are stored without time zone: the service works in naive local time.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
