// Package postgres is the pgx-backed implementation of the warehouse
// storage contracts.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dvloznov/nyc-taxi-pipeline/internal/logger"
)

const (
	connectAttempts = 30
	connectBackoff  = 2 * time.Second
)

// Connect opens a connection pool and waits for the database to become
// reachable. The backfill typically starts together with the database
// container, so the first pings are expected to fail.
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("postgres.Connect: parse config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.Connect: create pool: %w", err)
	}

	log := logger.FromContext(ctx)
	var pingErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pingErr = pool.Ping(ctx)
		if pingErr == nil {
			log.Info().Str("host", cfg.ConnConfig.Host).Msg("connected to warehouse")
			return pool, nil
		}
		log.Warn().Err(pingErr).Int("attempt", attempt).Msg("warehouse not ready, retrying")
		select {
		case <-ctx.Done():
			pool.Close()
			return nil, fmt.Errorf("postgres.Connect: %w", ctx.Err())
		case <-time.After(connectBackoff):
		}
	}
	pool.Close()
	return nil, fmt.Errorf("postgres.Connect: database unreachable after %d attempts: %w", connectAttempts, pingErr)
}
