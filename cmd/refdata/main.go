// Command refdata refreshes the warehouse dimensions from published
// reference data: the TLC taxi zone lookup CSV, the zone shapefile
// archive and the static vendor, payment-type and rate-code lists.
// Dimensions are truncated and reloaded, so run it before the first
// backfill and whenever the TLC publishes updated zones.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/nyc-taxi-pipeline/internal/config"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/infra/postgres"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/logger"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/refdata"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	pool, err := postgres.Connect(ctx, cfg.ConnString())
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to warehouse")
	}
	defer pool.Close()

	dims := postgres.NewDimensionStore(pool)
	loader := refdata.NewLoader(
		refdata.NewFetcher(&http.Client{Timeout: 5 * time.Minute}, cfg.DataDir),
		dims,
		postgres.NewMaintenanceStore(pool),
		cfg.ZoneLookupURL,
		cfg.ZoneShapesURL,
	)

	if err := loader.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("reference data load failed")
	}
	log.Info().Msg("reference data loaded")
}
