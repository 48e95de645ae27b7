// Command backfill loads monthly yellow-taxi trip files into the
// warehouse. Months are selected with --months (or BACKFILL_MONTHS):
// "all", "last_N_months" or an explicit "YYYY-MM,YYYY-MM" list. Re-running
// a spec is safe: completed months are skipped via the processing ledger
// and replayed data dedups on content hash.
package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/nyc-taxi-pipeline/internal/config"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/dimensions"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/infra/postgres"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/ledger"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/logger"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/metrics"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/pipeline"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/refdata"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/tripdata"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	months := flag.String("months", cfg.BackfillSpec, "months to backfill: all, last_N_months or YYYY-MM[,YYYY-MM...]")
	flag.Parse()

	// Cancel on interrupt so a killed run leaves a resumable ledger.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	metrics.Serve(ctx, cfg.MetricsPort, log)

	pool, err := postgres.Connect(ctx, cfg.ConnString())
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to warehouse")
	}
	defer pool.Close()

	dims := postgres.NewDimensionStore(pool)
	cache, err := dimensions.Load(ctx, dims)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load dimension cache, run refdata first")
	}
	locations, vendors, payments, rates := cache.Sizes()
	log.Info().
		Int("locations", locations).
		Int("vendors", vendors).
		Int("payment_types", payments).
		Int("rate_codes", rates).
		Msg("dimension cache loaded")

	httpClient := &http.Client{Timeout: 30 * time.Minute}
	fetcher := refdata.NewFetcher(httpClient, cfg.DataDir)
	maint := postgres.NewMaintenanceStore(pool)

	pl := pipeline.New(pipeline.Params{
		Trips:     postgres.NewTripStore(pool),
		Facts:     postgres.NewFactStore(pool),
		Invalid:   postgres.NewInvalidStore(pool),
		Quality:   postgres.NewQualityStore(pool),
		Maint:     maint,
		Verify:    maint,
		Ledger:    ledger.New(postgres.NewLedgerStore(pool)),
		Cache:     cache,
		Source:    tripdata.NewSource(fetcher, cfg.TripDataBaseURL),
		ChunkSize: cfg.ChunkSize,
	})

	summary, err := pl.Run(ctx, *months)
	if err != nil {
		log.Fatal().Err(err).Str("run_id", summary.RunID).Msg("backfill aborted")
	}
	if summary.MonthsFailed > 0 {
		log.Error().
			Str("run_id", summary.RunID).
			Int("months_failed", summary.MonthsFailed).
			Msg("backfill finished with failed months")
		return
	}
	log.Info().Str("run_id", summary.RunID).Msg("backfill succeeded")
}
