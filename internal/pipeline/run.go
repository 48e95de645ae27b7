// Package pipeline orchestrates the monthly backfill: planning the month
// partitions, fetching source files, loading chunks and keeping the
// processing ledger consistent with what actually landed.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/nyc-taxi-pipeline/internal/dimensions"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/domain"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/ledger"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/logger"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/metrics"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/planner"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/tripdata"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/warehouse"
)

// MonthSource resolves a month partition to a local parquet file.
type MonthSource interface {
	EnsureMonthFile(ctx context.Context, year, month int) (string, error)
}

// ReadFunc streams a parquet file in chunks. Injectable so tests can feed
// synthetic chunks without real files.
type ReadFunc func(ctx context.Context, path string, chunkSize int, fn tripdata.ChunkFunc) error

// Params carries every collaborator the pipeline needs.
type Params struct {
	Trips   warehouse.TripStore
	Facts   warehouse.FactStore
	Invalid warehouse.InvalidStore
	Quality warehouse.QualityStore
	Maint   warehouse.Maintenance
	Verify  warehouse.Verifier
	Ledger  *ledger.Ledger
	Cache   *dimensions.Cache
	Source  MonthSource

	ChunkSize int

	// Read defaults to tripdata.ReadFile; Now defaults to time.Now.
	Read ReadFunc
	Now  func() time.Time
}

// Pipeline runs backfills. Each Run gets a fresh run id; month partitions
// are processed independently so one bad month never blocks the rest,
// except for storage outages which abort the whole run.
type Pipeline struct {
	p Params
}

func New(p Params) *Pipeline {
	if p.Read == nil {
		p.Read = tripdata.ReadFile
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &Pipeline{p: p}
}

// Summary aggregates a whole run.
type Summary struct {
	RunID           string
	MonthsPlanned   int
	MonthsCompleted int
	MonthsSkipped   int
	MonthsFailed    int

	RowsAttempted int
	RowsInserted  int
	RowsDuplicate int
	RowsInvalid   int
	FactsInserted int
}

// Run executes a backfill for the given month spec. The returned error is
// non-nil only for infrastructure failures that aborted the run; data
// problems are quarantined and reflected in the summary.
func (pl *Pipeline) Run(ctx context.Context, spec string) (Summary, error) {
	runID := uuid.NewString()
	log := logger.WithRun(logger.FromContext(ctx), runID)
	ctx = logger.WithContext(ctx, log)

	summary := Summary{RunID: runID}
	months := planner.Plan(spec, pl.p.Now(), log)
	summary.MonthsPlanned = len(months)
	if len(months) == 0 {
		log.Warn().Str("spec", spec).Msg("no months to process")
		return summary, nil
	}
	log.Info().Str("spec", spec).Int("months", len(months)).Msg("backfill starting")

	for _, m := range months {
		mlog := logger.WithMonth(log, m.Year, m.Month)
		mctx := logger.WithContext(ctx, mlog)

		res, skipped, err := pl.processMonth(mctx, runID, spec, m)
		summary.RowsAttempted += res.Attempted
		summary.RowsInserted += res.Inserted
		summary.RowsDuplicate += res.Duplicate
		summary.RowsInvalid += res.Invalid
		summary.FactsInserted += res.FactsInserted

		switch {
		case err != nil:
			summary.MonthsFailed++
			metrics.MonthsTotal.WithLabelValues("failed").Inc()
			// A storage outage will fail every remaining month the
			// same way; stop instead of burning through the plan.
			if warehouse.IsUnavailable(err) {
				return summary, fmt.Errorf("pipeline.Run: %s: %w", m, err)
			}
			mlog.Error().Err(err).Msg("month failed")
		case skipped:
			summary.MonthsSkipped++
			metrics.MonthsTotal.WithLabelValues("skipped").Inc()
			mlog.Info().Msg("month already completed, skipping")
		default:
			summary.MonthsCompleted++
			metrics.MonthsTotal.WithLabelValues("completed").Inc()
			mlog.Info().
				Int("inserted", res.Inserted).
				Int("duplicate", res.Duplicate).
				Int("invalid", res.Invalid).
				Msg("month completed")
		}
	}

	pl.logFinalCounts(ctx, summary)
	return summary, nil
}

// processMonth loads one partition end to end. skipped is true when the
// ledger already records the month as completed.
func (pl *Pipeline) processMonth(ctx context.Context, runID, spec string, m planner.Month) (ChunkResult, bool, error) {
	var totals ChunkResult

	done, err := pl.p.Ledger.IsMonthDone(ctx, m.Year, m.Month)
	if err != nil {
		return totals, false, fmt.Errorf("ledger check: %w", err)
	}
	if done {
		return totals, true, nil
	}

	downloadStart := pl.p.Now()
	path, err := pl.p.Source.EnsureMonthFile(ctx, m.Year, m.Month)
	if err != nil {
		return totals, false, fmt.Errorf("source file: %w", err)
	}
	metrics.DownloadDurationSeconds.Observe(pl.p.Now().Sub(downloadStart).Seconds())

	if err := pl.p.Ledger.Begin(ctx, m.Year, m.Month, filepath.Base(path), spec); err != nil {
		return totals, false, fmt.Errorf("ledger begin: %w", err)
	}

	winMin, winMax := planner.Window(pl.p.Now())
	loader := NewChunkLoader(pl.p.Trips, pl.p.Facts, pl.p.Invalid, pl.p.Quality, pl.p.Cache, runID, winMin, winMax)
	readErr := pl.p.Read(ctx, path, pl.p.ChunkSize, func(chunkIndex int, trips []domain.TripRecord) error {
		res, err := loader.Load(ctx, filepath.Base(path), chunkIndex, trips)
		totals.Attempted += res.Attempted
		totals.Inserted += res.Inserted
		totals.Duplicate += res.Duplicate
		totals.Invalid += res.Invalid
		totals.FactsInserted += res.FactsInserted
		return err
	})
	if readErr != nil {
		pl.failMonth(ctx, m)
		return totals, false, readErr
	}

	// Index rebuilds only pay off when the partition gained rows.
	if totals.Inserted > 0 {
		if err := pl.p.Maint.RebuildTripIndexes(ctx, m.Year, m.Month); err != nil {
			pl.failMonth(ctx, m)
			return totals, false, fmt.Errorf("rebuild indexes: %w", err)
		}
	}

	if err := pl.p.Ledger.Complete(ctx, m.Year, m.Month, int64(totals.Inserted)); err != nil {
		return totals, false, fmt.Errorf("ledger complete: %w", err)
	}
	return totals, false, nil
}

// failMonth is best effort: when the failure is a storage outage the
// ledger write usually fails too, and the stale in_progress row is
// reclaimed on the next run.
func (pl *Pipeline) failMonth(ctx context.Context, m planner.Month) {
	if err := pl.p.Ledger.Fail(ctx, m.Year, m.Month); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("could not mark month failed")
	}
}

func (pl *Pipeline) logFinalCounts(ctx context.Context, summary Summary) {
	log := logger.FromContext(ctx)
	ev := log.Info().
		Int("months_completed", summary.MonthsCompleted).
		Int("months_skipped", summary.MonthsSkipped).
		Int("months_failed", summary.MonthsFailed).
		Int("rows_inserted", summary.RowsInserted).
		Int("rows_duplicate", summary.RowsDuplicate).
		Int("rows_invalid", summary.RowsInvalid).
		Int("facts_inserted", summary.FactsInserted)

	for _, table := range []string{warehouse.TableTrips, warehouse.TableFacts, warehouse.TableInvalid} {
		count, err := pl.p.Verify.CountRows(ctx, table)
		if err != nil {
			log.Warn().Err(err).Str("table", table).Msg("could not verify row count")
			continue
		}
		ev = ev.Int64(table+"_rows", count)
	}
	ev.Msg("backfill finished")
}
