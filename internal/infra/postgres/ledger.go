package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dvloznov/nyc-taxi-pipeline/internal/ledger"
)

// LedgerStore persists month processing state in etl_processing_log.
type LedgerStore struct {
	pool *pgxpool.Pool
}

func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

func (s *LedgerStore) GetMonth(ctx context.Context, year, month int) (ledger.Entry, error) {
	const q = `
		SELECT state, source_file, backfill_spec, rows_loaded, completed_at
		FROM nyc_taxi.etl_processing_log
		WHERE year = $1 AND month = $2`

	e := ledger.Entry{Year: year, Month: month, State: ledger.StateNone}
	var (
		state       string
		completedAt sql.NullTime
	)
	err := s.pool.QueryRow(ctx, q, year, month).
		Scan(&state, &e.SourceFile, &e.BackfillSpec, &e.RowsLoaded, &completedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return e, nil
	}
	if err != nil {
		return ledger.Entry{}, classify("ledger get month", err)
	}
	e.State = ledger.State(state)
	if completedAt.Valid {
		e.CompletedAt = completedAt.Time
	}
	return e, nil
}

func (s *LedgerStore) DeleteMonth(ctx context.Context, year, month int) error {
	const q = `DELETE FROM nyc_taxi.etl_processing_log WHERE year = $1 AND month = $2`
	if _, err := s.pool.Exec(ctx, q, year, month); err != nil {
		return classify("ledger delete month", err)
	}
	return nil
}

func (s *LedgerStore) InsertInProgress(ctx context.Context, e ledger.Entry) error {
	const q = `
		INSERT INTO nyc_taxi.etl_processing_log
			(year, month, state, source_file, backfill_spec, rows_loaded, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6)`
	_, err := s.pool.Exec(ctx, q, e.Year, e.Month, string(ledger.StateInProgress),
		e.SourceFile, e.BackfillSpec, time.Now().UTC())
	if err != nil {
		return classify("ledger insert in progress", err)
	}
	return nil
}

func (s *LedgerStore) MarkCompleted(ctx context.Context, year, month int, rowsLoaded int64) error {
	const q = `
		UPDATE nyc_taxi.etl_processing_log
		SET state = $3, rows_loaded = $4, completed_at = $5, updated_at = $5
		WHERE year = $1 AND month = $2`
	_, err := s.pool.Exec(ctx, q, year, month, string(ledger.StateCompleted), rowsLoaded, time.Now().UTC())
	if err != nil {
		return classify("ledger mark completed", err)
	}
	return nil
}

func (s *LedgerStore) MarkFailed(ctx context.Context, year, month int) error {
	const q = `
		UPDATE nyc_taxi.etl_processing_log
		SET state = $3, updated_at = $4
		WHERE year = $1 AND month = $2`
	_, err := s.pool.Exec(ctx, q, year, month, string(ledger.StateFailed), time.Now().UTC())
	if err != nil {
		return classify("ledger mark failed", err)
	}
	return nil
}
