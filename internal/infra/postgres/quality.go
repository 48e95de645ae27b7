package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dvloznov/nyc-taxi-pipeline/internal/domain"
)

const insertQualitySQL = `
	INSERT INTO nyc_taxi.data_quality_log (
		run_id, source_file, operation, target_table, chunk_index,
		rows_attempted, rows_inserted, rows_duplicate, rows_invalid,
		duration_ms, error_types, sample_error,
		min_pickup_time, max_pickup_time, avg_total_amount
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

// QualityStore appends audit rows to data_quality_log. The log is
// append-only; rows are never updated or deleted by the pipeline.
type QualityStore struct {
	pool *pgxpool.Pool
}

func NewQualityStore(pool *pgxpool.Pool) *QualityStore {
	return &QualityStore{pool: pool}
}

func (s *QualityStore) Append(ctx context.Context, m domain.QualityMetric) error {
	var minPickup, maxPickup any
	if !m.MinPickupTime.IsZero() {
		minPickup = m.MinPickupTime
	}
	if !m.MaxPickupTime.IsZero() {
		maxPickup = m.MaxPickupTime
	}
	errorTypes := m.ErrorTypes
	if errorTypes == nil {
		errorTypes = []string{}
	}

	_, err := s.pool.Exec(ctx, insertQualitySQL,
		m.RunID, m.SourceFile, m.Operation, m.TargetTable, m.ChunkIndex,
		m.RowsAttempted, m.RowsInserted, m.RowsDuplicate, m.RowsInvalid,
		m.Duration.Milliseconds(), errorTypes, m.SampleError,
		minPickup, maxPickup, m.AvgTotalAmount,
	)
	if err != nil {
		return classify("quality append", err)
	}
	return nil
}
