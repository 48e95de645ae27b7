package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dvloznov/nyc-taxi-pipeline/internal/domain"
)

const insertInvalidSQL = `
	INSERT INTO nyc_taxi.invalid_taxi_trips (
		error_type, error_message, source_file, chunk_index, row_index, raw_record
	) VALUES ($1, $2, $3, $4, $5, $6)`

// InvalidStore persists quarantined rows. The original row is stored as
// JSONB so quarantined data can be inspected and replayed without a
// schema migration whenever the trip layout changes.
type InvalidStore struct {
	pool *pgxpool.Pool
}

func NewInvalidStore(pool *pgxpool.Pool) *InvalidStore {
	return &InvalidStore{pool: pool}
}

func (s *InvalidStore) Insert(ctx context.Context, recs []domain.InvalidRecord) error {
	if len(recs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range recs {
		raw, err := json.Marshal(recs[i].Trip.HashFields())
		if err != nil {
			return fmt.Errorf("invalid insert: marshal row: %w", err)
		}
		batch.Queue(insertInvalidSQL,
			recs[i].ErrorType, recs[i].ErrorMessage,
			recs[i].SourceFile, recs[i].ChunkIndex, recs[i].RowIndex, raw,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	var execErr error
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			execErr = err
			break
		}
	}
	if closeErr := br.Close(); execErr == nil {
		execErr = closeErr
	}
	if execErr != nil {
		return classify("invalid insert", execErr)
	}
	return nil
}
