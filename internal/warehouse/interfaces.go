package warehouse

import (
	"context"

	"github.com/dvloznov/nyc-taxi-pipeline/internal/domain"
)

// TripStore writes normalized trip rows. BulkInsert runs as a single
// transaction; Insert runs one transaction per row (the fallback path).
type TripStore interface {
	BulkInsert(ctx context.Context, trips []domain.TripRecord) error
	Insert(ctx context.Context, trip domain.TripRecord) error
}

// FactStore writes star-schema rows.
type FactStore interface {
	BulkInsert(ctx context.Context, facts []domain.FactRecord) error
}

// InvalidStore persists quarantined rows.
type InvalidStore interface {
	Insert(ctx context.Context, recs []domain.InvalidRecord) error
}

// QualityStore appends chunk-outcome metric rows.
type QualityStore interface {
	Append(ctx context.Context, m domain.QualityMetric) error
}

// DimensionReader supplies full dimension snapshots for the per-run cache.
type DimensionReader interface {
	ListLocations(ctx context.Context) ([]LocationDim, error)
	ListVendors(ctx context.Context) ([]CodeDim, error)
	ListPaymentTypes(ctx context.Context) ([]CodeDim, error)
	ListRateCodes(ctx context.Context) ([]CodeDim, error)
}

// DimensionWriter supports the truncate-and-reload reference refresh.
type DimensionWriter interface {
	TruncateDimensions(ctx context.Context) error
	InsertLocations(ctx context.Context, rows []LocationDim) error
	InsertVendors(ctx context.Context, rows []CodeDim) error
	InsertPaymentTypes(ctx context.Context, rows []CodeDim) error
	InsertRateCodes(ctx context.Context, rows []CodeDim) error
}

// Maintenance covers post-load warehouse upkeep.
type Maintenance interface {
	// RebuildTripIndexes invokes the stored routine that (re)builds the
	// performance indexes for the month's partition.
	RebuildTripIndexes(ctx context.Context, year, month int) error
}

// Verifier reports post-run row counts for the final summary.
type Verifier interface {
	CountRows(ctx context.Context, table string) (int64, error)
}
