package domain

import (
	"time"
)

// Error classification tags shared between the chunk loader and the
// quarantine store. These values end up in invalid_taxi_trips.error_type
// and data_quality_log.error_types, so they are part of the stable schema.
const (
	ErrTypeDuplicateKey        = "duplicate_key"
	ErrTypePrimaryKey          = "primary_key_violation"
	ErrTypeForeignKey          = "foreign_key_violation"
	ErrTypeCheckConstraint     = "check_constraint_violation"
	ErrTypeDataType            = "invalid_data_type"
	ErrTypeMissingDimensionKey = "missing_dimension_keys"
	ErrTypeInvalidDateRange    = "invalid_date_range"
	ErrTypeUnknown             = "unknown_error"
)

// Operation tags recorded in data_quality_log.operation, one per load path.
const (
	OperationBulkInsert     = "bulk_insert"
	OperationDuplicateChunk = "duplicate_chunk"
	OperationRowFallback    = "row_fallback"
)

// InvalidRecord is a TripRecord that failed structural or referential
// validation, quarantined with full provenance for forensic replay. Invalid
// records are never deduplicated against valid ones.
type InvalidRecord struct {
	Trip         TripRecord
	ErrorType    string
	ErrorMessage string
	SourceFile   string
	ChunkIndex   int
	RowIndex     int
}

// QualityMetric is one append-only audit row describing a single
// chunk-processing attempt.
type QualityMetric struct {
	RunID       string
	SourceFile  string
	Operation   string // bulk_insert, duplicate_chunk, row_fallback
	TargetTable string
	ChunkIndex  int

	RowsAttempted int
	RowsInserted  int
	RowsDuplicate int
	RowsInvalid   int

	Duration    time.Duration
	ErrorTypes  []string
	SampleError string

	// Value-range summary over the chunk's attempted rows.
	MinPickupTime  time.Time
	MaxPickupTime  time.Time
	AvgTotalAmount float64
}
