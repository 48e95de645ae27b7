// Package warehouse defines the storage contracts and row types shared by
// the pipeline and the postgres adapter. The schema and table names here
// are stable and documented so external BI connectors can be pointed at
// them.
package warehouse

// Schema is the warehouse schema that holds every pipeline table.
const Schema = "nyc_taxi"

// Table names.
const (
	TableTrips       = "yellow_taxi_trips"
	TableInvalid     = "invalid_taxi_trips"
	TableFacts       = "fact_taxi_trips"
	TableLedger      = "etl_processing_log"
	TableQuality     = "data_quality_log"
	TableDimLocation = "dim_location"
	TableDimVendor   = "dim_vendor"
	TableDimPayment  = "dim_payment_type"
	TableDimRateCode = "dim_rate_code"
)

// TripContentHashConstraint is the unique constraint backing trip
// idempotency. The chunk loader treats a bulk-insert violation of this
// constraint as a replayed chunk.
const TripContentHashConstraint = "yellow_taxi_trips_content_hash_key"

// LocationDim is one row of dim_location. ZoneClass is derived at
// reference-load time (airport / manhattan_core / manhattan /
// outer_borough).
type LocationDim struct {
	SK          int64
	LocationID  int
	Zone        string
	Borough     string
	ServiceZone string
	ZoneClass   string
}

// CodeDim is one row of the small code-list dimensions (vendors, payment
// types, rate codes): a natural code plus a description.
type CodeDim struct {
	SK   int64
	Code int
	Name string
}
