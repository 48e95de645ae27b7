package tripdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/dvloznov/nyc-taxi-pipeline/internal/domain"
)

// Parquet column names in the TLC yellow-taxi files. Casing drifts across
// vintages (VendorID vs vendorid), so lookups are case-insensitive.
const (
	colVendorID             = "vendorid"
	colPickupTime           = "tpep_pickup_datetime"
	colDropoffTime          = "tpep_dropoff_datetime"
	colPassengerCount       = "passenger_count"
	colTripDistance         = "trip_distance"
	colRateCodeID           = "ratecodeid"
	colStoreAndFwdFlag      = "store_and_fwd_flag"
	colPULocationID         = "pulocationid"
	colDOLocationID         = "dolocationid"
	colPaymentType          = "payment_type"
	colFareAmount           = "fare_amount"
	colExtra                = "extra"
	colMTATax               = "mta_tax"
	colTipAmount            = "tip_amount"
	colTollsAmount          = "tolls_amount"
	colImprovementSurcharge = "improvement_surcharge"
	colCongestionSurcharge  = "congestion_surcharge"
	colAirportFee           = "airport_fee"
	colCBDCongestionFee     = "cbd_congestion_fee"
	colTotalAmount          = "total_amount"
)

// ChunkFunc receives one decoded chunk. Returning an error stops the read.
type ChunkFunc func(chunkIndex int, trips []domain.TripRecord) error

// ReadFile streams a monthly parquet file in chunks of at most chunkSize
// rows, decoding each batch into trip records and passing it to fn.
func ReadFile(ctx context.Context, path string, chunkSize int, fn ChunkFunc) error {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return fmt.Errorf("tripdata.ReadFile: open %s: %w", path, err)
	}
	defer rdr.Close()

	arrowRdr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{BatchSize: int64(chunkSize)}, memory.DefaultAllocator)
	if err != nil {
		return fmt.Errorf("tripdata.ReadFile: arrow reader: %w", err)
	}

	recRdr, err := arrowRdr.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return fmt.Errorf("tripdata.ReadFile: record reader: %w", err)
	}
	defer recRdr.Release()

	chunk := 0
	for recRdr.Next() {
		rec := recRdr.Record()
		trips, err := decodeRecord(rec)
		if err != nil {
			return fmt.Errorf("tripdata.ReadFile: chunk %d: %w", chunk, err)
		}
		if err := fn(chunk, trips); err != nil {
			return err
		}
		chunk++
	}
	// The record reader reports io.EOF when the stream is exhausted.
	if err := recRdr.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("tripdata.ReadFile: %w", err)
	}
	return nil
}

// columns resolves the trip columns in a record batch by name.
type columns struct {
	vendorID, pickup, dropoff, passengers, distance, rateCode, storeFwd,
	puLocation, doLocation, payment, fare, extra, mtaTax, tip, tolls,
	improvement, congestion, airportFee, total arrow.Array

	// cbdFee only exists in files from Jan 2025 onward; nil for earlier
	// vintages and decoded as 0.
	cbdFee arrow.Array
}

func decodeRecord(rec arrow.Record) ([]domain.TripRecord, error) {
	cols, err := resolveColumns(rec)
	if err != nil {
		return nil, err
	}

	trips := make([]domain.TripRecord, 0, rec.NumRows())
	for i := 0; i < int(rec.NumRows()); i++ {
		trips = append(trips, domain.TripRecord{
			VendorID:             int(intAt(cols.vendorID, i)),
			PickupTime:           timeAt(cols.pickup, i),
			DropoffTime:          timeAt(cols.dropoff, i),
			PassengerCount:       int(intAt(cols.passengers, i)),
			TripDistance:         floatAt(cols.distance, i),
			RateCodeID:           int(intAt(cols.rateCode, i)),
			StoreAndFwdFlag:      flagAt(cols.storeFwd, i),
			PickupLocationID:     int(intAt(cols.puLocation, i)),
			DropoffLocationID:    int(intAt(cols.doLocation, i)),
			PaymentType:          int(intAt(cols.payment, i)),
			FareAmount:           floatAt(cols.fare, i),
			Extra:                floatAt(cols.extra, i),
			MTATax:               floatAt(cols.mtaTax, i),
			TipAmount:            floatAt(cols.tip, i),
			TollsAmount:          floatAt(cols.tolls, i),
			ImprovementSurcharge: floatAt(cols.improvement, i),
			CongestionSurcharge:  floatAt(cols.congestion, i),
			AirportFee:           floatAt(cols.airportFee, i),
			CBDCongestionFee:     optionalFloatAt(cols.cbdFee, i),
			TotalAmount:          floatAt(cols.total, i),
		})
	}
	return trips, nil
}

func resolveColumns(rec arrow.Record) (columns, error) {
	byName := make(map[string]arrow.Array, rec.NumCols())
	schema := rec.Schema()
	for i := 0; i < int(rec.NumCols()); i++ {
		byName[strings.ToLower(schema.Field(i).Name)] = rec.Column(i)
	}

	var cols columns
	var missing []string
	pick := func(name string, dst *arrow.Array) {
		c, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			return
		}
		*dst = c
	}

	pick(colVendorID, &cols.vendorID)
	pick(colPickupTime, &cols.pickup)
	pick(colDropoffTime, &cols.dropoff)
	pick(colPassengerCount, &cols.passengers)
	pick(colTripDistance, &cols.distance)
	pick(colRateCodeID, &cols.rateCode)
	pick(colStoreAndFwdFlag, &cols.storeFwd)
	pick(colPULocationID, &cols.puLocation)
	pick(colDOLocationID, &cols.doLocation)
	pick(colPaymentType, &cols.payment)
	pick(colFareAmount, &cols.fare)
	pick(colExtra, &cols.extra)
	pick(colMTATax, &cols.mtaTax)
	pick(colTipAmount, &cols.tip)
	pick(colTollsAmount, &cols.tolls)
	pick(colImprovementSurcharge, &cols.improvement)
	pick(colCongestionSurcharge, &cols.congestion)
	pick(colAirportFee, &cols.airportFee)
	pick(colTotalAmount, &cols.total)
	cols.cbdFee = byName[colCBDCongestionFee]

	if len(missing) > 0 {
		return columns{}, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

// intAt reads an integer cell, tolerating the integer and float widths
// that appear across file vintages. Nulls normalize to 0.
func intAt(col arrow.Array, i int) int64 {
	if col.IsNull(i) {
		return 0
	}
	switch a := col.(type) {
	case *array.Int64:
		return a.Value(i)
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Float64:
		return int64(a.Value(i))
	case *array.Float32:
		return int64(a.Value(i))
	default:
		return 0
	}
}

// floatAt reads a numeric cell. Nulls normalize to 0.
func floatAt(col arrow.Array, i int) float64 {
	if col.IsNull(i) {
		return 0
	}
	switch a := col.(type) {
	case *array.Float64:
		return a.Value(i)
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Int64:
		return float64(a.Value(i))
	case *array.Int32:
		return float64(a.Value(i))
	default:
		return 0
	}
}

// optionalFloatAt reads a numeric cell from a column that may be absent
// from the file altogether.
func optionalFloatAt(col arrow.Array, i int) float64 {
	if col == nil {
		return 0
	}
	return floatAt(col, i)
}

// flagAt reads the store-and-forward flag. Nulls normalize to "N".
func flagAt(col arrow.Array, i int) string {
	if col.IsNull(i) {
		return "N"
	}
	switch a := col.(type) {
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	default:
		return "N"
	}
}

// timeAt reads a timestamp cell. Nulls normalize to the zero time, which
// downstream validation routes to quarantine.
func timeAt(col arrow.Array, i int) time.Time {
	if col.IsNull(i) {
		return time.Time{}
	}
	a, ok := col.(*array.Timestamp)
	if !ok {
		return time.Time{}
	}
	tsType, ok := a.DataType().(*arrow.TimestampType)
	if !ok {
		return time.Time{}
	}
	return a.Value(i).ToTime(tsType.Unit).UTC()
}
