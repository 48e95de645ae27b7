package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dvloznov/nyc-taxi-pipeline/internal/domain"
)

const insertTripSQL = `
	INSERT INTO nyc_taxi.yellow_taxi_trips (
		content_hash, vendor_id, tpep_pickup_datetime, tpep_dropoff_datetime,
		passenger_count, trip_distance, ratecode_id, store_and_fwd_flag,
		pu_location_id, do_location_id, payment_type,
		fare_amount, extra, mta_tax, tip_amount, tolls_amount,
		improvement_surcharge, congestion_surcharge, airport_fee,
		cbd_congestion_fee, total_amount
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21
	)`

// TripStore writes normalized trips.
type TripStore struct {
	pool *pgxpool.Pool
}

func NewTripStore(pool *pgxpool.Pool) *TripStore {
	return &TripStore{pool: pool}
}

// BulkInsert loads a chunk inside a single transaction, so a failure
// anywhere in the chunk leaves the table untouched.
func (s *TripStore) BulkInsert(ctx context.Context, trips []domain.TripRecord) error {
	if len(trips) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify("trips bulk insert: begin", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for i := range trips {
		batch.Queue(insertTripSQL, tripArgs(&trips[i])...)
	}

	br := tx.SendBatch(ctx, batch)
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
		return classify("trips bulk insert", execErr)
	}

	if err := tx.Commit(ctx); err != nil {
		return classify("trips bulk insert: commit", err)
	}
	return nil
}

// Insert loads one trip in its own implicit transaction. This is the
// row-level fallback path.
func (s *TripStore) Insert(ctx context.Context, trip domain.TripRecord) error {
	if _, err := s.pool.Exec(ctx, insertTripSQL, tripArgs(&trip)...); err != nil {
		return classify("trips insert", err)
	}
	return nil
}

func tripArgs(t *domain.TripRecord) []any {
	return []any{
		t.ContentHash, t.VendorID, t.PickupTime, t.DropoffTime,
		t.PassengerCount, t.TripDistance, t.RateCodeID, t.StoreAndFwdFlag,
		t.PickupLocationID, t.DropoffLocationID, t.PaymentType,
		t.FareAmount, t.Extra, t.MTATax, t.TipAmount, t.TollsAmount,
		t.ImprovementSurcharge, t.CongestionSurcharge, t.AirportFee,
		t.CBDCongestionFee, t.TotalAmount,
	}
}
