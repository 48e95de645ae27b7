package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dvloznov/nyc-taxi-pipeline/internal/domain"
)

const insertFactSQL = `
	INSERT INTO nyc_taxi.fact_taxi_trips (
		content_hash, date_key, time_key,
		pickup_location_key, dropoff_location_key,
		vendor_key, payment_type_key, rate_code_key,
		passenger_count, trip_distance,
		duration_minutes, tip_percent, avg_speed_mph, revenue_per_mile,
		base_fare, total_surcharges, total_amount,
		airport_trip, cross_borough, cash_payment, long_distance, short_trip
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
		$12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22
	)`

// FactStore writes star-schema rows.
type FactStore struct {
	pool *pgxpool.Pool
}

func NewFactStore(pool *pgxpool.Pool) *FactStore {
	return &FactStore{pool: pool}
}

func (s *FactStore) BulkInsert(ctx context.Context, facts []domain.FactRecord) error {
	if len(facts) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify("facts bulk insert: begin", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for i := range facts {
		f := &facts[i]
		batch.Queue(insertFactSQL,
			f.ContentHash, f.DateKey, f.TimeKey,
			f.PickupLocationKey, f.DropoffLocationKey,
			f.VendorKey, f.PaymentTypeKey, f.RateCodeKey,
			f.PassengerCount, f.TripDistance,
			f.DurationMinutes, f.TipPercent, f.AvgSpeedMPH, f.RevenuePerMile,
			f.BaseFare, f.TotalSurcharges, f.TotalAmount,
			f.AirportTrip, f.CrossBorough, f.CashPayment, f.LongDistance, f.ShortTrip,
		)
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
		return classify("facts bulk insert", execErr)
	}

	if err := tx.Commit(ctx); err != nil {
		return classify("facts bulk insert: commit", err)
	}
	return nil
}
