package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dvloznov/nyc-taxi-pipeline/internal/warehouse"
)

// DimensionStore implements both the reader used by the per-run cache and
// the writer used by the reference-data refresh.
type DimensionStore struct {
	pool *pgxpool.Pool
}

func NewDimensionStore(pool *pgxpool.Pool) *DimensionStore {
	return &DimensionStore{pool: pool}
}

func (s *DimensionStore) ListLocations(ctx context.Context) ([]warehouse.LocationDim, error) {
	const q = `
		SELECT location_sk, location_id, zone, borough, service_zone, zone_class
		FROM nyc_taxi.dim_location
		ORDER BY location_id`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, classify("list locations", err)
	}
	defer rows.Close()

	var out []warehouse.LocationDim
	for rows.Next() {
		var d warehouse.LocationDim
		if err := rows.Scan(&d.SK, &d.LocationID, &d.Zone, &d.Borough, &d.ServiceZone, &d.ZoneClass); err != nil {
			return nil, classify("list locations: scan", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list locations", err)
	}
	return out, nil
}

func (s *DimensionStore) ListVendors(ctx context.Context) ([]warehouse.CodeDim, error) {
	return s.listCodes(ctx, "vendor_sk", "vendor_id", "vendor_name", warehouse.TableDimVendor)
}

func (s *DimensionStore) ListPaymentTypes(ctx context.Context) ([]warehouse.CodeDim, error) {
	return s.listCodes(ctx, "payment_type_sk", "payment_type_id", "payment_type_name", warehouse.TableDimPayment)
}

func (s *DimensionStore) ListRateCodes(ctx context.Context) ([]warehouse.CodeDim, error) {
	return s.listCodes(ctx, "rate_code_sk", "rate_code_id", "rate_code_name", warehouse.TableDimRateCode)
}

func (s *DimensionStore) listCodes(ctx context.Context, skCol, codeCol, nameCol, table string) ([]warehouse.CodeDim, error) {
	q := fmt.Sprintf(`SELECT %s, %s, %s FROM %s.%s ORDER BY %s`,
		skCol, codeCol, nameCol, warehouse.Schema, table, codeCol)

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, classify("list "+table, err)
	}
	defer rows.Close()

	var out []warehouse.CodeDim
	for rows.Next() {
		var d warehouse.CodeDim
		if err := rows.Scan(&d.SK, &d.Code, &d.Name); err != nil {
			return nil, classify("list "+table+": scan", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list "+table, err)
	}
	return out, nil
}

// TruncateDimensions empties every reloadable dimension in one statement.
// CASCADE also clears fact rows referencing the old surrogate keys; the
// fact table is rebuilt from the normalized table on the next backfill.
func (s *DimensionStore) TruncateDimensions(ctx context.Context) error {
	const q = `
		TRUNCATE nyc_taxi.dim_location, nyc_taxi.dim_vendor,
			nyc_taxi.dim_payment_type, nyc_taxi.dim_rate_code
		RESTART IDENTITY CASCADE`
	if _, err := s.pool.Exec(ctx, q); err != nil {
		return classify("truncate dimensions", err)
	}
	return nil
}

func (s *DimensionStore) InsertLocations(ctx context.Context, dims []warehouse.LocationDim) error {
	const q = `
		INSERT INTO nyc_taxi.dim_location
			(location_id, zone, borough, service_zone, zone_class)
		VALUES ($1, $2, $3, $4, $5)`

	batch := &pgx.Batch{}
	for _, d := range dims {
		batch.Queue(q, d.LocationID, d.Zone, d.Borough, d.ServiceZone, d.ZoneClass)
	}
	return s.sendBatch(ctx, "insert locations", batch)
}

func (s *DimensionStore) InsertVendors(ctx context.Context, dims []warehouse.CodeDim) error {
	const q = `INSERT INTO nyc_taxi.dim_vendor (vendor_id, vendor_name) VALUES ($1, $2)`
	batch := &pgx.Batch{}
	for _, d := range dims {
		batch.Queue(q, d.Code, d.Name)
	}
	return s.sendBatch(ctx, "insert vendors", batch)
}

func (s *DimensionStore) InsertPaymentTypes(ctx context.Context, dims []warehouse.CodeDim) error {
	const q = `INSERT INTO nyc_taxi.dim_payment_type (payment_type_id, payment_type_name) VALUES ($1, $2)`
	batch := &pgx.Batch{}
	for _, d := range dims {
		batch.Queue(q, d.Code, d.Name)
	}
	return s.sendBatch(ctx, "insert payment types", batch)
}

func (s *DimensionStore) InsertRateCodes(ctx context.Context, dims []warehouse.CodeDim) error {
	const q = `INSERT INTO nyc_taxi.dim_rate_code (rate_code_id, rate_code_name) VALUES ($1, $2)`
	batch := &pgx.Batch{}
	for _, d := range dims {
		batch.Queue(q, d.Code, d.Name)
	}
	return s.sendBatch(ctx, "insert rate codes", batch)
}

func (s *DimensionStore) sendBatch(ctx context.Context, op string, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
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
		return classify(op, execErr)
	}
	return nil
}
