package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dvloznov/nyc-taxi-pipeline/internal/warehouse"
)

// MaintenanceStore runs post-load warehouse upkeep and row-count checks.
type MaintenanceStore struct {
	pool *pgxpool.Pool
}

func NewMaintenanceStore(pool *pgxpool.Pool) *MaintenanceStore {
	return &MaintenanceStore{pool: pool}
}

// RebuildTripIndexes calls the stored routine that (re)creates the
// month-scoped performance indexes on the trip tables.
func (s *MaintenanceStore) RebuildTripIndexes(ctx context.Context, year, month int) error {
	if _, err := s.pool.Exec(ctx, `SELECT nyc_taxi.rebuild_trip_indexes($1, $2)`, year, month); err != nil {
		return classify("rebuild trip indexes", err)
	}
	return nil
}

// CountRows returns the row count of one pipeline table. Table names are
// checked against the known set since identifiers cannot be bound as
// statement parameters.
func (s *MaintenanceStore) CountRows(ctx context.Context, table string) (int64, error) {
	if !knownTable(table) {
		return 0, fmt.Errorf("count rows: unknown table %q", table)
	}
	var count int64
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s.%s`, warehouse.Schema, table)
	if err := s.pool.QueryRow(ctx, q).Scan(&count); err != nil {
		return 0, classify("count rows "+table, err)
	}
	return count, nil
}

func knownTable(table string) bool {
	switch table {
	case warehouse.TableTrips, warehouse.TableInvalid, warehouse.TableFacts,
		warehouse.TableLedger, warehouse.TableQuality,
		warehouse.TableDimLocation, warehouse.TableDimVendor,
		warehouse.TableDimPayment, warehouse.TableDimRateCode:
		return true
	}
	return false
}
