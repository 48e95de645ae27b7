package refdata

import (
	"context"
	"fmt"
	"os"

	"github.com/dvloznov/nyc-taxi-pipeline/internal/logger"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/warehouse"
)

// Loader rebuilds the dimension tables from fetched reference data.
// Reference loads are truncate-and-replace: dimensions are small, and a
// full reload keeps them exactly in step with the published source.
type Loader struct {
	fetcher *Fetcher
	writer  warehouse.DimensionWriter
	verify  warehouse.Verifier

	zoneLookupURL string
	zoneShapesURL string
}

func NewLoader(fetcher *Fetcher, writer warehouse.DimensionWriter, verify warehouse.Verifier, zoneLookupURL, zoneShapesURL string) *Loader {
	return &Loader{
		fetcher:       fetcher,
		writer:        writer,
		verify:        verify,
		zoneLookupURL: zoneLookupURL,
		zoneShapesURL: zoneShapesURL,
	}
}

// Run fetches the zone lookup CSV and the shapefile archive, then
// truncates and reloads every dimension table. The shapefile zip is kept
// on disk for ad-hoc geospatial work; its contents are not loaded.
func (l *Loader) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)

	csvPath, err := l.fetcher.Fetch(ctx, l.zoneLookupURL)
	if err != nil {
		return fmt.Errorf("refdata.Run: %w", err)
	}
	if _, err := l.fetcher.Fetch(ctx, l.zoneShapesURL); err != nil {
		return fmt.Errorf("refdata.Run: %w", err)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("refdata.Run: open %s: %w", csvPath, err)
	}
	defer f.Close()

	zones, err := ParseZones(f)
	if err != nil {
		return fmt.Errorf("refdata.Run: %w", err)
	}
	log.Info().Int("zones", len(zones)).Msg("parsed zone lookup")

	locations := make([]warehouse.LocationDim, 0, len(zones))
	for _, z := range zones {
		locations = append(locations, warehouse.LocationDim{
			LocationID:  z.LocationID,
			Zone:        z.Name,
			Borough:     z.Borough,
			ServiceZone: z.ServiceZone,
			ZoneClass:   Classify(z),
		})
	}

	if err := l.writer.TruncateDimensions(ctx); err != nil {
		return fmt.Errorf("refdata.Run: truncate dimensions: %w", err)
	}
	if err := l.writer.InsertLocations(ctx, locations); err != nil {
		return fmt.Errorf("refdata.Run: insert locations: %w", err)
	}
	if err := l.writer.InsertVendors(ctx, toCodeDims(Vendors())); err != nil {
		return fmt.Errorf("refdata.Run: insert vendors: %w", err)
	}
	if err := l.writer.InsertPaymentTypes(ctx, toCodeDims(PaymentTypes())); err != nil {
		return fmt.Errorf("refdata.Run: insert payment types: %w", err)
	}
	if err := l.writer.InsertRateCodes(ctx, toCodeDims(RateCodes())); err != nil {
		return fmt.Errorf("refdata.Run: insert rate codes: %w", err)
	}

	return l.verifyCounts(ctx, len(locations))
}

func (l *Loader) verifyCounts(ctx context.Context, wantLocations int) error {
	log := logger.FromContext(ctx)
	checks := []struct {
		table string
		want  int
	}{
		{warehouse.TableDimLocation, wantLocations},
		{warehouse.TableDimVendor, len(Vendors())},
		{warehouse.TableDimPayment, len(PaymentTypes())},
		{warehouse.TableDimRateCode, len(RateCodes())},
	}
	for _, c := range checks {
		got, err := l.verify.CountRows(ctx, c.table)
		if err != nil {
			return fmt.Errorf("refdata.verifyCounts: count %s: %w", c.table, err)
		}
		if got != int64(c.want) {
			return fmt.Errorf("refdata.verifyCounts: %s has %d rows, expected %d", c.table, got, c.want)
		}
		log.Info().Str("table", c.table).Int64("rows", got).Msg("dimension verified")
	}
	return nil
}

func toCodeDims(codes []Code) []warehouse.CodeDim {
	dims := make([]warehouse.CodeDim, 0, len(codes))
	for _, c := range codes {
		dims = append(dims, warehouse.CodeDim{Code: c.ID, Name: c.Name})
	}
	return dims
}
