// Package dimensions holds the per-run in-memory snapshot of dimension
// surrogate keys plus the zone-classification rule set applied at
// reference-load time.
package dimensions

import (
	"context"
	"fmt"

	"github.com/dvloznov/nyc-taxi-pipeline/internal/warehouse"
)

// Location is the cached view of one dim_location row: the surrogate key
// plus the denormalized attributes needed for derived trip flags.
type Location struct {
	Key       int64
	Borough   string
	ZoneClass string
}

// Cache maps natural dimension ids to surrogate keys. It is populated once
// per pipeline run and read-only afterward; dimensions are assumed not to
// change concurrently with fact loading.
type Cache struct {
	locations    map[int]Location
	vendors      map[int]int64
	paymentTypes map[int]int64
	rateCodes    map[int]int64
}

// Load reads the full contents of every dimension table into a new Cache.
func Load(ctx context.Context, reader warehouse.DimensionReader) (*Cache, error) {
	locs, err := reader.ListLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("dimensions.Load: locations: %w", err)
	}
	vendors, err := reader.ListVendors(ctx)
	if err != nil {
		return nil, fmt.Errorf("dimensions.Load: vendors: %w", err)
	}
	payments, err := reader.ListPaymentTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("dimensions.Load: payment types: %w", err)
	}
	rates, err := reader.ListRateCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("dimensions.Load: rate codes: %w", err)
	}

	c := &Cache{
		locations:    make(map[int]Location, len(locs)),
		vendors:      make(map[int]int64, len(vendors)),
		paymentTypes: make(map[int]int64, len(payments)),
		rateCodes:    make(map[int]int64, len(rates)),
	}
	for _, l := range locs {
		c.locations[l.LocationID] = Location{Key: l.SK, Borough: l.Borough, ZoneClass: l.ZoneClass}
	}
	for _, v := range vendors {
		c.vendors[v.Code] = v.SK
	}
	for _, p := range payments {
		c.paymentTypes[p.Code] = p.SK
	}
	for _, r := range rates {
		c.rateCodes[r.Code] = r.SK
	}
	return c, nil
}

// Location resolves a zone's natural location id. A miss means the
// downstream row is quarantined, never a hard failure.
func (c *Cache) Location(id int) (Location, bool) {
	l, ok := c.locations[id]
	return l, ok
}

func (c *Cache) Vendor(code int) (int64, bool) {
	sk, ok := c.vendors[code]
	return sk, ok
}

func (c *Cache) PaymentType(code int) (int64, bool) {
	sk, ok := c.paymentTypes[code]
	return sk, ok
}

func (c *Cache) RateCode(code int) (int64, bool) {
	sk, ok := c.rateCodes[code]
	return sk, ok
}

// Sizes returns per-dimension entry counts for startup logging.
func (c *Cache) Sizes() (locations, vendors, paymentTypes, rateCodes int) {
	return len(c.locations), len(c.vendors), len(c.paymentTypes), len(c.rateCodes)
}
