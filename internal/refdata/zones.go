// Package refdata loads the TLC reference data: the taxi zone lookup
// table, the zone shapefile archive, and the static code lists backing
// the vendor, payment type and rate code dimensions.
package refdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Zone is one row of the TLC taxi zone lookup CSV.
type Zone struct {
	LocationID  int
	Borough     string
	Name        string
	ServiceZone string
}

// Zone classes assigned at load time. The class drives the airport-trip
// flag on facts, so it must be stable across runs.
const (
	ClassAirport       = "airport"
	ClassManhattanCore = "manhattan_core"
	ClassManhattan     = "manhattan"
	ClassOuterBorough  = "outer_borough"
)

// ParseZones reads the taxi zone lookup CSV. The header row is required;
// rows with a non-numeric location id are rejected rather than skipped
// because a partial zone table would silently quarantine valid trips.
func ParseZones(r io.Reader) ([]Zone, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("refdata.ParseZones: read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"locationid", "borough", "zone", "service_zone"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("refdata.ParseZones: missing column %q", required)
		}
	}

	var zones []Zone
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("refdata.ParseZones: line %d: %w", line, err)
		}
		id, err := strconv.Atoi(strings.TrimSpace(record[col["locationid"]]))
		if err != nil {
			return nil, fmt.Errorf("refdata.ParseZones: line %d: location id: %w", line, err)
		}
		zones = append(zones, Zone{
			LocationID:  id,
			Borough:     strings.TrimSpace(record[col["borough"]]),
			Name:        strings.TrimSpace(record[col["zone"]]),
			ServiceZone: strings.TrimSpace(record[col["service_zone"]]),
		})
	}
	return zones, nil
}

// Classify assigns the zone class used by downstream trip flags.
// Airports win over borough membership so JFK (Queens) and LaGuardia
// (Queens) are flagged as airports, not outer boroughs.
func Classify(z Zone) string {
	switch {
	case z.ServiceZone == "Airports" || z.ServiceZone == "EWR" || strings.Contains(z.Name, "Airport"):
		return ClassAirport
	case z.Borough == "Manhattan" && z.ServiceZone == "Yellow Zone":
		return ClassManhattanCore
	case z.Borough == "Manhattan":
		return ClassManhattan
	default:
		return ClassOuterBorough
	}
}
