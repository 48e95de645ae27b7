package refdata

import (
	"strings"
	"testing"
)

const sampleCSV = `"LocationID","Borough","Zone","service_zone"
1,"EWR","Newark Airport","EWR"
4,"Manhattan","Alphabet City","Yellow Zone"
132,"Queens","JFK Airport","Airports"
153,"Manhattan","Marble Hill","Boro Zone"
7,"Queens","Astoria","Boro Zone"
`

func TestParseZones(t *testing.T) {
	zones, err := ParseZones(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ParseZones: %v", err)
	}
	if len(zones) != 5 {
		t.Fatalf("got %d zones, want 5", len(zones))
	}
	want := Zone{LocationID: 132, Borough: "Queens", Name: "JFK Airport", ServiceZone: "Airports"}
	if zones[2] != want {
		t.Errorf("zones[2] = %+v, want %+v", zones[2], want)
	}
}

func TestParseZones_MissingColumn(t *testing.T) {
	csv := "LocationID,Borough,Zone\n1,EWR,Newark Airport\n"
	if _, err := ParseZones(strings.NewReader(csv)); err == nil {
		t.Fatal("expected error for missing service_zone column")
	}
}

func TestParseZones_BadLocationID(t *testing.T) {
	csv := "LocationID,Borough,Zone,service_zone\nabc,EWR,Newark Airport,EWR\n"
	if _, err := ParseZones(strings.NewReader(csv)); err == nil {
		t.Fatal("expected error for non-numeric location id")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		zone Zone
		want string
	}{
		{"jfk", Zone{Name: "JFK Airport", Borough: "Queens", ServiceZone: "Airports"}, ClassAirport},
		{"newark", Zone{Name: "Newark Airport", Borough: "EWR", ServiceZone: "EWR"}, ClassAirport},
		{"airport name without service zone", Zone{Name: "LaGuardia Airport", Borough: "Queens", ServiceZone: "Boro Zone"}, ClassAirport},
		{"midtown", Zone{Name: "Midtown Center", Borough: "Manhattan", ServiceZone: "Yellow Zone"}, ClassManhattanCore},
		{"marble hill", Zone{Name: "Marble Hill", Borough: "Manhattan", ServiceZone: "Boro Zone"}, ClassManhattan},
		{"astoria", Zone{Name: "Astoria", Borough: "Queens", ServiceZone: "Boro Zone"}, ClassOuterBorough},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.zone); got != tt.want {
				t.Errorf("Classify(%+v) = %q, want %q", tt.zone, got, tt.want)
			}
		})
	}
}

func TestStaticCodeLists(t *testing.T) {
	if len(Vendors()) != 2 {
		t.Errorf("Vendors() has %d entries, want 2", len(Vendors()))
	}
	if len(PaymentTypes()) != 6 {
		t.Errorf("PaymentTypes() has %d entries, want 6", len(PaymentTypes()))
	}
	if len(RateCodes()) != 6 {
		t.Errorf("RateCodes() has %d entries, want 6", len(RateCodes()))
	}
	for _, p := range PaymentTypes() {
		if p.ID == 2 && p.Name != "Cash" {
			t.Errorf("payment type 2 = %q, want Cash", p.Name)
		}
	}
}
