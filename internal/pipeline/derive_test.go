package pipeline

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/dvloznov/nyc-taxi-pipeline/internal/dimensions"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/domain"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/warehouse"
)

type stubDimReader struct{}

func (stubDimReader) ListLocations(ctx context.Context) ([]warehouse.LocationDim, error) {
	return []warehouse.LocationDim{
		{SK: 1, LocationID: 132, Zone: "JFK Airport", Borough: "Queens", ZoneClass: "airport"},
		{SK: 2, LocationID: 161, Zone: "Midtown Center", Borough: "Manhattan", ZoneClass: "manhattan_core"},
		{SK: 3, LocationID: 7, Zone: "Astoria", Borough: "Queens", ZoneClass: "outer_borough"},
	}, nil
}

func (stubDimReader) ListVendors(ctx context.Context) ([]warehouse.CodeDim, error) {
	return []warehouse.CodeDim{{SK: 10, Code: 1}, {SK: 11, Code: 2}}, nil
}

func (stubDimReader) ListPaymentTypes(ctx context.Context) ([]warehouse.CodeDim, error) {
	return []warehouse.CodeDim{{SK: 20, Code: 1}, {SK: 21, Code: 2}}, nil
}

func (stubDimReader) ListRateCodes(ctx context.Context) ([]warehouse.CodeDim, error) {
	return []warehouse.CodeDim{{SK: 30, Code: 1}}, nil
}

var (
	testWinMin = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	testWinMax = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
)

func testCache(t *testing.T) *dimensions.Cache {
	t.Helper()
	cache, err := dimensions.Load(context.Background(), stubDimReader{})
	if err != nil {
		t.Fatalf("load cache: %v", err)
	}
	return cache
}

func validTrip() domain.TripRecord {
	pickup := time.Date(2024, 1, 5, 8, 30, 0, 0, time.UTC)
	return domain.TripRecord{
		VendorID:             2,
		PickupTime:           pickup,
		DropoffTime:          pickup.Add(30 * time.Minute),
		PassengerCount:       1,
		TripDistance:         12.0,
		RateCodeID:           1,
		StoreAndFwdFlag:      "N",
		PickupLocationID:     161,
		DropoffLocationID:    132,
		PaymentType:          2,
		FareAmount:           40.0,
		Extra:                1.0,
		MTATax:               0.5,
		TipAmount:            8.0,
		TollsAmount:          6.55,
		ImprovementSurcharge: 0.3,
		CongestionSurcharge:  2.5,
		AirportFee:           1.25,
		TotalAmount:          60.1,
		ContentHash:          "abc123",
	}
}

func TestDeriveFact(t *testing.T) {
	fact, errType, _ := deriveFact(validTrip(), testCache(t), testWinMin, testWinMax)
	if errType != "" {
		t.Fatalf("unexpected error type %q", errType)
	}

	if fact.ContentHash != "abc123" {
		t.Errorf("ContentHash = %q", fact.ContentHash)
	}
	if fact.DateKey != 20240105 {
		t.Errorf("DateKey = %d, want 20240105", fact.DateKey)
	}
	if fact.TimeKey != 830 {
		t.Errorf("TimeKey = %d, want 830", fact.TimeKey)
	}
	if fact.PickupLocationKey != 2 || fact.DropoffLocationKey != 1 {
		t.Errorf("location keys = %d, %d", fact.PickupLocationKey, fact.DropoffLocationKey)
	}
	if fact.VendorKey != 11 || fact.PaymentTypeKey != 21 || fact.RateCodeKey != 30 {
		t.Errorf("code keys = %d, %d, %d", fact.VendorKey, fact.PaymentTypeKey, fact.RateCodeKey)
	}

	if fact.DurationMinutes != 30 {
		t.Errorf("DurationMinutes = %v", fact.DurationMinutes)
	}
	if math.Abs(fact.TipPercent-20) > 1e-9 {
		t.Errorf("TipPercent = %v, want 20", fact.TipPercent)
	}
	if math.Abs(fact.AvgSpeedMPH-24) > 1e-9 {
		t.Errorf("AvgSpeedMPH = %v, want 24", fact.AvgSpeedMPH)
	}
	if math.Abs(fact.RevenuePerMile-60.1/12.0) > 1e-9 {
		t.Errorf("RevenuePerMile = %v", fact.RevenuePerMile)
	}
	if math.Abs(fact.TotalSurcharges-5.55) > 1e-9 {
		t.Errorf("TotalSurcharges = %v, want 5.55", fact.TotalSurcharges)
	}

	withCBD := validTrip()
	withCBD.CBDCongestionFee = 0.75
	cbdFact, errType, _ := deriveFact(withCBD, testCache(t), testWinMin, testWinMax)
	if errType != "" {
		t.Fatalf("unexpected error type %q", errType)
	}
	if math.Abs(cbdFact.TotalSurcharges-6.30) > 1e-9 {
		t.Errorf("TotalSurcharges with cbd fee = %v, want 6.30", cbdFact.TotalSurcharges)
	}

	if !fact.AirportTrip {
		t.Error("expected AirportTrip, dropoff is JFK")
	}
	if !fact.CrossBorough {
		t.Error("expected CrossBorough, Manhattan to Queens")
	}
	if !fact.CashPayment {
		t.Error("expected CashPayment for payment type 2")
	}
	if !fact.LongDistance {
		t.Error("expected LongDistance for 12 miles")
	}
	if fact.ShortTrip {
		t.Error("unexpected ShortTrip for 12 miles over 30 minutes")
	}
}

func TestDeriveFact_ShortTrip(t *testing.T) {
	trip := validTrip()
	trip.TripDistance = 0.4
	trip.DropoffTime = trip.PickupTime.Add(3 * time.Minute)

	fact, errType, _ := deriveFact(trip, testCache(t), testWinMin, testWinMax)
	if errType != "" {
		t.Fatalf("unexpected error type %q", errType)
	}
	if !fact.ShortTrip {
		t.Error("expected ShortTrip")
	}
	if fact.LongDistance {
		t.Error("unexpected LongDistance")
	}
}

func TestDeriveFact_ZeroDenominators(t *testing.T) {
	trip := validTrip()
	trip.FareAmount = 0
	trip.TripDistance = 0
	trip.DropoffTime = trip.PickupTime

	fact, errType, _ := deriveFact(trip, testCache(t), testWinMin, testWinMax)
	if errType != "" {
		t.Fatalf("unexpected error type %q", errType)
	}
	if fact.TipPercent != 0 || fact.AvgSpeedMPH != 0 || fact.RevenuePerMile != 0 {
		t.Errorf("expected zero ratios, got %+v", fact)
	}
}

func TestDeriveFact_MissingDimensionKeys(t *testing.T) {
	trip := validTrip()
	trip.DropoffLocationID = 999
	trip.RateCodeID = 99

	_, errType, msg := deriveFact(trip, testCache(t), testWinMin, testWinMax)
	if errType != domain.ErrTypeMissingDimensionKey {
		t.Fatalf("error type = %q, want %q", errType, domain.ErrTypeMissingDimensionKey)
	}
	if msg == "" {
		t.Error("expected a message naming the missing keys")
	}
}

func TestDeriveFact_InvalidDateRange(t *testing.T) {
	trip := validTrip()
	trip.DropoffTime = trip.PickupTime.Add(-time.Minute)

	if _, errType, _ := deriveFact(trip, testCache(t), testWinMin, testWinMax); errType != domain.ErrTypeInvalidDateRange {
		t.Errorf("error type = %q, want %q", errType, domain.ErrTypeInvalidDateRange)
	}

	trip = validTrip()
	trip.PickupTime = time.Time{}
	trip.DropoffTime = time.Time{}
	if _, errType, _ := deriveFact(trip, testCache(t), testWinMin, testWinMax); errType != domain.ErrTypeInvalidDateRange {
		t.Errorf("error type for zero times = %q, want %q", errType, domain.ErrTypeInvalidDateRange)
	}
}

func TestDeriveFact_PickupOutsideWindow(t *testing.T) {
	cache := testCache(t)

	early := validTrip()
	early.PickupTime = time.Date(2019, 12, 31, 23, 0, 0, 0, time.UTC)
	early.DropoffTime = early.PickupTime.Add(10 * time.Minute)
	if _, errType, msg := deriveFact(early, cache, testWinMin, testWinMax); errType != domain.ErrTypeInvalidDateRange {
		t.Errorf("pre-window pickup: error type = %q (%s)", errType, msg)
	}

	late := validTrip()
	late.PickupTime = testWinMax
	late.DropoffTime = late.PickupTime.Add(10 * time.Minute)
	if _, errType, _ := deriveFact(late, cache, testWinMin, testWinMax); errType != domain.ErrTypeInvalidDateRange {
		t.Errorf("post-window pickup: error type = %q", errType)
	}

	boundary := validTrip()
	boundary.PickupTime = testWinMin
	boundary.DropoffTime = boundary.PickupTime.Add(10 * time.Minute)
	if _, errType, _ := deriveFact(boundary, cache, testWinMin, testWinMax); errType != "" {
		t.Errorf("window start pickup should derive, got error type %q", errType)
	}
}
