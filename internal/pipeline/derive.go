package pipeline

import (
	"fmt"
	"time"

	"github.com/dvloznov/nyc-taxi-pipeline/internal/dimensions"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/domain"
	"github.com/dvloznov/nyc-taxi-pipeline/internal/refdata"
)

const (
	cashPaymentType   = 2
	longDistanceMiles = 10.0
	shortTripMiles    = 1.0
	shortTripMinutes  = 5.0
)

// deriveFact projects a stored trip onto the star schema. It returns the
// quarantine error type and a message instead of a fact when the trip
// cannot be represented; derivation failures are data problems, never
// pipeline failures.
func deriveFact(trip domain.TripRecord, cache *dimensions.Cache, winMin, winMax time.Time) (domain.FactRecord, string, string) {
	if trip.PickupTime.IsZero() || trip.DropoffTime.IsZero() || trip.DropoffTime.Before(trip.PickupTime) {
		return domain.FactRecord{}, domain.ErrTypeInvalidDateRange,
			fmt.Sprintf("pickup %s, dropoff %s", trip.PickupTime, trip.DropoffTime)
	}
	if trip.PickupTime.Before(winMin) || !trip.PickupTime.Before(winMax) {
		return domain.FactRecord{}, domain.ErrTypeInvalidDateRange,
			fmt.Sprintf("pickup %s outside supported window [%s, %s)",
				trip.PickupTime.Format("2006-01-02"), winMin.Format("2006-01-02"), winMax.Format("2006-01-02"))
	}

	var missing []string
	pickup, ok := cache.Location(trip.PickupLocationID)
	if !ok {
		missing = append(missing, fmt.Sprintf("pickup location %d", trip.PickupLocationID))
	}
	dropoff, ok := cache.Location(trip.DropoffLocationID)
	if !ok {
		missing = append(missing, fmt.Sprintf("dropoff location %d", trip.DropoffLocationID))
	}
	vendorKey, ok := cache.Vendor(trip.VendorID)
	if !ok {
		missing = append(missing, fmt.Sprintf("vendor %d", trip.VendorID))
	}
	paymentKey, ok := cache.PaymentType(trip.PaymentType)
	if !ok {
		missing = append(missing, fmt.Sprintf("payment type %d", trip.PaymentType))
	}
	rateKey, ok := cache.RateCode(trip.RateCodeID)
	if !ok {
		missing = append(missing, fmt.Sprintf("rate code %d", trip.RateCodeID))
	}
	if len(missing) > 0 {
		return domain.FactRecord{}, domain.ErrTypeMissingDimensionKey, joinReasons(missing)
	}

	durationMin := trip.DropoffTime.Sub(trip.PickupTime).Minutes()

	fact := domain.FactRecord{
		ContentHash: trip.ContentHash,

		DateKey:            trip.PickupTime.Year()*10000 + int(trip.PickupTime.Month())*100 + trip.PickupTime.Day(),
		TimeKey:            trip.PickupTime.Hour()*100 + trip.PickupTime.Minute(),
		PickupLocationKey:  pickup.Key,
		DropoffLocationKey: dropoff.Key,
		VendorKey:          vendorKey,
		PaymentTypeKey:     paymentKey,
		RateCodeKey:        rateKey,

		PassengerCount: trip.PassengerCount,
		TripDistance:   trip.TripDistance,

		DurationMinutes: durationMin,
		BaseFare:        trip.FareAmount,
		TotalSurcharges: trip.Extra + trip.MTATax + trip.ImprovementSurcharge + trip.CongestionSurcharge + trip.AirportFee + trip.CBDCongestionFee,
		TotalAmount:     trip.TotalAmount,

		AirportTrip:  pickup.ZoneClass == refdata.ClassAirport || dropoff.ZoneClass == refdata.ClassAirport,
		CrossBorough: pickup.Borough != dropoff.Borough,
		CashPayment:  trip.PaymentType == cashPaymentType,
		LongDistance: trip.TripDistance > longDistanceMiles,
		ShortTrip:    trip.TripDistance < shortTripMiles || durationMin < shortTripMinutes,
	}

	if trip.FareAmount > 0 {
		fact.TipPercent = trip.TipAmount / trip.FareAmount * 100
	}
	if durationMin > 0 {
		fact.AvgSpeedMPH = trip.TripDistance / (durationMin / 60)
	}
	if trip.TripDistance > 0 {
		fact.RevenuePerMile = trip.TotalAmount / trip.TripDistance
	}
	return fact, "", ""
}

func joinReasons(reasons []string) string {
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += "; " + r
	}
	return out
}
