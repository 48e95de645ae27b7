package domain

import (
	"time"
)

// TripRecord represents one normalized yellow-taxi trip as decoded from a
// monthly parquet file. This is a domain struct, not a database row; the
// warehouse layer maps it onto nyc_taxi.yellow_taxi_trips.
type TripRecord struct {
	VendorID          int
	PickupTime        time.Time
	DropoffTime       time.Time
	PassengerCount    int
	TripDistance      float64
	RateCodeID        int
	StoreAndFwdFlag   string
	PickupLocationID  int
	DropoffLocationID int
	PaymentType       int

	FareAmount           float64
	Extra                float64
	MTATax               float64
	TipAmount            float64
	TollsAmount          float64
	ImprovementSurcharge float64
	CongestionSurcharge  float64
	AirportFee           float64
	CBDCongestionFee     float64
	TotalAmount          float64

	// ContentHash is the deterministic digest over all normalized field
	// values above. It is the uniqueness key in the normalized table;
	// populated by the chunk loader before insertion.
	ContentHash string
}

// HashFields returns the record's full field set keyed by column name,
// suitable for content hashing. ContentHash itself is excluded.
func (t *TripRecord) HashFields() map[string]any {
	return map[string]any{
		"vendor_id":             t.VendorID,
		"tpep_pickup_datetime":  t.PickupTime,
		"tpep_dropoff_datetime": t.DropoffTime,
		"passenger_count":       t.PassengerCount,
		"trip_distance":         t.TripDistance,
		"ratecode_id":           t.RateCodeID,
		"store_and_fwd_flag":    t.StoreAndFwdFlag,
		"pu_location_id":        t.PickupLocationID,
		"do_location_id":        t.DropoffLocationID,
		"payment_type":          t.PaymentType,
		"fare_amount":           t.FareAmount,
		"extra":                 t.Extra,
		"mta_tax":               t.MTATax,
		"tip_amount":            t.TipAmount,
		"tolls_amount":          t.TollsAmount,
		"improvement_surcharge": t.ImprovementSurcharge,
		"congestion_surcharge":  t.CongestionSurcharge,
		"airport_fee":           t.AirportFee,
		"cbd_congestion_fee":    t.CBDCongestionFee,
		"total_amount":          t.TotalAmount,
	}
}
