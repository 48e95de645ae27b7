package domain

// FactRecord is the star-schema projection of a valid TripRecord. All
// dimension references are surrogate keys resolved through the per-run
// dimension cache; a FactRecord only exists when both location keys
// resolved and the pickup date is inside the supported partition window.
type FactRecord struct {
	ContentHash string

	DateKey            int // pickup date, YYYYMMDD
	TimeKey            int // pickup time of day, HHMM
	PickupLocationKey  int64
	DropoffLocationKey int64
	VendorKey          int64
	PaymentTypeKey     int64
	RateCodeKey        int64

	PassengerCount int
	TripDistance   float64

	// Derived measures.
	DurationMinutes float64
	TipPercent      float64
	AvgSpeedMPH     float64
	RevenuePerMile  float64
	BaseFare        float64
	TotalSurcharges float64
	TotalAmount     float64

	// Trip classification flags.
	AirportTrip  bool
	CrossBorough bool
	CashPayment  bool
	LongDistance bool
	ShortTrip    bool
}
