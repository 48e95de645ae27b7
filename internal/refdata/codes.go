package refdata

// Code is one entry of a static TLC code list.
type Code struct {
	ID   int
	Name string
}

// Vendors returns the TPEP vendor code list from the yellow trips data
// dictionary.
func Vendors() []Code {
	return []Code{
		{1, "Creative Mobile Technologies, LLC"},
		{2, "VeriFone Inc."},
	}
}

// PaymentTypes returns the payment type code list. Code 2 is cash, which
// drives the cash-payment fact flag.
func PaymentTypes() []Code {
	return []Code{
		{1, "Credit card"},
		{2, "Cash"},
		{3, "No charge"},
		{4, "Dispute"},
		{5, "Unknown"},
		{6, "Voided trip"},
	}
}

// RateCodes returns the rate code list.
func RateCodes() []Code {
	return []Code{
		{1, "Standard rate"},
		{2, "JFK"},
		{3, "Newark"},
		{4, "Nassau or Westchester"},
		{5, "Negotiated fare"},
		{6, "Group ride"},
	}
}
