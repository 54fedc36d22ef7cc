package types

import "strings"

// Address is the postal address snapshot stored on orders and suppliers.
// Persisted as jsonb via the gorm json serializer.
type Address struct {
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
}

// IsZero reports whether no field of the address is populated.
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Line1) == "" &&
		a.Line2 == nil &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.State) == "" &&
		strings.TrimSpace(a.PostalCode) == "" &&
		strings.TrimSpace(a.Country) == ""
}
