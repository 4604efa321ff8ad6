package types

import (
	"strings"
)

// Address is the normalized postal address exchanged with the tax provider.
// Persisted as JSONB on orders and nexus rows.
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
}

// countries where the provider resolves rates at region/postcode granularity
const (
	countryUS = "US"
	countryCA = "CA"
)

// IsZero reports whether no field of the address is set.
func (a Address) IsZero() bool {
	return a.Street == "" && a.City == "" && a.State == "" && a.PostalCode == "" && a.Country == ""
}

// Normalized returns a copy with trimmed fields and upper-cased country/state codes.
func (a Address) Normalized() Address {
	return Address{
		Street:     strings.TrimSpace(a.Street),
		City:       strings.TrimSpace(a.City),
		State:      strings.ToUpper(strings.TrimSpace(a.State)),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(a.Country)),
	}
}

// ValidateDestination checks the address is usable as a tax destination:
// country always required, postal code required for US, state required for US/CA.
func (a Address) ValidateDestination() []string {
	n := a.Normalized()
	var missing []string
	if n.Country == "" {
		missing = append(missing, "country")
		return missing
	}
	if n.Country == countryUS && n.PostalCode == "" {
		missing = append(missing, "postal_code")
	}
	if (n.Country == countryUS || n.Country == countryCA) && n.State == "" {
		missing = append(missing, "state")
	}
	return missing
}

// ValidateShipFrom checks the address carries everything the reporting service
// requires of an origin: country, state, postal code, city, and street.
func (a Address) ValidateShipFrom() []string {
	n := a.Normalized()
	var missing []string
	if n.Country == "" {
		missing = append(missing, "country")
	}
	if n.State == "" {
		missing = append(missing, "state")
	}
	if n.PostalCode == "" {
		missing = append(missing, "postal_code")
	}
	if n.City == "" {
		missing = append(missing, "city")
	}
	if n.Street == "" {
		missing = append(missing, "street")
	}
	return missing
}

// ValidateShipTo checks the address carries what the reporting service requires
// of a destination: country, state, and postal code.
func (a Address) ValidateShipTo() []string {
	n := a.Normalized()
	var missing []string
	if n.Country == "" {
		missing = append(missing, "country")
	}
	if n.State == "" {
		missing = append(missing, "state")
	}
	if n.PostalCode == "" {
		missing = append(missing, "postal_code")
	}
	return missing
}
