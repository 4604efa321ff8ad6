package enums

import "fmt"

// RemitterMode selects the legal entity responsible for remitting collected tax.
type RemitterMode string

const (
	RemitterMarketplace RemitterMode = "marketplace"
	RemitterVendor      RemitterMode = "vendor"
)

var validRemitterModes = []RemitterMode{
	RemitterMarketplace,
	RemitterVendor,
}

// String implements fmt.Stringer.
func (m RemitterMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known RemitterMode.
func (m RemitterMode) IsValid() bool {
	for _, candidate := range validRemitterModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseRemitterMode converts raw input into a RemitterMode.
func ParseRemitterMode(value string) (RemitterMode, error) {
	for _, candidate := range validRemitterModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid remitter mode %q", value)
}
