package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dariomontes/vendortax-backend/pkg/types"
)

// NexusAddress is a location establishing a tax obligation for a vendor.
// VendorID uuid.Nil marks rows belonging to the marketplace itself.
type NexusAddress struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID   uuid.UUID `gorm:"column:vendor_id;type:uuid;not null;index"`
	Country    string    `gorm:"column:country;not null"`
	State      string    `gorm:"column:state;not null;default:''"`
	PostalCode string    `gorm:"column:postal_code;not null;default:''"`
	City       string    `gorm:"column:city;not null;default:''"`
	Street     string    `gorm:"column:street;not null;default:''"`
	IsDefault  bool      `gorm:"column:is_default;not null;default:false"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Address converts the row into the wire address shape.
func (n NexusAddress) Address() types.Address {
	return types.Address{
		Street:     n.Street,
		City:       n.City,
		State:      n.State,
		PostalCode: n.PostalCode,
		Country:    n.Country,
	}
}

// Usable reports whether the row can appear in a tax request. US/CA nexus rows
// need state and postal code for region-level resolution.
func (n NexusAddress) Usable() bool {
	addr := n.Address().Normalized()
	if addr.Country == "" {
		return false
	}
	if addr.Country == "US" || addr.Country == "CA" {
		return addr.State != "" && addr.PostalCode != ""
	}
	return true
}
