package models

import (
	"time"

	"github.com/google/uuid"
)

// ShippingTaxCode is the fixed provider tax code carried by every shipping line.
const ShippingTaxCode = "shipping"

// ShippingLine is a shipping charge on a parent order, optionally scoped to a
// single vendor when the platform has already split shipping per vendor.
type ShippingLine struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	VendorID  *uuid.UUID `gorm:"column:vendor_id;type:uuid;index"`
	Title     string     `gorm:"column:title;not null;default:''"`
	CostCents int64      `gorm:"column:cost_cents;not null;default:0"`
	TaxCents  int64      `gorm:"column:tax_cents;not null;default:0"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
