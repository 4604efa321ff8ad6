package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLineItem is a line on either a parent order or a vendor sub-order;
// OrderID points at the owning row. Sub-order lines set ParentItemID to the
// parent-order line they were derived from.
type OrderLineItem struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	ParentItemID     *uuid.UUID `gorm:"column:parent_item_id;type:uuid;index"`
	ProductID        uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	VendorID         uuid.UUID  `gorm:"column:vendor_id;type:uuid;not null;index"`
	Name             string     `gorm:"column:name;not null"`
	Qty              int        `gorm:"column:qty;not null"`
	UnitPriceCents   int64      `gorm:"column:unit_price_cents;not null"`
	DiscountCents    int64      `gorm:"column:discount_cents;not null;default:0"`
	TaxCode          string     `gorm:"column:tax_code;not null;default:''"`
	Virtual          bool       `gorm:"column:virtual;not null;default:false"`
	TaxCents         int64      `gorm:"column:tax_cents;not null;default:0"`
	SubtotalTaxCents int64      `gorm:"column:subtotal_tax_cents;not null;default:0"`
	TotalCents       int64      `gorm:"column:total_cents;not null"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// SubtotalCents is the pre-tax line amount after discount.
func (i OrderLineItem) SubtotalCents() int64 {
	return i.UnitPriceCents*int64(i.Qty) - i.DiscountCents
}
