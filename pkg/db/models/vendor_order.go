package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dariomontes/vendortax-backend/pkg/enums"
	"github.com/dariomontes/vendortax-backend/pkg/types"
)

// VendorOrder is the vendor-scoped sub-order derived from a parent order.
// Its line items carry ParentItemID so refunds on the parent can be mapped back.
type VendorOrder struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ParentOrderID   uuid.UUID       `gorm:"column:parent_order_id;type:uuid;not null;index"`
	VendorID        uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;index"`
	Currency        enums.Currency  `gorm:"column:currency;type:text;not null;default:'USD'"`
	ShippingAddress *types.Address  `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	SubtotalCents   int64           `gorm:"column:subtotal_cents;not null;default:0"`
	ShippingCents   int64           `gorm:"column:shipping_cents;not null;default:0"`
	TaxCents        int64           `gorm:"column:tax_cents;not null;default:0"`
	TotalCents      int64           `gorm:"column:total_cents;not null;default:0"`
	Items           []OrderLineItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
