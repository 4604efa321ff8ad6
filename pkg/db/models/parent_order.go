package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dariomontes/vendortax-backend/pkg/enums"
	"github.com/dariomontes/vendortax-backend/pkg/types"
)

// ParentOrder is the marketplace-level order a buyer checks out. Per-vendor
// sub-orders reference it through VendorOrder.ParentOrderID.
type ParentOrder struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber       int64                   `gorm:"column:order_number;not null"`
	Currency          enums.Currency          `gorm:"column:currency;type:text;not null;default:'USD'"`
	RemitterMode      enums.RemitterMode      `gorm:"column:remitter_mode;type:text;not null;default:'marketplace'"`
	FulfillmentMethod enums.FulfillmentMethod `gorm:"column:fulfillment_method;type:text;not null;default:'shipping'"`
	ShippingAddress   *types.Address          `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	BillingAddress    *types.Address          `gorm:"column:billing_address;type:jsonb;serializer:json"`
	SubtotalCents     int64                   `gorm:"column:subtotal_cents;not null;default:0"`
	ShippingCents     int64                   `gorm:"column:shipping_cents;not null;default:0"`
	TaxCents          int64                   `gorm:"column:tax_cents;not null;default:0"`
	ShippingTaxCents  int64                   `gorm:"column:shipping_tax_cents;not null;default:0"`
	TotalCents        int64                   `gorm:"column:total_cents;not null;default:0"`
	TaxRateRef        *string                 `gorm:"column:tax_rate_ref"`
	Items             []OrderLineItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ShippingLines     []ShippingLine          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
