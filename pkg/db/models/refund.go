package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dariomontes/vendortax-backend/pkg/enums"
	"github.com/dariomontes/vendortax-backend/pkg/types"
)

// Refund is a vendor-scoped sub-refund replicated from a ParentRefund. It
// doubles as the reporting record: the reporting queue owns the Report* fields.
// At most one row may exist per (parent_refund_id, vendor_id).
type Refund struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorOrderID   uuid.UUID             `gorm:"column:vendor_order_id;type:uuid;not null;index"`
	ParentOrderID   uuid.UUID             `gorm:"column:parent_order_id;type:uuid;not null;index"`
	ParentRefundID  uuid.UUID             `gorm:"column:parent_refund_id;type:uuid;not null;uniqueIndex:ux_refunds_parent_vendor"`
	VendorID        uuid.UUID             `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex:ux_refunds_parent_vendor"`
	AmountCents     int64                 `gorm:"column:amount_cents;not null"`
	ShippingCents   int64                 `gorm:"column:shipping_cents;not null;default:0"`
	SalesTaxCents   int64                 `gorm:"column:sales_tax_cents;not null;default:0"`
	LineItemRefunds types.LineItemRefunds `gorm:"column:line_item_refunds;type:jsonb;serializer:json"`
	TransactionDate time.Time             `gorm:"column:transaction_date;not null"`
	ReportStatus    enums.ReportStatus    `gorm:"column:report_status;type:text;not null;default:'unset'"`
	ReportAttempts  int                   `gorm:"column:report_attempts;not null;default:0"`
	LastReportAt    *time.Time            `gorm:"column:last_report_at"`
	ReportError     *string               `gorm:"column:report_error"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
