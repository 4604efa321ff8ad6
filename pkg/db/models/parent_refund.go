package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dariomontes/vendortax-backend/pkg/types"
)

// ParentRefund is a refund issued against the marketplace-level order. The
// replicator fans it out into per-vendor Refund rows.
type ParentRefund struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ParentOrderID   uuid.UUID             `gorm:"column:parent_order_id;type:uuid;not null;index"`
	AmountCents     int64                 `gorm:"column:amount_cents;not null"`
	LineItemRefunds types.LineItemRefunds `gorm:"column:line_item_refunds;type:jsonb;serializer:json"`
	Reason          *string               `gorm:"column:reason"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
}
