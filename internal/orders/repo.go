package orders

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dariomontes/vendortax-backend/pkg/db/models"
	pkgerrors "github.com/dariomontes/vendortax-backend/pkg/errors"
)

// Repository wires together order, line-item, and shipping-line persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// GetParentOrder loads the parent order with its line items and shipping lines.
func (r *Repository) GetParentOrder(ctx context.Context, id uuid.UUID) (*models.ParentOrder, error) {
	var order models.ParentOrder
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("ShippingLines").
		First(&order, "id = ?", id).Error
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "parent order not found")
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListVendorOrders loads all vendor sub-orders of a parent order, items included.
func (r *Repository) ListVendorOrders(ctx context.Context, parentOrderID uuid.UUID) ([]models.VendorOrder, error) {
	var orders []models.VendorOrder
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("parent_order_id = ?", parentOrderID).
		Order("created_at ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// SaveAllocation persists the tax fields the allocator wrote onto the order,
// its line items, and its shipping lines, in one transaction.
func (r *Repository) SaveAllocation(ctx context.Context, order *models.ParentOrder) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "nil order passed to SaveAllocation")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range order.Items {
			item := &order.Items[i]
			if err := tx.Model(&models.OrderLineItem{}).
				Where("id = ?", item.ID).
				Updates(map[string]any{
					"tax_cents":          item.TaxCents,
					"subtotal_tax_cents": item.SubtotalTaxCents,
					"total_cents":        item.TotalCents,
				}).Error; err != nil {
				return err
			}
		}
		for i := range order.ShippingLines {
			line := &order.ShippingLines[i]
			if err := tx.Model(&models.ShippingLine{}).
				Where("id = ?", line.ID).
				Update("tax_cents", line.TaxCents).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.ParentOrder{}).
			Where("id = ?", order.ID).
			Updates(map[string]any{
				"tax_cents":          order.TaxCents,
				"shipping_tax_cents": order.ShippingTaxCents,
				"total_cents":        order.TotalCents,
				"tax_rate_ref":       order.TaxRateRef,
			}).Error
	})
}
