package refunds

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dariomontes/vendortax-backend/pkg/db"
	"github.com/dariomontes/vendortax-backend/pkg/db/models"
	pkgerrors "github.com/dariomontes/vendortax-backend/pkg/errors"
)

// Repository persists parent refunds and their vendor sub-refunds.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(dbConn *gorm.DB) *Repository {
	return &Repository{db: dbConn}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateParentRefund persists a marketplace-level refund.
func (r *Repository) CreateParentRefund(ctx context.Context, refund *models.ParentRefund) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

// GetParentRefund loads a parent refund by id.
func (r *Repository) GetParentRefund(ctx context.Context, id uuid.UUID) (*models.ParentRefund, error) {
	var refund models.ParentRefund
	err := r.db.WithContext(ctx).First(&refund, "id = ?", id).Error
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "parent refund not found")
	}
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

// CreateSubRefund persists a vendor sub-refund. A second row for the same
// (parent refund, vendor) pair maps to CodeConflict.
func (r *Repository) CreateSubRefund(ctx context.Context, refund *models.Refund) error {
	err := r.db.WithContext(ctx).Create(refund).Error
	if err != nil && db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sub-refund already exists for vendor")
	}
	return err
}

// GetSubRefund loads a sub-refund by id.
func (r *Repository) GetSubRefund(ctx context.Context, id uuid.UUID) (*models.Refund, error) {
	var refund models.Refund
	err := r.db.WithContext(ctx).First(&refund, "id = ?", id).Error
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund not found")
	}
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

// ListSubRefunds returns all sub-refunds of a parent refund.
func (r *Repository) ListSubRefunds(ctx context.Context, parentRefundID uuid.UUID) ([]models.Refund, error) {
	var refunds []models.Refund
	if err := r.db.WithContext(ctx).
		Where("parent_refund_id = ?", parentRefundID).
		Order("created_at ASC").
		Find(&refunds).Error; err != nil {
		return nil, err
	}
	return refunds, nil
}

// DeleteParentRefund removes the parent refund and all its sub-refunds.
func (r *Repository) DeleteParentRefund(ctx context.Context, parentRefundID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_refund_id = ?", parentRefundID).Delete(&models.Refund{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", parentRefundID).Delete(&models.ParentRefund{}).Error
	})
}
