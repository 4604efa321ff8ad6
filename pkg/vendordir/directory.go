package vendordir

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dariomontes/vendortax-backend/pkg/db/models"
	"github.com/dariomontes/vendortax-backend/pkg/types"
)

// Directory exposes the vendor lookups tax calculation needs: the nexus
// footprint and the preferred ship-from origin. uuid.Nil is the marketplace
// itself.
type Directory interface {
	NexusAddresses(ctx context.Context, vendorID uuid.UUID) ([]models.NexusAddress, error)
	DefaultShipFrom(ctx context.Context, vendorID uuid.UUID) (*types.Address, error)
}

// GormDirectory reads vendor data from the nexus_addresses table.
type GormDirectory struct {
	db *gorm.DB
}

// NewGormDirectory builds a directory tied to the provided GORM DB.
func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

// NexusAddresses lists all nexus rows registered for the vendor.
func (d *GormDirectory) NexusAddresses(ctx context.Context, vendorID uuid.UUID) ([]models.NexusAddress, error) {
	var rows []models.NexusAddress
	if err := d.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("is_default DESC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DefaultShipFrom returns the vendor's preferred origin address: the default
// nexus row if one is flagged, otherwise the oldest row. Returns nil when the
// vendor has no nexus rows at all.
func (d *GormDirectory) DefaultShipFrom(ctx context.Context, vendorID uuid.UUID) (*types.Address, error) {
	var row models.NexusAddress
	err := d.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("is_default DESC, created_at ASC").
		First(&row).Error
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	addr := row.Address()
	return &addr, nil
}
