package nexus

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dariomontes/vendortax-backend/pkg/db/models"
	"github.com/dariomontes/vendortax-backend/pkg/enums"
	"github.com/dariomontes/vendortax-backend/pkg/logger"
	"github.com/dariomontes/vendortax-backend/pkg/types"
)

type nexusSource interface {
	NexusAddresses(ctx context.Context, vendorID uuid.UUID) ([]models.NexusAddress, error)
}

type baseAddressReader interface {
	StoreBaseAddress(ctx context.Context) (*types.Address, error)
}

// Resolver answers the two address questions tax calculation asks: which nexus
// addresses apply to a remitter, and where a sub-transaction is destined.
type Resolver struct {
	source   nexusSource
	settings baseAddressReader
	log      *logger.Logger
}

// NewResolver builds the resolver.
func NewResolver(source nexusSource, settings baseAddressReader, log *logger.Logger) (*Resolver, error) {
	if source == nil {
		return nil, fmt.Errorf("nexus source required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings reader required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Resolver{source: source, settings: settings, log: log}, nil
}

// ResolveNexus returns the usable nexus addresses configured for the vendor.
// For the marketplace sentinel (uuid.Nil) with no explicit rows, it falls back
// to the store's base address. An empty result is returned as-is; callers
// treat empty as a hard error.
func (r *Resolver) ResolveNexus(ctx context.Context, vendorID uuid.UUID) ([]models.NexusAddress, error) {
	rows, err := r.source.NexusAddresses(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	usable := make([]models.NexusAddress, 0, len(rows))
	for _, row := range rows {
		if row.Usable() {
			usable = append(usable, row)
		} else {
			r.log.Warn(r.log.WithVendorID(ctx, vendorID.String()), "skipping incomplete nexus address")
		}
	}
	if len(usable) > 0 || vendorID != uuid.Nil {
		return usable, nil
	}

	base, err := r.settings.StoreBaseAddress(ctx)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return usable, nil
	}
	fallback := models.NexusAddress{
		VendorID:   uuid.Nil,
		Country:    base.Country,
		State:      base.State,
		PostalCode: base.PostalCode,
		City:       base.City,
		Street:     base.Street,
		IsDefault:  true,
	}
	if !fallback.Usable() {
		return usable, nil
	}
	return []models.NexusAddress{fallback}, nil
}

// TransactionContext carries the addressing facts of one sub-transaction.
type TransactionContext struct {
	FulfillmentMethod enums.FulfillmentMethod
	ShippingAddress   *types.Address
	BillingAddress    *types.Address
	VirtualOnly       bool
}

// ResolveDestination picks the taxable destination for a sub-transaction:
// the store base address for local pickup, the billing address for
// virtual-only partitions, otherwise the partition's shipping address.
// Returns a zero address when nothing is configured; destination validation
// downstream rejects it.
func (r *Resolver) ResolveDestination(ctx context.Context, tc TransactionContext) (types.Address, error) {
	if tc.FulfillmentMethod == enums.FulfillmentLocalPickup {
		base, err := r.settings.StoreBaseAddress(ctx)
		if err != nil {
			return types.Address{}, err
		}
		if base != nil {
			return base.Normalized(), nil
		}
		return types.Address{}, nil
	}

	if tc.VirtualOnly && tc.BillingAddress != nil && !tc.BillingAddress.IsZero() {
		return tc.BillingAddress.Normalized(), nil
	}
	if tc.ShippingAddress != nil && !tc.ShippingAddress.IsZero() {
		return tc.ShippingAddress.Normalized(), nil
	}
	if tc.BillingAddress != nil && !tc.BillingAddress.IsZero() {
		return tc.BillingAddress.Normalized(), nil
	}
	return types.Address{}, nil
}
