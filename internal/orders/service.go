package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dariomontes/vendortax-backend/internal/allocate"
	"github.com/dariomontes/vendortax-backend/internal/partition"
	"github.com/dariomontes/vendortax-backend/internal/taxcalc"
	"github.com/dariomontes/vendortax-backend/pkg/db/models"
	"github.com/dariomontes/vendortax-backend/pkg/enums"
	"github.com/dariomontes/vendortax-backend/pkg/logger"
	"github.com/dariomontes/vendortax-backend/pkg/types"
)

type orderStore interface {
	GetParentOrder(ctx context.Context, id uuid.UUID) (*models.ParentOrder, error)
	ListVendorOrders(ctx context.Context, parentOrderID uuid.UUID) ([]models.VendorOrder, error)
	SaveAllocation(ctx context.Context, order *models.ParentOrder) error
}

type modeReader interface {
	RemitterMode(ctx context.Context) (enums.RemitterMode, error)
}

type taxComputer interface {
	ComputeAll(ctx context.Context, subs []partition.SubTransaction) []taxcalc.Outcome
}

type taxApplier interface {
	Apply(ctx context.Context, order *models.ParentOrder, outcomes []taxcalc.Outcome) allocate.Summary
}

// PartitionOutcome reports one sub-transaction of a compute pass. Error is
// empty when the partition resolved; a failed partition contributed zero tax.
type PartitionOutcome struct {
	VendorID      uuid.UUID `json:"vendor_id"`
	TotalTaxCents int64     `json:"total_tax_cents"`
	Error         string    `json:"error,omitempty"`
}

// ComputeSummary is the API-facing result of one order tax computation.
type ComputeSummary struct {
	OrderID          uuid.UUID          `json:"order_id"`
	RemitterMode     enums.RemitterMode `json:"remitter_mode"`
	TaxRateRef       string             `json:"tax_rate_ref"`
	TaxCents         int64              `json:"tax_cents"`
	ShippingTaxCents int64              `json:"shipping_tax_cents"`
	TotalCents       int64              `json:"total_cents"`
	SkippedCents     int64              `json:"skipped_cents,omitempty"`
	Partitions       []PartitionOutcome `json:"partitions"`
}

// Service runs the full compute pipeline for one order: load, split per
// remitter, compute per partition, allocate back onto the order, persist.
type Service struct {
	store    orderStore
	settings modeReader
	computer taxComputer
	applier  taxApplier
	log      *logger.Logger
}

// NewService builds the order tax service.
func NewService(store orderStore, settings modeReader, computer taxComputer, applier taxApplier, log *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("order store required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings reader required")
	}
	if computer == nil {
		return nil, fmt.Errorf("tax computer required")
	}
	if applier == nil {
		return nil, fmt.Errorf("tax applier required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		store:    store,
		settings: settings,
		computer: computer,
		applier:  applier,
		log:      log,
	}, nil
}

// ComputeOrderTax computes and persists tax for one order. Partition failures
// do not abort the pass: their slice of the order simply carries zero tax and
// the failure surfaces in the summary.
func (s *Service) ComputeOrderTax(ctx context.Context, orderID uuid.UUID) (*ComputeSummary, error) {
	ctx = s.log.WithOrderID(ctx, orderID.String())

	order, err := s.store.GetParentOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	mode, err := s.settings.RemitterMode(ctx)
	if err != nil {
		return nil, err
	}

	in := partition.Input{Order: order, Mode: mode}
	if mode == enums.RemitterVendor {
		// split shipments may carry per-vendor destinations on the sub-orders
		shipTo, err := s.vendorDestinations(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		in.VendorShipTo = shipTo
	}

	subs, err := partition.Partition(in)
	if err != nil {
		return nil, err
	}

	outcomes := s.computer.ComputeAll(ctx, subs)
	applied := s.applier.Apply(ctx, order, outcomes)

	if err := s.store.SaveAllocation(ctx, order); err != nil {
		return nil, err
	}

	summary := &ComputeSummary{
		OrderID:          order.ID,
		RemitterMode:     mode,
		TaxRateRef:       applied.RateRef,
		TaxCents:         order.TaxCents,
		ShippingTaxCents: order.ShippingTaxCents,
		TotalCents:       order.TotalCents,
		SkippedCents:     applied.SkippedCents,
	}
	for _, outcome := range outcomes {
		po := PartitionOutcome{VendorID: outcome.Sub.VendorID}
		if outcome.Result != nil {
			po.TotalTaxCents = outcome.Result.TotalTaxCents
		}
		if outcome.Err != nil {
			po.Error = outcome.Err.Error()
		}
		summary.Partitions = append(summary.Partitions, po)
	}
	s.log.Info(ctx, "order tax computed")
	return summary, nil
}

func (s *Service) vendorDestinations(ctx context.Context, parentOrderID uuid.UUID) (map[uuid.UUID]*types.Address, error) {
	subOrders, err := s.store.ListVendorOrders(ctx, parentOrderID)
	if err != nil {
		return nil, err
	}
	shipTo := make(map[uuid.UUID]*types.Address, len(subOrders))
	for i := range subOrders {
		if subOrders[i].ShippingAddress != nil {
			shipTo[subOrders[i].VendorID] = subOrders[i].ShippingAddress
		}
	}
	return shipTo, nil
}
