package taxcalc

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dariomontes/vendortax-backend/internal/nexus"
	"github.com/dariomontes/vendortax-backend/internal/partition"
	"github.com/dariomontes/vendortax-backend/pkg/db/models"
	pkgerrors "github.com/dariomontes/vendortax-backend/pkg/errors"
	"github.com/dariomontes/vendortax-backend/pkg/logger"
	"github.com/dariomontes/vendortax-backend/pkg/taxprovider"
	"github.com/dariomontes/vendortax-backend/pkg/types"
)

// Result holds normalized tax amounts for one sub-transaction, keyed by the
// original line-item and shipping-line ids.
type Result struct {
	VendorID         uuid.UUID            `json:"vendor_id"`
	LineItemTaxCents map[uuid.UUID]int64  `json:"line_item_tax_cents"`
	ShippingTaxCents map[uuid.UUID]int64  `json:"shipping_tax_cents"`
	TotalTaxCents    int64                `json:"total_tax_cents"`
}

// Outcome pairs a sub-transaction with its computation result. Failed
// partitions carry a zero result and the error that caused it.
type Outcome struct {
	Sub    partition.SubTransaction
	Result *Result
	Err    error
}

type providerClient interface {
	CalculateOrderTax(ctx context.Context, req taxprovider.OrderTaxRequest) (*taxprovider.OrderTaxResult, error)
}

type addressResolver interface {
	ResolveNexus(ctx context.Context, vendorID uuid.UUID) ([]models.NexusAddress, error)
	ResolveDestination(ctx context.Context, tc nexus.TransactionContext) (types.Address, error)
}

// Service computes tax for sub-transactions through the external provider,
// fronted by the fingerprint cache.
type Service struct {
	provider providerClient
	resolver addressResolver
	cache    *Cache
	log      *logger.Logger
}

// NewService builds the tax computation service.
func NewService(provider providerClient, resolver addressResolver, cache *Cache, log *logger.Logger) (*Service, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider client required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("address resolver required")
	}
	if cache == nil {
		return nil, fmt.Errorf("cache required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{provider: provider, resolver: resolver, cache: cache, log: log}, nil
}

// Compute resolves addresses, consults the cache, and calls the provider for
// one sub-transaction. Fails with CodeInvalidDestination when the destination
// is not taxable, CodeMissingNexus when the remitter has no usable nexus, and
// CodeDependency on provider failures.
func (s *Service) Compute(ctx context.Context, sub partition.SubTransaction) (*Result, error) {
	if len(sub.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sub-transaction has no line items")
	}

	destination, err := s.resolver.ResolveDestination(ctx, sub.Context)
	if err != nil {
		return nil, err
	}
	if missing := destination.ValidateDestination(); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidDestination, "destination address fails validation").
			WithDetails(map[string]any{"missing": missing})
	}

	nexusRows, err := s.resolver.ResolveNexus(ctx, sub.VendorID)
	if err != nil {
		return nil, err
	}
	if len(nexusRows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeMissingNexus, "no usable nexus address for remitter")
	}

	fingerprint := Fingerprint(sub, destination, nexusRows)
	if cached, ok := s.cache.Get(ctx, fingerprint); ok {
		return cached, nil
	}

	req := taxprovider.OrderTaxRequest{
		FromAddress:   nexusRows[0].Address(),
		ToAddress:     destination,
		ShippingCents: sub.ShippingCents,
	}
	for _, row := range nexusRows {
		req.NexusAddresses = append(req.NexusAddresses, row.Address())
	}
	for _, item := range sub.Items {
		req.LineItems = append(req.LineItems, taxprovider.LineItem{
			ID:             item.ID.String(),
			Quantity:       item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			DiscountCents:  item.DiscountCents,
			TaxCode:        item.TaxCode,
		})
	}

	providerResult, err := s.provider.CalculateOrderTax(ctx, req)
	if err != nil {
		return nil, err
	}

	result := s.normalize(ctx, sub, providerResult)
	s.cache.Put(ctx, fingerprint, result)
	return result, nil
}

// ComputeAll computes every partition, isolating failures: a failed partition
// yields a zero result and a warning log, never aborting its siblings.
func (s *Service) ComputeAll(ctx context.Context, subs []partition.SubTransaction) []Outcome {
	outcomes := make([]Outcome, 0, len(subs))
	for _, sub := range subs {
		vendorCtx := s.log.WithVendorID(ctx, sub.VendorID.String())
		result, err := s.Compute(ctx, sub)
		if err != nil {
			s.log.Warn(vendorCtx, "tax computation failed, defaulting partition to zero tax: "+err.Error())
			result = zeroResult(sub)
		}
		outcomes = append(outcomes, Outcome{Sub: sub, Result: result, Err: err})
	}
	return outcomes
}

func (s *Service) normalize(ctx context.Context, sub partition.SubTransaction, pr *taxprovider.OrderTaxResult) *Result {
	result := &Result{
		VendorID:         sub.VendorID,
		LineItemTaxCents: map[uuid.UUID]int64{},
		ShippingTaxCents: map[uuid.UUID]int64{},
	}

	for _, line := range pr.Lines {
		id, err := uuid.Parse(line.ID)
		if err != nil {
			s.log.Warn(ctx, "provider returned unknown line id "+line.ID)
			continue
		}
		result.LineItemTaxCents[id] = line.TaxCollectableCents
		result.TotalTaxCents += line.TaxCollectableCents
	}

	for id, cents := range distributeShippingTax(sub.ShippingLines, pr.ShippingTaxCents) {
		result.ShippingTaxCents[id] = cents
		result.TotalTaxCents += cents
	}
	return result
}

// distributeShippingTax splits the provider's shipping-tax total across the
// partition's shipping lines proportionally to cost share, rounding to whole
// cents with the remainder folded into the last line so the parts always sum
// to the total. A zero total cost allocates zero everywhere.
func distributeShippingTax(lines []models.ShippingLine, totalTaxCents int64) map[uuid.UUID]int64 {
	allocation := make(map[uuid.UUID]int64, len(lines))

	var totalCost int64
	for _, line := range lines {
		allocation[line.ID] = 0
		totalCost += line.CostCents
	}
	if totalCost == 0 || totalTaxCents == 0 || len(lines) == 0 {
		return allocation
	}

	totalTax := decimal.NewFromInt(totalTaxCents)
	cost := decimal.NewFromInt(totalCost)
	var allocated int64
	for i, line := range lines {
		if i == len(lines)-1 {
			allocation[line.ID] = totalTaxCents - allocated
			break
		}
		share := totalTax.
			Mul(decimal.NewFromInt(line.CostCents)).
			Div(cost).
			Round(0).
			IntPart()
		allocation[line.ID] = share
		allocated += share
	}
	return allocation
}

func zeroResult(sub partition.SubTransaction) *Result {
	result := &Result{
		VendorID:         sub.VendorID,
		LineItemTaxCents: map[uuid.UUID]int64{},
		ShippingTaxCents: map[uuid.UUID]int64{},
	}
	for _, item := range sub.Items {
		result.LineItemTaxCents[item.ID] = 0
	}
	for _, line := range sub.ShippingLines {
		result.ShippingTaxCents[line.ID] = 0
	}
	return result
}
