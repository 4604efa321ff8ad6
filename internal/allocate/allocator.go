package allocate

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dariomontes/vendortax-backend/internal/taxcalc"
	"github.com/dariomontes/vendortax-backend/pkg/db/models"
	"github.com/dariomontes/vendortax-backend/pkg/logger"
)

// Summary reports what one allocation pass did. AppliedLineTaxCents plus
// AppliedShippingTaxCents plus SkippedCents always equals the sum of the
// result totals fed in.
type Summary struct {
	RateRef                 string
	AppliedLineTaxCents     int64
	AppliedShippingTaxCents int64
	SkippedCents            int64
}

// Service writes computed tax amounts back onto orders.
type Service struct {
	log *logger.Logger
}

// NewService builds the allocator.
func NewService(log *logger.Logger) (*Service, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{log: log}, nil
}

// Apply writes each result's per-line amounts onto the order's line items and
// shipping lines, under one synthetic rate identifier for the whole pass. A
// pass supersedes any earlier allocation: externally computed tax fields are
// cleared before the new amounts land, so recomputing an already-taxed order
// yields the same totals instead of stacking them. Amounts whose line no
// longer exists on the order are skipped, not dropped silently: they surface
// in the summary and a warning log. Grand totals are recomputed exactly once,
// after every partition has been applied.
func (s *Service) Apply(ctx context.Context, order *models.ParentOrder, outcomes []taxcalc.Outcome) Summary {
	summary := Summary{RateRef: "external-tax-" + uuid.NewString()}
	if order == nil {
		return summary
	}

	itemsByID := make(map[uuid.UUID]*models.OrderLineItem, len(order.Items))
	for i := range order.Items {
		item := &order.Items[i]
		item.TotalCents -= item.TaxCents
		item.TaxCents = 0
		item.SubtotalTaxCents = 0
		itemsByID[item.ID] = item
	}
	linesByID := make(map[uuid.UUID]*models.ShippingLine, len(order.ShippingLines))
	for i := range order.ShippingLines {
		line := &order.ShippingLines[i]
		line.TaxCents = 0
		linesByID[line.ID] = line
	}

	for _, outcome := range outcomes {
		if outcome.Result == nil {
			continue
		}
		for id, cents := range outcome.Result.LineItemTaxCents {
			item, ok := itemsByID[id]
			if !ok {
				summary.SkippedCents += cents
				s.log.Warn(ctx, "skipping tax for line item no longer on order: "+id.String())
				continue
			}
			item.TaxCents += cents
			item.SubtotalTaxCents += cents
			item.TotalCents += cents
			summary.AppliedLineTaxCents += cents
		}
		for id, cents := range outcome.Result.ShippingTaxCents {
			line, ok := linesByID[id]
			if !ok {
				summary.SkippedCents += cents
				s.log.Warn(ctx, "skipping tax for shipping line no longer on order: "+id.String())
				continue
			}
			line.TaxCents += cents
			summary.AppliedShippingTaxCents += cents
		}
	}

	order.TaxRateRef = &summary.RateRef
	recomputeTotals(order)
	return summary
}

// recomputeTotals rebuilds the order aggregates from its lines. Runs once per
// allocation pass so no intermediate state is observable.
func recomputeTotals(order *models.ParentOrder) {
	var itemTax, shippingTax, subtotal, shippingCost int64
	for _, item := range order.Items {
		itemTax += item.TaxCents
		subtotal += item.SubtotalCents()
	}
	for _, line := range order.ShippingLines {
		shippingTax += line.TaxCents
		shippingCost += line.CostCents
	}
	order.SubtotalCents = subtotal
	order.ShippingCents = shippingCost
	order.TaxCents = itemTax
	order.ShippingTaxCents = shippingTax
	order.TotalCents = subtotal + shippingCost + itemTax + shippingTax
}
