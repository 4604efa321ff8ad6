package refunds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/dariomontes/vendortax-backend/pkg/db/models"
	pkgerrors "github.com/dariomontes/vendortax-backend/pkg/errors"
	"github.com/dariomontes/vendortax-backend/pkg/logger"
	"github.com/dariomontes/vendortax-backend/pkg/types"
)

type vendorOrderLister interface {
	ListVendorOrders(ctx context.Context, parentOrderID uuid.UUID) ([]models.VendorOrder, error)
}

type subRefundCreator interface {
	CreateSubRefund(ctx context.Context, refund *models.Refund) error
}

type refundNotifier interface {
	RefundCreated(ctx context.Context, event RefundCreatedEvent) error
}

// Replicator fans a parent refund out into one sub-refund per vendor whose
// sub-order items overlap the refunded parent items. It registers on the
// refund-created dispatcher and suppresses re-delivery for the sub-refunds it
// creates itself.
type Replicator struct {
	orders   vendorOrderLister
	repo     subRefundCreator
	notifier refundNotifier
	log      *logger.Logger
	now      func() time.Time
}

// NewReplicator builds the replicator.
func NewReplicator(orders vendorOrderLister, repo subRefundCreator, notifier refundNotifier, log *logger.Logger) (*Replicator, error) {
	if orders == nil {
		return nil, fmt.Errorf("vendor order lister required")
	}
	if repo == nil {
		return nil, fmt.Errorf("sub-refund creator required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("refund notifier required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Replicator{orders: orders, repo: repo, notifier: notifier, log: log, now: time.Now}, nil
}

// Name implements Handler.
func (r *Replicator) Name() string { return "refund-replicator" }

// OnRefundCreated implements Handler: parent refunds trigger replication,
// sub-refund events are not the replicator's concern.
func (r *Replicator) OnRefundCreated(ctx context.Context, event RefundCreatedEvent) error {
	if event.ParentRefund == nil {
		return nil
	}
	return r.ReplicateParentRefund(ctx, event.ParentRefund)
}

// ReplicateParentRefund creates the per-vendor sub-refunds for a parent
// refund. Vendors whose computed amount is zero are skipped; a failure for
// one vendor never blocks the remaining vendors. The whole pass runs under
// the suppression guard, released on every exit path.
func (r *Replicator) ReplicateParentRefund(ctx context.Context, parent *models.ParentRefund) error {
	if parent == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "nil parent refund passed to replicator")
	}

	ctx, release := SuppressReplication(ctx)
	defer release()
	ctx = r.log.WithRefundID(ctx, parent.ID.String())

	subOrders, err := r.orders.ListVendorOrders(ctx, parent.ParentOrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeReplication, err, "list vendor sub-orders")
	}

	var errs error
	for _, subOrder := range subOrders {
		vendorCtx := r.log.WithVendorID(ctx, subOrder.VendorID.String())

		subRefund := r.buildSubRefund(parent, subOrder)
		if subRefund == nil {
			continue
		}
		if err := r.repo.CreateSubRefund(vendorCtx, subRefund); err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
				r.log.Warn(vendorCtx, "sub-refund already replicated for vendor, skipping")
				continue
			}
			r.log.Error(vendorCtx, "creating sub-refund failed", err)
			errs = multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeReplication, err, "create sub-refund"))
			continue
		}
		if err := r.notifier.RefundCreated(vendorCtx, RefundCreatedEvent{SubRefund: subRefund}); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// buildSubRefund maps the refunded parent items onto the sub-order's items
// via their stored cross-reference. Nil means the vendor has no overlap.
func (r *Replicator) buildSubRefund(parent *models.ParentRefund, subOrder models.VendorOrder) *models.Refund {
	itemsByParentID := make(map[uuid.UUID]models.OrderLineItem, len(subOrder.Items))
	for _, item := range subOrder.Items {
		if item.ParentItemID != nil {
			itemsByParentID[*item.ParentItemID] = item
		}
	}

	var amountCents, taxCents int64
	var lineRefunds types.LineItemRefunds
	for _, lineRefund := range parent.LineItemRefunds {
		item, ok := itemsByParentID[lineRefund.LineItemID]
		if !ok {
			continue
		}
		lineTax := proportionalTax(item, lineRefund.AmountCents)
		amountCents += lineRefund.AmountCents
		taxCents += lineTax
		lineRefunds = append(lineRefunds, types.LineItemRefund{
			LineItemID:    item.ID,
			Quantity:      lineRefund.Quantity,
			AmountCents:   lineRefund.AmountCents,
			Description:   item.Name,
			SalesTaxCents: lineTax,
		})
	}
	if amountCents == 0 {
		return nil
	}

	return &models.Refund{
		ID:              uuid.New(),
		VendorOrderID:   subOrder.ID,
		ParentOrderID:   parent.ParentOrderID,
		ParentRefundID:  parent.ID,
		VendorID:        subOrder.VendorID,
		AmountCents:     amountCents,
		SalesTaxCents:   taxCents,
		LineItemRefunds: lineRefunds,
		TransactionDate: r.now().UTC(),
	}
}

// proportionalTax computes the refunded share of a line's collected tax,
// rounded to whole cents.
func proportionalTax(item models.OrderLineItem, refundedCents int64) int64 {
	subtotal := item.SubtotalCents()
	if subtotal <= 0 || item.TaxCents == 0 {
		return 0
	}
	return decimal.NewFromInt(item.TaxCents).
		Mul(decimal.NewFromInt(refundedCents)).
		Div(decimal.NewFromInt(subtotal)).
		Round(0).
		IntPart()
}
