package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/dariomontes/vendortax-backend/internal/allocate"
	"github.com/dariomontes/vendortax-backend/internal/partition"
	"github.com/dariomontes/vendortax-backend/internal/taxcalc"
	"github.com/dariomontes/vendortax-backend/pkg/db/models"
	"github.com/dariomontes/vendortax-backend/pkg/enums"
	pkgerrors "github.com/dariomontes/vendortax-backend/pkg/errors"
	"github.com/dariomontes/vendortax-backend/pkg/logger"
	"github.com/dariomontes/vendortax-backend/pkg/types"
)

type fakeOrderStore struct {
	order        *models.ParentOrder
	vendorOrders []models.VendorOrder
	saved        *models.ParentOrder
}

func (f *fakeOrderStore) GetParentOrder(_ context.Context, id uuid.UUID) (*models.ParentOrder, error) {
	if f.order == nil || f.order.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "parent order not found")
	}
	return f.order, nil
}

func (f *fakeOrderStore) ListVendorOrders(_ context.Context, parentOrderID uuid.UUID) ([]models.VendorOrder, error) {
	var out []models.VendorOrder
	for _, vo := range f.vendorOrders {
		if vo.ParentOrderID == parentOrderID {
			out = append(out, vo)
		}
	}
	return out, nil
}

func (f *fakeOrderStore) SaveAllocation(_ context.Context, order *models.ParentOrder) error {
	f.saved = order
	return nil
}

type fakeModeReader struct {
	mode enums.RemitterMode
}

func (f fakeModeReader) RemitterMode(context.Context) (enums.RemitterMode, error) {
	return f.mode, nil
}

type fakeComputer struct {
	outcomes func(subs []partition.SubTransaction) []taxcalc.Outcome
}

func (f *fakeComputer) ComputeAll(_ context.Context, subs []partition.SubTransaction) []taxcalc.Outcome {
	return f.outcomes(subs)
}

type fakeApplier struct {
	summary allocate.Summary
	applied []taxcalc.Outcome
}

func (f *fakeApplier) Apply(_ context.Context, _ *models.ParentOrder, outcomes []taxcalc.Outcome) allocate.Summary {
	f.applied = outcomes
	return f.summary
}

func testOrder() *models.ParentOrder {
	vendorA := uuid.New()
	vendorB := uuid.New()
	return &models.ParentOrder{
		ID:       uuid.New(),
		Currency: enums.CurrencyUSD,
		Items: []models.OrderLineItem{
			{ID: uuid.New(), VendorID: vendorA, UnitPriceCents: 1000, Qty: 1},
			{ID: uuid.New(), VendorID: vendorB, UnitPriceCents: 2000, Qty: 1},
		},
	}
}

func newOrderService(t *testing.T, store *fakeOrderStore, mode enums.RemitterMode, computer *fakeComputer, applier taxApplier) *Service {
	t.Helper()

	svc, err := NewService(store, fakeModeReader{mode: mode}, computer, applier,
		logger.New(logger.Options{ServiceName: "orders-test"}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestComputeOrderTaxMarketplaceMode(t *testing.T) {
	order := testOrder()
	store := &fakeOrderStore{order: order}
	computer := &fakeComputer{outcomes: func(subs []partition.SubTransaction) []taxcalc.Outcome {
		if len(subs) != 1 || subs[0].VendorID != uuid.Nil {
			t.Fatalf("marketplace mode must produce one marketplace partition, got %+v", subs)
		}
		return []taxcalc.Outcome{{Sub: subs[0], Result: &taxcalc.Result{TotalTaxCents: 240}}}
	}}
	applier := &fakeApplier{summary: allocate.Summary{RateRef: "external-tax-test", AppliedLineTaxCents: 240}}
	svc := newOrderService(t, store, enums.RemitterMarketplace, computer, applier)

	summary, err := svc.ComputeOrderTax(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if store.saved == nil {
		t.Fatalf("allocation was not persisted")
	}
	if summary.TaxRateRef != "external-tax-test" {
		t.Fatalf("unexpected rate ref %q", summary.TaxRateRef)
	}
	if len(summary.Partitions) != 1 || summary.Partitions[0].TotalTaxCents != 240 {
		t.Fatalf("unexpected partitions %+v", summary.Partitions)
	}
}

func TestComputeOrderTaxVendorModeSurfacesPartitionFailures(t *testing.T) {
	order := testOrder()
	store := &fakeOrderStore{order: order}
	computer := &fakeComputer{outcomes: func(subs []partition.SubTransaction) []taxcalc.Outcome {
		if len(subs) != 2 {
			t.Fatalf("vendor mode must split per vendor, got %d partitions", len(subs))
		}
		return []taxcalc.Outcome{
			{Sub: subs[0], Result: &taxcalc.Result{TotalTaxCents: 80}},
			{Sub: subs[1], Err: errors.New("provider unreachable")},
		}
	}}
	applier := &fakeApplier{summary: allocate.Summary{RateRef: "external-tax-test"}}
	svc := newOrderService(t, store, enums.RemitterVendor, computer, applier)

	summary, err := svc.ComputeOrderTax(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("a failed partition must not abort the pass: %v", err)
	}
	if len(summary.Partitions) != 2 {
		t.Fatalf("expected 2 partition outcomes, got %d", len(summary.Partitions))
	}
	if summary.Partitions[1].Error == "" {
		t.Fatalf("failed partition must surface its error")
	}
	if len(applier.applied) != 2 {
		t.Fatalf("allocator must still see every outcome")
	}
}

func TestComputeOrderTaxUsesVendorOrderDestinations(t *testing.T) {
	order := testOrder()
	order.ShippingAddress = &types.Address{Country: "US", State: "CA", PostalCode: "94103"}
	vendorA := order.Items[0].VendorID
	vendorB := order.Items[1].VendorID
	store := &fakeOrderStore{
		order: order,
		vendorOrders: []models.VendorOrder{
			{ID: uuid.New(), ParentOrderID: order.ID, VendorID: vendorA,
				ShippingAddress: &types.Address{Country: "US", State: "NY", PostalCode: "10001"}},
			{ID: uuid.New(), ParentOrderID: order.ID, VendorID: vendorB},
		},
	}
	computer := &fakeComputer{outcomes: func(subs []partition.SubTransaction) []taxcalc.Outcome {
		byVendor := map[uuid.UUID]partition.SubTransaction{}
		for _, sub := range subs {
			byVendor[sub.VendorID] = sub
		}
		if got := byVendor[vendorA].Context.ShippingAddress; got == nil || got.State != "NY" {
			t.Fatalf("vendor with its own sub-order destination must ship there, got %+v", got)
		}
		if got := byVendor[vendorB].Context.ShippingAddress; got == nil || got.State != "CA" {
			t.Fatalf("vendor without a sub-order destination must fall back to the parent address, got %+v", got)
		}
		return nil
	}}
	svc := newOrderService(t, store, enums.RemitterVendor, computer, &fakeApplier{})

	if _, err := svc.ComputeOrderTax(context.Background(), order.ID); err != nil {
		t.Fatalf("compute: %v", err)
	}
}

func TestComputeOrderTaxRecomputationKeepsTotals(t *testing.T) {
	order := testOrder()
	store := &fakeOrderStore{order: order}
	computer := &fakeComputer{outcomes: func(subs []partition.SubTransaction) []taxcalc.Outcome {
		out := make([]taxcalc.Outcome, 0, len(subs))
		for _, sub := range subs {
			result := &taxcalc.Result{
				VendorID:         sub.VendorID,
				LineItemTaxCents: map[uuid.UUID]int64{},
				ShippingTaxCents: map[uuid.UUID]int64{},
			}
			for _, item := range sub.Items {
				result.LineItemTaxCents[item.ID] = 80
				result.TotalTaxCents += 80
			}
			out = append(out, taxcalc.Outcome{Sub: sub, Result: result})
		}
		return out
	}}
	applier, err := allocate.NewService(logger.New(logger.Options{ServiceName: "orders-test"}))
	if err != nil {
		t.Fatalf("new allocator: %v", err)
	}
	svc := newOrderService(t, store, enums.RemitterMarketplace, computer, applier)

	first, err := svc.ComputeOrderTax(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("first compute: %v", err)
	}
	second, err := svc.ComputeOrderTax(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("second compute: %v", err)
	}
	if first.TaxCents != 160 || second.TaxCents != 160 {
		t.Fatalf("recomputation must not change the stored tax: first=%d second=%d", first.TaxCents, second.TaxCents)
	}
	if second.TotalCents != first.TotalCents {
		t.Fatalf("recomputation must not change the stored total: first=%d second=%d", first.TotalCents, second.TotalCents)
	}
}

func TestComputeOrderTaxUnknownOrder(t *testing.T) {
	store := &fakeOrderStore{}
	computer := &fakeComputer{outcomes: func([]partition.SubTransaction) []taxcalc.Outcome { return nil }}
	svc := newOrderService(t, store, enums.RemitterMarketplace, computer, &fakeApplier{})

	_, err := svc.ComputeOrderTax(context.Background(), uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
