package partition

import (
	"testing"

	"github.com/google/uuid"

	"github.com/dariomontes/vendortax-backend/pkg/db/models"
	"github.com/dariomontes/vendortax-backend/pkg/enums"
	"github.com/dariomontes/vendortax-backend/pkg/types"
)

func buildOrder(items []models.OrderLineItem, lines []models.ShippingLine) *models.ParentOrder {
	return &models.ParentOrder{
		ID:                uuid.New(),
		Currency:          enums.CurrencyUSD,
		FulfillmentMethod: enums.FulfillmentShipping,
		ShippingAddress:   &types.Address{State: "CA", PostalCode: "94107", Country: "US"},
		BillingAddress:    &types.Address{State: "TX", PostalCode: "75001", Country: "US"},
		Items:             items,
		ShippingLines:     lines,
	}
}

func item(vendorID uuid.UUID, priceCents int64, virtual bool) models.OrderLineItem {
	return models.OrderLineItem{
		ID:             uuid.New(),
		ProductID:      uuid.New(),
		VendorID:       vendorID,
		Qty:            1,
		UnitPriceCents: priceCents,
		TotalCents:     priceCents,
		Virtual:        virtual,
	}
}

func TestPartitionMarketplaceModeEmitsOne(t *testing.T) {
	vendorA := uuid.New()
	vendorB := uuid.New()
	order := buildOrder(
		[]models.OrderLineItem{item(vendorA, 1000, false), item(vendorB, 2000, true)},
		[]models.ShippingLine{{ID: uuid.New(), CostCents: 500}},
	)

	subs, err := Partition(Input{Order: order, Mode: enums.RemitterMarketplace})
	if err != nil {
		t.Fatalf("partition: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected 1 partition, got %d", len(subs))
	}
	if subs[0].VendorID != uuid.Nil {
		t.Fatalf("expected marketplace sentinel vendor, got %s", subs[0].VendorID)
	}
	if len(subs[0].Items) != 2 || subs[0].ShippingCents != 500 {
		t.Fatalf("unexpected partition %+v", subs[0])
	}
	if subs[0].Context.VirtualOnly {
		t.Fatal("mixed order must not be virtual-only")
	}
}

func TestPartitionVendorModeGroupsByVendor(t *testing.T) {
	vendorA := uuid.New()
	vendorB := uuid.New()
	lineA := models.ShippingLine{ID: uuid.New(), VendorID: &vendorA, CostCents: 300}
	lineB := models.ShippingLine{ID: uuid.New(), VendorID: &vendorB, CostCents: 200}
	order := buildOrder(
		[]models.OrderLineItem{item(vendorA, 1000, false), item(vendorB, 2000, false), item(vendorA, 500, false)},
		[]models.ShippingLine{lineA, lineB},
	)

	subs, err := Partition(Input{Order: order, Mode: enums.RemitterVendor})
	if err != nil {
		t.Fatalf("partition: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 partitions, got %d", len(subs))
	}
	if subs[0].VendorID != vendorA || len(subs[0].Items) != 2 || subs[0].ShippingCents != 300 {
		t.Fatalf("unexpected vendor A partition %+v", subs[0])
	}
	if subs[1].VendorID != vendorB || len(subs[1].Items) != 1 || subs[1].ShippingCents != 200 {
		t.Fatalf("unexpected vendor B partition %+v", subs[1])
	}
}

func TestPartitionCompleteness(t *testing.T) {
	vendorA := uuid.New()
	vendorB := uuid.New()
	vendorC := uuid.New()
	order := buildOrder(
		[]models.OrderLineItem{
			item(vendorA, 1000, false),
			item(vendorB, 2000, true),
			item(vendorC, 1500, false),
			item(vendorA, 700, true),
			item(vendorB, 300, false),
		},
		nil,
	)

	subs, err := Partition(Input{Order: order, Mode: enums.RemitterVendor})
	if err != nil {
		t.Fatalf("partition: %v", err)
	}

	seen := map[uuid.UUID]int{}
	for _, sub := range subs {
		for _, it := range sub.Items {
			seen[it.ID]++
		}
	}
	if len(seen) != len(order.Items) {
		t.Fatalf("expected %d distinct items across partitions, got %d", len(order.Items), len(seen))
	}
	for _, it := range order.Items {
		if seen[it.ID] != 1 {
			t.Fatalf("item %s appeared %d times", it.ID, seen[it.ID])
		}
	}
}

func TestPartitionVirtualOnlyVendorUsesBillingDestination(t *testing.T) {
	vendorA := uuid.New()
	vendorB := uuid.New()
	order := buildOrder(
		[]models.OrderLineItem{item(vendorA, 1000, false), item(vendorB, 2000, true)},
		nil,
	)

	subs, err := Partition(Input{Order: order, Mode: enums.RemitterVendor})
	if err != nil {
		t.Fatalf("partition: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 partitions, got %d", len(subs))
	}
	if subs[0].Context.VirtualOnly {
		t.Fatal("physical vendor must not be virtual-only")
	}
	if !subs[1].Context.VirtualOnly {
		t.Fatal("virtual-only vendor must be flagged")
	}
}

func TestPartitionMixedVendorMergesIntoOnePartition(t *testing.T) {
	vendor := uuid.New()
	order := buildOrder(
		[]models.OrderLineItem{item(vendor, 1000, false), item(vendor, 500, true)},
		nil,
	)

	subs, err := Partition(Input{Order: order, Mode: enums.RemitterVendor})
	if err != nil {
		t.Fatalf("partition: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("mixed physical+virtual vendor must yield 1 partition, got %d", len(subs))
	}
	if subs[0].Context.VirtualOnly {
		t.Fatal("mixed partition must not be virtual-only")
	}
}

func TestPartitionSingleVendorOwnsUnscopedShipping(t *testing.T) {
	vendor := uuid.New()
	order := buildOrder(
		[]models.OrderLineItem{item(vendor, 1000, false)},
		[]models.ShippingLine{{ID: uuid.New(), CostCents: 450}},
	)

	subs, err := Partition(Input{Order: order, Mode: enums.RemitterVendor})
	if err != nil {
		t.Fatalf("partition: %v", err)
	}
	if len(subs) != 1 || subs[0].ShippingCents != 450 {
		t.Fatalf("unexpected partitions %+v", subs)
	}
}

func TestPartitionVendorShipToOverride(t *testing.T) {
	vendor := uuid.New()
	override := &types.Address{State: "WA", PostalCode: "98101", Country: "US"}
	order := buildOrder([]models.OrderLineItem{item(vendor, 1000, false)}, nil)

	subs, err := Partition(Input{
		Order:        order,
		Mode:         enums.RemitterVendor,
		VendorShipTo: map[uuid.UUID]*types.Address{vendor: override},
	})
	if err != nil {
		t.Fatalf("partition: %v", err)
	}
	if subs[0].Context.ShippingAddress == nil || subs[0].Context.ShippingAddress.State != "WA" {
		t.Fatalf("ship-to override not applied: %+v", subs[0].Context.ShippingAddress)
	}
}
