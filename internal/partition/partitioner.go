package partition

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dariomontes/vendortax-backend/internal/nexus"
	"github.com/dariomontes/vendortax-backend/pkg/db/models"
	"github.com/dariomontes/vendortax-backend/pkg/enums"
	pkgerrors "github.com/dariomontes/vendortax-backend/pkg/errors"
	"github.com/dariomontes/vendortax-backend/pkg/types"
)

// SubTransaction is the per-remitter slice of an order sent to the tax
// provider. VendorID is uuid.Nil when the marketplace is the remitter.
type SubTransaction struct {
	VendorID      uuid.UUID
	Currency      enums.Currency
	Items         []models.OrderLineItem
	ShippingLines []models.ShippingLine
	ShippingCents int64
	Context       nexus.TransactionContext
}

// Input carries everything needed to split an order. VendorShipTo overrides
// the destination per vendor when the platform split shipments and the
// sub-orders carry distinct addresses.
type Input struct {
	Order        *models.ParentOrder
	Mode         enums.RemitterMode
	VendorShipTo map[uuid.UUID]*types.Address
}

// Partition splits the order into one sub-transaction per remitting entity:
// a single marketplace-wide transaction, or one per vendor grouped by line
// ownership. Vendors mixing physical and virtual items get one merged
// partition; virtual-only vendors get a synthetic partition destined at the
// billing address. Each partition records its shipping cost exactly once.
func Partition(in Input) ([]SubTransaction, error) {
	if in.Order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "nil order passed to Partition")
	}
	if !in.Mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown remitter mode %q", in.Mode))
	}

	if in.Mode == enums.RemitterMarketplace {
		return []SubTransaction{marketplacePartition(in.Order)}, nil
	}
	return vendorPartitions(in), nil
}

func marketplacePartition(order *models.ParentOrder) SubTransaction {
	sub := SubTransaction{
		VendorID:      uuid.Nil,
		Currency:      order.Currency,
		Items:         order.Items,
		ShippingLines: order.ShippingLines,
		Context: nexus.TransactionContext{
			FulfillmentMethod: order.FulfillmentMethod,
			ShippingAddress:   order.ShippingAddress,
			BillingAddress:    order.BillingAddress,
			VirtualOnly:       allVirtual(order.Items),
		},
	}
	for _, line := range order.ShippingLines {
		sub.ShippingCents += line.CostCents
	}
	return sub
}

func vendorPartitions(in Input) []SubTransaction {
	order := in.Order

	// group by vendor in order of first appearance
	var vendorOrdering []uuid.UUID
	itemsByVendor := map[uuid.UUID][]models.OrderLineItem{}
	for _, item := range order.Items {
		if _, seen := itemsByVendor[item.VendorID]; !seen {
			vendorOrdering = append(vendorOrdering, item.VendorID)
		}
		itemsByVendor[item.VendorID] = append(itemsByVendor[item.VendorID], item)
	}

	linesByVendor := map[uuid.UUID][]models.ShippingLine{}
	var unscopedLines []models.ShippingLine
	for _, line := range order.ShippingLines {
		if line.VendorID == nil {
			unscopedLines = append(unscopedLines, line)
			continue
		}
		linesByVendor[*line.VendorID] = append(linesByVendor[*line.VendorID], line)
	}

	subs := make([]SubTransaction, 0, len(vendorOrdering))
	for _, vendorID := range vendorOrdering {
		items := itemsByVendor[vendorID]
		lines := linesByVendor[vendorID]
		if len(vendorOrdering) == 1 {
			// shipping was never split, the single vendor owns it all
			lines = append(lines, unscopedLines...)
		}

		shipTo := order.ShippingAddress
		if override, ok := in.VendorShipTo[vendorID]; ok && override != nil {
			shipTo = override
		}

		sub := SubTransaction{
			VendorID:      vendorID,
			Currency:      order.Currency,
			Items:         items,
			ShippingLines: lines,
			Context: nexus.TransactionContext{
				FulfillmentMethod: order.FulfillmentMethod,
				ShippingAddress:   shipTo,
				BillingAddress:    order.BillingAddress,
				VirtualOnly:       allVirtual(items),
			},
		}
		for _, line := range lines {
			sub.ShippingCents += line.CostCents
		}
		subs = append(subs, sub)
	}
	return subs
}

func allVirtual(items []models.OrderLineItem) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if !item.Virtual {
			return false
		}
	}
	return true
}
