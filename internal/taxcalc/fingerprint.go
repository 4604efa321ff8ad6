package taxcalc

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/dariomontes/vendortax-backend/internal/partition"
	"github.com/dariomontes/vendortax-backend/pkg/db/models"
	"github.com/dariomontes/vendortax-backend/pkg/types"
)

type fingerprintLine struct {
	ID             string `json:"id"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	DiscountCents  int64  `json:"discount_cents"`
	TaxCode        string `json:"tax_code"`
}

type fingerprintInput struct {
	VendorID      string            `json:"vendor_id"`
	Currency      string            `json:"currency"`
	Destination   types.Address     `json:"destination"`
	Nexus         []types.Address   `json:"nexus"`
	ShippingCents int64             `json:"shipping_cents"`
	Lines         []fingerprintLine `json:"lines"`
}

// Fingerprint derives the content address of a sub-transaction: a stable
// sha256 over its normalized inputs. Identical inputs always hash identically
// regardless of slice ordering.
func Fingerprint(sub partition.SubTransaction, destination types.Address, nexusRows []models.NexusAddress) string {
	input := fingerprintInput{
		VendorID:      sub.VendorID.String(),
		Currency:      sub.Currency.String(),
		Destination:   destination.Normalized(),
		ShippingCents: sub.ShippingCents,
	}

	for _, row := range nexusRows {
		input.Nexus = append(input.Nexus, row.Address().Normalized())
	}
	sort.Slice(input.Nexus, func(i, j int) bool {
		a, b := input.Nexus[i], input.Nexus[j]
		if a.Country != b.Country {
			return a.Country < b.Country
		}
		if a.State != b.State {
			return a.State < b.State
		}
		return a.PostalCode < b.PostalCode
	})

	for _, item := range sub.Items {
		input.Lines = append(input.Lines, fingerprintLine{
			ID:             item.ID.String(),
			Qty:            item.Qty,
			UnitPriceCents: item.UnitPriceCents,
			DiscountCents:  item.DiscountCents,
			TaxCode:        item.TaxCode,
		})
	}
	sort.Slice(input.Lines, func(i, j int) bool {
		return input.Lines[i].ID < input.Lines[j].ID
	})

	payload, err := json.Marshal(input)
	if err != nil {
		// marshal of plain structs cannot fail; keep a defined value anyway
		return ""
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
