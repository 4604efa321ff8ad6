package types

import "github.com/google/uuid"

// LineItemRefund records the refunded slice of a single line item.
// Description and SalesTaxCents are filled during replication from the
// matched order line; they ride along into the provider report.
type LineItemRefund struct {
	LineItemID    uuid.UUID `json:"line_item_id"`
	Quantity      int       `json:"quantity"`
	AmountCents   int64     `json:"amount_cents"`
	Description   string    `json:"description,omitempty"`
	SalesTaxCents int64     `json:"sales_tax_cents,omitempty"`
}

// LineItemRefunds is stored as JSONB on refund rows.
type LineItemRefunds []LineItemRefund

// TotalCents sums the refunded amounts.
func (l LineItemRefunds) TotalCents() int64 {
	var total int64
	for _, item := range l {
		total += item.AmountCents
	}
	return total
}
