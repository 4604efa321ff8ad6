package taxprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dariomontes/vendortax-backend/pkg/config"
	pkgerrors "github.com/dariomontes/vendortax-backend/pkg/errors"
	"github.com/dariomontes/vendortax-backend/pkg/types"
)

const (
	taxesPath                 = "v2/taxes"
	refundsPath               = "v2/transactions/refunds"
	responseBodyReadLimit int64 = 1024
)

var (
	errBaseURLRequired  = errors.New("tax provider base URL is required")
	errAPITokenRequired = errors.New("tax provider api token is required")
)

// Client talks to the external sales-tax service: quote calculation and
// refund transaction reporting. All monetary fields on this package's types
// are integer cents; the wire format uses decimal dollars.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the tax provider client from config.
func NewClient(cfg config.TaxProviderConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	token := strings.TrimSpace(cfg.APIToken)
	if token == "" {
		return nil, errAPITokenRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		baseURL:    baseURL,
		apiToken:   token,
		httpClient: &http.Client{Timeout: timeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// LineItem is one order line submitted for tax calculation.
type LineItem struct {
	ID             string
	Quantity       int
	UnitPriceCents int64
	DiscountCents  int64
	TaxCode        string
}

// OrderTaxRequest describes one sub-transaction submitted for calculation.
type OrderTaxRequest struct {
	FromAddress    types.Address
	ToAddress      types.Address
	NexusAddresses []types.Address
	ShippingCents  int64
	LineItems      []LineItem
}

// LineTax is the tax computed for a single line.
type LineTax struct {
	ID                  string
	TaxCollectableCents int64
}

// OrderTaxResult is the normalized calculation response.
type OrderTaxResult struct {
	TotalTaxCents    int64
	Rate             decimal.Decimal
	HasNexus         bool
	FreightTaxable   bool
	ShippingTaxCents int64
	Lines            []LineTax
}

// RefundLineItem is one refunded line reported to the provider.
type RefundLineItem struct {
	ID             string
	Quantity       int
	Description    string
	UnitPriceCents int64
	SalesTaxCents  int64
	TaxCode        string
}

// RefundTransaction is a refund reported to the provider's transaction ledger.
// Amounts are the refunded magnitudes in cents; the client negates them on the
// wire as the provider expects.
type RefundTransaction struct {
	TransactionID          string
	TransactionReferenceID string
	TransactionDate        time.Time
	FromAddress            types.Address
	ToAddress              types.Address
	AmountCents            int64
	ShippingCents          int64
	SalesTaxCents          int64
	LineItems              []RefundLineItem
}

type taxRequestPayload struct {
	FromCountry string                `json:"from_country"`
	FromState   string                `json:"from_state,omitempty"`
	FromZip     string                `json:"from_zip,omitempty"`
	FromCity    string                `json:"from_city,omitempty"`
	FromStreet  string                `json:"from_street,omitempty"`
	ToCountry   string                `json:"to_country"`
	ToState     string                `json:"to_state,omitempty"`
	ToZip       string                `json:"to_zip,omitempty"`
	ToCity      string                `json:"to_city,omitempty"`
	ToStreet    string                `json:"to_street,omitempty"`
	Shipping    float64               `json:"shipping"`
	Nexus       []nexusAddressPayload `json:"nexus_addresses,omitempty"`
	LineItems   []lineItemPayload     `json:"line_items"`
}

type nexusAddressPayload struct {
	Country string `json:"country"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	City    string `json:"city,omitempty"`
	Street  string `json:"street,omitempty"`
}

type lineItemPayload struct {
	ID        string  `json:"id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Discount  float64 `json:"discount"`
	TaxCode   string  `json:"product_tax_code,omitempty"`
}

type taxResponsePayload struct {
	Tax struct {
		AmountToCollect float64 `json:"amount_to_collect"`
		Rate            float64 `json:"rate"`
		HasNexus        bool    `json:"has_nexus"`
		FreightTaxable  bool    `json:"freight_taxable"`
		Breakdown       *struct {
			Shipping *struct {
				TaxCollectable float64 `json:"tax_collectable"`
			} `json:"shipping"`
			LineItems []struct {
				ID             string  `json:"id"`
				TaxCollectable float64 `json:"tax_collectable"`
			} `json:"line_items"`
		} `json:"breakdown"`
	} `json:"tax"`
}

// CalculateOrderTax submits one sub-transaction and returns the computed tax.
func (c *Client) CalculateOrderTax(ctx context.Context, req OrderTaxRequest) (*OrderTaxResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tax provider client not configured")
	}
	if len(req.LineItems) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line item is required")
	}

	from := req.FromAddress.Normalized()
	to := req.ToAddress.Normalized()
	payload := taxRequestPayload{
		FromCountry: from.Country,
		FromState:   from.State,
		FromZip:     from.PostalCode,
		FromCity:    from.City,
		FromStreet:  from.Street,
		ToCountry:   to.Country,
		ToState:     to.State,
		ToZip:       to.PostalCode,
		ToCity:      to.City,
		ToStreet:    to.Street,
		Shipping:    centsToAmount(req.ShippingCents),
	}
	for _, nexus := range req.NexusAddresses {
		n := nexus.Normalized()
		payload.Nexus = append(payload.Nexus, nexusAddressPayload{
			Country: n.Country,
			State:   n.State,
			Zip:     n.PostalCode,
			City:    n.City,
			Street:  n.Street,
		})
	}
	for _, item := range req.LineItems {
		payload.LineItems = append(payload.LineItems, lineItemPayload{
			ID:        item.ID,
			Quantity:  item.Quantity,
			UnitPrice: centsToAmount(item.UnitPriceCents),
			Discount:  centsToAmount(item.DiscountCents),
			TaxCode:   item.TaxCode,
		})
	}

	var apiResp taxResponsePayload
	if err := c.post(ctx, taxesPath, payload, &apiResp); err != nil {
		return nil, err
	}

	result := &OrderTaxResult{
		TotalTaxCents:  amountToCents(apiResp.Tax.AmountToCollect),
		Rate:           decimal.NewFromFloat(apiResp.Tax.Rate),
		HasNexus:       apiResp.Tax.HasNexus,
		FreightTaxable: apiResp.Tax.FreightTaxable,
	}
	if bd := apiResp.Tax.Breakdown; bd != nil {
		if bd.Shipping != nil {
			result.ShippingTaxCents = amountToCents(bd.Shipping.TaxCollectable)
		}
		for _, line := range bd.LineItems {
			result.Lines = append(result.Lines, LineTax{
				ID:                  line.ID,
				TaxCollectableCents: amountToCents(line.TaxCollectable),
			})
		}
	}
	return result, nil
}

type refundRequestPayload struct {
	TransactionID          string                   `json:"transaction_id"`
	TransactionReferenceID string                   `json:"transaction_reference_id"`
	TransactionDate        string                   `json:"transaction_date"`
	FromCountry            string                   `json:"from_country"`
	FromState              string                   `json:"from_state"`
	FromZip                string                   `json:"from_zip"`
	FromCity               string                   `json:"from_city,omitempty"`
	FromStreet             string                   `json:"from_street,omitempty"`
	ToCountry              string                   `json:"to_country"`
	ToState                string                   `json:"to_state"`
	ToZip                  string                   `json:"to_zip"`
	Amount                 float64                  `json:"amount"`
	Shipping               float64                  `json:"shipping"`
	SalesTax               float64                  `json:"sales_tax"`
	LineItems              []refundLineItemPayload  `json:"line_items,omitempty"`
}

type refundLineItemPayload struct {
	ID          string  `json:"id"`
	Quantity    int     `json:"quantity"`
	Description string  `json:"description,omitempty"`
	UnitPrice   float64 `json:"unit_price"`
	SalesTax    float64 `json:"sales_tax"`
	TaxCode     string  `json:"product_tax_code,omitempty"`
}

// CreateRefundTransaction records a refund in the provider's transaction ledger.
func (c *Client) CreateRefundTransaction(ctx context.Context, tx RefundTransaction) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "tax provider client not configured")
	}
	if strings.TrimSpace(tx.TransactionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction ID is required")
	}
	if strings.TrimSpace(tx.TransactionReferenceID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction reference ID is required")
	}

	from := tx.FromAddress.Normalized()
	to := tx.ToAddress.Normalized()
	payload := refundRequestPayload{
		TransactionID:          tx.TransactionID,
		TransactionReferenceID: tx.TransactionReferenceID,
		TransactionDate:        tx.TransactionDate.UTC().Format(time.RFC3339),
		FromCountry:            from.Country,
		FromState:              from.State,
		FromZip:                from.PostalCode,
		FromCity:               from.City,
		FromStreet:             from.Street,
		ToCountry:              to.Country,
		ToState:                to.State,
		ToZip:                  to.PostalCode,
		Amount:                 -centsToAmount(tx.AmountCents),
		Shipping:               -centsToAmount(tx.ShippingCents),
		SalesTax:               -centsToAmount(tx.SalesTaxCents),
	}
	for _, item := range tx.LineItems {
		payload.LineItems = append(payload.LineItems, refundLineItemPayload{
			ID:          item.ID,
			Quantity:    item.Quantity,
			Description: item.Description,
			UnitPrice:   -centsToAmount(item.UnitPriceCents),
			SalesTax:    -centsToAmount(item.SalesTaxCents),
			TaxCode:     item.TaxCode,
		})
	}

	return c.post(ctx, refundsPath, payload, nil)
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal tax provider request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(path), bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build tax provider request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute tax provider request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		wrapped := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, wrapped, "tax provider rejected request")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, wrapped, "tax provider request failed")
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode tax provider response")
	}
	return nil
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(c.baseURL, "/"), strings.TrimLeft(path, "/"))
}

func centsToAmount(cents int64) float64 {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).InexactFloat64()
}

func amountToCents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
