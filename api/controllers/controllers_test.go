package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	internalorders "github.com/dariomontes/vendortax-backend/internal/orders"
	"github.com/dariomontes/vendortax-backend/internal/refunds"
	"github.com/dariomontes/vendortax-backend/pkg/db/models"
	pkgerrors "github.com/dariomontes/vendortax-backend/pkg/errors"
	"github.com/dariomontes/vendortax-backend/pkg/logger"
)

type stubTaxComputer struct {
	compute func(ctx context.Context, orderID uuid.UUID) (*internalorders.ComputeSummary, error)
}

func (s *stubTaxComputer) ComputeOrderTax(ctx context.Context, orderID uuid.UUID) (*internalorders.ComputeSummary, error) {
	return s.compute(ctx, orderID)
}

type stubRefundService struct {
	create func(ctx context.Context, refund *models.ParentRefund) (*models.ParentRefund, error)
	get    func(ctx context.Context, id uuid.UUID) (*refunds.ParentRefundDetail, error)
	del    func(ctx context.Context, id uuid.UUID) error
}

func (s *stubRefundService) CreateParentRefund(ctx context.Context, refund *models.ParentRefund) (*models.ParentRefund, error) {
	return s.create(ctx, refund)
}

func (s *stubRefundService) GetParentRefund(ctx context.Context, id uuid.UUID) (*refunds.ParentRefundDetail, error) {
	return s.get(ctx, id)
}

func (s *stubRefundService) DeleteParentRefund(ctx context.Context, id uuid.UUID) error {
	return s.del(ctx, id)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "controllers-test"})
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestComputeOrderTaxHandler(t *testing.T) {
	orderID := uuid.New()
	svc := &stubTaxComputer{compute: func(_ context.Context, id uuid.UUID) (*internalorders.ComputeSummary, error) {
		if id != orderID {
			t.Fatalf("unexpected order id %s", id)
		}
		return &internalorders.ComputeSummary{OrderID: id, TaxCents: 160, TotalCents: 1760}, nil
	}}

	r := chi.NewRouter()
	r.Post("/v1/orders/{orderID}/tax", ComputeOrderTax(svc, testLogger()))

	req := httptest.NewRequest(http.MethodPost, "/v1/orders/"+orderID.String()+"/tax", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	if data["tax_cents"] != float64(160) {
		t.Fatalf("unexpected payload %v", body)
	}
}

func TestComputeOrderTaxHandlerRejectsBadID(t *testing.T) {
	svc := &stubTaxComputer{compute: func(context.Context, uuid.UUID) (*internalorders.ComputeSummary, error) {
		t.Fatalf("service must not be called for an invalid id")
		return nil, nil
	}}

	r := chi.NewRouter()
	r.Post("/v1/orders/{orderID}/tax", ComputeOrderTax(svc, testLogger()))

	req := httptest.NewRequest(http.MethodPost, "/v1/orders/not-a-uuid/tax", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestComputeOrderTaxHandlerMapsDomainErrors(t *testing.T) {
	svc := &stubTaxComputer{compute: func(context.Context, uuid.UUID) (*internalorders.ComputeSummary, error) {
		return nil, pkgerrors.New(pkgerrors.CodeMissingNexus, "no nexus address configured for vendor")
	}}

	r := chi.NewRouter()
	r.Post("/v1/orders/{orderID}/tax", ComputeOrderTax(svc, testLogger()))

	req := httptest.NewRequest(http.MethodPost, "/v1/orders/"+uuid.NewString()+"/tax", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	errBody, _ := body["error"].(map[string]any)
	if errBody["code"] != string(pkgerrors.CodeMissingNexus) {
		t.Fatalf("unexpected error payload %v", body)
	}
}

func TestCreateParentRefundHandler(t *testing.T) {
	orderID := uuid.New()
	lineID := uuid.New()
	svc := &stubRefundService{create: func(_ context.Context, refund *models.ParentRefund) (*models.ParentRefund, error) {
		if refund.ParentOrderID != orderID || refund.AmountCents != 500 {
			t.Fatalf("unexpected refund payload %+v", refund)
		}
		if len(refund.LineItemRefunds) != 1 || refund.LineItemRefunds[0].LineItemID != lineID {
			t.Fatalf("line item refunds not mapped: %+v", refund.LineItemRefunds)
		}
		refund.ID = uuid.New()
		return refund, nil
	}}

	r := chi.NewRouter()
	r.Post("/v1/parent-refunds", CreateParentRefund(svc, testLogger()))

	payload := `{"parent_order_id":"` + orderID.String() + `","amount_cents":500,` +
		`"line_item_refunds":[{"line_item_id":"` + lineID.String() + `","quantity":1,"amount_cents":500}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/parent-refunds", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateParentRefundHandlerValidatesBody(t *testing.T) {
	svc := &stubRefundService{create: func(context.Context, *models.ParentRefund) (*models.ParentRefund, error) {
		t.Fatalf("service must not see an invalid body")
		return nil, nil
	}}

	r := chi.NewRouter()
	r.Post("/v1/parent-refunds", CreateParentRefund(svc, testLogger()))

	cases := map[string]string{
		"missing order":  `{"amount_cents":500,"line_item_refunds":[{"line_item_id":"` + uuid.NewString() + `","amount_cents":500}]}`,
		"zero amount":    `{"parent_order_id":"` + uuid.NewString() + `","amount_cents":0,"line_item_refunds":[{"line_item_id":"` + uuid.NewString() + `","amount_cents":500}]}`,
		"no lines":       `{"parent_order_id":"` + uuid.NewString() + `","amount_cents":500,"line_item_refunds":[]}`,
		"unknown field":  `{"parent_order_id":"` + uuid.NewString() + `","amount_cents":500,"surprise":true}`,
		"malformed json": `{"parent_order_id":`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/parent-refunds", strings.NewReader(payload))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestDeleteParentRefundHandler(t *testing.T) {
	refundID := uuid.New()
	var deleted uuid.UUID
	svc := &stubRefundService{del: func(_ context.Context, id uuid.UUID) error {
		deleted = id
		return nil
	}}

	r := chi.NewRouter()
	r.Delete("/v1/parent-refunds/{refundID}", DeleteParentRefund(svc, testLogger()))

	req := httptest.NewRequest(http.MethodDelete, "/v1/parent-refunds/"+refundID.String(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if deleted != refundID {
		t.Fatalf("delete not delegated: %s", deleted)
	}
}

func TestGetParentRefundHandlerNotFound(t *testing.T) {
	svc := &stubRefundService{get: func(context.Context, uuid.UUID) (*refunds.ParentRefundDetail, error) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "parent refund not found")
	}}

	r := chi.NewRouter()
	r.Get("/v1/parent-refunds/{refundID}", GetParentRefund(svc, testLogger()))

	req := httptest.NewRequest(http.MethodGet, "/v1/parent-refunds/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
