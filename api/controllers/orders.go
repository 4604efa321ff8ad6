package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dariomontes/vendortax-backend/api/responses"
	"github.com/dariomontes/vendortax-backend/internal/orders"
	pkgerrors "github.com/dariomontes/vendortax-backend/pkg/errors"
	"github.com/dariomontes/vendortax-backend/pkg/logger"
)

// TaxComputer is the slice of the order service the tax endpoint needs.
type TaxComputer interface {
	ComputeOrderTax(ctx context.Context, orderID uuid.UUID) (*orders.ComputeSummary, error)
}

// ComputeOrderTax runs the partition-compute-allocate pipeline for one order
// and returns the persisted totals.
func ComputeOrderTax(svc TaxComputer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order tax service unavailable"))
			return
		}

		orderID, err := parseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.ComputeOrderTax(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}
