package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dariomontes/vendortax-backend/api/responses"
	"github.com/dariomontes/vendortax-backend/api/validators"
	"github.com/dariomontes/vendortax-backend/internal/refunds"
	"github.com/dariomontes/vendortax-backend/pkg/db/models"
	pkgerrors "github.com/dariomontes/vendortax-backend/pkg/errors"
	"github.com/dariomontes/vendortax-backend/pkg/logger"
	"github.com/dariomontes/vendortax-backend/pkg/types"
)

// RefundService is the slice of the refund service the endpoints need.
type RefundService interface {
	CreateParentRefund(ctx context.Context, refund *models.ParentRefund) (*models.ParentRefund, error)
	GetParentRefund(ctx context.Context, id uuid.UUID) (*refunds.ParentRefundDetail, error)
	DeleteParentRefund(ctx context.Context, id uuid.UUID) error
}

type lineItemRefundRequest struct {
	LineItemID  uuid.UUID `json:"line_item_id" validate:"required"`
	Quantity    int       `json:"quantity" validate:"min=0"`
	AmountCents int64     `json:"amount_cents" validate:"gt=0"`
}

type createParentRefundRequest struct {
	ParentOrderID   uuid.UUID               `json:"parent_order_id" validate:"required"`
	AmountCents     int64                   `json:"amount_cents" validate:"gt=0"`
	Reason          *string                 `json:"reason,omitempty"`
	LineItemRefunds []lineItemRefundRequest `json:"line_item_refunds" validate:"required,min=1,dive"`
}

// CreateParentRefund records a marketplace-level refund and replicates it
// into per-vendor sub-refunds.
func CreateParentRefund(svc RefundService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refund service unavailable"))
			return
		}

		var req createParentRefundRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refund := &models.ParentRefund{
			ParentOrderID: req.ParentOrderID,
			AmountCents:   req.AmountCents,
			Reason:        req.Reason,
		}
		for _, line := range req.LineItemRefunds {
			refund.LineItemRefunds = append(refund.LineItemRefunds, types.LineItemRefund{
				LineItemID:  line.LineItemID,
				Quantity:    line.Quantity,
				AmountCents: line.AmountCents,
			})
		}

		created, err := svc.CreateParentRefund(r.Context(), refund)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// GetParentRefund returns a parent refund with its replicated sub-refunds.
func GetParentRefund(svc RefundService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refund service unavailable"))
			return
		}

		refundID, err := parseUUIDParam(r, "refundID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.GetParentRefund(r.Context(), refundID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// DeleteParentRefund removes a parent refund and cascades into its
// sub-refunds.
func DeleteParentRefund(svc RefundService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refund service unavailable"))
			return
		}

		refundID, err := parseUUIDParam(r, "refundID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteParentRefund(r.Context(), refundID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
