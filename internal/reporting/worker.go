package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dariomontes/vendortax-backend/pkg/db/models"
	"github.com/dariomontes/vendortax-backend/pkg/enums"
	pkgerrors "github.com/dariomontes/vendortax-backend/pkg/errors"
	"github.com/dariomontes/vendortax-backend/pkg/logger"
	"github.com/dariomontes/vendortax-backend/pkg/metrics"
	"github.com/dariomontes/vendortax-backend/pkg/taxprovider"
	"github.com/dariomontes/vendortax-backend/pkg/types"
)

type workerRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Refund, error)
	BeginAttempt(ctx context.Context, id uuid.UUID, now time.Time) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type parentOrderLoader interface {
	GetParentOrder(ctx context.Context, id uuid.UUID) (*models.ParentOrder, error)
}

type shipFromSource interface {
	DefaultShipFrom(ctx context.Context, vendorID uuid.UUID) (*types.Address, error)
}

type reportingClient interface {
	CreateRefundTransaction(ctx context.Context, tx taxprovider.RefundTransaction) error
}

type enabledReader interface {
	ReportingEnabled(ctx context.Context) (bool, error)
}

// Worker uploads one queued refund per message. It never re-queues: the
// periodic trigger alone decides whether a failed row is offered again.
type Worker struct {
	repo     workerRepo
	orders   parentOrderLoader
	vendors  shipFromSource
	client   reportingClient
	settings enabledReader
	metrics  *metrics.ReportingMetrics
	log      *logger.Logger
	now      func() time.Time
}

// NewWorker builds the upload worker.
func NewWorker(
	repo workerRepo,
	orders parentOrderLoader,
	vendors shipFromSource,
	client reportingClient,
	settings enabledReader,
	reportMetrics *metrics.ReportingMetrics,
	log *logger.Logger,
) (*Worker, error) {
	if repo == nil {
		return nil, fmt.Errorf("reporting repository required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order loader required")
	}
	if vendors == nil {
		return nil, fmt.Errorf("ship-from source required")
	}
	if client == nil {
		return nil, fmt.Errorf("reporting client required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings reader required")
	}
	if reportMetrics == nil {
		return nil, fmt.Errorf("reporting metrics required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Worker{
		repo:     repo,
		orders:   orders,
		vendors:  vendors,
		client:   client,
		settings: settings,
		metrics:  reportMetrics,
		log:      log,
		now:      time.Now,
	}, nil
}

// Process handles one report-job message. A nil return acks the message;
// only transient infrastructure errors propagate for redelivery.
func (w *Worker) Process(ctx context.Context, data []byte) error {
	var job ReportJob
	if err := json.Unmarshal(data, &job); err != nil {
		w.log.Warn(ctx, "dropping malformed report job: "+err.Error())
		return nil
	}
	ctx = w.log.WithRefundID(ctx, job.RefundID.String())

	refund, err := w.repo.Get(ctx, job.RefundID)
	if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		w.log.Warn(ctx, "report job for deleted refund, dropping")
		return nil
	}
	if err != nil {
		return err
	}
	if refund.ReportStatus != enums.ReportStatusQueued {
		w.log.Info(ctx, "refund not queued anymore, dropping job")
		return nil
	}

	enabled, err := w.settings.ReportingEnabled(ctx)
	if err != nil {
		return err
	}
	if !enabled {
		// cancellation: the row stays queued, safe to re-offer later
		w.log.Info(ctx, "reporting disabled, leaving refund queued")
		return nil
	}

	// the attempt is consumed before the network call so a crash mid-upload
	// still counts against the budget
	if err := w.repo.BeginAttempt(ctx, refund.ID, w.now()); err != nil {
		return err
	}

	tx, err := w.buildTransaction(ctx, refund)
	if err != nil {
		w.fail(ctx, refund.ID, err)
		return nil
	}

	if err := w.client.CreateRefundTransaction(ctx, *tx); err != nil {
		w.fail(ctx, refund.ID, err)
		return nil
	}

	if err := w.repo.MarkSucceeded(ctx, refund.ID); err != nil {
		return err
	}
	w.metrics.IncOutcome("succeeded")
	w.log.Info(ctx, "refund reported")
	return nil
}

func (w *Worker) fail(ctx context.Context, id uuid.UUID, cause error) {
	w.metrics.IncOutcome("failed")
	w.log.Error(ctx, "refund report attempt failed", cause)
	if err := w.repo.MarkFailed(ctx, id, cause.Error()); err != nil {
		w.log.Error(ctx, "recording report failure", err)
	}
}

// buildTransaction assembles and validates the provider payload. The origin
// needs country, state, postal code, city, and street; the destination needs
// country, state, and postal code.
func (w *Worker) buildTransaction(ctx context.Context, refund *models.Refund) (*taxprovider.RefundTransaction, error) {
	order, err := w.orders.GetParentOrder(ctx, refund.ParentOrderID)
	if err != nil {
		return nil, err
	}

	shipFrom, err := w.vendors.DefaultShipFrom(ctx, refund.VendorID)
	if err != nil {
		return nil, err
	}
	if shipFrom == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no ship-from address for vendor")
	}
	if missing := shipFrom.ValidateShipFrom(); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			"ship-from address incomplete: "+strings.Join(missing, ", "))
	}

	shipTo := order.ShippingAddress
	if shipTo == nil || shipTo.IsZero() {
		shipTo = order.BillingAddress
	}
	if shipTo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no ship-to address on parent order")
	}
	if missing := shipTo.ValidateShipTo(); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			"ship-to address incomplete: "+strings.Join(missing, ", "))
	}

	tx := &taxprovider.RefundTransaction{
		TransactionID:          refund.ID.String(),
		TransactionReferenceID: refund.ParentOrderID.String(),
		TransactionDate:        refund.TransactionDate,
		FromAddress:            *shipFrom,
		ToAddress:              *shipTo,
		AmountCents:            refund.AmountCents,
		ShippingCents:          refund.ShippingCents,
		SalesTaxCents:          refund.SalesTaxCents,
	}
	for _, line := range refund.LineItemRefunds {
		// quantity collapses to one unless the refunded amount splits evenly,
		// so quantity times unit price always reconciles with the line total
		qty := int64(line.Quantity)
		if qty <= 0 || line.AmountCents%qty != 0 {
			qty = 1
		}
		tx.LineItems = append(tx.LineItems, taxprovider.RefundLineItem{
			ID:             line.LineItemID.String(),
			Quantity:       int(qty),
			Description:    line.Description,
			UnitPriceCents: line.AmountCents / qty,
			SalesTaxCents:  line.SalesTaxCents,
		})
	}
	return tx, nil
}
