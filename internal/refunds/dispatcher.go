package refunds

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/dariomontes/vendortax-backend/pkg/db/models"
	"github.com/dariomontes/vendortax-backend/pkg/logger"
)

// RefundCreatedEvent announces a newly persisted refund. Exactly one of the
// two fields is set, depending on whether the refund is marketplace-level or
// a vendor sub-refund.
type RefundCreatedEvent struct {
	ParentRefund *models.ParentRefund
	SubRefund    *models.Refund
}

// Handler reacts to refund lifecycle events.
type Handler interface {
	Name() string
	OnRefundCreated(ctx context.Context, event RefundCreatedEvent) error
}

// Dispatcher fans refund-created events out to its handlers. Events fired
// under an active suppression flag are not delivered, which is what keeps the
// replicator from re-triggering itself.
type Dispatcher struct {
	handlers []Handler
	log      *logger.Logger
}

// NewDispatcher builds an empty dispatcher.
func NewDispatcher(log *logger.Logger) (*Dispatcher, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{log: log}, nil
}

// Register appends a handler. Not safe for concurrent use with dispatching;
// wire handlers at startup.
func (d *Dispatcher) Register(handler Handler) {
	if handler != nil {
		d.handlers = append(d.handlers, handler)
	}
}

// RefundCreated delivers the event to every handler unless the context is
// suppressed. Handler failures are aggregated, not short-circuited.
func (d *Dispatcher) RefundCreated(ctx context.Context, event RefundCreatedEvent) error {
	if ReplicationSuppressed(ctx) {
		return nil
	}

	var errs error
	for _, handler := range d.handlers {
		if err := handler.OnRefundCreated(ctx, event); err != nil {
			d.log.Error(ctx, "refund handler "+handler.Name()+" failed", err)
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
