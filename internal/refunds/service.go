package refunds

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dariomontes/vendortax-backend/pkg/db/models"
	pkgerrors "github.com/dariomontes/vendortax-backend/pkg/errors"
	"github.com/dariomontes/vendortax-backend/pkg/logger"
)

type parentOrderGetter interface {
	GetParentOrder(ctx context.Context, id uuid.UUID) (*models.ParentOrder, error)
}

type refundStore interface {
	CreateParentRefund(ctx context.Context, refund *models.ParentRefund) error
	GetParentRefund(ctx context.Context, id uuid.UUID) (*models.ParentRefund, error)
	ListSubRefunds(ctx context.Context, parentRefundID uuid.UUID) ([]models.Refund, error)
	DeleteParentRefund(ctx context.Context, parentRefundID uuid.UUID) error
}

// ParentRefundDetail bundles a parent refund with its replicated sub-refunds.
type ParentRefundDetail struct {
	ParentRefund *models.ParentRefund `json:"parent_refund"`
	SubRefunds   []models.Refund      `json:"sub_refunds"`
}

// Service owns the parent-refund lifecycle: create, fan out, inspect, delete.
type Service struct {
	orders   parentOrderGetter
	repo     refundStore
	notifier refundNotifier
	log      *logger.Logger
}

// NewService builds the refund service.
func NewService(orders parentOrderGetter, repo refundStore, notifier refundNotifier, log *logger.Logger) (*Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("parent order getter required")
	}
	if repo == nil {
		return nil, fmt.Errorf("refund store required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("refund notifier required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{orders: orders, repo: repo, notifier: notifier, log: log}, nil
}

// CreateParentRefund persists the refund and announces it, which triggers
// replication into per-vendor sub-refunds unless the context suppresses it.
func (s *Service) CreateParentRefund(ctx context.Context, refund *models.ParentRefund) (*models.ParentRefund, error) {
	if refund == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund payload required")
	}
	if refund.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	if len(refund.LineItemRefunds) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line item refund required")
	}
	if total := refund.LineItemRefunds.TotalCents(); total != refund.AmountCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("line item refunds sum to %d, amount is %d", total, refund.AmountCents))
	}

	order, err := s.orders.GetParentOrder(ctx, refund.ParentOrderID)
	if err != nil {
		return nil, err
	}
	itemIDs := make(map[uuid.UUID]bool, len(order.Items))
	for _, item := range order.Items {
		itemIDs[item.ID] = true
	}
	for _, line := range refund.LineItemRefunds {
		if !itemIDs[line.LineItemID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("line item %s does not belong to order %s", line.LineItemID, order.ID))
		}
	}

	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}
	if err := s.repo.CreateParentRefund(ctx, refund); err != nil {
		return nil, err
	}

	ctx = s.log.WithRefundID(ctx, refund.ID.String())
	if err := s.notifier.RefundCreated(ctx, RefundCreatedEvent{ParentRefund: refund}); err != nil {
		// the parent row exists; replication retries go through delete-and-recreate
		s.log.Error(ctx, "refund replication incomplete", err)
		return refund, pkgerrors.Wrap(pkgerrors.CodeReplication, err, "replicate parent refund")
	}
	s.log.Info(ctx, "parent refund created")
	return refund, nil
}

// GetParentRefund loads a parent refund with its sub-refunds.
func (s *Service) GetParentRefund(ctx context.Context, id uuid.UUID) (*ParentRefundDetail, error) {
	parent, err := s.repo.GetParentRefund(ctx, id)
	if err != nil {
		return nil, err
	}
	subs, err := s.repo.ListSubRefunds(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ParentRefundDetail{ParentRefund: parent, SubRefunds: subs}, nil
}

// DeleteParentRefund removes the parent refund together with every
// replicated sub-refund, in one transaction.
func (s *Service) DeleteParentRefund(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetParentRefund(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteParentRefund(ctx, id); err != nil {
		return err
	}
	s.log.Info(s.log.WithRefundID(ctx, id.String()), "parent refund deleted")
	return nil
}
