package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/resinart/storefront-api/api/validators"
	"github.com/resinart/storefront-api/internal/authz"
	"github.com/resinart/storefront-api/internal/notifications"
	"github.com/resinart/storefront-api/internal/orders"
	"github.com/resinart/storefront-api/pkg/db/models"
	"github.com/resinart/storefront-api/pkg/enums"
	pkgerrors "github.com/resinart/storefront-api/pkg/errors"
	"github.com/resinart/storefront-api/pkg/logger"
)

// Service reads and settles order payments.
type Service interface {
	GetByOrder(ctx context.Context, actor authz.Actor, orderID uuid.UUID) (*models.Payment, error)
	UpdateStatus(ctx context.Context, actor authz.Actor, id uuid.UUID, req UpdateStatusRequest) (*models.Payment, error)
}

type ServiceParams struct {
	Repo     *Repository
	Orders   orders.Repository
	Notifier notifications.Notifier
	Logger   *logger.Logger
}

type service struct {
	repo     *Repository
	orders   orders.Repository
	notifier notifications.Notifier
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     params.Repo,
		orders:   params.Orders,
		notifier: params.Notifier,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) GetByOrder(ctx context.Context, actor authz.Actor, orderID uuid.UUID) (*models.Payment, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.FromDB(err, "order not found")
	}
	if !actor.CanAccess(order.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not authorized to view this payment")
	}
	if order.Payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return order.Payment, nil
}

// UpdateStatus moves a payment between settlement states. A refund is only possible
// after the payment completed, and refunded payments are final.
func (s *service) UpdateStatus(ctx context.Context, actor authz.Actor, id uuid.UUID, req UpdateStatusRequest) (*models.Payment, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if !req.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment status %q", req.Status)
	}

	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.FromDB(err, "payment not found")
	}
	if payment.Status == req.Status {
		return payment, nil
	}
	switch {
	case payment.Status == enums.PaymentStatusRefunded:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "refunded payments cannot change status")
	case req.Status == enums.PaymentStatusRefunded && payment.Status != enums.PaymentStatusCompleted:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only completed payments can be refunded")
	}

	updates := map[string]any{"status": req.Status}
	if ref := validators.SanitizeOptional(req.TransactionRef, 191); ref != nil {
		updates["transaction_ref"] = *ref
	}
	switch req.Status {
	case enums.PaymentStatusCompleted:
		updates["paid_at"] = s.now()
	case enums.PaymentStatusPending, enums.PaymentStatusFailed:
		updates["paid_at"] = nil
	}

	moved, err := s.repo.Transition(ctx, payment.ID, payment.Status, updates)
	if err != nil {
		return nil, pkgerrors.FromDB(err, "")
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment was updated by another request, reload and try again")
	}

	ctx = s.logg.WithOrderID(ctx, payment.OrderID.String())
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"from": payment.Status, "to": req.Status}), "payment.status_updated")

	if order, err := s.orders.FindByID(ctx, payment.OrderID); err == nil {
		task := orders.OwnerTask(order, "Payment update",
			fmt.Sprintf("Payment for order %s is now %s.", order.OrderNumber, req.Status))
		task.Type = enums.NotificationTypePayment
		s.notifier.Dispatch(ctx, task)
	} else {
		s.logg.Warn(ctx, "payment.notify_order_lookup_failed")
	}

	updated, err := s.repo.FindByID(ctx, payment.ID)
	if err != nil {
		return nil, pkgerrors.FromDB(err, "payment not found")
	}
	return updated, nil
}
