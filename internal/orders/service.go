package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resinart/storefront-api/api/validators"
	"github.com/resinart/storefront-api/internal/authz"
	"github.com/resinart/storefront-api/internal/checkout/reservation"
	"github.com/resinart/storefront-api/internal/notifications"
	"github.com/resinart/storefront-api/pkg/db/models"
	"github.com/resinart/storefront-api/pkg/enums"
	pkgerrors "github.com/resinart/storefront-api/pkg/errors"
	"github.com/resinart/storefront-api/pkg/logger"
	"github.com/resinart/storefront-api/pkg/metrics"
	"github.com/resinart/storefront-api/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines order reads, cancellation, and the admin status workflow.
type Service interface {
	Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*models.Order, error)
	MyOrders(ctx context.Context, actor authz.Actor, params ListParams) (types.Page[models.Order], error)
	Tracking(ctx context.Context, actor authz.Actor, id uuid.UUID) ([]models.OrderTracking, error)
	Cancel(ctx context.Context, actor authz.Actor, id uuid.UUID, req CancelRequest) (*models.Order, error)
	List(ctx context.Context, params ListParams) (types.Page[models.Order], error)
	UpdateStatus(ctx context.Context, actor authz.Actor, id uuid.UUID, req UpdateStatusRequest) (*models.Order, error)
}

type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Notifier notifications.Notifier
	Metrics  *metrics.OrderMetrics
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	tx       txRunner
	notifier notifications.Notifier
	metrics  *metrics.OrderMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
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
		tx:       params.Tx,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.FromDB(err, "order not found")
	}
	if !actor.CanAccess(order.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not authorized to view this order")
	}
	return order, nil
}

func (s *service) MyOrders(ctx context.Context, actor authz.Actor, params ListParams) (types.Page[models.Order], error) {
	if params.Status != "" && !params.Status.IsValid() {
		return types.Page[models.Order]{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", params.Status)
	}
	rows, total, err := s.repo.ListByUser(ctx, actor.UserID, params)
	if err != nil {
		return types.Page[models.Order]{}, pkgerrors.FromDB(err, "")
	}
	return types.NewPage(rows, params.Page, params.Limit, total), nil
}

func (s *service) Tracking(ctx context.Context, actor authz.Actor, id uuid.UUID) ([]models.OrderTracking, error) {
	order, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	events, err := s.repo.ListTracking(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.FromDB(err, "")
	}
	return events, nil
}

// Cancel moves the order to cancelled and puts its stock back.
// Owners may cancel only pending or confirmed orders. Admins may cancel at any stage
// but must give a reason when the order is not theirs.
func (s *service) Cancel(ctx context.Context, actor authz.Actor, id uuid.UUID, req CancelRequest) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.FromDB(err, "order not found")
	}
	if !actor.CanAccess(order.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not authorized to cancel this order")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already cancelled")
	}
	if !actor.IsAdmin() && !order.Status.CustomerCancellable() {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "order cannot be cancelled once it is %s", order.Status)
	}
	reason := validators.SanitizeOptional(req.Reason, 500)
	if actor.IsAdmin() && !actor.Owns(order.UserID) && reason == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a reason is required to cancel another customer's order").
			WithDetails(map[string]any{"field": "reason"})
	}

	now := s.now()
	description := "Order cancelled"
	if reason != nil {
		description += ": " + *reason
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		moved, err := repo.TransitionStatus(ctx, order.ID, order.Status, map[string]any{
			"status":              enums.OrderStatusCancelled,
			"cancelled_at":        now,
			"cancellation_reason": reason,
			"cancelled_by":        actor.UserID,
		})
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was updated by another request, reload and try again")
		}

		requests := make([]reservation.Request, 0, len(order.Items))
		for _, item := range order.Items {
			requests = append(requests, reservation.Request{ProductID: item.ProductID, Qty: item.Quantity})
		}
		if _, err := reservation.Restore(ctx, tx, requests, reservation.Source{Reference: order.OrderNumber, Actor: &actor.UserID}); err != nil {
			return err
		}

		return repo.AppendTracking(ctx, &models.OrderTracking{
			OrderID:     order.ID,
			Status:      enums.OrderStatusCancelled,
			Description: description,
			CreatedBy:   &actor.UserID,
		})
	})
	if err != nil {
		return nil, pkgerrors.FromDB(err, "")
	}

	s.metrics.StatusChanged(string(enums.OrderStatusCancelled))
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(s.logg.WithField(ctx, "previous_status", order.Status), "order.cancelled")

	message := fmt.Sprintf("Your order %s has been cancelled.", order.OrderNumber)
	if reason != nil {
		message += " Reason: " + *reason
	}
	s.notifier.Dispatch(ctx, OwnerTask(order, "Order cancelled", message))

	return s.reload(ctx, order.ID)
}

func (s *service) List(ctx context.Context, params ListParams) (types.Page[models.Order], error) {
	if params.Status != "" && !params.Status.IsValid() {
		return types.Page[models.Order]{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", params.Status)
	}
	rows, total, err := s.repo.List(ctx, params)
	if err != nil {
		return types.Page[models.Order]{}, pkgerrors.FromDB(err, "")
	}
	return types.NewPage(rows, params.Page, params.Limit, total), nil
}

// UpdateStatus sets any status from any other. Cancelled orders stay cancelled because
// their stock has already been restored.
func (s *service) UpdateStatus(ctx context.Context, actor authz.Actor, id uuid.UUID, req UpdateStatusRequest) (*models.Order, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if !req.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", req.Status).
			WithDetails(map[string]any{"field": "status", "allowed": enums.OrderStatuses()})
	}
	if req.Status == enums.OrderStatusCancelled {
		return s.Cancel(ctx, actor, id, CancelRequest{Reason: req.Description})
	}

	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.FromDB(err, "order not found")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cancelled orders cannot change status")
	}

	now := s.now()
	updates := map[string]any{"status": req.Status}
	switch req.Status {
	case enums.OrderStatusConfirmed:
		updates["confirmed_at"] = now
	case enums.OrderStatusShipped:
		updates["shipped_at"] = now
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = now
	}
	description := fmt.Sprintf("Order status updated to %s", req.Status)
	if d := validators.SanitizeOptional(req.Description, 500); d != nil {
		description = *d
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		moved, err := repo.TransitionStatus(ctx, order.ID, order.Status, updates)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was updated by another request, reload and try again")
		}
		if err := repo.AppendTracking(ctx, &models.OrderTracking{
			OrderID:     order.ID,
			Status:      req.Status,
			Description: description,
			CreatedBy:   &actor.UserID,
		}); err != nil {
			return err
		}

		if req.hasDelivery() || req.Status == enums.OrderStatusDelivered {
			delivery := &models.Delivery{
				OrderID:           order.ID,
				CourierCompany:    validators.SanitizeOptional(req.CourierCompany, 120),
				TrackingNumber:    validators.SanitizeOptional(req.TrackingNumber, 120),
				EstimatedDelivery: req.EstimatedDelivery,
			}
			if req.Status == enums.OrderStatusDelivered {
				delivery.DeliveredAt = &now
			}
			if err := repo.UpsertDelivery(ctx, delivery); err != nil {
				return err
			}
		}
		if req.Status == enums.OrderStatusDelivered {
			return repo.SettleCashOnDelivery(ctx, order.ID, now)
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.FromDB(err, "")
	}

	s.metrics.StatusChanged(string(req.Status))
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"from": order.Status, "to": req.Status}), "order.status_updated")
	s.notifier.Dispatch(ctx, OwnerTask(order, "Order update", statusMessage(order, req)))

	return s.reload(ctx, order.ID)
}

func (s *service) reload(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.FromDB(err, "order not found")
	}
	return order, nil
}
