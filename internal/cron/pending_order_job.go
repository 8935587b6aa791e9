package cron

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/resinart/storefront-api/internal/notifications"
	"github.com/resinart/storefront-api/pkg/db/models"
	"github.com/resinart/storefront-api/pkg/enums"
	"github.com/resinart/storefront-api/pkg/logger"
)

const (
	defaultPendingAfter = 48 * time.Hour
	maxListedOrders     = 10
)

type pendingOrderReader interface {
	FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

type PendingOrderJobParams struct {
	Logger   *logger.Logger
	Orders   pendingOrderReader
	Notifier notifications.Notifier
	// After is the age at which a pending order needs attention.
	After time.Duration
	// Interval is the cron cadence; each order is reported by the first run after it ages past After.
	Interval time.Duration
}

// NewPendingOrderJob reminds admins about orders nobody has confirmed yet.
func NewPendingOrderJob(params PendingOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders reader required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	after := params.After
	if after <= 0 {
		after = defaultPendingAfter
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &pendingOrderJob{
		logg:     params.Logger,
		orders:   params.Orders,
		notifier: params.Notifier,
		after:    after,
		interval: interval,
		now:      time.Now,
	}, nil
}

type pendingOrderJob struct {
	logg     *logger.Logger
	orders   pendingOrderReader
	notifier notifications.Notifier
	after    time.Duration
	interval time.Duration
	now      func() time.Time
}

func (j *pendingOrderJob) Name() string { return "pending-order-reminder" }

func (j *pendingOrderJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.after)
	pending, err := j.orders.FindPendingBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query pending orders: %w", err)
	}

	windowStart := cutoff.Add(-j.interval)
	fresh := make([]models.Order, 0, len(pending))
	for _, order := range pending {
		if !order.CreatedAt.Before(windowStart) {
			fresh = append(fresh, order)
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"pending": len(pending), "newly_stale": len(fresh)})
	if len(fresh) == 0 {
		j.logg.Info(logCtx, "pending order reminder: nothing new")
		return nil
	}

	link := "/admin/orders?status=" + string(enums.OrderStatusPending)
	j.notifier.Dispatch(ctx, notifications.Task{
		ToAdmins: true,
		Type:     enums.NotificationTypeOrder,
		Title:    "Orders awaiting confirmation",
		Message:  reminderMessage(fresh, len(pending), j.after),
		Link:     &link,
	})
	j.logg.Info(logCtx, "pending order reminder sent")
	return nil
}

func reminderMessage(fresh []models.Order, total int, after time.Duration) string {
	numbers := make([]string, 0, maxListedOrders)
	for i, order := range fresh {
		if i == maxListedOrders {
			break
		}
		numbers = append(numbers, order.OrderNumber)
	}
	msg := fmt.Sprintf("%d order(s) have been pending for more than %s: %s", len(fresh), after, strings.Join(numbers, ", "))
	if len(fresh) > maxListedOrders {
		msg += fmt.Sprintf(" and %d more", len(fresh)-maxListedOrders)
	}
	if total > len(fresh) {
		msg += fmt.Sprintf(". %d pending in total.", total)
	} else {
		msg += "."
	}
	return msg
}
