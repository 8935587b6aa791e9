package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/resinart/storefront-api/pkg/db/models"
	"github.com/resinart/storefront-api/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("created_at >= ?", since).Count(&count).Error
	return count, err
}

// Create inserts the order together with its items and payment.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("User", "Delivery", "Tracking").Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Payment").
		Preload("Delivery").
		Preload("Tracking", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params ListParams) ([]models.Order, int64, error) {
	return r.list(ctx, r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID), params)
}

func (r *repository) List(ctx context.Context, params ListParams) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if search := strings.TrimSpace(params.Search); search != "" {
		query = query.Where("order_number LIKE ?", "%"+strings.ToUpper(search)+"%")
	}
	return r.list(ctx, query.Preload("User"), params)
}

func (r *repository) list(ctx context.Context, query *gorm.DB, params ListParams) ([]models.Order, int64, error) {
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Order
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Payment").
		Order("created_at DESC, id DESC").
		Offset((params.Page - 1) * params.Limit).
		Limit(params.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// TransitionStatus applies updates only while the order is still in status from.
// It reports false when another request moved the order first.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from enums.OrderStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) AppendTracking(ctx context.Context, event *models.OrderTracking) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListTracking(ctx context.Context, orderID uuid.UUID) ([]models.OrderTracking, error) {
	var events []models.OrderTracking
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&events).Error
	return events, err
}

// UpsertDelivery keeps one delivery row per order, overwriting only the provided fields.
func (r *repository) UpsertDelivery(ctx context.Context, delivery *models.Delivery) error {
	updates := []string{"updated_at"}
	if delivery.CourierCompany != nil {
		updates = append(updates, "courier_company")
	}
	if delivery.TrackingNumber != nil {
		updates = append(updates, "tracking_number")
	}
	if delivery.EstimatedDelivery != nil {
		updates = append(updates, "estimated_delivery")
	}
	if delivery.DeliveredAt != nil {
		updates = append(updates, "delivered_at")
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			DoUpdates: clause.AssignmentColumns(updates),
		}).
		Create(delivery).Error
}

// SettleCashOnDelivery marks a pending cash-on-delivery payment as collected.
func (r *repository) SettleCashOnDelivery(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ? AND method = ? AND status = ?", orderID, enums.PaymentMethodCashOnDelivery, enums.PaymentStatusPending).
		Updates(map[string]any{
			"status":  enums.PaymentStatusCompleted,
			"paid_at": at,
		}).Error
}

func (r *repository) FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.OrderStatusPending, cutoff).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// FindDeliveredOrderWithProduct returns the latest delivered order of userID that contains productID.
func (r *repository) FindDeliveredOrderWithProduct(ctx context.Context, userID, productID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Joins("JOIN order_items ON order_items.order_id = orders.id").
		Where("orders.user_id = ? AND orders.status = ? AND order_items.product_id = ?", userID, enums.OrderStatusDelivered, productID).
		Order("orders.delivered_at DESC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}
