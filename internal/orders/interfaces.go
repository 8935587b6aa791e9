package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resinart/storefront-api/pkg/db/models"
	"github.com/resinart/storefront-api/pkg/enums"
)

// Repository defines persistence operations for orders and their satellite tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params ListParams) ([]models.Order, int64, error)
	List(ctx context.Context, params ListParams) ([]models.Order, int64, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from enums.OrderStatus, updates map[string]any) (bool, error)
	AppendTracking(ctx context.Context, event *models.OrderTracking) error
	ListTracking(ctx context.Context, orderID uuid.UUID) ([]models.OrderTracking, error)
	UpsertDelivery(ctx context.Context, delivery *models.Delivery) error
	SettleCashOnDelivery(ctx context.Context, orderID uuid.UUID, at time.Time) error
	FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	FindDeliveredOrderWithProduct(ctx context.Context, userID, productID uuid.UUID) (*models.Order, error)
}
