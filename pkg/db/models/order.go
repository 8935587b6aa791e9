package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/resinart/storefront-api/pkg/enums"
)

// Order is created from a cart snapshot. Items are copied, never referenced live.
type Order struct {
	ID                 uuid.UUID         `gorm:"type:char(36);primaryKey" json:"id"`
	OrderNumber        string            `gorm:"type:varchar(32);not null;uniqueIndex" json:"orderNumber"`
	UserID             uuid.UUID         `gorm:"type:char(36);not null;index" json:"userId"`
	Status             enums.OrderStatus `gorm:"type:varchar(16);not null;default:pending;index" json:"status"`
	Subtotal           decimal.Decimal   `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	ShippingCost       decimal.Decimal   `gorm:"type:decimal(10,2);not null" json:"shippingCost"`
	Tax                decimal.Decimal   `gorm:"type:decimal(10,2);not null" json:"tax"`
	Total              decimal.Decimal   `gorm:"type:decimal(10,2);not null" json:"total"`
	ShippingAddress    string            `gorm:"type:text;not null" json:"shippingAddress"`
	ShippingPhone      string            `gorm:"type:varchar(32);not null" json:"shippingPhone"`
	Notes              *string           `gorm:"type:text" json:"notes,omitempty"`
	ConfirmedAt        *time.Time        `json:"confirmedAt,omitempty"`
	ShippedAt          *time.Time        `json:"shippedAt,omitempty"`
	DeliveredAt        *time.Time        `json:"deliveredAt,omitempty"`
	CancelledAt        *time.Time        `json:"cancelledAt,omitempty"`
	CancellationReason *string           `gorm:"type:text" json:"cancellationReason,omitempty"`
	CancelledBy        *uuid.UUID        `gorm:"type:char(36)" json:"cancelledBy,omitempty"`
	CreatedAt          time.Time         `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt          time.Time         `gorm:"autoUpdateTime" json:"updatedAt"`

	User     *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Items    []OrderItem     `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Payment  *Payment        `gorm:"foreignKey:OrderID" json:"payment,omitempty"`
	Delivery *Delivery       `gorm:"foreignKey:OrderID" json:"delivery,omitempty"`
	Tracking []OrderTracking `gorm:"foreignKey:OrderID" json:"tracking,omitempty"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem snapshots name, image and price at purchase time.
type OrderItem struct {
	ID           uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	OrderID      uuid.UUID       `gorm:"type:char(36);not null;index" json:"orderId"`
	ProductID    uuid.UUID       `gorm:"type:char(36);not null;index" json:"productId"`
	ProductName  string          `gorm:"type:varchar(191);not null" json:"productName"`
	ProductImage *string         `gorm:"type:varchar(512)" json:"productImage,omitempty"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	Total        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"createdAt"`
}

func (oi *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&oi.ID)
	return nil
}

// OrderTracking is an append-only status event.
type OrderTracking struct {
	ID          uuid.UUID         `gorm:"type:char(36);primaryKey" json:"id"`
	OrderID     uuid.UUID         `gorm:"type:char(36);not null;index" json:"orderId"`
	Status      enums.OrderStatus `gorm:"type:varchar(16);not null" json:"status"`
	Description string            `gorm:"type:text;not null" json:"description"`
	CreatedBy   *uuid.UUID        `gorm:"type:char(36)" json:"createdBy,omitempty"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"createdAt"`
}

func (OrderTracking) TableName() string {
	return "order_tracking"
}

func (ot *OrderTracking) BeforeCreate(*gorm.DB) error {
	ensureID(&ot.ID)
	return nil
}

// Delivery carries courier metadata, one per order.
type Delivery struct {
	ID                uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	OrderID           uuid.UUID  `gorm:"type:char(36);not null;uniqueIndex" json:"orderId"`
	CourierCompany    *string    `gorm:"type:varchar(120)" json:"courierCompany,omitempty"`
	TrackingNumber    *string    `gorm:"type:varchar(120)" json:"trackingNumber,omitempty"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery,omitempty"`
	DeliveredAt       *time.Time `json:"deliveredAt,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Delivery) TableName() string {
	return "deliveries"
}

func (d *Delivery) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
