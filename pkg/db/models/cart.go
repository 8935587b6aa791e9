package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Cart is the single in-progress basket owned by a user.
type Cart struct {
	ID        uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:char(36);not null;uniqueIndex" json:"userId"`
	IsActive  bool       `gorm:"not null" json:"isActive"`
	Items     []CartItem `gorm:"foreignKey:CartID" json:"items"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CartItem captures the product price at add time. (cart, product) is unique.
type CartItem struct {
	ID        uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`
	CartID    uuid.UUID       `gorm:"type:char(36);not null;uniqueIndex:idx_cart_items_cart_product" json:"cartId"`
	ProductID uuid.UUID       `gorm:"type:char(36);not null;uniqueIndex:idx_cart_items_cart_product" json:"productId"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (ci *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&ci.ID)
	return nil
}
