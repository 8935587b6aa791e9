package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is a rating left by a customer who received the product.
type Review struct {
	ID         uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	ProductID  uuid.UUID  `gorm:"type:char(36);not null;uniqueIndex:idx_reviews_product_user" json:"productId"`
	UserID     uuid.UUID  `gorm:"type:char(36);not null;uniqueIndex:idx_reviews_product_user" json:"userId"`
	OrderID    *uuid.UUID `gorm:"type:char(36)" json:"orderId,omitempty"`
	Rating     int        `gorm:"not null" json:"rating"`
	Comment    string     `gorm:"type:text" json:"comment"`
	IsApproved bool       `gorm:"not null" json:"isApproved"`
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
