package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/resinart/storefront-api/pkg/enums"
)

// Payment is one-to-one with an order.
type Payment struct {
	ID             uuid.UUID           `gorm:"type:char(36);primaryKey" json:"id"`
	OrderID        uuid.UUID           `gorm:"type:char(36);not null;uniqueIndex" json:"orderId"`
	Method         enums.PaymentMethod `gorm:"type:varchar(32);not null" json:"method"`
	Status         enums.PaymentStatus `gorm:"type:varchar(16);not null;default:pending" json:"status"`
	Amount         decimal.Decimal     `gorm:"type:decimal(10,2);not null" json:"amount"`
	TransactionRef *string             `gorm:"type:varchar(191)" json:"transactionRef,omitempty"`
	PaidAt         *time.Time          `json:"paidAt,omitempty"`
	CreatedAt      time.Time           `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time           `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
