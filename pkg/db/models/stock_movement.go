package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resinart/storefront-api/pkg/enums"
)

// StockMovement records every change to a product's stock counter.
type StockMovement struct {
	ID         uuid.UUID                 `gorm:"type:char(36);primaryKey" json:"id"`
	ProductID  uuid.UUID                 `gorm:"type:char(36);not null;index" json:"productId"`
	Change     int                       `gorm:"not null" json:"change"`
	StockAfter int                       `gorm:"not null" json:"stockAfter"`
	Reason     enums.StockMovementReason `gorm:"type:varchar(32);not null" json:"reason"`
	Reference  *string                   `gorm:"type:varchar(191)" json:"reference,omitempty"`
	CreatedBy  *uuid.UUID                `gorm:"type:char(36)" json:"createdBy,omitempty"`
	CreatedAt  time.Time                 `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (m *StockMovement) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
