package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/resinart/storefront-api/pkg/enums"
)

// Expense is a single shop outlay.
type Expense struct {
	ID          uuid.UUID             `gorm:"type:char(36);primaryKey" json:"id"`
	Category    enums.ExpenseCategory `gorm:"type:varchar(32);not null;index" json:"category"`
	Amount      decimal.Decimal       `gorm:"type:decimal(10,2);not null" json:"amount"`
	Description string                `gorm:"type:text" json:"description"`
	SpentOn     time.Time             `gorm:"not null;index" json:"spentOn"`
	CreatedBy   uuid.UUID             `gorm:"type:char(36);not null" json:"createdBy"`
	CreatedAt   time.Time             `gorm:"autoCreateTime" json:"createdAt"`
}

func (e *Expense) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// Budget caps spending for a category within a YYYY-MM period.
type Budget struct {
	ID           uuid.UUID             `gorm:"type:char(36);primaryKey" json:"id"`
	Category     enums.ExpenseCategory `gorm:"type:varchar(32);not null;uniqueIndex:idx_budgets_category_period" json:"category"`
	Period       string                `gorm:"type:char(7);not null;uniqueIndex:idx_budgets_category_period" json:"period"`
	Amount       decimal.Decimal       `gorm:"type:decimal(10,2);not null" json:"amount"`
	AlertPercent int                   `gorm:"not null;default:80" json:"alertPercent"`
	AlertedAt    *time.Time            `json:"alertedAt,omitempty"`
	CreatedAt    time.Time             `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time             `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (b *Budget) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}
