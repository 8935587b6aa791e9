package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog item. Stock is decremented at checkout and restored on cancellation.
type Product struct {
	ID            uuid.UUID        `gorm:"type:char(36);primaryKey" json:"id"`
	Name          string           `gorm:"type:varchar(191);not null" json:"name"`
	Slug          string           `gorm:"type:varchar(191);not null;uniqueIndex" json:"slug"`
	Description   string           `gorm:"type:text" json:"description"`
	Category      string           `gorm:"type:varchar(64);not null;index" json:"category"`
	Price         decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"price"`
	DiscountPrice *decimal.Decimal `gorm:"type:decimal(10,2)" json:"discountPrice,omitempty"`
	Stock         int              `gorm:"not null;default:0" json:"stock"`
	ImageURL      *string          `gorm:"type:varchar(512)" json:"imageUrl,omitempty"`
	IsActive      bool             `gorm:"not null;index" json:"isActive"`
	IsFeatured    bool             `gorm:"not null;default:false" json:"isFeatured"`
	AvgRating     decimal.Decimal  `gorm:"type:decimal(3,2);not null;default:0" json:"avgRating"`
	ReviewCount   int              `gorm:"not null;default:0" json:"reviewCount"`
	CreatedAt     time.Time        `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time        `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// EffectivePrice is the discount price when one is set, else the list price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.Price
}
