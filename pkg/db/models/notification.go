package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resinart/storefront-api/pkg/enums"
)

// Notification stores in-app notifications per user.
type Notification struct {
	ID        uuid.UUID              `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    uuid.UUID              `gorm:"type:char(36);not null;index" json:"userId"`
	Type      enums.NotificationType `gorm:"type:varchar(32);not null" json:"type"`
	Title     string                 `gorm:"type:varchar(191);not null" json:"title"`
	Message   string                 `gorm:"type:text;not null" json:"message"`
	Link      *string                `gorm:"type:varchar(512)" json:"link,omitempty"`
	IsRead    bool                   `gorm:"not null;default:false" json:"isRead"`
	ReadAt    *time.Time             `json:"readAt,omitempty"`
	CreatedAt time.Time              `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
