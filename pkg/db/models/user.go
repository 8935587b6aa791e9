package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/resinart/storefront-api/pkg/enums"
)

// User represents a storefront account, customer or admin.
type User struct {
	ID                  uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	Name                string         `gorm:"type:varchar(120);not null" json:"name"`
	Email               string         `gorm:"type:varchar(191);not null;uniqueIndex" json:"email"`
	PasswordHash        string         `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	Phone               *string        `gorm:"type:varchar(32)" json:"phone,omitempty"`
	Address             *string        `gorm:"type:text" json:"address,omitempty"`
	Role                enums.UserRole `gorm:"type:varchar(16);not null;default:customer" json:"role"`
	IsActive            bool           `gorm:"not null" json:"isActive"`
	LastLoginAt         *time.Time     `json:"lastLoginAt,omitempty"`
	ResetTokenHash      *string        `gorm:"type:varchar(64);index" json:"-"`
	ResetTokenExpiresAt *time.Time     `json:"-"`
	CreatedAt           time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	if u.Role == "" {
		u.Role = enums.UserRoleCustomer
	}
	return nil
}

// IsAdmin reports whether the account carries the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == enums.UserRoleAdmin
}
