package model

import (
	"time"

	"gorm.io/gorm"
)

// Role constants carried in JWT claims. Account management and token issuance
// live outside this backend; loans only consume the identity context.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is referenced by loans and activity entries for display and ownership
// checks.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Email     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Role      string         `gorm:"type:varchar(50);not null" json:"role"` // admin, user
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
