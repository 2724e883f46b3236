package model

import (
	"time"

	"gorm.io/gorm"
)

// ItemStatus tracks an inventory item's availability for borrowing.
type ItemStatus string

const (
	ItemStatusAvailable   ItemStatus = "available"
	ItemStatusOnLoan      ItemStatus = "on_loan"
	ItemStatusMaintenance ItemStatus = "maintenance"
)

// Item is an inventory item that can be lent out. Its status must be flipped
// in the same transaction as any loan write that affects it: the item row is
// the lock that prevents double-booking.
type Item struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	ImageURL    string         `gorm:"type:varchar(500)" json:"image_url"`
	Status      ItemStatus     `gorm:"type:varchar(20);not null;default:'available';index" json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
