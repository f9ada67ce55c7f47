package models

import "time"

// Spin records one completed wheel spin. Rows are never updated.
type Spin struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	PurchaseID uint64  `gorm:"not null;index"` // Owning purchase.
	PrizeID    *uint64 `gorm:"index"`          // Prize at spin time; nil if it was deleted later.
	SpinKey    *string `gorm:"type:varchar(64);uniqueIndex"` // Wheel animation id; one row per animation.
	PrizeName  string  `gorm:"type:text;not null"`
	IsWinning  bool    `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Spin timestamp.
}
