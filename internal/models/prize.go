package models

import "time"

// Prize is one entry of the wheel catalog.
type Prize struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name        string  `gorm:"type:text;not null"`                          // Display name.
	Description *string `gorm:"type:text"`                                   // Optional text shown in the result modal.
	Color       string  `gorm:"type:varchar(32);not null;default:'#d4af37'"` // Segment fill colour.

	IsLosing          bool     `gorm:"not null;default:false"`      // True when the prize means "no reward".
	ProbabilityWeight *float64 `gorm:"type:double precision"`       // Relative weight; nil counts as 1.
	DisplayOrder      int      `gorm:"not null;default:0;index"`    // Segment order on the wheel.
	IsActive          bool     `gorm:"not null;index"`             // Only active prizes are offered.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
