package models

import "time"

// AdminRoleAdmin is the role allowed into the admin console.
const AdminRoleAdmin = "admin"

// Admin represents an operator account for the admin console.
type Admin struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email    string `gorm:"type:text;not null;uniqueIndex"` // Unique login email.
	Password string `gorm:"type:text;not null"`             // Hashed password.

	Role   string `gorm:"type:varchar(32);not null;default:'admin'"` // Only "admin" may use the console.
	Active bool   `gorm:"not null;default:true"`                     // Whether the admin can sign in.

	TOTPSecret string `gorm:"type:text"` // TOTP secret for MFA.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
