package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase status values.
const (
	PurchaseStatusConfirmed  = "confirmed"
	PurchaseStatusRefunded   = "refunded"
	PurchaseStatusChargeback = "chargeback"
)

// Purchase grants spins to the customer holding its access token.
type Purchase struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserEmail string  `gorm:"type:text;not null;index"` // Customer email.
	UserName  *string `gorm:"type:text"`                // Optional customer name.

	ExternalID      string              `gorm:"type:varchar(255);not null;uniqueIndex"`              // Provider prefix + order id.
	PaymentPlatform string              `gorm:"type:varchar(64);not null;index"`                     // kiwify or mercado_pago.
	Amount          decimal.NullDecimal `gorm:"type:numeric(12,2)"`                                  // Optional paid amount.
	Status          string              `gorm:"type:varchar(32);not null;default:'confirmed';index"` // confirmed, refunded or chargeback.

	SpinsGranted   int `gorm:"not null;default:0"`                                                        // Allowance at creation.
	SpinsRemaining int `gorm:"not null;default:0;check:chk_purchases_spins_remaining,spins_remaining >= 0"` // Never below zero.

	AccessToken string `gorm:"type:varchar(128);not null;uniqueIndex"` // Opaque token used in the wheel link.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`       // Last update timestamp.
}
