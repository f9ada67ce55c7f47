package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent stores each inbound payment notification and how it was handled.
type WebhookEvent struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Provider        string `gorm:"type:varchar(64);not null;index"` // kiwify or mercadopago.
	ProviderEventID string `gorm:"type:varchar(255);index"`         // Provider order/payment id.
	EventType       string `gorm:"type:varchar(128)"`               // Status or action reported.
	ExternalID      string `gorm:"type:varchar(255);index"`         // Purchase external id, when resolved.

	Payload datatypes.JSON `gorm:"type:jsonb"` // Raw notification body.

	Outcome         string  `gorm:"type:varchar(64)"` // created, duplicate, revoked, ignored, failed.
	ProcessingError *string `gorm:"type:text"`        // Error text when handling failed.

	ProcessedAt time.Time `gorm:"not null"`                      // Handling time.
	CreatedAt   time.Time `gorm:"not null;autoCreateTime;index"` // Receipt timestamp.
}
