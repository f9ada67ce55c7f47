package models

import (
	"encoding/json"
	"time"
)

// Setting stores a runtime toggle such as WHEEL_ENABLED as a JSON value.
type Setting struct {
	Key       string          `gorm:"type:varchar(255);primaryKey"`                      // Setting key.
	Value     json.RawMessage `gorm:"type:jsonb"`                                        // JSON-encoded value.
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime;default:CURRENT_TIMESTAMP"` // Last update timestamp.
}
