package db

import (
	"fmt"

	"github.com/caiqy/prizewheel/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates every table the service owns.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	if errMigrate := conn.AutoMigrate(
		&models.Prize{},
		&models.Purchase{},
		&models.Spin{},
		&models.Admin{},
		&models.Setting{},
		&models.WebhookEvent{},
	); errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}
	return nil
}
