package settings

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/caiqy/prizewheel/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RefreshDBConfigSnapshot reloads all settings from the database into the in-memory snapshot.
//
// Call it at startup; until then every accessor returns its default.
func RefreshDBConfigSnapshot(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("settings: nil db")
	}

	var rows []models.Setting
	if errFind := db.WithContext(ctx).
		Select("key", "value", "updated_at").
		Order("key ASC").
		Find(&rows).Error; errFind != nil {
		return errFind
	}

	values := make(map[string]json.RawMessage, len(rows))
	maxUpdatedAt := time.Time{}
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		values[key] = row.Value
		if row.UpdatedAt.After(maxUpdatedAt) {
			maxUpdatedAt = row.UpdatedAt
		}
	}

	StoreDBConfig(maxUpdatedAt, values)
	return nil
}

// Upsert writes one setting and refreshes the snapshot.
func Upsert(ctx context.Context, db *gorm.DB, key string, value json.RawMessage) error {
	if db == nil {
		return errors.New("settings: nil db")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("settings: empty key")
	}
	if !json.Valid(value) {
		return errors.New("settings: value is not valid json")
	}
	row := models.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	if errUpsert := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error; errUpsert != nil {
		return errUpsert
	}
	return RefreshDBConfigSnapshot(ctx, db)
}
