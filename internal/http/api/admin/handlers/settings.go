package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/caiqy/prizewheel/internal/settings"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SettingsHandler reads and writes runtime settings.
type SettingsHandler struct {
	db *gorm.DB
}

// NewSettingsHandler constructs a SettingsHandler.
func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{db: db}
}

// List returns the effective value of every writable setting.
func (h *SettingsHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"settings": gin.H{
			settings.WheelEnabledKey:               settings.WheelEnabled(),
			settings.WebhookEventsRetentionDaysKey: settings.Int(settings.WebhookEventsRetentionDaysKey, settings.DefaultWebhookEventsRetentionDays),
		},
		"updated_at": settings.DBConfigUpdatedAt(),
	})
}

type updateSettingRequest struct {
	Value json.RawMessage `json:"value"`
}

// Update writes one setting. Values are type checked against the key.
func (h *SettingsHandler) Update(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if !settings.IsKnownKey(key) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown setting"})
		return
	}
	var body updateSettingRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || len(body.Value) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	switch key {
	case settings.WheelEnabledKey:
		if _, ok := settings.ParseBool(body.Value); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "value must be a boolean"})
			return
		}
	case settings.WebhookEventsRetentionDaysKey:
		if n, ok := settings.ParseInt(body.Value); !ok || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "value must be a non-negative integer"})
			return
		}
	}

	if errUpsert := settings.Upsert(c.Request.Context(), h.db, key, body.Value); errUpsert != nil {
		log.WithError(errUpsert).WithField("key", key).Error("update setting failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	h.List(c)
}
