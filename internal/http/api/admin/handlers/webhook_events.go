package handlers

import (
	"net/http"
	"strings"

	"github.com/caiqy/prizewheel/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// WebhookEventHandler exposes the webhook audit log.
type WebhookEventHandler struct {
	db *gorm.DB
}

// NewWebhookEventHandler constructs a WebhookEventHandler.
func NewWebhookEventHandler(db *gorm.DB) *WebhookEventHandler {
	return &WebhookEventHandler{db: db}
}

// List returns recent webhook events, optionally filtered by provider and outcome.
func (h *WebhookEventHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.WebhookEvent{})
	if provider := strings.TrimSpace(c.Query("provider")); provider != "" {
		q = q.Where("provider = ?", provider)
	}
	if outcome := strings.TrimSpace(c.Query("outcome")); outcome != "" {
		q = q.Where("outcome = ?", outcome)
	}
	if externalID := strings.TrimSpace(c.Query("external_id")); externalID != "" {
		q = q.Where("external_id = ?", externalID)
	}

	var rows []models.WebhookEvent
	if errFind := q.Order("created_at DESC").Order("id DESC").Limit(parseLimit(c)).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list webhook events failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, e := range rows {
		out = append(out, gin.H{
			"id":                e.ID,
			"provider":          e.Provider,
			"provider_event_id": e.ProviderEventID,
			"event_type":        e.EventType,
			"external_id":       e.ExternalID,
			"outcome":           e.Outcome,
			"processing_error":  e.ProcessingError,
			"payload":           e.Payload,
			"processed_at":      e.ProcessedAt,
			"created_at":        e.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}
