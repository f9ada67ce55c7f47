package handlers

import (
	"net/http"
	"time"

	"github.com/caiqy/prizewheel/internal/settings"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// healthPingTimeout caps the database ping so probes fail fast.
const healthPingTimeout = 2 * time.Second

// HealthHandler reports process and database health.
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Healthz pings the database and reports whether spinning is switched on.
func (h *HealthHandler) Healthz(c *gin.Context) {
	resp := gin.H{
		"ok":            false,
		"database":      "down",
		"wheel_enabled": settings.WheelEnabled(),
	}
	sqlDB, errDB := h.db.DB()
	if errDB != nil {
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	ctx, cancel := contextWithTimeout(c, healthPingTimeout)
	defer cancel()
	if errPing := sqlDB.PingContext(ctx); errPing != nil {
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	resp["ok"] = true
	resp["database"] = "up"
	c.JSON(http.StatusOK, resp)
}
