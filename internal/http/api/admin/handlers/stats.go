package handlers

import (
	"net/http"

	"github.com/caiqy/prizewheel/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// StatsHandler serves the dashboard counters.
type StatsHandler struct {
	db *gorm.DB
}

// NewStatsHandler constructs a StatsHandler.
func NewStatsHandler(db *gorm.DB) *StatsHandler {
	return &StatsHandler{db: db}
}

// Stats holds the dashboard counters.
type Stats struct {
	TotalPrizes        int64 `json:"total_prizes"`
	ActivePrizes       int64 `json:"active_prizes"`
	TotalPurchases     int64 `json:"total_purchases"`
	ConfirmedPurchases int64 `json:"confirmed_purchases"`
	SpinsUsed          int64 `json:"spins_used"`
	WinningSpins       int64 `json:"winning_spins"`
	SpinsRemaining     int64 `json:"spins_remaining"`
}

// Get computes the counters on each request.
func (h *StatsHandler) Get(c *gin.Context) {
	conn := h.db.WithContext(c.Request.Context())
	var s Stats
	steps := []func() error{
		func() error { return conn.Model(&models.Prize{}).Count(&s.TotalPrizes).Error },
		func() error { return conn.Model(&models.Prize{}).Where("is_active = ?", true).Count(&s.ActivePrizes).Error },
		func() error { return conn.Model(&models.Purchase{}).Count(&s.TotalPurchases).Error },
		func() error {
			return conn.Model(&models.Purchase{}).Where("status = ?", models.PurchaseStatusConfirmed).Count(&s.ConfirmedPurchases).Error
		},
		func() error { return conn.Model(&models.Spin{}).Count(&s.SpinsUsed).Error },
		func() error { return conn.Model(&models.Spin{}).Where("is_winning = ?", true).Count(&s.WinningSpins).Error },
		func() error {
			return conn.Model(&models.Purchase{}).Select("COALESCE(SUM(spins_remaining), 0)").Scan(&s.SpinsRemaining).Error
		},
	}
	for _, step := range steps {
		if errStep := step(); errStep != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
	}
	c.JSON(http.StatusOK, s)
}
