package handlers

import (
	"errors"
	"net/http"
	"strings"

	dbutil "github.com/caiqy/prizewheel/internal/db"
	"github.com/caiqy/prizewheel/internal/models"
	"github.com/caiqy/prizewheel/internal/store"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PurchaseHandler lists purchases and lets operators revoke them.
type PurchaseHandler struct {
	db    *gorm.DB
	store *store.GormStore
}

// NewPurchaseHandler constructs a PurchaseHandler.
func NewPurchaseHandler(db *gorm.DB, st *store.GormStore) *PurchaseHandler {
	return &PurchaseHandler{db: db, store: st}
}

// List returns purchases newest first. Filters: status, platform, keyword.
func (h *PurchaseHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.Purchase{})
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		q = q.Where("status = ?", status)
	}
	if platform := strings.TrimSpace(c.Query("platform")); platform != "" {
		q = q.Where("payment_platform = ?", platform)
	}
	if keyword := strings.TrimSpace(c.Query("keyword")); keyword != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+keyword+"%")
		q = q.Where(
			h.db.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "user_email"), pattern).
				Or(dbutil.CaseInsensitiveLikeExpr(h.db, "user_name"), pattern).
				Or(dbutil.CaseInsensitiveLikeExpr(h.db, "external_id"), pattern),
		)
	}

	var rows []models.Purchase
	if errFind := q.Order("created_at DESC").Order("id DESC").Limit(parseLimit(c)).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list purchases failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatPurchase(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"purchases": out})
}

// Spins returns the spin history of one purchase, newest first.
func (h *PurchaseHandler) Spins(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	var purchase models.Purchase
	if errFind := h.db.WithContext(ctx).Select("id").First(&purchase, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	var spins []models.Spin
	if errFind := h.db.WithContext(ctx).Where("purchase_id = ?", id).
		Order("created_at DESC").Order("id DESC").
		Limit(parseLimit(c)).Find(&spins).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	out := make([]gin.H, 0, len(spins))
	for _, s := range spins {
		out = append(out, gin.H{
			"id":         s.ID,
			"prize_id":   s.PrizeID,
			"prize_name": s.PrizeName,
			"is_winning": s.IsWinning,
			"created_at": s.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"spins": out})
}

type revokePurchaseRequest struct {
	Status string `json:"status"`
}

// Revoke marks a purchase refunded or charged back by hand and zeroes its spins.
func (h *PurchaseHandler) Revoke(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body revokePurchaseRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	status := strings.ToLower(strings.TrimSpace(body.Status))
	if status == "" {
		status = models.PurchaseStatusRefunded
	}
	if status != models.PurchaseStatusRefunded && status != models.PurchaseStatusChargeback {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be refunded or chargeback"})
		return
	}

	row, errRevoke := h.store.RevokePurchaseByID(c.Request.Context(), id, status)
	if errRevoke != nil {
		if errors.Is(errRevoke, store.ErrPurchaseNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		log.WithError(errRevoke).WithField("purchase_id", id).Error("admin revoke purchase failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	adminID, _ := readAdminIDFromContext(c)
	log.WithFields(log.Fields{
		"purchase_id": id,
		"status":      status,
		"admin_id":    adminID,
	}).Info("purchase revoked by admin")
	c.JSON(http.StatusOK, formatPurchase(row))
}

func formatPurchase(p *models.Purchase) gin.H {
	var amount any
	if p.Amount.Valid {
		amount = p.Amount.Decimal.StringFixed(2)
	}
	return gin.H{
		"id":               p.ID,
		"user_email":       p.UserEmail,
		"user_name":        p.UserName,
		"external_id":      p.ExternalID,
		"payment_platform": p.PaymentPlatform,
		"amount":           amount,
		"status":           p.Status,
		"spins_granted":    p.SpinsGranted,
		"spins_remaining":  p.SpinsRemaining,
		"access_token":     p.AccessToken,
		"created_at":       p.CreatedAt,
		"updated_at":       p.UpdatedAt,
	}
}
