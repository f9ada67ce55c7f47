package handlers

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image/png"
	"net/http"
	"strings"
	"sync"
	"time"

	wheelhttp "github.com/caiqy/prizewheel/internal/http"
	"github.com/caiqy/prizewheel/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	// enrolmentTTL bounds how long a prepared secret waits for its first code.
	enrolmentTTL = 10 * time.Minute
	qrSize       = 220
)

// MFAHandler manages admin TOTP enrolment.
type MFAHandler struct {
	db      *gorm.DB
	issuer  string
	pending *enrolments
}

// NewMFAHandler constructs an MFAHandler. issuer is the label authenticator apps show.
func NewMFAHandler(db *gorm.DB, issuer string) *MFAHandler {
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		issuer = "PrizeWheel"
	}
	return &MFAHandler{db: db, issuer: issuer, pending: &enrolments{byAdmin: map[uint64]enrolment{}, now: time.Now}}
}

type enrolment struct {
	secret    string
	expiresAt time.Time
}

// enrolments holds secrets that were shown to an admin but not yet confirmed with a code.
type enrolments struct {
	mu      sync.Mutex
	byAdmin map[uint64]enrolment
	now     func() time.Time
}

func (e *enrolments) put(adminID uint64, secret string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	for id, item := range e.byAdmin {
		if now.After(item.expiresAt) {
			delete(e.byAdmin, id)
		}
	}
	e.byAdmin[adminID] = enrolment{secret: secret, expiresAt: now.Add(enrolmentTTL)}
}

func (e *enrolments) lookup(adminID uint64) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	item, ok := e.byAdmin[adminID]
	if !ok || e.now().After(item.expiresAt) {
		delete(e.byAdmin, adminID)
		return "", false
	}
	return item.secret, true
}

func (e *enrolments) drop(adminID uint64) {
	e.mu.Lock()
	delete(e.byAdmin, adminID)
	e.mu.Unlock()
}

// readAdminIDFromContext returns the admin ID set by the auth middleware.
func readAdminIDFromContext(c *gin.Context) (uint64, bool) {
	value, ok := c.Get(wheelhttp.ContextAdminID)
	if !ok {
		return 0, false
	}
	id, ok := value.(uint64)
	return id, ok
}

// currentAdmin loads the signed-in admin with the given columns, writing the error response on failure.
func (h *MFAHandler) currentAdmin(c *gin.Context, columns ...string) (models.Admin, bool) {
	var admin models.Admin
	adminID, ok := readAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
		return admin, false
	}
	if errFind := h.db.WithContext(c.Request.Context()).Select(columns).First(&admin, adminID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		}
		return admin, false
	}
	return admin, true
}

// Status reports whether TOTP is enabled and whether an enrolment is waiting for confirmation.
func (h *MFAHandler) Status(c *gin.Context) {
	admin, ok := h.currentAdmin(c, "id", "totp_secret")
	if !ok {
		return
	}
	_, pending := h.pending.lookup(admin.ID)
	c.JSON(http.StatusOK, gin.H{
		"totp_enabled": strings.TrimSpace(admin.TOTPSecret) != "",
		"pending":      pending,
	})
}

// PrepareTOTP issues a fresh secret and its QR code. Nothing changes until ConfirmTOTP succeeds.
func (h *MFAHandler) PrepareTOTP(c *gin.Context) {
	admin, ok := h.currentAdmin(c, "id", "email")
	if !ok {
		return
	}
	key, errGenerate := totp.Generate(totp.GenerateOpts{Issuer: h.issuer, AccountName: admin.Email})
	if errGenerate != nil {
		log.WithError(errGenerate).Error("generate totp secret failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate totp secret failed"})
		return
	}
	h.pending.put(admin.ID, key.Secret())

	resp := gin.H{"secret": key.Secret(), "otpauth_url": key.URL(), "qr_image": ""}
	if img, errImage := key.Image(qrSize, qrSize); errImage == nil {
		var buf bytes.Buffer
		if png.Encode(&buf, img) == nil {
			resp["qr_image"] = "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
		}
	}
	c.JSON(http.StatusOK, resp)
}

type totpCodeRequest struct {
	Code string `json:"code"`
}

// ConfirmTOTP checks a code against the prepared secret and stores it on the admin.
func (h *MFAHandler) ConfirmTOTP(c *gin.Context) {
	adminID, ok := readAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
		return
	}
	var body totpCodeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code := strings.TrimSpace(body.Code)
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}
	secret, found := h.pending.lookup(adminID)
	if !found {
		c.JSON(http.StatusBadRequest, gin.H{"error": "totp setup expired"})
		return
	}
	if !totp.Validate(code, secret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}
	if !h.setSecret(c, adminID, secret) {
		return
	}
	h.pending.drop(adminID)
	log.WithField("admin_id", adminID).Info("admin enabled totp")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DisableTOTP clears the admin's secret and any pending enrolment.
func (h *MFAHandler) DisableTOTP(c *gin.Context) {
	adminID, ok := readAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
		return
	}
	if !h.setSecret(c, adminID, "") {
		return
	}
	h.pending.drop(adminID)
	log.WithField("admin_id", adminID).Info("admin disabled totp")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *MFAHandler) setSecret(c *gin.Context, adminID uint64, secret string) bool {
	res := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).
		Where("id = ?", adminID).
		Updates(map[string]any{"totp_secret": secret, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return false
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return false
	}
	return true
}
