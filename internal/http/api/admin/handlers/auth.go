package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/caiqy/prizewheel/internal/config"
	"github.com/caiqy/prizewheel/internal/models"
	"github.com/caiqy/prizewheel/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"gorm.io/gorm"
)

// AuthHandler handles admin authentication endpoints.
type AuthHandler struct {
	db     *gorm.DB
	jwtCfg config.JWTConfig
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg}
}

// loginRequest defines the request body for admin login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginTotpRequest adds the authenticator code.
type loginTotpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

// Login authenticates an admin and issues a JWT if MFA is not required.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	admin, ok := h.authenticate(c, body.Email, body.Password)
	if !ok {
		return
	}
	if strings.TrimSpace(admin.TOTPSecret) != "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "mfa required", "mfa_required": true})
		return
	}
	h.respondWithAdminToken(c, admin)
}

// LoginTOTP authenticates an admin with password and TOTP code.
func (h *AuthHandler) LoginTOTP(c *gin.Context) {
	var body loginTotpRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code := strings.TrimSpace(body.Code)
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	admin, ok := h.authenticate(c, body.Email, body.Password)
	if !ok {
		return
	}
	if strings.TrimSpace(admin.TOTPSecret) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "totp not enabled"})
		return
	}
	if !totp.Validate(code, admin.TOTPSecret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}
	h.respondWithAdminToken(c, admin)
}

// Me returns the signed-in admin.
func (h *AuthHandler) Me(c *gin.Context) {
	adminID, ok := readAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
		return
	}
	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).First(&admin, adminID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatAdmin(admin))
}

// authenticate checks credentials and writes the error response itself when they fail.
func (h *AuthHandler) authenticate(c *gin.Context, email, password string) (models.Admin, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return models.Admin{}, false
	}

	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).Where("email = ?", email).First(&admin).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return models.Admin{}, false
	}
	if !security.CheckPassword(admin.Password, password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return models.Admin{}, false
	}
	if !admin.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin account is disabled"})
		return models.Admin{}, false
	}
	if admin.Role != models.AdminRoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return models.Admin{}, false
	}
	return admin, true
}

// respondWithAdminToken generates a JWT and responds with admin info.
func (h *AuthHandler) respondWithAdminToken(c *gin.Context, admin models.Admin) {
	token, errToken := security.GenerateAdminToken(h.jwtCfg.Secret, admin.ID, admin.Email, admin.Role, h.jwtCfg.Expiry)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"admin": formatAdmin(admin),
	})
}

func formatAdmin(admin models.Admin) gin.H {
	return gin.H{
		"id":           admin.ID,
		"email":        admin.Email,
		"role":         admin.Role,
		"active":       admin.Active,
		"totp_enabled": strings.TrimSpace(admin.TOTPSecret) != "",
		"created_at":   admin.CreatedAt,
	}
}
