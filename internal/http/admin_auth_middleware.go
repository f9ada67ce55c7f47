package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/caiqy/prizewheel/internal/models"
	"github.com/caiqy/prizewheel/internal/security"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Context keys set by AdminAuthMiddleware.
const (
	ContextAdminID    = "adminID"
	ContextAdminEmail = "adminEmail"
)

// AdminAuthMiddleware authenticates admin JWTs and only lets active admins with the admin role through.
func AdminAuthMiddleware(db *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseAdminToken(secret, token)
		if errJWT != nil {
			if errors.Is(errJWT, security.ErrExpiredToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var admin models.Admin
		if errFind := db.WithContext(c.Request.Context()).
			Select("id", "email", "role", "active").
			First(&admin, claims.AdminID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
				return
			}
			log.WithError(errFind).Error("admin auth middleware: load admin failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authentication service error"})
			return
		}

		switch {
		case !admin.Active:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin account is disabled"})
		case admin.Role != models.AdminRoleAdmin:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
		default:
			c.Set(ContextAdminID, admin.ID)
			c.Set(ContextAdminEmail, admin.Email)
			c.Next()
		}
	}
}
