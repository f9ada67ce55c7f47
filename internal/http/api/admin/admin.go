// Package admin registers the admin console API.
package admin

import (
	"github.com/caiqy/prizewheel/internal/config"
	wheelhttp "github.com/caiqy/prizewheel/internal/http"
	"github.com/caiqy/prizewheel/internal/http/api/admin/handlers"
	"github.com/caiqy/prizewheel/internal/store"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterAdminRoutes mounts the admin console under /v0/admin and the health probe at /healthz.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, st *store.GormStore, jwtCfg config.JWTConfig, issuer string) {
	if r == nil || db == nil || st == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	api := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(db, jwtCfg)
	api.POST("/login", authHandler.Login)
	api.POST("/login/totp", authHandler.LoginTOTP)

	authed := api.Group("")
	authed.Use(wheelhttp.AdminAuthMiddleware(db, jwtCfg.Secret))

	authed.GET("/me", authHandler.Me)

	mfaHandler := handlers.NewMFAHandler(db, issuer)
	authed.GET("/mfa/status", mfaHandler.Status)
	authed.POST("/mfa/totp/prepare", mfaHandler.PrepareTOTP)
	authed.POST("/mfa/totp/confirm", mfaHandler.ConfirmTOTP)
	authed.POST("/mfa/totp/disable", mfaHandler.DisableTOTP)

	prizeHandler := handlers.NewPrizeHandler(db)
	authed.GET("/prizes", prizeHandler.List)
	authed.POST("/prizes", prizeHandler.Create)
	authed.PUT("/prizes/:id", prizeHandler.Update)
	authed.DELETE("/prizes/:id", prizeHandler.Delete)

	purchaseHandler := handlers.NewPurchaseHandler(db, st)
	authed.GET("/purchases", purchaseHandler.List)
	authed.GET("/purchases/:id/spins", purchaseHandler.Spins)
	authed.POST("/purchases/:id/revoke", purchaseHandler.Revoke)

	statsHandler := handlers.NewStatsHandler(db)
	authed.GET("/stats", statsHandler.Get)

	settingsHandler := handlers.NewSettingsHandler(db)
	authed.GET("/settings", settingsHandler.List)
	authed.PUT("/settings/:key", settingsHandler.Update)

	webhookEventHandler := handlers.NewWebhookEventHandler(db)
	authed.GET("/webhook-events", webhookEventHandler.List)
}
