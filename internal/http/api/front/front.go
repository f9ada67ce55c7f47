package front

import (
	"github.com/caiqy/prizewheel/internal/http/api/front/handlers"
	"github.com/caiqy/prizewheel/internal/session"
	"github.com/caiqy/prizewheel/internal/store"
	"github.com/gin-gonic/gin"
)

// RegisterFrontRoutes registers the customer-facing wheel routes.
func RegisterFrontRoutes(r *gin.Engine, ctrl *session.Controller, repo store.Repository) {
	if r == nil || ctrl == nil || repo == nil {
		return
	}

	wheel := r.Group("/v0/wheel")

	wheelHandler := handlers.NewWheelHandler(ctrl, repo)
	wheel.GET("/prizes", wheelHandler.Prizes)
	wheel.POST("/sessions", wheelHandler.Open)
	wheel.GET("/sessions/:id", wheelHandler.Get)
	wheel.POST("/sessions/:id/spin", wheelHandler.Spin)
	wheel.POST("/sessions/:id/finish", wheelHandler.Finish)
	wheel.POST("/sessions/:id/dismiss", wheelHandler.Dismiss)
}
