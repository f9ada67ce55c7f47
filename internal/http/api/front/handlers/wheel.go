package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/caiqy/prizewheel/internal/session"
	"github.com/caiqy/prizewheel/internal/store"
	"github.com/caiqy/prizewheel/internal/wheel"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// WheelHandler serves wheel sessions for access-token holders.
type WheelHandler struct {
	ctrl *session.Controller
	repo store.Repository
}

// NewWheelHandler constructs a WheelHandler.
func NewWheelHandler(ctrl *session.Controller, repo store.Repository) *WheelHandler {
	return &WheelHandler{ctrl: ctrl, repo: repo}
}

// openSessionRequest carries the access token from the purchase link.
type openSessionRequest struct {
	Token string `json:"token"`
}

// Prizes returns the active catalog with its wheel layout.
func (h *WheelHandler) Prizes(c *gin.Context) {
	prizes, errFetch := h.repo.FetchActivePrizes(c.Request.Context())
	if errFetch != nil {
		log.WithError(errFetch).Warn("wheel prizes: fetch failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to load prizes"})
		return
	}
	entries := session.EntriesFromPrizes(prizes)
	c.JSON(http.StatusOK, gin.H{
		"prizes":   entries,
		"segments": wheel.Layout(entries),
	})
}

// Open starts a session for the token in the body or the ?token= query.
func (h *WheelHandler) Open(c *gin.Context) {
	var body openSessionRequest
	if c.Request.ContentLength != 0 {
		if errBind := c.ShouldBindJSON(&body); errBind != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	token := strings.TrimSpace(body.Token)
	if token == "" {
		token = strings.TrimSpace(c.Query("token"))
	}

	sess, errOpen := h.ctrl.Open(c.Request.Context(), token)
	if errOpen != nil {
		respondError(c, sess, errOpen)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": sess})
}

// Get returns the current session snapshot.
func (h *WheelHandler) Get(c *gin.Context) {
	sess, errGet := h.ctrl.Get(c.Request.Context(), c.Param("id"))
	if errGet != nil {
		respondError(c, nil, errGet)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

// Spin selects the prize and returns the rotation to animate.
func (h *WheelHandler) Spin(c *gin.Context) {
	sess, errSpin := h.ctrl.Spin(c.Request.Context(), c.Param("id"))
	if errSpin != nil {
		respondError(c, sess, errSpin)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

// Finish reveals the prize once the animation has run and records the spin.
func (h *WheelHandler) Finish(c *gin.Context) {
	sess, errFinish := h.ctrl.Finish(c.Request.Context(), c.Param("id"))
	if errFinish != nil {
		respondError(c, sess, errFinish)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

// Dismiss closes the result modal.
func (h *WheelHandler) Dismiss(c *gin.Context) {
	sess, errDismiss := h.ctrl.Dismiss(c.Request.Context(), c.Param("id"))
	if errDismiss != nil {
		respondError(c, sess, errDismiss)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

// respondError maps session errors to HTTP statuses. The snapshot is included when there is one
// so the page can render the state it ended in.
func respondError(c *gin.Context, sess *session.Session, err error) {
	status, message := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, session.ErrTokenMissing):
		status, message = http.StatusBadRequest, "access token not provided"
	case errors.Is(err, session.ErrTokenInvalid):
		status, message = http.StatusNotFound, "invalid or expired token"
	case errors.Is(err, session.ErrNoPrizes):
		status, message = http.StatusNotFound, "no prizes available"
	case errors.Is(err, session.ErrSessionNotFound):
		status, message = http.StatusNotFound, "session not found"
	case errors.Is(err, session.ErrServiceUnavailable):
		status, message = http.StatusServiceUnavailable, "service unavailable, please try again"
	case errors.Is(err, session.ErrWheelDisabled):
		status, message = http.StatusForbidden, "the wheel is currently disabled"
	case errors.Is(err, session.ErrNoSpinsLeft):
		status, message = http.StatusConflict, "no spins left"
	case errors.Is(err, session.ErrAlreadySpinning):
		status, message = http.StatusConflict, "already spinning"
	case errors.Is(err, session.ErrNotSpinning), errors.Is(err, session.ErrNotReady):
		status, message = http.StatusConflict, "action not allowed now"
	case errors.Is(err, session.ErrSpinInProgress):
		status, message = http.StatusTooEarly, "spin still in progress"
	default:
		log.WithError(err).Error("wheel session request failed")
	}
	resp := gin.H{"error": message}
	if sess != nil {
		resp["session"] = sess
	}
	c.JSON(status, resp)
}
