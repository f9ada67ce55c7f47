package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// maxListLimit caps list endpoints.
const maxListLimit = 100

// parseID reads the :id path parameter and writes a 400 when it is not a positive integer.
func parseID(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// parseLimit reads ?limit=, defaulting to and capped at maxListLimit.
func parseLimit(c *gin.Context) int {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return maxListLimit
	}
	n, errParse := strconv.Atoi(raw)
	if errParse != nil || n <= 0 || n > maxListLimit {
		return maxListLimit
	}
	return n
}

func contextWithTimeout(c *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), d)
}
