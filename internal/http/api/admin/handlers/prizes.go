package handlers

import (
	"errors"
	"math"
	"net/http"
	"regexp"
	"strings"

	"github.com/caiqy/prizewheel/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// defaultPrizeColor matches the column default.
const defaultPrizeColor = "#d4af37"

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// PrizeHandler manages the wheel catalog.
type PrizeHandler struct {
	db *gorm.DB
}

// NewPrizeHandler constructs a PrizeHandler.
func NewPrizeHandler(db *gorm.DB) *PrizeHandler {
	return &PrizeHandler{db: db}
}

// createPrizeRequest captures the payload for a new prize.
type createPrizeRequest struct {
	Name              string   `json:"name"`
	Description       *string  `json:"description"`
	Color             string   `json:"color"`
	IsLosing          bool     `json:"is_losing"`
	ProbabilityWeight *float64 `json:"probability_weight"`
	DisplayOrder      *int     `json:"display_order"`
	IsActive          *bool    `json:"is_active"`
}

// updatePrizeRequest captures optional fields for prize updates.
type updatePrizeRequest struct {
	Name              *string  `json:"name"`
	Description       *string  `json:"description"`
	Color             *string  `json:"color"`
	IsLosing          *bool    `json:"is_losing"`
	ProbabilityWeight *float64 `json:"probability_weight"`
	DisplayOrder      *int     `json:"display_order"`
	IsActive          *bool    `json:"is_active"`
	// ClearProbabilityWeight resets the weight to NULL, which draws like 1.
	ClearProbabilityWeight bool `json:"clear_probability_weight"`
}

// List returns every prize in wheel order.
func (h *PrizeHandler) List(c *gin.Context) {
	var rows []models.Prize
	if errFind := h.db.WithContext(c.Request.Context()).
		Order("display_order ASC").Order("id ASC").
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list prizes failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatPrize(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"prizes": out})
}

// Create adds a prize. Without display_order it is appended after the existing ones.
func (h *PrizeHandler) Create(c *gin.Context) {
	var body createPrizeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name"})
		return
	}
	color := strings.TrimSpace(body.Color)
	if color == "" {
		color = defaultPrizeColor
	}
	if !colorPattern.MatchString(color) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid color"})
		return
	}
	if !validWeight(body.ProbabilityWeight) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "probability_weight must be a non-negative number"})
		return
	}

	ctx := c.Request.Context()
	prize := models.Prize{
		Name:              name,
		Description:       trimmedOrNil(body.Description),
		Color:             color,
		IsLosing:          body.IsLosing,
		ProbabilityWeight: body.ProbabilityWeight,
		IsActive:          true,
	}
	if body.IsActive != nil {
		prize.IsActive = *body.IsActive
	}
	if body.DisplayOrder != nil {
		prize.DisplayOrder = *body.DisplayOrder
	} else {
		var count int64
		if errCount := h.db.WithContext(ctx).Model(&models.Prize{}).Count(&count).Error; errCount != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create prize failed"})
			return
		}
		prize.DisplayOrder = int(count) + 1
	}

	if errCreate := h.db.WithContext(ctx).Create(&prize).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create prize failed"})
		return
	}
	c.JSON(http.StatusCreated, formatPrize(&prize))
}

// Update applies validated field changes to a prize.
func (h *PrizeHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body updatePrizeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{}
	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
			return
		}
		updates["name"] = name
	}
	if body.Description != nil {
		updates["description"] = trimmedOrNil(body.Description)
	}
	if body.Color != nil {
		color := strings.TrimSpace(*body.Color)
		if !colorPattern.MatchString(color) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid color"})
			return
		}
		updates["color"] = color
	}
	if body.IsLosing != nil {
		updates["is_losing"] = *body.IsLosing
	}
	if body.ClearProbabilityWeight {
		if body.ProbabilityWeight != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "probability_weight and clear_probability_weight are exclusive"})
			return
		}
		updates["probability_weight"] = gorm.Expr("NULL")
	}
	if body.ProbabilityWeight != nil {
		if !validWeight(body.ProbabilityWeight) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "probability_weight must be a non-negative number"})
			return
		}
		updates["probability_weight"] = *body.ProbabilityWeight
	}
	if body.DisplayOrder != nil {
		updates["display_order"] = *body.DisplayOrder
	}
	if body.IsActive != nil {
		updates["is_active"] = *body.IsActive
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}

	ctx := c.Request.Context()
	res := h.db.WithContext(ctx).Model(&models.Prize{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	var prize models.Prize
	if errFind := h.db.WithContext(ctx).First(&prize, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, formatPrize(&prize))
}

// Delete removes a prize. Recorded spins keep the prize name they were stored with.
func (h *PrizeHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	res := h.db.WithContext(c.Request.Context()).Delete(&models.Prize{}, id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func formatPrize(p *models.Prize) gin.H {
	return gin.H{
		"id":                 p.ID,
		"name":               p.Name,
		"description":        p.Description,
		"color":              p.Color,
		"is_losing":          p.IsLosing,
		"probability_weight": p.ProbabilityWeight,
		"display_order":      p.DisplayOrder,
		"is_active":          p.IsActive,
		"created_at":         p.CreatedAt,
		"updated_at":         p.UpdatedAt,
	}
}

func validWeight(w *float64) bool {
	if w == nil {
		return true
	}
	return *w >= 0 && !math.IsNaN(*w) && !math.IsInf(*w, 0)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
