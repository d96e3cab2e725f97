package handler

import (
	"errors"
	"net/http"

	"docbrain-go/internal/service"

	"github.com/gin-gonic/gin"
)

// PersonalityHandler lists and switches agent personalities.
type PersonalityHandler struct {
	personalityService service.PersonalityService
}

func NewPersonalityHandler(personalityService service.PersonalityService) *PersonalityHandler {
	return &PersonalityHandler{personalityService: personalityService}
}

// List handles GET /api/personalities.
func (h *PersonalityHandler) List(c *gin.Context) {
	current, _ := h.personalityService.Current()
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"current":       current,
		"personalities": h.personalityService.List(),
	})
}

// Set handles POST /api/personality.
func (h *PersonalityHandler) Set(c *gin.Context) {
	var req service.PersonalityUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	key, p, err := h.personalityService.Set(req)
	if errors.Is(err, service.ErrPersonalityRequired) {
		fail(c, http.StatusBadRequest, "Personality type is required")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Personality updated to: " + p.Name,
		"personality": gin.H{
			"type":        key,
			"name":        p.Name,
			"description": p.Description,
		},
	})
}
