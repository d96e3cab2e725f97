package handler

import (
	"net/http"
	"time"

	"docbrain-go/internal/service"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports liveness and the active configuration.
type HealthHandler struct {
	searchService      service.SearchService
	personalityService service.PersonalityService
}

func NewHealthHandler(searchService service.SearchService, personalityService service.PersonalityService) *HealthHandler {
	return &HealthHandler{searchService: searchService, personalityService: personalityService}
}

// Health handles GET /api/health.
func (h *HealthHandler) Health(c *gin.Context) {
	backend := h.searchService.Backend()
	if backend == "in-memory" {
		backend = "In-Memory"
	}
	_, p := h.personalityService.Current()
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"timestamp":   time.Now().UTC().Format(time.RFC3339Nano),
		"vectorDB":    backend,
		"personality": p.Name,
	})
}
