package handler

import (
	"net/http"
	"strconv"
	"strings"

	"docbrain-go/internal/service"
	"docbrain-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// SearchHandler exposes raw retrieval.
type SearchHandler struct {
	searchService service.SearchService
}

func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

// Search handles GET /api/search?q=...&k=5.
func (h *SearchHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		fail(c, http.StatusBadRequest, "Query parameter q is required")
		return
	}
	k, _ := strconv.Atoi(c.DefaultQuery("k", "0"))

	res, err := h.searchService.Retrieve(c.Request.Context(), query, k)
	if err != nil {
		log.Errorf("Search for %q failed: %v", query, err)
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "results": res.Results, "sources": res.Sources})
}
