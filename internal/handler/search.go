package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"intake/internal/service"
)

// SearchHandler looks up earlier extractions
type SearchHandler struct {
	extractions  *service.ExtractionService
	defaultLimit int
	maxLimit     int
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(extractions *service.ExtractionService, defaultLimit, maxLimit int) *SearchHandler {
	return &SearchHandler{
		extractions:  extractions,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// Similar handles GET /api/v1/extractions/similar?message=&limit=
func (h *SearchHandler) Similar(c *gin.Context) {
	limit := h.defaultLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}
	if limit <= 0 {
		limit = h.defaultLimit
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}

	results, err := h.extractions.Similar(c.Request.Context(), c.Query("message"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

// GetExtraction handles GET /api/v1/extractions/:id
func (h *SearchHandler) GetExtraction(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	entry, err := h.extractions.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}
