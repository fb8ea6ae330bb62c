package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"intake/internal/service"
)

// EmbeddingHandler maintains message embeddings
type EmbeddingHandler struct {
	extractions *service.ExtractionService
}

// NewEmbeddingHandler creates a new embedding handler
func NewEmbeddingHandler(extractions *service.ExtractionService) *EmbeddingHandler {
	return &EmbeddingHandler{extractions: extractions}
}

// Backfill handles POST /api/v1/extractions/embeddings/backfill?limit=
func (h *EmbeddingHandler) Backfill(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	response, err := h.extractions.BackfillEmbeddings(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	if len(response.Errors) > 0 {
		c.JSON(http.StatusPartialContent, response)
	} else {
		c.JSON(http.StatusOK, response)
	}
}
