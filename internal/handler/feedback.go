package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"intake/internal/model"
	"intake/internal/service"
)

// FeedbackHandler records what staff did with an extraction
type FeedbackHandler struct {
	extractions *service.ExtractionService
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(extractions *service.ExtractionService) *FeedbackHandler {
	return &FeedbackHandler{extractions: extractions}
}

// Submit handles POST /api/v1/extractions/:id/feedback
func (h *FeedbackHandler) Submit(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var req model.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.extractions.RecordFeedback(c.Request.Context(), id, req.Action); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Feedback logged successfully"})
}
