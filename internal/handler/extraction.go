package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "intake/internal/errors"
	"intake/internal/model"
	"intake/internal/service"
)

// ExtractionHandler handles AI extraction requests
type ExtractionHandler struct {
	extractions *service.ExtractionService
}

// NewExtractionHandler creates a new extraction handler
func NewExtractionHandler(extractions *service.ExtractionService) *ExtractionHandler {
	return &ExtractionHandler{extractions: extractions}
}

// parseKind reads a form kind, defaulting to Inventory when empty
func parseKind(s string) (model.FormKind, error) {
	if s == "" {
		return model.KindInventory, nil
	}
	kind, err := model.ParseFormKind(s)
	if err != nil {
		return "", apperrors.NewValidationError("kind", s, err.Error())
	}
	return kind, nil
}

// Extract handles POST /api/v1/extract
func (h *ExtractionHandler) Extract(c *gin.Context) {
	var req model.ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	kind, err := parseKind(req.Kind)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.extractions.Generate(c.Request.Context(), req.Message, kind)
	if err != nil {
		c.JSON(statusCode(err), gin.H{"error": err.Error(), "status": service.GenerateStatus(err)})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ExtractStream handles POST /api/v1/extract/stream - SSE streaming extraction
func (h *ExtractionHandler) ExtractStream(c *gin.Context) {
	var req model.ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	kind, err := parseKind(req.Kind)
	if err != nil {
		respondError(c, err)
		return
	}

	flusher, ok := startSSE(c)
	if !ok {
		return
	}

	sendSSE(c, "start", map[string]any{"kind": kind, "provider": h.extractions.Provider()})
	flusher.Flush()

	resp, err := h.extractions.GenerateStream(c.Request.Context(), req.Message, kind, func(event string, data any) error {
		sendSSE(c, event, data)
		flusher.Flush()
		return nil
	})
	if err != nil {
		sendSSE(c, "error", map[string]any{"error": err.Error(), "status": service.GenerateStatus(err)})
		flusher.Flush()
		return
	}

	sendSSE(c, "result", resp)
	flusher.Flush()

	sendSSE(c, "done", nil)
	flusher.Flush()
}
