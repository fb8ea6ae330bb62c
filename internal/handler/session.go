package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "intake/internal/errors"
	"intake/internal/model"
	"intake/internal/service"
)

// SessionHandler drives editing sessions
type SessionHandler struct {
	store *service.SessionStore
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(store *service.SessionStore) *SessionHandler {
	return &SessionHandler{store: store}
}

// Open handles POST /api/v1/sessions
func (h *SessionHandler) Open(c *gin.Context) {
	var req model.OpenSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}
	kind, err := parseKind(req.Kind)
	if err != nil {
		respondError(c, err)
		return
	}
	session, err := h.store.Open(c.Request.Context(), kind, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Close handles DELETE /api/v1/sessions/:id
func (h *SessionHandler) Close(c *gin.Context) {
	if err := h.store.Close(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Generate handles POST /api/v1/sessions/:id/generate
func (h *SessionHandler) Generate(c *gin.Context) {
	var req model.GenerateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}
	session, err := h.store.Generate(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		c.JSON(statusCode(err), gin.H{"error": err.Error(), "status": service.GenerateStatus(err)})
		return
	}
	c.JSON(http.StatusOK, session)
}

// Confirm handles POST /api/v1/sessions/:id/confirm
func (h *SessionHandler) Confirm(c *gin.Context) {
	var req model.ConfirmRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}
	session, err := h.store.Confirm(c.Request.Context(), c.Param("id"), req.Raw)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Update handles PATCH /api/v1/sessions/:id/fields
func (h *SessionHandler) Update(c *gin.Context) {
	var upd model.FieldUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		bindError(c, err)
		return
	}
	session, err := h.store.Update(c.Param("id"), upd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// SwitchKind handles POST /api/v1/sessions/:id/kind
func (h *SessionHandler) SwitchKind(c *gin.Context) {
	var req model.SwitchKindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	kind, err := parseKind(req.Kind)
	if err != nil {
		respondError(c, err)
		return
	}
	session, err := h.store.SwitchKind(c.Request.Context(), c.Param("id"), kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Reset handles POST /api/v1/sessions/:id/reset
func (h *SessionHandler) Reset(c *gin.Context) {
	session, err := h.store.Reset(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Submit handles POST /api/v1/sessions/:id/submit
func (h *SessionHandler) Submit(c *gin.Context) {
	id := c.Param("id")
	result, err := h.store.Submit(c.Request.Context(), id)
	if err != nil {
		// the session keeps the status line that was shown for this failure
		status := apperrors.StatusMessage(err)
		if session, gerr := h.store.Get(id); gerr == nil && session.Status != "" {
			status = session.Status
		}
		c.JSON(statusCode(err), gin.H{"error": err.Error(), "status": status})
		return
	}
	c.JSON(http.StatusOK, result)
}
