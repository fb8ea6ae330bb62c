package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"intake/internal/model"
	"intake/internal/service"
)

// ReconcileHandler exposes the engine as a stateless call
type ReconcileHandler struct {
	reconciler *service.Reconciler
}

// NewReconcileHandler creates a new reconcile handler
func NewReconcileHandler(reconciler *service.Reconciler) *ReconcileHandler {
	return &ReconcileHandler{reconciler: reconciler}
}

// Reconcile handles POST /api/v1/reconcile
func (h *ReconcileHandler) Reconcile(c *gin.Context) {
	var req model.ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	kind, err := parseKind(req.Kind)
	if err != nil {
		respondError(c, err)
		return
	}

	current := model.InitialFormState(kind)
	if req.Current != nil {
		current = *req.Current
	}
	engine := h.reconciler
	if req.Offline {
		engine = engine.Offline()
	}

	result, err := engine.Reconcile(c.Request.Context(), req.Raw, kind, req.Catalogs, current)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
