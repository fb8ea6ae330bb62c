package handler

import "github.com/gin-gonic/gin"

// Handlers groups every API handler. Nil handlers leave their routes unregistered.
type Handlers struct {
	Extraction *ExtractionHandler
	Search     *SearchHandler
	Feedback   *FeedbackHandler
	Embedding  *EmbeddingHandler
	Reconcile  *ReconcileHandler
	Catalog    *CatalogHandler
	Session    *SessionHandler
	Message    *MessageHandler
}

// RegisterRoutes mounts the API under /api/v1
func RegisterRoutes(router gin.IRouter, h *Handlers) {
	apiV1 := router.Group("/api/v1")

	if h.Extraction != nil {
		apiV1.POST("/extract", h.Extraction.Extract)
		apiV1.POST("/extract/stream", h.Extraction.ExtractStream)
	}
	if h.Search != nil {
		apiV1.GET("/extractions/similar", h.Search.Similar)
		apiV1.GET("/extractions/:id", h.Search.GetExtraction)
	}
	if h.Feedback != nil {
		apiV1.POST("/extractions/:id/feedback", h.Feedback.Submit)
	}
	if h.Embedding != nil {
		apiV1.POST("/extractions/embeddings/backfill", h.Embedding.Backfill)
	}
	if h.Reconcile != nil {
		apiV1.POST("/reconcile", h.Reconcile.Reconcile)
	}
	if h.Catalog != nil {
		apiV1.GET("/catalogs", h.Catalog.Catalogs)
		apiV1.GET("/locations", h.Catalog.Locations)
	}

	if h.Session != nil {
		sessions := apiV1.Group("/sessions")
		sessions.POST("", h.Session.Open)
		sessions.GET("/:id", h.Session.Get)
		sessions.DELETE("/:id", h.Session.Close)
		sessions.POST("/:id/generate", h.Session.Generate)
		sessions.POST("/:id/confirm", h.Session.Confirm)
		sessions.PATCH("/:id/fields", h.Session.Update)
		sessions.POST("/:id/kind", h.Session.SwitchKind)
		sessions.POST("/:id/reset", h.Session.Reset)
		sessions.POST("/:id/submit", h.Session.Submit)
	}

	if h.Message != nil {
		messages := apiV1.Group("/messages")
		messages.GET("", h.Message.List)
		messages.POST("/bulk-delete", h.Message.DeleteBulk)
		messages.GET("/:id", h.Message.Get)
		messages.PATCH("/:id", h.Message.Update)
		messages.DELETE("/:id", h.Message.Delete)
		messages.POST("/:id/read", h.Message.MarkRead)
		messages.POST("/:id/reply", h.Message.Reply)
	}
}
