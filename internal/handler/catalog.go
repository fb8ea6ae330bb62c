package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"intake/internal/service"
)

// CatalogHandler serves dropdown data and location autocomplete
type CatalogHandler struct {
	catalogs  service.CatalogLoader
	locations service.LocationLookup
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalogs service.CatalogLoader, locations service.LocationLookup) *CatalogHandler {
	return &CatalogHandler{catalogs: catalogs, locations: locations}
}

// Catalogs handles GET /api/v1/catalogs?kind=
func (h *CatalogHandler) Catalogs(c *gin.Context) {
	kind, err := parseKind(c.Query("kind"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.catalogs.Load(c.Request.Context(), kind))
}

// Locations handles GET /api/v1/locations?search=
func (h *CatalogHandler) Locations(c *gin.Context) {
	results, err := h.locations.SearchLocations(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}
