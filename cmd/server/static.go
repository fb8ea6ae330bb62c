package main

import (
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"intake/internal/logging"
)

// setupStaticFiles serves the admin UI build from dir with SPA fallback.
// Without a dir only the API is served.
func setupStaticFiles(router *gin.Engine, dir string) {
	if dir == "" {
		logging.Info().Msg("🔧 No ADMIN_UI_DIR set - serving the API only")
		router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api") {
				c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
				return
			}
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Admin UI is not bundled with this server",
				"hint":  "Set ADMIN_UI_DIR to the built frontend directory",
			})
		})
		return
	}

	logging.Info().Str("dir", dir).Msg("📦 Serving admin UI from disk")
	uiFS := os.DirFS(dir)

	router.NoRoute(func(c *gin.Context) {
		urlPath := c.Request.URL.Path

		// Skip API routes (they are handled by other routes)
		if strings.HasPrefix(urlPath, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
			return
		}

		cleanPath := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
		if cleanPath == "" {
			cleanPath = "index.html"
		}
		if stat, err := fs.Stat(uiFS, cleanPath); err == nil && !stat.IsDir() {
			c.File(filepath.Join(dir, filepath.FromSlash(cleanPath)))
			return
		}

		// File not found, serve index.html for SPA routing
		if _, err := fs.Stat(uiFS, "index.html"); err != nil {
			c.String(http.StatusNotFound, "404 page not found")
			return
		}
		c.File(filepath.Join(dir, "index.html"))
	})
}
