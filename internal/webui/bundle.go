// Package webui serves the embedded wheel page.
package webui

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
)

//go:embed dist/*
var dist embed.FS

// apiPrefixes never fall back to the page.
var apiPrefixes = []string{"/v0", "/webhooks", "/healthz"}

// Bundle exposes the embedded page and its assets.
type Bundle struct {
	DistFS    fs.FS
	IndexHTML []byte
}

// Load reads the embedded bundle.
func Load() (Bundle, error) {
	distFS, errSub := fs.Sub(dist, "dist")
	if errSub != nil {
		return Bundle{}, errSub
	}
	indexHTML, errReadFile := fs.ReadFile(distFS, "index.html")
	if errReadFile != nil {
		return Bundle{}, errReadFile
	}
	return Bundle{DistFS: distFS, IndexHTML: indexHTML}, nil
}

// Register serves /assets and falls back to index.html for any other GET that is not an API path.
// The wheel link carries its token in the query string, so every page path renders the same document.
func (b Bundle) Register(r *gin.Engine) {
	if r == nil || b.DistFS == nil {
		return
	}
	fileServer := http.FileServer(http.FS(b.DistFS))
	r.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		requestPath := c.Request.URL.Path
		if IsAPIRoute(requestPath) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		filePath := strings.TrimPrefix(path.Clean("/"+requestPath), "/")
		if filePath != "" && filePath != "index.html" {
			if info, errStat := fs.Stat(b.DistFS, filePath); errStat == nil && !info.IsDir() {
				fileServer.ServeHTTP(c.Writer, c.Request)
				return
			}
			if strings.HasPrefix(filePath, "assets/") || strings.Contains(path.Base(filePath), ".") {
				c.Status(http.StatusNotFound)
				return
			}
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", b.IndexHTML)
	})
}

// IsAPIRoute reports whether a path belongs to the JSON API.
func IsAPIRoute(requestPath string) bool {
	for _, prefix := range apiPrefixes {
		if requestPath == prefix || strings.HasPrefix(requestPath, prefix+"/") {
			return true
		}
	}
	return false
}
