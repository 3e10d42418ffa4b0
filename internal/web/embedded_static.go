package web

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	embeddedTemplatesRoot = "templates"
	embeddedStaticRoot    = "static"
)

//go:embed templates static
var EmbeddedFS embed.FS

// ListEmbeddedFiles returns a list of all embedded files for debugging
func ListEmbeddedFiles() ([]string, error) {
	var files []string
	err := fs.WalkDir(EmbeddedFS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// openAssetFS returns dir from disk if it exists, otherwise the embedded copy.
// The returned string is the absolute on-disk root, empty for the embedded copy.
func openAssetFS(dir string, embeddedRoot string) (fs.FS, string, error) {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			abs, err := filepath.Abs(dir)
			if err != nil {
				return nil, "", err
			}
			log.Printf("[WEB]: Serving %s from %s", embeddedRoot, abs)
			return os.DirFS(abs), abs, nil
		}
		log.Printf("[WEB]: No %s directory at %s, using embedded copy", embeddedRoot, dir)
	}
	sub, err := fs.Sub(EmbeddedFS, embeddedRoot)
	if err != nil {
		return nil, "", fmt.Errorf("embedded %s: %w", embeddedRoot, err)
	}
	return sub, "", nil
}

// staticFiles returns a Gin handler serving the static folder from the URL root.
// Only regular files are served; everything else is a 404.
func (s *WebServer) staticFiles() gin.HandlerFunc {
	fileServer := http.FileServer(http.FS(s.static))
	cacheControl := "public, max-age=3600" // browser caches an hour
	if s.Config.Debug {
		cacheControl = "no-cache"
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			s.renderError(c, http.StatusNotFound, "Not Found", c.Request.Method+" "+c.Request.URL.Path)
			return
		}

		// FileServer would redirect "/main.js/" instead of answering 404
		if strings.HasSuffix(c.Request.URL.Path, "/") {
			s.renderError(c, http.StatusNotFound, "Not Found", c.Request.URL.Path)
			return
		}
		name := strings.TrimPrefix(path.Clean("/"+c.Request.URL.Path), "/")
		info, err := fs.Stat(s.static, name)
		if name == "" || err != nil || info.IsDir() {
			s.renderError(c, http.StatusNotFound, "Not Found", c.Request.URL.Path)
			return
		}

		c.Header("Cache-Control", cacheControl)
		fileServer.ServeHTTP(c.Writer, c.Request)
	}
}
