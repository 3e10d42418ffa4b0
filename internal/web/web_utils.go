package web

import (
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetPort returns the listening port from the config
func (s *WebServer) GetPort() int {
	return s.Config.ListenPort
}

// renderError logs the failure and answers with a short plain-text body
func (s *WebServer) renderError(c *gin.Context, statusCode int, message string, errstring string) {
	log.Printf("[WEB]: Error %d: %s - %s", statusCode, message, errstring)
	body := message
	if s.Config.Debug && statusCode >= http.StatusInternalServerError {
		body += ": " + errstring
	}
	c.String(statusCode, "%d %s\n", statusCode, body)
	c.Abort()
}

// relativeTo returns p relative to root if p is inside root
func relativeTo(root, p string) (string, bool) {
	if root == "" {
		return "", false
	}
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
