package web

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
)

// IndexData is the data passed to the index template
type IndexData struct {
	LiveReload bool // include the live reload client script
}

// indexPage renders the configured index template ("/")
func (s *WebServer) indexPage(c *gin.Context) {
	var buf bytes.Buffer
	data := IndexData{LiveReload: s.hub != nil}
	if err := s.templates.Render(&buf, s.Config.IndexTemplate, data); err != nil {
		s.renderError(c, http.StatusInternalServerError, "Template error", err.Error())
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
