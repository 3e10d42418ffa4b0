// Package web provides the HTTP server for go-pdfweb
package web

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/go-while/go-pdfweb/internal/config"
	"github.com/go-while/go-pdfweb/internal/reload"
)

// WebServer represents the web server
type WebServer struct {
	Router *gin.Engine
	Config *config.WebConfig

	startTime atomic.Int64 // unix nanoseconds, set by Start

	templates *templateSet
	static    fs.FS

	// on-disk roots, empty when the embedded copy is served
	templatesDir string
	staticDir    string

	httpSrv *http.Server
	hub     *reloadHub      // debug only
	watcher *reload.Watcher // debug only
}

// NewServer creates a new web server instance
func NewServer(webconfig *config.WebConfig) (*WebServer, error) {
	if err := webconfig.Validate(); err != nil {
		return nil, err
	}

	if webconfig.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true

	// Configure Gin to trust reverse proxy headers
	if err := router.SetTrustedProxies(webconfig.Proxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	server := &WebServer{
		Router: router,
		Config: webconfig,
		httpSrv: &http.Server{
			Addr:              webconfig.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	var err error
	server.static, server.staticDir, err = openAssetFS(webconfig.StaticDir, embeddedStaticRoot)
	if err != nil {
		return nil, err
	}
	templatesFS, templatesDir, err := openAssetFS(webconfig.TemplatesDir, embeddedTemplatesRoot)
	if err != nil {
		return nil, err
	}
	server.templatesDir = templatesDir
	server.templates = newTemplateSet(templatesFS)
	if err := server.templates.Reload(); err != nil {
		// requests for the index answer 500 until the templates parse
		log.Printf("[WEB]: Warning: %v", err)
	}

	router.Use(gin.Recovery(), server.ApacheLogFormat())
	router.Use(secure.New(server.secureConfig()))

	if webconfig.Debug {
		server.hub = newReloadHub()
	}

	server.setupRoutes()
	return server, nil
}

// secureConfig builds the security header settings based on the SSL setup
func (s *WebServer) secureConfig() secure.Config {
	secureConfig := secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
	}

	// Only add SSL-specific headers if SSL is enabled on the application itself
	// (not when running behind a reverse proxy like nginx with SSL)
	if s.Config.SSL {
		secureConfig.SSLRedirect = true
		secureConfig.STSSeconds = 31536000
		secureConfig.STSIncludeSubdomains = true
	}
	return secureConfig
}

// setupRoutes configures all HTTP routes
func (s *WebServer) setupRoutes() {
	s.Router.GET("/", s.indexPage)
	s.Router.HEAD("/", s.indexPage)

	if s.hub != nil {
		s.Router.GET(reloadPath, s.hub.serve)
		s.Router.GET(reloadScriptPath, reloadScript)
	}

	// static assets live at the URL root, so they are resolved after routing
	s.Router.NoRoute(s.staticFiles())
	s.Router.NoMethod(func(c *gin.Context) {
		s.renderError(c, http.StatusMethodNotAllowed, "Method Not Allowed", c.Request.Method+" "+c.Request.URL.Path)
	})
}

// Start starts the web server with SSL support if configured.
// It blocks until the server stops and returns http.ErrServerClosed after Shutdown.
func (s *WebServer) Start() error {
	addr := s.httpSrv.Addr
	s.startTime.Store(time.Now().UnixNano())
	if s.Config.SSL {
		if s.Config.CertFile == "" || s.Config.KeyFile == "" {
			return config.ErrIncompleteTLS
		}
		log.Printf("[WEB]: Starting HTTPS server on %s", addr)
		return s.httpSrv.ListenAndServeTLS(s.Config.CertFile, s.Config.KeyFile)
	}
	log.Printf("[WEB]: Starting HTTP server on %s", addr)
	return s.httpSrv.ListenAndServe()
}

// Uptime returns how long the server has been started, zero before Start
func (s *WebServer) Uptime() time.Duration {
	started := s.startTime.Load()
	if started == 0 {
		return 0
	}
	return time.Since(time.Unix(0, started))
}

// Shutdown stops the file watcher, disconnects live reload clients and
// gracefully stops the HTTP server.
func (s *WebServer) Shutdown(ctx context.Context) error {
	if s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			log.Printf("[WEB]: Error stopping file watcher: %v", err)
		}
	}
	if s.hub != nil {
		s.hub.Close()
	}
	return s.httpSrv.Shutdown(ctx)
}

// ApacheLogFormat logs requests in the Apache combined log format
func (s *WebServer) ApacheLogFormat() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		status := fmt.Sprintf("%d", param.StatusCode)
		if param.IsOutputColor() {
			status = param.StatusCodeColor() + status + param.ResetColor()
		}
		return fmt.Sprintf(`%s - - [%s] "%s %s %s" %s %d "%s" "%s"`+"\n",
			param.ClientIP,
			param.TimeStamp.Format("02/Jan/2006:15:04:05 -0700"),
			param.Method,
			param.Path,
			param.Request.Proto,
			status,
			param.BodySize,
			param.Request.Referer(),
			param.Request.UserAgent(),
		)
	})
}
