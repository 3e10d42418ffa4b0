package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	prof "github.com/go-while/go-cpu-mem-profiler"
	"github.com/go-while/go-pdfweb/internal/config"
	"github.com/go-while/go-pdfweb/internal/web"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// command-line flags
type options struct {
	configFile   string
	webhost      string
	webport      int
	webdebug     bool
	webcertFile  string
	webkeyFile   string
	templatesDir string
	staticDir    string
	pprofAddr    string
}

var Prof *prof.Profiler

func newRootCmd(opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "go-pdfweb",
		Short:         "go-pdfweb serves the PDF toolkit page",
		Long:          "Serves index.html from the templates folder at / and the static folder from the URL root.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			mainConfig, err := buildConfig(cmd, opts)
			if err != nil {
				return err
			}
			return run(mainConfig)
		},
	}

	defaults := config.NewDefaultConfig()
	flags := rootCmd.Flags()
	flags.StringVar(&opts.configFile, "config", "", "YAML config file (flags override its values)")
	flags.StringVar(&opts.webhost, "host", defaults.Web.Host, "Web server bind address")
	flags.IntVar(&opts.webport, "port", defaults.Web.ListenPort, "Web server port")
	flags.BoolVar(&opts.webdebug, "debug", defaults.Web.Debug, "Debug mode: template hot reload, live reload channel, no static caching")
	flags.StringVar(&opts.webcertFile, "websslcert", "", "SSL certificate file (/path/to/fullchain.pem), enables SSL with --websslkey")
	flags.StringVar(&opts.webkeyFile, "websslkey", "", "SSL key file (/path/to/privkey.pem)")
	flags.StringVar(&opts.templatesDir, "templates", defaults.Web.TemplatesDir, "Templates directory (embedded copy if missing)")
	flags.StringVar(&opts.staticDir, "static", defaults.Web.StaticDir, "Static assets directory (embedded copy if missing)")
	flags.StringVar(&opts.pprofAddr, "pprof", "", "Serve pprof on this address (e.g. :51111)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.AppVersion)
		},
	})
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	config.AppVersion = appVersion
	err := newRootCmd(&options{}).Execute()
	if err != nil {
		log.Printf("[WEB]: %v", err)
	}
	return err
}

// buildConfig layers defaults, the optional config file and explicitly set flags
func buildConfig(cmd *cobra.Command, opts *options) (*config.MainConfig, error) {
	mainConfig := config.NewDefaultConfig()
	if opts.configFile != "" {
		if err := mainConfig.LoadFile(opts.configFile); err != nil {
			return nil, err
		}
	}

	webConfig := &mainConfig.Web
	flags := cmd.Flags()
	if flags.Changed("host") {
		webConfig.Host = opts.webhost
		log.Printf("[WEB]: Overriding bind address with command-line flag: %s", webConfig.Host)
	}
	if flags.Changed("port") {
		webConfig.ListenPort = opts.webport
		log.Printf("[WEB]: Overriding listen port with command-line flag: %d", webConfig.ListenPort)
	}
	if flags.Changed("debug") {
		webConfig.Debug = opts.webdebug
	}
	if flags.Changed("templates") {
		webConfig.TemplatesDir = opts.templatesDir
	}
	if flags.Changed("static") {
		webConfig.StaticDir = opts.staticDir
	}
	if flags.Changed("websslcert") {
		webConfig.CertFile = opts.webcertFile
	}
	if flags.Changed("websslkey") {
		webConfig.KeyFile = opts.webkeyFile
	}
	if flags.Changed("websslcert") || flags.Changed("websslkey") {
		webConfig.SSL = true
		log.Printf("[WEB]: SSL enabled via command-line flags (cert: %s, key: %s)", webConfig.CertFile, webConfig.KeyFile)
	}
	if flags.Changed("pprof") {
		mainConfig.PprofAddr = opts.pprofAddr
	}

	if err := webConfig.Validate(); err != nil {
		return nil, err
	}
	return mainConfig, nil
}

func run(mainConfig *config.MainConfig) error {
	webConfig := &mainConfig.Web
	log.Printf("Starting go-pdfweb (version: %s)", appVersion)
	log.Printf("[WEB]: Using WEB configuration: %#v", *webConfig)

	if term.IsTerminal(int(os.Stdout.Fd())) {
		gin.ForceConsoleColor()
	} else {
		gin.DisableConsoleColor()
	}

	if mainConfig.PprofAddr != "" {
		Prof = prof.NewProf()
		go Prof.PprofWeb(mainConfig.PprofAddr)
		log.Printf("[WEB]: pprof listening on %s", mainConfig.PprofAddr)
	}

	server, err := web.NewServer(webConfig)
	if err != nil {
		return fmt.Errorf("create web server: %w", err)
	}
	if err := server.WatchChanges(); err != nil {
		log.Printf("[WEB]: Warning: file watcher disabled: %v", err)
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	protocol := "http"
	if webConfig.SSL {
		protocol = "https"
	}
	log.Printf("[WEB]: Starting go-pdfweb web server on %s://%s", protocol, webConfig.Addr())

	// Start web server in goroutine to make it non-blocking
	webServerErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			webServerErrChan <- err
		}
	}()

	// a listener error is logged once, by Execute
	var startErr error
	select {
	case sig := <-sigChan:
		log.Printf("[WEB]: Received %s, initiating graceful shutdown...", sig)
	case startErr = <-webServerErrChan:
	}

	ctx, cancel := context.WithTimeout(context.Background(), webConfig.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[WEB]: Error during shutdown: %v", err)
	}
	if startErr != nil {
		return fmt.Errorf("web server: %w", startErr)
	}
	log.Printf("[WEB]: Graceful shutdown completed (port %d, uptime %s)", server.GetPort(), server.Uptime().Round(time.Second))
	return nil
}
