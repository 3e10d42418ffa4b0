// Package config provides configuration management for go-pdfweb.
package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

var AppVersion = "-unset-" // will be set at build time

const (
	DefaultHost          = "0.0.0.0"
	DefaultListenPort    = 5000
	DefaultTemplatesDir  = "templates"
	DefaultStaticDir     = "static"
	DefaultIndexTemplate = "index.html"

	DefaultShutdownTimeout = 10 * time.Second
)

var (
	ErrInvalidPort    = errors.New("invalid listen port")
	ErrIncompleteTLS  = errors.New("SSL enabled but cert_file or key_file not specified")
	ErrNoIndex        = errors.New("index template name is empty")
	ErrInvalidTimeout = errors.New("invalid shutdown timeout")
)

// MainConfig holds the main configuration for go-pdfweb
type MainConfig struct {
	Web WebConfig `yaml:"web" json:"web"`

	// Address for the pprof web endpoint, empty disables profiling
	PprofAddr string `yaml:"pprof_addr" json:"pprof_addr"`

	AppVersion string `yaml:"-" json:"app_version"` // Application version, set at build time
}

// WebConfig holds web interface configuration
type WebConfig struct {
	Host          string   `yaml:"host" json:"host"`
	ListenPort    int      `yaml:"listen_port" json:"listen_port"`
	SSL           bool     `yaml:"ssl" json:"ssl"`
	CertFile      string   `yaml:"cert_file,omitempty" json:"cert_file,omitempty"`
	KeyFile       string   `yaml:"key_file,omitempty" json:"key_file,omitempty"`
	TemplatesDir  string   `yaml:"templates_dir" json:"templates_dir"`
	StaticDir     string   `yaml:"static_dir" json:"static_dir"`
	IndexTemplate string   `yaml:"index_template" json:"index_template"`
	Debug         bool     `yaml:"debug" json:"debug"` // template hot reload, live reload channel, gin debug mode
	Proxies       []string `yaml:"trusted_proxies" json:"trusted_proxies"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DefaultTrustedProxies covers loopback and private ranges used by local reverse proxies
var DefaultTrustedProxies = []string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}

// NewDefaultConfig returns a configuration with the development defaults:
// all interfaces, port 5000, debug on.
func NewDefaultConfig() *MainConfig {
	return &MainConfig{
		AppVersion: AppVersion,
		Web: WebConfig{
			Host:            DefaultHost,
			ListenPort:      DefaultListenPort,
			TemplatesDir:    DefaultTemplatesDir,
			StaticDir:       DefaultStaticDir,
			IndexTemplate:   DefaultIndexTemplate,
			Debug:           true,
			Proxies:         append([]string(nil), DefaultTrustedProxies...),
			ShutdownTimeout: DefaultShutdownTimeout,
		},
	}
}

// LoadFile overlays the YAML file at path onto cfg.
// Keys missing from the file keep their current values,
// a zero shutdown_timeout falls back to DefaultShutdownTimeout.
func (cfg *MainConfig) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Web.ShutdownTimeout == 0 {
		cfg.Web.ShutdownTimeout = DefaultShutdownTimeout
	}
	log.Printf("[CONFIG]: loaded %s", path)
	return nil
}

// Addr returns the host:port the listener binds to
func (wc *WebConfig) Addr() string {
	return net.JoinHostPort(wc.Host, strconv.Itoa(wc.ListenPort))
}

// Validate checks the web configuration before the server is built
func (wc *WebConfig) Validate() error {
	if wc.ListenPort < 1 || wc.ListenPort > 65535 {
		return fmt.Errorf("%w: %d (must be between 1 and 65535)", ErrInvalidPort, wc.ListenPort)
	}
	if wc.SSL && (wc.CertFile == "" || wc.KeyFile == "") {
		return ErrIncompleteTLS
	}
	if wc.IndexTemplate == "" {
		return ErrNoIndex
	}
	if wc.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, wc.ShutdownTimeout)
	}
	return nil
}
