package server

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilnhq/kiln/cors"
	"github.com/kilnhq/kiln/middleware"
	"github.com/kilnhq/kiln/openapi"
)

// WebSocketOptions carries the tunables the spec's §6 external interface
// passes down to the WebSocket transport at upgrade time.
type WebSocketOptions struct {
	MaxPayloadLength   int64         `yaml:"maxPayloadLength"`
	IdleTimeout        time.Duration `yaml:"idleTimeout"`
	Compression        bool          `yaml:"compression"`
	BackpressureLimit  int           `yaml:"backpressureLimit"`
}

// Options configures a Server (spec §4.13).
type Options struct {
	Port             int               `yaml:"port"`
	Host             string            `yaml:"host"`
	Development      bool              `yaml:"development"`
	CORSEnabled      bool              `yaml:"-"`
	CORS             cors.Config       `yaml:"-"`
	StaticMounts     map[string]string `yaml:"staticMounts"`
	GlobalMiddleware []middleware.Middleware `yaml:"-"`
	OpenAPI          openapi.Config    `yaml:"-"`
	WebSocket        WebSocketOptions  `yaml:"webSocket"`
	DocsPath         string            `yaml:"docsPath"`
	MaxBodyBytes     int64             `yaml:"maxBodyBytes"`
}

// DefaultOptions returns the framework's documented defaults.
func DefaultOptions() Options {
	return Options{
		Port:        8080,
		Host:        "0.0.0.0",
		Development: false,
		CORSEnabled: true,
		CORS:        cors.DefaultConfig(),
		DocsPath:    "/docs",
		WebSocket: WebSocketOptions{
			MaxPayloadLength: 1 << 20,
			IdleTimeout:      60 * time.Second,
		},
		MaxBodyBytes: 10 << 20,
	}
}

// yamlOptions is the subset of Options that round-trips through YAML;
// the rest (callbacks, CORS predicates, middleware) stay code-configured.
type yamlOptions struct {
	Port         int               `yaml:"port"`
	Host         string            `yaml:"host"`
	Development  *bool             `yaml:"development"`
	CORSEnabled  *bool             `yaml:"corsEnabled"`
	StaticMounts map[string]string `yaml:"staticMounts"`
	DocsPath     string            `yaml:"docsPath"`
	MaxBodyBytes int64             `yaml:"maxBodyBytes"`
	WebSocket    yamlWebSocketOptions `yaml:"webSocket"`
}

type yamlWebSocketOptions struct {
	MaxPayloadLength  int64         `yaml:"maxPayloadLength"`
	IdleTimeout       time.Duration `yaml:"idleTimeout"`
	Compression       *bool         `yaml:"compression"`
	BackpressureLimit int           `yaml:"backpressureLimit"`
}

// LoadOptionsFile overlays YAML configuration at path onto a copy of
// base, returning the merged Options. Only the fields that make sense as
// static configuration (network, development flag, CORS on/off, static
// mounts, docs path, body-size cap, WebSocket tunables) are overlaid;
// callbacks and CORS predicates must still be set in code.
func LoadOptionsFile(path string, base Options) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, err
	}
	var y yamlOptions
	if err := yaml.Unmarshal(data, &y); err != nil {
		return base, err
	}
	out := base
	if y.Port != 0 {
		out.Port = y.Port
	}
	if y.Host != "" {
		out.Host = y.Host
	}
	if y.Development != nil {
		out.Development = *y.Development
	}
	if y.CORSEnabled != nil {
		out.CORSEnabled = *y.CORSEnabled
	}
	if y.StaticMounts != nil {
		out.StaticMounts = y.StaticMounts
	}
	if y.DocsPath != "" {
		out.DocsPath = y.DocsPath
	}
	if y.MaxBodyBytes != 0 {
		out.MaxBodyBytes = y.MaxBodyBytes
	}
	if y.WebSocket.MaxPayloadLength != 0 {
		out.WebSocket.MaxPayloadLength = y.WebSocket.MaxPayloadLength
	}
	if y.WebSocket.IdleTimeout != 0 {
		out.WebSocket.IdleTimeout = y.WebSocket.IdleTimeout
	}
	if y.WebSocket.Compression != nil {
		out.WebSocket.Compression = *y.WebSocket.Compression
	}
	if y.WebSocket.BackpressureLimit != 0 {
		out.WebSocket.BackpressureLimit = y.WebSocket.BackpressureLimit
	}
	return out, nil
}
