// Package server implements the Server Object (spec §4.13): the
// lifecycle, option carrying, and registry composition that ties the
// HTTP and WebSocket dispatch cores together behind one listener.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kilnhq/kiln/clienttypes"
	"github.com/kilnhq/kiln/cors"
	"github.com/kilnhq/kiln/dispatch"
	"github.com/kilnhq/kiln/httproute"
	"github.com/kilnhq/kiln/logging"
	"github.com/kilnhq/kiln/middleware"
	"github.com/kilnhq/kiln/openapi"
	"github.com/kilnhq/kiln/response"
	"github.com/kilnhq/kiln/wsconn"
	"github.com/kilnhq/kiln/wsroute"
)

// globalHTTP and globalWS are the process-wide registries used by any
// server that never registers a route against its own local registry
// (spec §9: "dual ownership of registries").
var (
	globalHTTP = httproute.NewRegistry()
	globalWS   = wsroute.NewRegistry()
)

// GlobalHTTP returns the process-global HTTP route registry.
func GlobalHTTP() *httproute.Registry { return globalHTTP }

// GlobalWS returns the process-global WebSocket route registry.
func GlobalWS() *wsroute.Registry { return globalWS }

// Server is a single kiln application: it owns (or borrows) a pair of
// route registries, the HTTP and WebSocket dispatch cores, and an
// http.Server.
type Server struct {
	Options Options
	Logger  *slog.Logger

	localHTTP *httproute.Registry
	localWS   *wsroute.Registry
	usesLocal bool

	pipeline *dispatch.Pipeline
	wsDisp   *dispatch.WSDispatcher
	http     *http.Server
}

// New builds a Server from opts. Routes are registered before calling
// Start, via HTTP()/WS() (the global registries until the latch flips)
// or via LocalHTTP()/LocalWS(), which adopt the local registries per the
// one-way latch rule.
func New(opts Options) *Server {
	s := &Server{
		Options:   opts,
		Logger:    logging.NewLogger(logging.DefaultConfig()),
		localHTTP: httproute.NewRegistry(),
		localWS:   wsroute.NewRegistry(),
	}
	return s
}

// HTTP returns the registry this server currently registers HTTP routes
// against: its local registry, once AdoptLocal has been called (directly
// or via LocalHTTP/LocalWS), or the global registry otherwise. Calling
// this method itself does not flip the latch, and neither does
// registering a route on either registry.
func (s *Server) HTTP() *httproute.Registry {
	if s.usesLocal {
		return s.localHTTP
	}
	return globalHTTP
}

// WS returns the registry this server currently registers WebSocket
// routes against, following the same local-first rule as HTTP.
func (s *Server) WS() *wsroute.Registry {
	if s.usesLocal {
		return s.localWS
	}
	return globalWS
}

// AdoptLocal switches this server onto its local registries exclusively.
// Once adopted, routes registered against the global registries become
// invisible to this server — a one-way latch, preserved intentionally
// (see DESIGN.md's Open Question decision for spec §9).
func (s *Server) AdoptLocal() {
	if !s.usesLocal {
		s.Logger.Warn("server switching to its local route registry; routes on the global registry will no longer be served by this server")
	}
	s.usesLocal = true
}

// LocalHTTP returns this server's local HTTP registry directly and
// adopts it, without requiring a route to be registered first.
func (s *Server) LocalHTTP() *httproute.Registry {
	s.AdoptLocal()
	return s.localHTTP
}

// LocalWS returns this server's local WebSocket registry directly and
// adopts it.
func (s *Server) LocalWS() *wsroute.Registry {
	s.AdoptLocal()
	return s.localWS
}

// Start binds the listener and serves until an error occurs or Stop is
// called.
func (s *Server) Start() error {
	s.pipeline = dispatch.NewPipeline(s.HTTP())
	s.pipeline.Global = s.Options.GlobalMiddleware
	s.pipeline.CORS = corsEngine(s.Options)
	if s.Options.MaxBodyBytes > 0 {
		s.pipeline.MaxBodyBytes = s.Options.MaxBodyBytes
	}

	s.wsDisp = dispatch.NewWSDispatcher(s.WS())
	s.wsDisp.Logger = s.Logger
	s.wsDisp.Options.MaxPayloadLength = s.Options.WebSocket.MaxPayloadLength
	s.wsDisp.Options.IdleTimeout = s.Options.WebSocket.IdleTimeout
	s.wsDisp.Options.Compression = s.Options.WebSocket.Compression

	s.addDocsRoutes()

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveHTTPOrWS)
	for prefix, dir := range s.Options.StaticMounts {
		mux.Handle(prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(dir))))
	}

	s.http = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.Options.Host, s.Options.Port),
		Handler: mux,
	}

	s.Logger.Info("starting server", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// serveHTTPOrWS consults the WebSocket matcher first, per spec §4.13:
// "install a fetch callback that consults the WebSocket matcher first
// for upgrade requests and otherwise runs the HTTP pipeline."
func (s *Server) serveHTTPOrWS(w http.ResponseWriter, r *http.Request) {
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") && s.wsDisp.Registry.Match(r.URL.Path) != nil {
		s.wsDisp.ServeHTTP(w, r)
		return
	}
	s.pipeline.ServeHTTP(w, r)
}

// Publish broadcasts msg (JSON-encoded unless already []byte/string) to
// every live WebSocket connection matching pred (or all, if pred is nil).
func (s *Server) Publish(msg any, pred func(*wsconn.Facade) bool) map[string]error {
	return s.wsDisp.Conns.Broadcast(msg, pred)
}

// PublishBinary is Publish for a raw binary payload.
func (s *Server) PublishBinary(data []byte, pred func(*wsconn.Facade) bool) map[string]error {
	return s.wsDisp.Conns.BroadcastBinary(data, pred)
}

// GetOpenAPISpec synthesizes the current OpenAPI 3.1 document from this
// server's HTTP registry, using the pipeline's schema adapter.
func (s *Server) GetOpenAPISpec() *openapi.Document {
	return openapi.Synthesize(s.HTTP(), s.pipeline.Schema, s.Options.OpenAPI)
}

// ExportOpenAPISpec synthesizes the document and renders it as indented
// JSON, suitable for writing to a file at build time.
func (s *Server) ExportOpenAPISpec() ([]byte, error) {
	return marshalIndent(s.GetOpenAPISpec())
}

// GenerateWebSocketTypes renders the client type descriptors for this
// server's WebSocket registry.
func (s *Server) GenerateWebSocketTypes() string {
	return clienttypes.Generate(s.WS())
}

func (s *Server) addDocsRoutes() {
	if s.Options.DocsPath == "" {
		return
	}
	path := s.Options.DocsPath
	adapter := s.pipeline.Schema
	httpReg := s.HTTP()

	httpReg.Get(path+".json").ExcludeFromDocs().Handler(func(a *middleware.Args) *response.Response {
		doc := openapi.Synthesize(httpReg, adapter, s.Options.OpenAPI)
		return a.Builder.OK(doc)
	})
	httpReg.Get(path).ExcludeFromDocs().Handler(func(a *middleware.Args) *response.Response {
		return a.Builder.HTML(swaggerUIHTML(s.Options.OpenAPI.Title, path+".json"), 0)
	})
}

// corsEngine builds the pipeline's CORS engine from opts, or nil when
// CORS is disabled outright (spec's repeated "if CORS is enabled"
// framing) — a nil engine makes the pipeline skip preflight
// short-circuiting and decoration entirely, rather than falling back
// to some default policy. When CORS is enabled but left at its zero
// Config, that zero value is treated as "use the documented defaults"
// rather than "allow nothing".
func corsEngine(opts Options) *cors.Engine {
	if !opts.CORSEnabled {
		return nil
	}
	cfg := opts.CORS
	if isZeroCORSConfig(cfg) {
		cfg = cors.DefaultConfig()
	}
	return cors.New(cfg)
}

func isZeroCORSConfig(cfg cors.Config) bool {
	return cfg.Methods == nil && cfg.AllowedHeaders == nil && !cfg.Origin.Any &&
		cfg.Origin.Literal == "" && cfg.Origin.List == nil && cfg.Origin.Predicate == nil
}

func marshalIndent(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func swaggerUIHTML(title, specURL string) string {
	return fmt.Sprintf(`<!doctype html>
<html>
<head><title>%s</title></head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist/swagger-ui-bundle.js"></script>
<script>
window.onload = () => SwaggerUIBundle({url: %q, dom_id: "#swagger-ui"});
</script>
</body>
</html>`, title, specURL)
}
