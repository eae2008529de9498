// Package cors implements the CORS Engine (spec §4.4): origin policy
// evaluation, preflight response synthesis, and response-header
// decoration. Origin matching and header synthesis are delegated to
// go-chi/cors, the pack's wired CORS library (see
// _examples/squat-collective-rat/platform); kiln retains control of
// when a preflight short-circuits routing and how a disallowed origin
// is reported, since go-chi/cors has no notion of either.
package cors

import (
	"net/http"
	"net/http/httptest"

	gochicors "github.com/go-chi/cors"

	"github.com/kilnhq/kiln/errs"
	"github.com/kilnhq/kiln/response"
)

// Origin describes the allowed-origin policy: exactly one of Any,
// Literal, List, or Predicate should be set.
type Origin struct {
	Any       bool
	Literal   string
	List      []string
	Predicate func(origin string) bool
}

// Allows reports whether origin is permitted by the policy.
func (o Origin) Allows(origin string) bool {
	if o.Any {
		return true
	}
	if o.Predicate != nil {
		return o.Predicate(origin)
	}
	if o.Literal != "" {
		return o.Literal == origin
	}
	for _, l := range o.List {
		if l == origin {
			return true
		}
	}
	return false
}

// Config is the CORS engine's configuration.
type Config struct {
	Origin         Origin
	Methods        []string
	AllowedHeaders []string
	ExposedHeaders []string
	Credentials    bool
	MaxAge         int // seconds; 0 means unset
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		Origin:         Origin{Any: true},
		Methods:        []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}
}

// Engine evaluates CORS policy against requests. It runs every request
// through a go-chi/cors handler to get the origin-matching and header
// decisions, then translates that into kiln's own *response.Response
// shape (spec §4.4's 204/403 preflight outcomes).
type Engine struct {
	Config Config
	chi    *gochicors.Cors
}

// New builds an Engine from a Config.
func New(c Config) *Engine {
	return &Engine{
		Config: c,
		chi: gochicors.New(gochicors.Options{
			AllowOriginFunc:      func(r *http.Request, origin string) bool { return c.Origin.Allows(origin) },
			AllowedMethods:       c.Methods,
			AllowedHeaders:       c.AllowedHeaders,
			ExposedHeaders:       c.ExposedHeaders,
			AllowCredentials:     c.Credentials,
			MaxAge:               c.MaxAge,
			OptionsSuccessStatus: http.StatusNoContent,
		}),
	}
}

// Preflight synthesizes the response to an OPTIONS request, per spec
// §4.4: 204 with allow-origin/methods/headers/max-age/credentials when
// the origin is allowed, 403 with the standard envelope otherwise.
//
// It runs r through go-chi/cors's Handler against a throwaway recorder
// to collect the headers go-chi/cors would have written, then either
// copies them onto a 204 or — if go-chi/cors declined to set
// Access-Control-Allow-Origin, meaning the origin didn't pass policy —
// returns kiln's own 403 envelope, a response shape go-chi/cors itself
// never produces.
func (e *Engine) Preflight(b *response.Builder, r *http.Request) *response.Response {
	origin := r.Header.Get("Origin")
	rec := e.run(r)

	if origin == "" || rec.Header().Get("Access-Control-Allow-Origin") == "" {
		return b.Forbidden("Origin not allowed", errs.CodeForbidden, nil)
	}
	resp := b.Status(http.StatusNoContent).Custom(http.StatusNoContent, nil, "")
	copyCORSHeaders(resp, rec.Header())
	return resp
}

// Decorate adds CORS response headers to resp for a non-OPTIONS request
// that carried origin. If origin does not match policy, no allow-origin
// header is added (the browser will reject the response client-side);
// the pipeline only produces an explicit 403 for the preflight case.
func (e *Engine) Decorate(resp *response.Response, r *http.Request) *response.Response {
	if r.Header.Get("Origin") == "" {
		return resp
	}
	rec := e.run(r)
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		return resp
	}
	copyCORSHeaders(resp, rec.Header())
	return resp
}

// run drives r through go-chi/cors's combined preflight/actual-request
// handler and returns the recorder it wrote headers to. The inner
// handler is a no-op: kiln only wants go-chi/cors's header synthesis,
// never its body or status.
func (e *Engine) run(r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.chi.Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rec, r)
	return rec
}

func copyCORSHeaders(resp *response.Response, h http.Header) {
	for _, k := range []string{
		"Access-Control-Allow-Origin",
		"Access-Control-Allow-Methods",
		"Access-Control-Allow-Headers",
		"Access-Control-Allow-Credentials",
		"Access-Control-Expose-Headers",
		"Access-Control-Max-Age",
	} {
		if v := h.Get(k); v != "" {
			resp.Headers.Set(k, v)
		}
	}
}
