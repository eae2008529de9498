// Package dispatch wires the route registries, the schema adapter, and
// the middleware executor into the two runtime cores described in spec
// §4.7 and §4.9: the HTTP Request Pipeline and the WebSocket Dispatch
// Core.
package dispatch

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kilnhq/kiln/cors"
	"github.com/kilnhq/kiln/errs"
	"github.com/kilnhq/kiln/httproute"
	"github.com/kilnhq/kiln/middleware"
	"github.com/kilnhq/kiln/response"
	"github.com/kilnhq/kiln/schema"
)

// DefaultMaxBodyBytes is the pipeline's default request-body size cap.
const DefaultMaxBodyBytes = 10 << 20 // 10 MiB

// Pipeline implements the HTTP Request Pipeline: parse, validate,
// run middleware, invoke the handler, and decorate with CORS.
type Pipeline struct {
	Registry        *httproute.Registry
	Schema          *schema.Adapter
	CORS            *cors.Engine
	Global          []middleware.Middleware
	MaxBodyBytes    int64
}

// NewPipeline builds a Pipeline with the framework defaults.
func NewPipeline(reg *httproute.Registry) *Pipeline {
	return &Pipeline{
		Registry:     reg,
		Schema:       schema.Default(),
		CORS:         cors.New(cors.DefaultConfig()),
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// ServeHTTP implements the full pipeline described in spec §4.7.
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b := response.New()

	if r.Method == http.MethodOptions && p.CORS != nil {
		p.write(w, p.CORS.Preflight(b, r))
		return
	}

	matched := p.Registry.Match(httproute.Method(r.Method), r.URL.Path)
	if matched == nil {
		p.write(w, p.decorate(b.NotFound("Route not found", errs.CodeNotFound, nil), r))
		return
	}
	def := matched.Definition

	query, err := parseQuery(r.URL)
	if err != nil {
		p.write(w, p.decorate(b.BadRequest("Invalid query string", errs.CodeBadRequest, nil), r))
		return
	}

	var rawBody []byte
	if r.Body != nil {
		limited := io.LimitReader(r.Body, p.MaxBodyBytes+1)
		data, readErr := io.ReadAll(limited)
		if readErr != nil {
			p.write(w, p.decorate(b.BadRequest("Failed to read request body", errs.CodeBadRequest, nil), r))
			return
		}
		if int64(len(data)) > p.MaxBodyBytes {
			p.write(w, p.decorate(b.BadRequest("Request body too large", errs.CodeBadRequest, nil), r))
			return
		}
		rawBody = data
	}

	var parsedBody, validatedBody any
	var issues []errs.FieldIssue

	if def.QueryType != nil {
		res := p.Schema.Validate(def.QueryType, query)
		if res.IsErr() {
			issues = append(issues, toFieldIssues(res.Error())...)
		}
	}
	if def.BodyType != nil {
		parsed, parseErr := decodeBody(r, rawBody)
		if parseErr != nil {
			p.write(w, p.decorate(b.BadRequest("Failed to parse request body", errs.CodeBadRequest, parseErr.Error()), r))
			return
		}
		parsedBody = parsed
		body, marshalErr := json.Marshal(parsed)
		if marshalErr != nil {
			p.write(w, p.decorate(b.BadRequest("Failed to parse request body", errs.CodeBadRequest, marshalErr.Error()), r))
			return
		}
		res := p.Schema.Validate(def.BodyType, body)
		if res.IsErr() {
			issues = append(issues, toFieldIssues(res.Error())...)
		} else {
			validatedBody = res.Value()
		}
	}
	if len(issues) > 0 {
		p.write(w, p.decorate(b.BadRequest("Validation failed", errs.CodeBadRequest, errs.ValidationDetails(issues)), r))
		return
	}

	// Middlewares see the unvalidated parsed body; runHandler swaps in the
	// validated value when the chain reaches the handler.
	bodyArg := parsedBody
	if bodyArg == nil && len(rawBody) > 0 {
		bodyArg = rawBody
	}
	args := &middleware.Args{
		Request: r,
		Params:  matched.Params,
		Query:   query,
		Body:    bodyArg,
		Context: map[string]any{},
		Builder: b,
	}

	resp := p.runHandler(def, args, validatedBody)
	p.write(w, p.decorate(resp, r))
}

func (p *Pipeline) runHandler(def *httproute.Definition, args *middleware.Args, validatedBody any) (result *response.Response) {
	defer func() {
		if rec := recover(); rec != nil {
			env := errs.New(http.StatusInternalServerError, "Internal server error", errs.CodeInternalError, nil)
			r := &response.Response{Status: http.StatusInternalServerError, Headers: http.Header{}, JSONBody: env}
			r.Headers.Set("Content-Type", "application/json; charset=utf-8")
			result = r
		}
	}()
	handler := middleware.Handler(func(a *middleware.Args) *response.Response {
		if validatedBody != nil {
			a.Body = validatedBody
		}
		return def.Handler(a)
	})
	return middleware.Run(p.Global, def.Middlewares, handler, args)
}

func (p *Pipeline) decorate(resp *response.Response, r *http.Request) *response.Response {
	if p.CORS == nil {
		return resp
	}
	return p.CORS.Decorate(resp, r)
}

func (p *Pipeline) write(w http.ResponseWriter, r *response.Response) {
	for k, vals := range r.Headers {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	if r.Body == nil && r.JSONBody != nil {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
		}
		w.WriteHeader(r.Status)
		_ = json.NewEncoder(w).Encode(r.JSONBody)
		return
	}
	w.WriteHeader(r.Status)
	if r.Body != nil {
		_, _ = io.Copy(w, r.Body)
		if closer, ok := r.Body.(io.Closer); ok {
			_ = closer.Close()
		}
	}
}

// decodeBody parses raw according to the request's Content-Type, per
// spec §4.7 step 3: application/json decodes as JSON; form-urlencoded
// decodes as a flat map (same shape as parseQuery's); text/* is carried
// as a raw string; anything else falls back to an empty object for
// bodyless methods and raw text otherwise.
func decodeBody(r *http.Request, raw []byte) (any, error) {
	mediaType := r.Header.Get("Content-Type")
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = mediaType[:i]
	}
	mediaType = strings.TrimSpace(strings.ToLower(mediaType))

	switch {
	case mediaType == "application/json":
		if len(raw) == 0 {
			return map[string]any{}, nil
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	case mediaType == "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			return nil, err
		}
		out := map[string]any{}
		for k, v := range values {
			if len(v) == 1 {
				out[k] = v[0]
			} else {
				out[k] = v
			}
		}
		return out, nil
	case strings.HasPrefix(mediaType, "text/"):
		return string(raw), nil
	default:
		if isBodylessMethod(r.Method) {
			return map[string]any{}, nil
		}
		return string(raw), nil
	}
}

func isBodylessMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

func parseQuery(u *url.URL) (map[string]any, error) {
	values, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	for k, v := range values {
		if len(v) == 1 {
			out[k] = v[0]
		} else {
			out[k] = v
		}
	}
	return out, nil
}

func toFieldIssues(err error) []errs.FieldIssue {
	if ve, ok := err.(*schema.ValidationError); ok {
		out := make([]errs.FieldIssue, 0, len(ve.Issues))
		for _, iss := range ve.Issues {
			out = append(out, errs.FieldIssue{Field: iss.DottedField(), Message: iss.Message})
		}
		return out
	}
	return []errs.FieldIssue{{Field: "", Message: err.Error()}}
}
