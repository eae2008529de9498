// Package response implements the framework's chainable response
// builder: modifiers (status override, custom headers, cookies)
// accumulate on the builder and are applied, in a fixed order, to
// whatever terminal response the handler produces.
package response

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/kilnhq/kiln/errs"
)

// Response is the framework-internal representation of an outgoing HTTP
// response: a status, headers, and a body writer. The pipeline and CORS
// engine operate on this type; it is written to the real
// http.ResponseWriter exactly once, at the end of the request.
type Response struct {
	Status  int
	Headers http.Header
	// Body, when non-nil, is copied verbatim to the client.
	Body io.Reader
	// JSONBody, when Body is nil and JSONBody is non-nil, is marshaled
	// as JSON and used as the body.
	JSONBody any
}

// Builder accumulates response modifiers for a single request. It is
// single-owner: exactly one Builder exists per in-flight request, and it
// is never shared across requests.
type Builder struct {
	cookies []Cookie
	status  int
	headers http.Header
}

// New creates an empty Builder.
func New() *Builder {
	return &Builder{headers: http.Header{}}
}

// Cookie accumulates a cookie to be appended as Set-Cookie. Returns the
// builder for chaining.
func (b *Builder) Cookie(c Cookie) *Builder {
	b.cookies = append(b.cookies, c)
	return b
}

// Status overrides the status code of whatever terminal response is
// produced next.
func (b *Builder) Status(code int) *Builder {
	b.status = code
	return b
}

// Header sets (overwriting) a custom response header.
func (b *Builder) Header(key, value string) *Builder {
	b.headers.Set(key, value)
	return b
}

// apply merges accumulated modifiers onto r in the fixed order the spec
// requires: custom headers (overwrite), status override, then cookies.
func (b *Builder) apply(r *Response) *Response {
	for k, vals := range b.headers {
		for i, v := range vals {
			if i == 0 {
				r.Headers.Set(k, v)
			} else {
				r.Headers.Add(k, v)
			}
		}
	}
	if b.status != 0 {
		r.Status = b.status
	}
	for _, c := range b.cookies {
		r.Headers.Add("Set-Cookie", c.Serialize())
	}
	return r
}

func newBase(status int) *Response {
	return &Response{Status: status, Headers: http.Header{}}
}

// --- JSON success helpers ---

// OK builds a 200 JSON success response.
func (b *Builder) OK(data any) *Response { return b.JSON(data, http.StatusOK) }

// Created builds a 201 JSON success response, optionally setting Location.
func (b *Builder) Created(data any, location string) *Response {
	r := newBase(http.StatusCreated)
	r.JSONBody = data
	r.Headers.Set("Content-Type", "application/json; charset=utf-8")
	if location != "" {
		r.Headers.Set("Location", location)
	}
	return b.apply(r)
}

// Accepted builds a 202 JSON success response.
func (b *Builder) Accepted(data any) *Response { return b.JSON(data, http.StatusAccepted) }

// NoContent builds a 204 response with a null body.
func (b *Builder) NoContent() *Response {
	r := newBase(http.StatusNoContent)
	return b.apply(r)
}

// --- Error JSON helpers ---

func (b *Builder) errorResponse(status int, message string, code errs.Code, details any) *Response {
	env := errs.New(status, message, code, details)
	r := newBase(status)
	r.JSONBody = env
	r.Headers.Set("Content-Type", "application/json; charset=utf-8")
	return b.apply(r)
}

func (b *Builder) BadRequest(message string, code errs.Code, details any) *Response {
	return b.errorResponse(http.StatusBadRequest, message, code, details)
}

func (b *Builder) Unauthorized(message string, code errs.Code, details any) *Response {
	return b.errorResponse(http.StatusUnauthorized, message, code, details)
}

func (b *Builder) Forbidden(message string, code errs.Code, details any) *Response {
	return b.errorResponse(http.StatusForbidden, message, code, details)
}

func (b *Builder) NotFound(message string, code errs.Code, details any) *Response {
	return b.errorResponse(http.StatusNotFound, message, code, details)
}

func (b *Builder) Conflict(message string, code errs.Code, details any) *Response {
	return b.errorResponse(http.StatusConflict, message, code, details)
}

func (b *Builder) InternalError(message string, code errs.Code, details any) *Response {
	return b.errorResponse(http.StatusInternalServerError, message, code, details)
}

// --- Content helpers ---

// Text builds a text/plain response.
func (b *Builder) Text(body string, status int) *Response {
	r := newBase(resolveStatus(status, http.StatusOK))
	r.Headers.Set("Content-Type", "text/plain; charset=utf-8")
	r.JSONBody = nil
	r.Body = stringReader(body)
	return b.apply(r)
}

// HTML builds a text/html response.
func (b *Builder) HTML(body string, status int) *Response {
	r := newBase(resolveStatus(status, http.StatusOK))
	r.Headers.Set("Content-Type", "text/html; charset=utf-8")
	r.Body = stringReader(body)
	return b.apply(r)
}

// JSON builds a generic JSON response at the given status.
func (b *Builder) JSON(data any, status int) *Response {
	r := newBase(resolveStatus(status, http.StatusOK))
	r.Headers.Set("Content-Type", "application/json; charset=utf-8")
	r.JSONBody = data
	return b.apply(r)
}

// File serves the contents of path. If the file cannot be opened because
// it does not exist, a standard FILE_NOT_FOUND envelope is returned at
// 404 instead.
func (b *Builder) File(path string) *Response {
	f, err := os.Open(path)
	if err != nil {
		return b.NotFound("File not found", errs.CodeFileNotFound, nil)
	}
	info, statErr := f.Stat()
	r := newBase(http.StatusOK)
	ct := contentTypeFromName(filepath.Base(path))
	r.Headers.Set("Content-Type", ct)
	if statErr == nil {
		r.Headers.Set("Content-Length", fmt.Sprintf("%d", info.Size()))
	}
	r.Body = f
	return b.apply(r)
}

// Stream serves an arbitrary reader, defaulting to
// application/octet-stream when contentType is empty.
func (b *Builder) Stream(body io.Reader, contentType string) *Response {
	r := newBase(http.StatusOK)
	r.Headers.Set("Content-Type", resolveContentType(contentType, "application/octet-stream"))
	r.Body = body
	return b.apply(r)
}

// Redirect builds a redirect response to url at the given status
// (defaulting to 302).
func (b *Builder) Redirect(url string, status int) *Response {
	r := newBase(resolveStatus(status, http.StatusFound))
	r.Headers.Set("Location", url)
	return b.apply(r)
}

// RedirectTo builds a redirect response whose Location is built by
// substituting `:name` and `:name*` occurrences in pattern with params.
func (b *Builder) RedirectTo(pattern string, params map[string]string, status int) *Response {
	return b.Redirect(Substitute(pattern, params), status)
}

// Substitute replaces `:name` and `:name*` segments in pattern with the
// corresponding value from params, leaving unmatched placeholders as-is.
func Substitute(pattern string, params map[string]string) string {
	segments := strings.Split(pattern, "/")
	for i, seg := range segments {
		if seg == "" || seg[0] != ':' {
			continue
		}
		name := strings.TrimSuffix(seg[1:], "*")
		if v, ok := params[name]; ok {
			segments[i] = v
		}
	}
	return strings.Join(segments, "/")
}

// Custom builds an opaque response with caller-provided status, body,
// and content type (left unset when contentType is empty).
func (b *Builder) Custom(status int, body io.Reader, contentType string) *Response {
	r := newBase(status)
	if contentType != "" {
		r.Headers.Set("Content-Type", contentType)
	}
	r.Body = body
	return b.apply(r)
}

func resolveStatus(provided, def int) int {
	if provided == 0 {
		return def
	}
	return provided
}

func resolveContentType(provided, def string) string {
	if provided == "" {
		return def
	}
	return provided
}

func contentTypeFromName(name string) string {
	ct := mime.TypeByExtension(filepath.Ext(name))
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}

func stringReader(s string) io.Reader { return strings.NewReader(s) }
