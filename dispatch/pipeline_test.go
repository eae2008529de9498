package dispatch

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilnhq/kiln/errs"
	"github.com/kilnhq/kiln/httproute"
	"github.com/kilnhq/kiln/middleware"
	"github.com/kilnhq/kiln/response"
)

type greetBody struct {
	Name string `json:"name" validate:"nonzero"`
}

func TestPipelineRouteMiss(t *testing.T) {
	p := NewPipeline(httproute.NewRegistry())
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/nope", nil)
	p.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), string(errs.CodeNotFound))
}

func TestPipelineValidationFailureReturnsFieldDetails(t *testing.T) {
	reg := httproute.NewRegistry()
	reg.Post("/greet").Body(greetBody{}).Handler(func(a *middleware.Args) *response.Response {
		return a.Builder.OK(map[string]string{"ok": "true"})
	})
	p := NewPipeline(reg)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/greet", strings.NewReader(`{"name":""}`))
	r.Header.Set("Content-Type", "application/json")
	p.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "name")
}

func TestPipelineHandlerReceivesValidatedBody(t *testing.T) {
	reg := httproute.NewRegistry()
	var seen any
	reg.Post("/greet").Body(greetBody{}).Handler(func(a *middleware.Args) *response.Response {
		seen = a.Body
		return a.Builder.OK(nil)
	})
	p := NewPipeline(reg)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/greet", strings.NewReader(`{"name":"Ada"}`))
	r.Header.Set("Content-Type", "application/json")
	p.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	body, ok := seen.(greetBody)
	require.True(t, ok)
	assert.Equal(t, "Ada", body.Name)
}

func TestPipelineDecodesFormURLEncodedBody(t *testing.T) {
	reg := httproute.NewRegistry()
	var seen any
	reg.Post("/greet").Body(greetBody{}).Handler(func(a *middleware.Args) *response.Response {
		seen = a.Body
		return a.Builder.OK(nil)
	})
	p := NewPipeline(reg)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/greet", strings.NewReader("name=Ada"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	p.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	body, ok := seen.(greetBody)
	require.True(t, ok)
	assert.Equal(t, "Ada", body.Name)
}

func TestPipelineDecodesTextPlainBodyAsRawString(t *testing.T) {
	reg := httproute.NewRegistry()
	var seen any
	reg.Post("/note").Body("").Handler(func(a *middleware.Args) *response.Response {
		seen = a.Body
		return a.Builder.OK(nil)
	})
	p := NewPipeline(reg)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/note", strings.NewReader("hello world"))
	r.Header.Set("Content-Type", "text/plain")
	p.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello world", seen)
}

func TestPipelineBodylessMethodWithUnknownContentTypeGetsEmptyObject(t *testing.T) {
	type emptyBody struct{}
	reg := httproute.NewRegistry()
	var seen any
	reg.Get("/ping").Body(emptyBody{}).Handler(func(a *middleware.Args) *response.Response {
		seen = a.Body
		return a.Builder.OK(nil)
	})
	p := NewPipeline(reg)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/ping", nil)
	p.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	_, ok := seen.(emptyBody)
	assert.True(t, ok)
}

func TestPipelineMiddlewareShortCircuit(t *testing.T) {
	reg := httproute.NewRegistry()
	handlerCalled := false
	blocker := middleware.Middleware(func(a *middleware.Args, next middleware.Next) *response.Response {
		return a.Builder.BadRequest("blocked", "BLOCKED", nil)
	})
	reg.Get("/blocked").Use(blocker).Handler(func(a *middleware.Args) *response.Response {
		handlerCalled = true
		return a.Builder.OK(nil)
	})
	p := NewPipeline(reg)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/blocked", nil)
	p.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, handlerCalled)
}

func TestPipelinePanicRecoversAs500(t *testing.T) {
	reg := httproute.NewRegistry()
	reg.Get("/boom").Handler(func(a *middleware.Args) *response.Response {
		panic("kaboom")
	})
	p := NewPipeline(reg)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/boom", nil)
	p.ServeHTTP(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), string(errs.CodeInternalError))
}

func TestPipelinePreflightIsHandledBeforeRouting(t *testing.T) {
	reg := httproute.NewRegistry()
	p := NewPipeline(reg)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodOptions, "/anything", nil)
	r.Header.Set("Origin", "https://app.example.com")
	p.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
}
