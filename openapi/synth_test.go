package openapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilnhq/kiln/httproute"
	"github.com/kilnhq/kiln/middleware"
	"github.com/kilnhq/kiln/response"
	"github.com/kilnhq/kiln/schema"
)

type userResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func noop(a *middleware.Args) *response.Response { return a.Builder.OK(nil) }

func TestSynthesizeConvertsPathParams(t *testing.T) {
	reg := httproute.NewRegistry()
	reg.Get("/users/:id").Response(200, "a user", userResponse{}).Handler(noop)

	doc := Synthesize(reg, schema.Default(), Config{Title: "t", Version: "v"})

	_, ok := doc.Paths["/users/{id}"]
	require.True(t, ok)
}

func TestSynthesizeExcludesFromDocs(t *testing.T) {
	reg := httproute.NewRegistry()
	reg.Get("/internal").ExcludeFromDocs().Handler(noop)

	doc := Synthesize(reg, schema.Default(), Config{})
	assert.Empty(t, doc.Paths)
}

func TestSynthesizeBareRouteOnlyGets500(t *testing.T) {
	reg := httproute.NewRegistry()
	reg.Get("/widgets").Response(200, "ok", userResponse{}).Handler(noop)

	doc := Synthesize(reg, schema.Default(), Config{})
	op := doc.Paths["/widgets"].Get
	require.NotNil(t, op)

	_, has500 := op.Responses["500"]
	assert.True(t, has500, "expected auto-added 500 response")
	_, has400 := op.Responses["400"]
	assert.False(t, has400, "400 should not be added without a query or body schema")
	_, has401 := op.Responses["401"]
	assert.False(t, has401, "401 should not be added without a security requirement")
}

func TestSynthesizeAdds400WhenBodyOrQuerySchemaPresent(t *testing.T) {
	type createBody struct {
		Name string `json:"name"`
	}
	reg := httproute.NewRegistry()
	reg.Post("/widgets").Body(createBody{}).Response(201, "created", userResponse{}).Handler(noop)

	doc := Synthesize(reg, schema.Default(), Config{})
	op := doc.Paths["/widgets"].Post
	require.NotNil(t, op)

	_, ok := op.Responses["400"]
	assert.True(t, ok, "expected auto-added 400 response when a body schema is present")
	_, has401 := op.Responses["401"]
	assert.False(t, has401)
}

func TestSynthesizeAdds401WhenSecurityPresent(t *testing.T) {
	reg := httproute.NewRegistry()
	reg.Get("/widgets").
		Response(200, "ok", userResponse{}).
		Security(httproute.SecurityRequirement{"bearer": {}}).
		Handler(noop)

	doc := Synthesize(reg, schema.Default(), Config{})
	op := doc.Paths["/widgets"].Get
	require.NotNil(t, op)

	_, ok := op.Responses["401"]
	assert.True(t, ok, "expected auto-added 401 response when security is present")
	_, has400 := op.Responses["400"]
	assert.False(t, has400)
}

func TestSynthesizeDeclaredErrorResponseWins(t *testing.T) {
	reg := httproute.NewRegistry()
	reg.Get("/widgets").
		Response(200, "ok", userResponse{}).
		ErrorResponse(400, "custom bad request", userResponse{}).
		Handler(noop)

	doc := Synthesize(reg, schema.Default(), Config{})
	op := doc.Paths["/widgets"].Get
	require.NotNil(t, op)
	assert.Equal(t, "custom bad request", op.Responses["400"].Description)
}

func TestSynthesizePathParamsAndQueryParams(t *testing.T) {
	type listQuery struct {
		Limit string `json:"limit" required:"false"`
	}
	reg := httproute.NewRegistry()
	reg.Get("/orgs/:org/users").Query(listQuery{}).Response(200, "ok", userResponse{}).Handler(noop)

	doc := Synthesize(reg, schema.Default(), Config{})
	op := doc.Paths["/orgs/{org}/users"].Get
	require.NotNil(t, op)

	var sawPathParam, sawQueryParam bool
	for _, p := range op.Parameters {
		if p.Name == "org" && p.In == "path" {
			sawPathParam = true
			assert.True(t, p.Required)
		}
		if p.Name == "limit" && p.In == "query" {
			sawQueryParam = true
		}
	}
	assert.True(t, sawPathParam)
	assert.True(t, sawQueryParam)
}
