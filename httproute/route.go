// Package httproute implements the HTTP Route Registry and Matcher
// (spec §4.6): it stores route definitions and resolves (method, path)
// to a definition plus extracted path parameters, ordered by path
// specificity.
package httproute

import (
	"reflect"

	"github.com/kilnhq/kiln/middleware"
)

// Method is an HTTP method the registry accepts.
type Method string

const (
	GET     Method = "GET"
	POST    Method = "POST"
	PUT     Method = "PUT"
	PATCH   Method = "PATCH"
	DELETE  Method = "DELETE"
	HEAD    Method = "HEAD"
	OPTIONS Method = "OPTIONS"
)

// Metadata is documentation-only route information.
type Metadata struct {
	OperationID string
	Summary     string
	Description string
	Tags        []string
	Deprecated  bool
}

// SecurityRequirement maps a security scheme name to its required scopes.
type SecurityRequirement map[string][]string

// ResponseSpec describes one declared response: its status, description,
// and SchemaType, the Go type reflected to build the OpenAPI schema of
// its application/json content.
type ResponseSpec struct {
	Status      int
	Description string
	SchemaType  reflect.Type
}

// Definition is the immutable (once registered) description of an HTTP
// route, per spec §3.
type Definition struct {
	Method          Method
	Path            string
	Metadata        Metadata
	QueryType       reflect.Type
	BodyType        reflect.Type
	Success         *ResponseSpec
	Errors          map[int]*ResponseSpec
	Middlewares     []middleware.Middleware
	Security        []SecurityRequirement
	ExcludeFromDocs bool
	Handler         middleware.Handler

	registrationOrder int
}

// Route is the fluent builder over a Definition. All setters are
// idempotent updates to the underlying definition; the definition is
// frozen (registered) when Handler is called.
type Route struct {
	def      *Definition
	registry *Registry
}

func newRoute(registry *Registry, method Method, path string) *Route {
	return &Route{
		def: &Definition{
			Method: method,
			Path:   path,
			Errors: map[int]*ResponseSpec{},
		},
		registry: registry,
	}
}

// Query attaches a query-parameter schema, derived by reflecting over
// the type of example.
func (r *Route) Query(example any) *Route {
	r.def.QueryType = typeOf(example)
	return r
}

// Body attaches a request-body schema.
func (r *Route) Body(example any) *Route {
	r.def.BodyType = typeOf(example)
	return r
}

// Use appends route-level middleware, in declaration order.
func (r *Route) Use(mw ...middleware.Middleware) *Route {
	r.def.Middlewares = append(r.def.Middlewares, mw...)
	return r
}

// Security attaches a security requirement alternative.
func (r *Route) Security(req SecurityRequirement) *Route {
	r.def.Security = append(r.def.Security, req)
	return r
}

// Response registers the success response descriptor.
func (r *Route) Response(status int, description string, example any) *Route {
	r.def.Success = &ResponseSpec{Status: status, Description: description, SchemaType: typeOf(example)}
	return r
}

// ErrorResponse declares an explicit error response for status.
func (r *Route) ErrorResponse(status int, description string, example any) *Route {
	r.def.Errors[status] = &ResponseSpec{Status: status, Description: description, SchemaType: typeOf(example)}
	return r
}

// Summary sets the OpenAPI operation summary.
func (r *Route) Summary(s string) *Route { r.def.Metadata.Summary = s; return r }

// Describe sets the OpenAPI operation description.
func (r *Route) Describe(s string) *Route { r.def.Metadata.Description = s; return r }

// Tags sets the OpenAPI operation tags.
func (r *Route) Tags(tags ...string) *Route { r.def.Metadata.Tags = tags; return r }

// OperationID sets an explicit OpenAPI operationId.
func (r *Route) OperationID(id string) *Route { r.def.Metadata.OperationID = id; return r }

// Deprecated marks the route deprecated in the OpenAPI document.
func (r *Route) Deprecated() *Route { r.def.Metadata.Deprecated = true; return r }

// ExcludeFromDocs omits the route from OpenAPI generation while keeping
// it callable.
func (r *Route) ExcludeFromDocs() *Route { r.def.ExcludeFromDocs = true; return r }

// Handler is the terminal builder step: it freezes the definition and
// registers it with the owning registry.
func (r *Route) Handler(h middleware.Handler) *Definition {
	r.def.Handler = h
	r.registry.Register(r.def)
	return r.def
}

func typeOf(example any) reflect.Type {
	if example == nil {
		return nil
	}
	return reflect.TypeOf(example)
}
