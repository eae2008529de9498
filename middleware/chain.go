// Package middleware implements the Middleware Executor: an ordered
// chain of functions around a terminal handler, any of which may
// short-circuit by returning a response instead of calling next().
package middleware

import (
	"net/http"

	"github.com/kilnhq/kiln/response"
)

// Args is what every middleware and the terminal handler receive. Query
// and Body are the *unvalidated* parsed request data — schema validation
// happens before the chain runs, but middlewares still see the raw
// parsed values, not the validated typed value. When the route declares
// a body schema, the pipeline replaces Body with the validated value just
// before the handler runs. Query is the parsed map for the handler too;
// the validated query value is not passed on.
type Args struct {
	Request *http.Request
	Params  map[string]string
	Query   map[string]any
	Body    any
	// Context is a mutable per-request bag middlewares can use to pass
	// data down the chain (e.g. a request ID, an authenticated user).
	Context map[string]any
	Builder *response.Builder
}

// Next advances one step in the chain.
type Next func() *response.Response

// Middleware wraps a Next continuation. Returning without calling next
// short-circuits the chain with the returned response; calling next and
// inspecting/wrapping its result allows post-processing the downstream
// response.
type Middleware func(args *Args, next Next) *response.Response

// Handler is the terminal step of a chain.
type Handler func(args *Args) *response.Response

// Run composes global and route middlewares (in that order, each in its
// own declaration order) around handler and executes the chain.
func Run(global, route []Middleware, handler Handler, args *Args) *response.Response {
	chain := append(append([]Middleware{}, global...), route...)
	return run(chain, 0, handler, args)
}

func run(chain []Middleware, i int, handler Handler, args *Args) *response.Response {
	if i >= len(chain) {
		return handler(args)
	}
	return chain[i](args, func() *response.Response {
		return run(chain, i+1, handler, args)
	})
}
