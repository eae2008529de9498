package middleware

import (
	"github.com/google/uuid"
	"github.com/kilnhq/kiln/response"
)

// TracingConfig configures the Tracing middleware.
type TracingConfig struct {
	// Skip, when non-nil and returning true, bypasses this request.
	Skip func(*Args) bool
	// HeaderName is the response header the request ID is set on.
	HeaderName string
	// IDGenerator produces the request ID. Defaults to uuid.NewString.
	IDGenerator func() string
}

// DefaultTracingConfig stamps every request with an X-Request-ID header
// generated via google/uuid, mirroring the teacher's tracing middleware.
var DefaultTracingConfig = TracingConfig{
	HeaderName:  "X-Request-ID",
	IDGenerator: uuid.NewString,
}

// Tracing returns a request-ID middleware using DefaultTracingConfig.
func Tracing() Middleware { return TracingWithConfig(DefaultTracingConfig) }

// TracingWithConfig returns a request-ID middleware using tc.
func TracingWithConfig(tc TracingConfig) Middleware {
	return func(args *Args, next Next) *response.Response {
		if tc.Skip != nil && tc.Skip(args) {
			return next()
		}
		if tc.IDGenerator == nil {
			tc.IDGenerator = uuid.NewString
		}
		id := tc.IDGenerator()
		args.Context[tc.HeaderName] = id
		resp := next()
		resp.Headers.Set(tc.HeaderName, id)
		return resp
	}
}
