// Package schema is the façade the rest of the framework uses to validate
// request data and to describe schemas for OpenAPI generation and
// client-type generation. It isolates the reflection-heavy default
// implementation so the core stays validator-agnostic: an application can
// supply any type satisfying Validator (backed by a real third-party JSON
// Schema library) without the route registry, pipeline, or OpenAPI
// synthesizer ever importing that library directly.
package schema

import (
	"fmt"
	"reflect"

	"github.com/kilnhq/kiln/result"
)

// Issue is one validation failure, with Path as the sequence of object
// keys/indices leading to the offending value.
type Issue struct {
	Path    []string
	Message string
}

// DottedField joins Path with '.', the shape the error envelope expects
// for `details[].field`.
func (i Issue) DottedField() string {
	out := ""
	for idx, p := range i.Path {
		if idx > 0 {
			out += "."
		}
		out += p
	}
	return out
}

// Validator is the validation capability the Schema Adapter needs from a
// concrete schema implementation: validate a raw value against a schema.
// Describing a schema is the separate Describer interface.
type Validator interface {
	// Validate coerces and validates data against schema, returning the
	// typed value on success or a list of issues on failure. Validate
	// must never panic.
	Validate(schemaType reflect.Type, data any) result.Result[any]
}

// Describer renders a schema (identified by its Go type) into an OpenAPI
// schema fragment and a best-effort target-language type string.
type Describer interface {
	DescribeOpenAPI(t reflect.Type) (*OpenAPISchema, error)
	DescribeTypeString(t reflect.Type, indent int) string
}

// Adapter is the concrete façade combining a Validator and a Describer.
// The zero value is not usable; construct with NewAdapter or Default.
type Adapter struct {
	Validator
	Describer
}

// NewAdapter builds an Adapter from explicit collaborators, letting an
// application swap in a third-party validator/describer pair while
// keeping the rest of the framework unaware of the swap.
func NewAdapter(v Validator, d Describer) *Adapter {
	return &Adapter{Validator: v, Describer: d}
}

// Default returns the framework's built-in reflect+struct-tag based
// adapter, used when an application registers routes without specifying
// one explicitly.
func Default() *Adapter {
	r := &Reflector{}
	return NewAdapter(r, r)
}

// Validate is a convenience wrapper that validates a value of type T,
// returning a strongly typed Result.
func Validate[T any](a *Adapter, data any) result.Result[T] {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		t = reflect.TypeFor[T]()
	}
	res := a.Validate(t, data)
	if res.IsErr() {
		return result.Err[T](res.Error())
	}
	v, ok := res.Value().(T)
	if !ok {
		return result.Err[T](fmt.Errorf("schema: validated value is not of expected type %T", zero))
	}
	return result.Ok(v)
}
