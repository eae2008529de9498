// Package result provides a small value-based success/error discriminated
// union. It is used at the schema validation boundary (schema.Validator);
// auth functions return (any, error) instead. Most of the codebase returns
// idiomatic (T, error) pairs; Result is reserved for call sites that read
// better as an explicit sum type than as a naked error return.
package result

// Result is either Ok(value) or Err(err). The zero value is an Err with a
// nil error, which is never produced by the constructors below.
type Result[T any] struct {
	value T
	err   error
	ok    bool
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Err wraps a failure.
func Err[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// IsOk reports whether the result holds a value.
func (r Result[T]) IsOk() bool { return r.ok }

// IsErr reports whether the result holds an error.
func (r Result[T]) IsErr() bool { return !r.ok }

// Unwrap returns the held value and error. Exactly one is meaningful,
// matching which of IsOk/IsErr is true.
func (r Result[T]) Unwrap() (T, error) {
	return r.value, r.err
}

// Value returns the held value, ignoring any error. Callers should check
// IsOk first; a zero value is returned for an Err result.
func (r Result[T]) Value() T { return r.value }

// Error returns the held error, or nil if the result is Ok.
func (r Result[T]) Error() error { return r.err }
