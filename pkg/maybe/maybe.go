// Package maybe carries values that are independently fetched from remote
// sources and therefore may not exist yet. A Value is Known, Unknown (not yet
// fetched, or undefined for the current inputs) or Errored (the fetch failed
// and the reason is worth keeping). Unknown is never interchangeable with a
// zero value: a metric that cannot be computed stays absent.
package maybe

type Value[T any] struct {
	v     T
	known bool
	err   error
}

func Known[T any](v T) Value[T] {
	return Value[T]{v: v, known: true}
}

func Unknown[T any]() Value[T] {
	return Value[T]{}
}

func Errored[T any](err error) Value[T] {
	return Value[T]{err: err}
}

// Get returns the value and whether it is known.
func (v Value[T]) Get() (T, bool) {
	return v.v, v.known
}

func (v Value[T]) IsKnown() bool {
	return v.known
}

// Err returns the fetch error, nil for Known and plain Unknown values.
func (v Value[T]) Err() error {
	return v.err
}

// MustGet returns the value, panicking if it is not known. Test helper only.
func (v Value[T]) MustGet() T {
	if !v.known {
		panic("maybe: MustGet on unknown value")
	}
	return v.v
}
