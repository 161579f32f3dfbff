package compose

// Optional is a 0-or-1 instance value for conditionally instantiated
// resources. Consumers must handle absence explicitly; accessors return
// empty defaults rather than errors, so references on an inactive path are
// never dereferenced.
type Optional[T any] struct {
	value   T
	present bool
}

// Present wraps a value that exists.
func Present[T any](v T) Optional[T] {
	return Optional[T]{value: v, present: true}
}

// Absent returns the empty optional.
func Absent[T any]() Optional[T] {
	return Optional[T]{}
}

// When instantiates the guarded value only when the gate is open. The build
// function is not called for a closed gate.
func When[T any](gate bool, build func() T) Optional[T] {
	if !gate {
		return Absent[T]()
	}
	return Present(build())
}

// IsPresent reports whether the value exists.
func (o Optional[T]) IsPresent() bool {
	return o.present
}

// Get returns the value and whether it exists.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

// OrZero returns the value, or the zero value when absent.
func (o Optional[T]) OrZero() T {
	return o.value
}

// OrElse returns the value, or the fallback when absent.
func (o Optional[T]) OrElse(fallback T) T {
	if o.present {
		return o.value
	}
	return fallback
}

// GateString opens on a non-empty string.
func GateString(s string) bool {
	return s != ""
}

// GateSlice opens on a non-empty slice.
func GateSlice[T any](s []T) bool {
	return len(s) > 0
}

// StringsOf returns the slice value of an optional slice, or an empty slice
// when absent. List outputs of skipped guarded resources default to empty.
func StringsOf(o Optional[[]string]) []string {
	if v, ok := o.Get(); ok {
		return v
	}
	return []string{}
}

// StringOf returns the string value of an optional, or "" when absent.
func StringOf(o Optional[string]) string {
	return o.OrZero()
}
