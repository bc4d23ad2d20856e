package platform

// Capability holds an optional host feature (analytics sink, ad module,
// purchase flow) that may be absent in some runtime modes. Call sites treat
// absence as a normal, silent no-op branch, never as an error.
type Capability[T any] struct {
	value   T
	present bool
}

// Available wraps a present capability.
func Available[T any](value T) Capability[T] {
	return Capability[T]{value: value, present: true}
}

// Missing is the zero capability; Get reports false.
func Missing[T any]() Capability[T] {
	return Capability[T]{}
}

// Get returns the capability value and whether the host provides it.
func (c Capability[T]) Get() (T, bool) {
	return c.value, c.present
}

// AnalyticsSink receives fire-and-forget usage events when the host links an
// analytics module. Implementations must never block the caller.
type AnalyticsSink interface {
	Event(name string, params map[string]string)
}
