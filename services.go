package gate

import "context"

// Services is the bundle of named collaborators available to policy
// operations, e.g. a repository used to look up ownership.
type Services map[string]any

// Lookup returns the service registered under name.
func (s Services) Lookup(name string) (any, bool) {
	v, ok := s[name]
	return v, ok
}

// Service returns the named service from ctx as a T. The second result is
// false when the service is missing or has another type.
func Service[T any](ctx context.Context, name string) (T, bool) {
	var zero T
	v, ok := ServicesFrom(ctx).Lookup(name)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
