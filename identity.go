package gate

import (
	"fmt"
	"reflect"
)

// Identifier is implemented by actors and subjects that can name
// themselves in logs and audit records.
type Identifier interface {
	Identity() string
}

// Identify renders an actor or subject for logs. It prefers Identifier,
// then plain strings and fmt.Stringer, and falls back to the type name.
func Identify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case Identifier:
		return x.Identity()
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	}
	return TypeName(v)
}

// TypeName returns the name of v's concrete type without pointer stars.
func TypeName(v any) string {
	if v == nil {
		return ""
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}
