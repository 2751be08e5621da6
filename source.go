package gate

import (
	"context"
	"fmt"
	"reflect"
	"sort"
)

// Source is a registration shape that the Gate normalizes into a Policy.
// The set of shapes is closed: Func, Object, Type and Instance.
type Source interface {
	build(name string) (Policy, error)
}

// ──────────────────────────────────────────────────
// Func
// ──────────────────────────────────────────────────

// Func registers a single operation as a policy whose only action carries
// the registration name, so Define("view", Func(fn)) answers "view".
func Func(op Operation) Source { return funcSource{op: op} }

type funcSource struct{ op Operation }

func (s funcSource) build(name string) (Policy, error) {
	if s.op == nil {
		return nil, fmt.Errorf("%w: nil operation for %q", ErrInvalidPolicy, name)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: a function policy needs a name", ErrInvalidPolicy)
	}
	p := &funcPolicy{Base: NewBase(name, nil)}
	p.Handle(name, s.op)
	return p, nil
}

type funcPolicy struct{ Base }

// ──────────────────────────────────────────────────
// Object
// ──────────────────────────────────────────────────

// Object is a plain table of checks. Every key except "name" becomes an
// operation; the "before" key is the pre-check and a string under "name"
// overrides the policy identity.
//
//	gate.Object{
//	    "name":   "Post",
//	    "before": allowAdmins,
//	    "edit":   ownerOnly,
//	}
type Object map[string]any

// Object keys with special meaning.
const (
	ObjectKeyName   = "name"
	ObjectKeyBefore = "before"
)

func (o Object) build(name string) (Policy, error) {
	p := &objectPolicy{Base: NewBase(name, nil)}
	if v, ok := o[ObjectKeyName]; ok {
		s, isString := v.(string)
		if !isString {
			return nil, fmt.Errorf("%w: %q field must be a string, got %T", ErrInvalidPolicy, ObjectKeyName, v)
		}
		if s != "" {
			p.name = s
		}
	}

	keys := make([]string, 0, len(o))
	for k := range o {
		if k != ObjectKeyName {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		op, ok := asOperation(o[k])
		if !ok {
			return nil, fmt.Errorf("%w: field %q is %T, not an operation", ErrInvalidPolicy, k, o[k])
		}
		if k == ObjectKeyBefore {
			p.before = op
			continue
		}
		p.Handle(k, op)
	}
	if p.name == "" {
		return nil, fmt.Errorf("%w: object policy needs a name", ErrInvalidPolicy)
	}
	return p, nil
}

type objectPolicy struct {
	Base
	before Operation
}

func (p *objectPolicy) Before(ctx context.Context, d *Decision, actor any, action string, subject any) error {
	if p.before == nil {
		return nil
	}
	return p.before(ctx, d, actor, action, subject)
}

// ──────────────────────────────────────────────────
// Type
// ──────────────────────────────────────────────────

// Type registers the value ctor builds from ref. The result must implement
// Policy; that is checked when the source is defined.
func Type[P any](ctor func(ref any) P, ref any) Source {
	if ctor == nil {
		return typeSource{ref: ref}
	}
	return typeSource{ref: ref, ctor: func(r any) any { return ctor(r) }}
}

type typeSource struct {
	ctor func(ref any) any
	ref  any
}

func (s typeSource) build(name string) (Policy, error) {
	if s.ctor == nil {
		return nil, fmt.Errorf("%w: nil constructor for %q", ErrInvalidPolicy, name)
	}
	v := s.ctor(s.ref)
	p, ok := v.(Policy)
	if !ok || isNil(v) {
		return nil, fmt.Errorf("%w: constructor for %q returned %T", ErrInvalidPolicy, name, v)
	}
	return p, nil
}

// ──────────────────────────────────────────────────
// Instance
// ──────────────────────────────────────────────────

// Instance registers an already built policy as-is.
func Instance(p Policy) Source { return instanceSource{p: p} }

type instanceSource struct{ p Policy }

func (s instanceSource) build(name string) (Policy, error) {
	if isNil(s.p) {
		return nil, fmt.Errorf("%w: nil instance for %q", ErrInvalidPolicy, name)
	}
	return s.p, nil
}

// ──────────────────────────────────────────────────
// Normalization
// ──────────────────────────────────────────────────

// sourceOf maps the accepted Define arguments onto a Source.
func sourceOf(src any) (Source, error) {
	switch v := src.(type) {
	case Source:
		return v, nil
	case Policy:
		return Instance(v), nil
	case map[string]any:
		return Object(v), nil
	}
	if op, ok := asOperation(src); ok {
		return Func(op), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedSource, src)
}

func asOperation(v any) (Operation, bool) {
	switch fn := v.(type) {
	case Operation:
		return fn, fn != nil
	case func(context.Context, *Decision, any, string, any) error:
		return fn, fn != nil
	}
	return nil, false
}

// policyName returns p.Name(), falling back to the concrete type name.
func policyName(p Policy) string {
	if n := p.Name(); n != "" {
		return n
	}
	t := reflect.TypeOf(p)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
