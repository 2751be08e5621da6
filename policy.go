package gate

import "context"

// Operation is a single authorization check. It inspects the actor, action
// and subject and finalizes d with Pass or Fail. Leaving d incomplete denies.
//
// A returned error is handed back to the caller of Gate.Allows unchanged;
// operations that want a graceful denial on collaborator failure should call
// d.Fail instead.
type Operation func(ctx context.Context, d *Decision, actor any, action string, subject any) error

// Policy is a named bundle of operations with a policy-wide pre-check.
type Policy interface {
	// Name is the policy identity. An empty name makes the Gate fall back to
	// the concrete type's name.
	Name() string

	// Before runs ahead of every operation. If it completes the decision
	// the operation is skipped.
	Before(ctx context.Context, d *Decision, actor any, action string, subject any) error

	// Operation resolves an action name to its check.
	Operation(action string) (Operation, bool)
}

// Base is the embeddable default Policy implementation. It holds the
// reference value and the action table, and has a no-op Before.
//
//	type postPolicy struct{ gate.Base }
//
//	func newPostPolicy(ref any) *postPolicy {
//	    p := &postPolicy{Base: gate.NewBase("Post", ref)}
//	    p.Handle("edit", p.edit)
//	    return p
//	}
type Base struct {
	name  string
	ref   any
	ops   map[string]Operation
	order []string
}

// NewBase returns a Base with the given identity and reference value.
func NewBase(name string, ref any) Base {
	return Base{name: name, ref: ref}
}

// Name returns the identity given to NewBase.
func (b *Base) Name() string { return b.name }

// Ref returns the reference value supplied at construction.
func (b *Base) Ref() any { return b.ref }

// Before does nothing.
func (b *Base) Before(context.Context, *Decision, any, string, any) error { return nil }

// Handle registers op under action, replacing any previous entry.
func (b *Base) Handle(action string, op Operation) {
	if b.ops == nil {
		b.ops = make(map[string]Operation)
	}
	if _, ok := b.ops[action]; !ok {
		b.order = append(b.order, action)
	}
	b.ops[action] = op
}

// Operation looks up the check registered for action.
func (b *Base) Operation(action string) (Operation, bool) {
	op, ok := b.ops[action]
	return op, ok && op != nil
}

// Actions returns the registered action names in registration order.
func (b *Base) Actions() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}
