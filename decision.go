package gate

import (
	"fmt"
	"sync"
	"time"

	"github.com/xraph/gate/id"
)

// Message keys carried by decisions. Resolving them to text is the job of
// the consumer's localization layer.
const (
	// MessageNotAuthorized is the key every decision starts with.
	MessageNotAuthorized = "auth.gate_notAuthed"

	// MessageAuthorized is used by Pass when no key is given.
	MessageAuthorized = "auth.gate_authed"

	// MessagePolicyNotDefined is set when the ability names an unknown policy.
	MessagePolicyNotDefined = "auth.gate_policyNotDefined"

	// MessageMethodNotDefined is set when the policy has no such operation.
	MessageMethodNotDefined = "auth.gate_methodNotDefined"

	// MessageInvalidAbility is set when the ability string cannot be parsed.
	MessageInvalidAbility = "auth.gate_invalidAbility"
)

// Translator renders a message key and its parameters into text.
type Translator interface {
	Translate(key string, params ...any) string
}

// Decision is the result of a single Gate.Allows evaluation.
//
// A decision starts incomplete and failed. The first call to Pass or Fail
// completes it; every later call is ignored.
type Decision struct {
	id      id.DecisionID
	actor   any
	action  string
	policy  string
	ability string
	subject any

	mu       sync.RWMutex
	complete bool
	passed   bool
	message  string
	params   []any
	evalTime time.Duration
}

// NewDecision returns an incomplete decision for the given call. The Gate
// creates one per evaluation; policies under test can use it directly.
func NewDecision(actor any, action string, subject any) *Decision {
	return &Decision{
		id:      id.NewDecisionID(),
		actor:   actor,
		action:  action,
		subject: subject,
		message: MessageNotAuthorized,
	}
}

// ID returns the unique identifier of this evaluation.
func (d *Decision) ID() id.DecisionID { return d.id }

// Actor returns the actor being evaluated.
func (d *Decision) Actor() any { return d.actor }

// Action returns the resolved action name.
func (d *Decision) Action() string { return d.action }

// Policy returns the resolved policy name.
func (d *Decision) Policy() string { return d.policy }

// Ability returns the ability string as the caller supplied it.
func (d *Decision) Ability() string { return d.ability }

// Subject returns the object acted upon, or nil.
func (d *Decision) Subject() any { return d.subject }

// Complete reports whether the decision has been finalized.
func (d *Decision) Complete() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.complete
}

// Passed reports whether the actor is authorized.
func (d *Decision) Passed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.passed
}

// Failed is the negation of Passed.
func (d *Decision) Failed() bool { return !d.Passed() }

// Message returns the message key.
func (d *Decision) Message() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.message
}

// Params returns a copy of the message parameters.
func (d *Decision) Params() []any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.params) == 0 {
		return nil
	}
	out := make([]any, len(d.params))
	copy(out, d.params)
	return out
}

// EvalTime returns how long the Gate spent evaluating this decision.
func (d *Decision) EvalTime() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.evalTime
}

// Pass completes the decision as authorized. An empty key is replaced
// by MessageAuthorized.
func (d *Decision) Pass(key string, params ...any) *Decision {
	if key == "" {
		key = MessageAuthorized
	}
	return d.done(true, key, params)
}

// Fail completes the decision as not authorized. An empty key keeps
// MessageNotAuthorized and discards params.
func (d *Decision) Fail(key string, params ...any) *Decision {
	return d.done(false, key, params)
}

func (d *Decision) done(passed bool, key string, params []any) *Decision {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.complete {
		return d
	}
	d.complete = true
	d.passed = passed
	if key != "" {
		d.message = key
		d.params = append([]any(nil), params...)
	}
	return d
}

// Localize renders the message through t. A nil translator yields the key.
func (d *Decision) Localize(t Translator) string {
	if t == nil {
		return d.Message()
	}
	return t.Translate(d.Message(), d.Params()...)
}

// String implements fmt.Stringer for logs.
func (d *Decision) String() string {
	outcome := "deny"
	if d.Passed() {
		outcome = "allow"
	}
	return fmt.Sprintf("%s.%s: %s (%s)", d.policy, d.action, outcome, d.Message())
}

func (d *Decision) setEvalTime(t time.Duration) {
	d.mu.Lock()
	d.evalTime = t
	d.mu.Unlock()
}
