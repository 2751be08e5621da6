// Package gate provides a policy registry and authorization decision engine.
//
// A Gate maps policy names to policies. Each policy holds named operations
// and an optional Before pre-check. Callers ask the Gate whether an actor
// may exercise an ability ("policy" or "policy.action") on an optional
// subject and get back a write-once Decision carrying the outcome and a
// message key for localized display.
//
//	g, err := gate.NewGate()
//	g.Add("post", gate.Object{
//	    "before": allowAdmins,
//	    "edit":   ownerOnly,
//	})
//	d, err := g.Allows(ctx, user, "post.edit", post)
//	if d.Failed() {
//	    // render d.Message() / d.Params()
//	}
//
// Policies can be registered as a bare Operation, an Object table, a
// constructor paired with a reference value (Type) or a built Policy
// (Instance). Unknown policies and actions never error: they produce a
// failed decision.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/gate/plugin"
)

// Gate is the policy registry. Evaluation is safe for concurrent use and
// may run alongside registration.
type Gate struct {
	mu       sync.RWMutex
	policies map[string]Policy
	order    []string

	services Services
	plugins  *plugin.Registry
	logger   *slog.Logger
	config   Config
	pending  []pendingPolicy
}

type pendingPolicy struct {
	name string
	src  any
}

// NewGate creates a gate with the given options. Policies passed through
// WithPolicy are defined after all options are applied.
func NewGate(opts ...Option) (*Gate, error) {
	g := &Gate{
		policies: make(map[string]Policy),
		services: make(Services),
		logger:   slog.Default(),
		config:   DefaultConfig(),
	}
	for _, opt := range opts {
		opt(g)
	}
	pending := g.pending
	g.pending = nil
	for _, p := range pending {
		if err := g.Define(p.name, p.src); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Plugins returns the plugin registry (may be nil).
func (g *Gate) Plugins() *plugin.Registry { return g.plugins }

// Start performs any startup initialization.
func (g *Gate) Start(_ context.Context) error { return nil }

// Stop notifies plugins of shutdown.
func (g *Gate) Stop(ctx context.Context) error {
	if g.plugins != nil {
		g.plugins.EmitShutdown(ctx)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Evaluation
// ──────────────────────────────────────────────────

// Allows evaluates whether actor may exercise ability on subject.
//
// The returned decision is never nil. Unknown policies, unknown actions and
// malformed abilities fail the decision without an error. The error is set
// only when Before or the operation returned one, which is passed through
// unchanged, or when ctx ended before a stage could start; in both cases the
// decision may be incomplete and must be treated as not authorized.
func (g *Gate) Allows(ctx context.Context, actor any, ability string, subject any) (*Decision, error) {
	start := time.Now()

	policyName, action, perr := ParseAbility(ability)
	if perr != nil {
		action = ability
	}
	d := NewDecision(actor, action, subject)
	d.ability = ability
	d.policy = policyName

	ctx = withServices(ctx, g.services)

	if g.plugins != nil {
		g.plugins.EmitBeforeCheck(ctx, d)
	}

	err := g.evaluate(ctx, d, perr)
	d.setEvalTime(time.Since(start))
	g.logDecision(ctx, d, err)

	if g.plugins != nil {
		g.plugins.EmitAfterCheck(ctx, d, err)
	}
	return d, err
}

func (g *Gate) evaluate(ctx context.Context, d *Decision, perr error) error {
	// 1. Resolution: cheap, side-effect free negatives.
	if perr != nil {
		d.Fail(MessageInvalidAbility, d.ability)
		return nil
	}
	g.mu.RLock()
	p, ok := g.policies[d.policy]
	g.mu.RUnlock()
	if !ok {
		d.Fail(MessagePolicyNotDefined, d.policy)
		return nil
	}
	op, ok := p.Operation(d.action)
	if !ok {
		d.Fail(MessageMethodNotDefined, d.policy, d.action)
		return nil
	}

	// 2. Execution: Before may short-circuit the operation.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.Before(ctx, d, d.actor, d.action, d.subject); err != nil {
		return err
	}
	if d.Complete() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return op(ctx, d, d.actor, d.action, d.subject)
}

// Can reports whether the decision for ability passed. Errors deny.
func (g *Gate) Can(ctx context.Context, actor any, ability string, subject any) bool {
	d, err := g.Allows(ctx, actor, ability, subject)
	return err == nil && d.Passed()
}

// Cannot is the negation of Can.
func (g *Gate) Cannot(ctx context.Context, actor any, ability string, subject any) bool {
	return !g.Can(ctx, actor, ability, subject)
}

// Enforce returns nil when the decision passed and an error wrapping
// ErrAccessDenied otherwise.
func (g *Gate) Enforce(ctx context.Context, actor any, ability string, subject any) error {
	d, err := g.Allows(ctx, actor, ability, subject)
	if err != nil {
		return fmt.Errorf("gate check %q: %w", ability, err)
	}
	if !d.Passed() {
		return fmt.Errorf("%w: %s (%s)", ErrAccessDenied, ability, d.Message())
	}
	return nil
}

func (g *Gate) logDecision(ctx context.Context, d *Decision, err error) {
	if !g.config.LogDecisions && !(g.config.LogDenials && d.Failed()) {
		return
	}
	attrs := []slog.Attr{
		slog.String("decision_id", d.ID().String()),
		slog.String("policy", d.Policy()),
		slog.String("action", d.Action()),
		slog.String("actor", Identify(d.Actor())),
		slog.Bool("passed", d.Passed()),
		slog.Bool("complete", d.Complete()),
		slog.String("message", d.Message()),
		slog.Duration("eval_time", d.EvalTime()),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	if g.config.LogDecisions {
		g.logger.LogAttrs(ctx, slog.LevelDebug, "gate: decision", attrs...)
		return
	}
	g.logger.LogAttrs(ctx, slog.LevelInfo, "gate: denied", attrs...)
}

// ──────────────────────────────────────────────────
// Registration
// ──────────────────────────────────────────────────

// Define registers a policy under name, replacing any previous entry.
//
// src must be a Source (Func, Object, Type, Instance), a Policy, a
// map[string]any (treated as an Object) or a function with the Operation
// signature (treated as Func). An empty name registers the policy under its
// own Name. Misconfiguration is reported here so it surfaces at startup.
func (g *Gate) Define(name string, src any) error {
	s, err := sourceOf(src)
	if err != nil {
		return fmt.Errorf("gate: define %q: %w", name, err)
	}
	p, err := s.build(name)
	if err != nil {
		return fmt.Errorf("gate: define %q: %w", name, err)
	}
	key := name
	if key == "" {
		key = policyName(p)
	}
	if key == "" {
		return fmt.Errorf("gate: define: %w: policy has no name", ErrInvalidPolicy)
	}
	if err := validPolicyName(key); err != nil {
		return fmt.Errorf("gate: define %q: %w", key, err)
	}

	g.mu.Lock()
	_, replaced := g.policies[key]
	if !replaced {
		g.order = append(g.order, key)
	}
	g.policies[key] = p
	g.mu.Unlock()

	g.logger.Debug("gate: policy defined",
		slog.String("name", key),
		slog.String("policy", policyName(p)),
		slog.Bool("replaced", replaced),
	)
	if g.plugins != nil {
		g.plugins.EmitPolicyDefined(context.Background(), key, p)
	}
	return nil
}

// Add is the chainable form of Define. It panics on misconfiguration.
func (g *Gate) Add(name string, src any) *Gate {
	if err := g.Define(name, src); err != nil {
		panic(err)
	}
	return g
}

// Has reports whether a policy is registered under name.
func (g *Gate) Has(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.policies[name]
	return ok
}

// Get returns the policy registered under name.
func (g *Gate) Get(name string) (Policy, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.policies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPolicyNotFound, name)
	}
	return p, nil
}

// Policies returns registered policy names in first-registration order.
func (g *Gate) Policies() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}
