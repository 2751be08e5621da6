package plugin

import (
	"context"
	"log/slog"
)

// entry pairs a hook with the plugin name for logging.
type entry[H any] struct {
	name string
	hook H
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook.
//
// Register is not safe to call concurrently with the Emit methods; register
// plugins while building the gate.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	beforeCheck   []entry[BeforeCheck]
	afterCheck    []entry[AfterCheck]
	policyDefined []entry[PolicyDefined]
	shutdown      []entry[Shutdown]
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(BeforeCheck); ok {
		r.beforeCheck = append(r.beforeCheck, entry[BeforeCheck]{name, h})
	}
	if h, ok := p.(AfterCheck); ok {
		r.afterCheck = append(r.afterCheck, entry[AfterCheck]{name, h})
	}
	if h, ok := p.(PolicyDefined); ok {
		r.policyDefined = append(r.policyDefined, entry[PolicyDefined]{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, entry[Shutdown]{name, h})
	}
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// EmitBeforeCheck notifies all plugins that implement BeforeCheck.
func (r *Registry) EmitBeforeCheck(ctx context.Context, decision any) {
	for _, e := range r.beforeCheck {
		if err := e.hook.OnBeforeCheck(ctx, decision); err != nil {
			r.logHookError("OnBeforeCheck", e.name, err)
		}
	}
}

// EmitAfterCheck notifies all plugins that implement AfterCheck.
func (r *Registry) EmitAfterCheck(ctx context.Context, decision any, checkErr error) {
	for _, e := range r.afterCheck {
		if err := e.hook.OnAfterCheck(ctx, decision, checkErr); err != nil {
			r.logHookError("OnAfterCheck", e.name, err)
		}
	}
}

// EmitPolicyDefined notifies all plugins that implement PolicyDefined.
func (r *Registry) EmitPolicyDefined(ctx context.Context, name string, policy any) {
	for _, e := range r.policyDefined {
		if err := e.hook.OnPolicyDefined(ctx, name, policy); err != nil {
			r.logHookError("OnPolicyDefined", e.name, err)
		}
	}
}

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated; they must not block evaluation.
func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
