// Package plugin defines the plugin system for the gate.
// Plugins are notified of lifecycle events (check started, check finished,
// policy defined, shutdown) and can react with logging, metrics, auditing
// or event publishing.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import "context"

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Check lifecycle hooks
// ──────────────────────────────────────────────────

// BeforeCheck is called before a decision is evaluated.
// The decision parameter is *gate.Decision (passed as any to avoid import cycle).
type BeforeCheck interface {
	OnBeforeCheck(ctx context.Context, decision any) error
}

// AfterCheck is called after evaluation with the final decision and the
// error returned to the caller, if any.
type AfterCheck interface {
	OnAfterCheck(ctx context.Context, decision any, checkErr error) error
}

// ──────────────────────────────────────────────────
// Registry lifecycle hooks
// ──────────────────────────────────────────────────

// PolicyDefined is called after a policy is registered or replaced.
// The policy parameter is gate.Policy.
type PolicyDefined interface {
	OnPolicyDefined(ctx context.Context, name string, policy any) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
