package gate

import (
	"log/slog"

	"github.com/xraph/gate/plugin"
)

// Option is a functional option for the Gate.
type Option func(*Gate)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(g *Gate) { g.logger = l } }

// WithConfig sets the gate configuration.
func WithConfig(c Config) Option { return func(g *Gate) { g.config = c } }

// WithServices merges s into the service bundle handed to policies.
func WithServices(s Services) Option {
	return func(g *Gate) {
		for k, v := range s {
			g.services[k] = v
		}
	}
}

// WithService adds a single named service.
func WithService(name string, v any) Option {
	return func(g *Gate) { g.services[name] = v }
}

// WithPolicy defines a policy at construction time. See Gate.Define.
func WithPolicy(name string, src any) Option {
	return func(g *Gate) { g.pending = append(g.pending, pendingPolicy{name, src}) }
}

// WithPlugin registers a plugin with the gate.
func WithPlugin(x plugin.Plugin) Option {
	return func(g *Gate) {
		if g.plugins == nil {
			g.plugins = plugin.NewRegistry(g.logger)
		}
		g.plugins.Register(x)
	}
}
