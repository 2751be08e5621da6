package extension

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/xraph/gate"
	"github.com/xraph/gate/plugin"
	"github.com/xraph/gate/publish"
	"github.com/xraph/gate/store"
)

// ExtOption configures the gate Forge extension.
type ExtOption func(*Extension)

// WithStore sets the decision log backend.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.store = s
	}
}

// WithConfig sets the extension configuration.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithGateOptions adds gate-level options such as policies and services.
func WithGateOptions(opts ...gate.Option) ExtOption {
	return func(e *Extension) {
		e.gateOpts = append(e.gateOpts, opts...)
	}
}

// WithPolicy defines a policy on the gate. See gate.Gate.Define.
func WithPolicy(name string, src any) ExtOption {
	return WithGateOptions(gate.WithPolicy(name, src))
}

// WithPlugin registers a lifecycle hook plugin.
func WithPlugin(x plugin.Plugin) ExtOption {
	return func(e *Extension) {
		e.plugins = append(e.plugins, x)
	}
}

// WithMetrics exports decision metrics on reg.
func WithMetrics(reg prometheus.Registerer) ExtOption {
	return func(e *Extension) {
		e.metricsReg = reg
		e.metricsOn = true
	}
}

// WithPublisher publishes decision events through client.
func WithPublisher(client publish.Client, cfg publish.Config) ExtOption {
	return func(e *Extension) {
		e.publisher = client
		e.publishCfg = cfg
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = l
	}
}

// WithZapLogger sets the logger used by the audit recorder and publisher.
func WithZapLogger(l *zap.Logger) ExtOption {
	return func(e *Extension) {
		e.zlog = l
	}
}

// WithDisableRoutes disables the registration of HTTP routes.
func WithDisableRoutes() ExtOption {
	return func(e *Extension) {
		e.config.DisableRoutes = true
	}
}

// WithDisableMigrate disables auto-migration on start.
func WithDisableMigrate() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}
