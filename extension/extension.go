// Package extension provides a Forge extension entry point for the gate.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"
	"go.uber.org/zap"

	"github.com/xraph/gate"
	"github.com/xraph/gate/api"
	"github.com/xraph/gate/audit"
	"github.com/xraph/gate/manifest"
	"github.com/xraph/gate/metrics"
	"github.com/xraph/gate/plugin"
	"github.com/xraph/gate/publish"
	"github.com/xraph/gate/store"
	"github.com/xraph/gate/store/mongo"
	"github.com/xraph/gate/store/postgres"
	"github.com/xraph/gate/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "gate"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Policy registry and authorization decision engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the gate as a Forge extension.
type Extension struct {
	config     Config
	g          *gate.Gate
	store      store.Store
	recorder   *audit.Recorder
	collector  *metrics.Collector
	apiHandler *api.API
	logger     *slog.Logger
	zlog       *zap.Logger
	gateOpts   []gate.Option
	plugins    []plugin.Plugin

	metricsOn  bool
	metricsReg prometheus.Registerer
	publisher  publish.Client
	publishCfg publish.Config
}

// New creates a gate Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{config: DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extension name.
func (e *Extension) Name() string { return ExtensionName }

// Description returns the extension description.
func (e *Extension) Description() string { return ExtensionDescription }

// Version returns the extension version.
func (e *Extension) Version() string { return ExtensionVersion }

// Dependencies returns the list of extension names this extension depends on.
func (e *Extension) Dependencies() []string { return []string{} }

// Gate returns the underlying gate.
func (e *Extension) Gate() *gate.Gate { return e.g }

// Recorder returns the audit recorder, or nil when auditing is off.
func (e *Extension) Recorder() *audit.Recorder { return e.recorder }

// Metrics returns the metrics collector, or nil when metrics are off.
func (e *Extension) Metrics() *metrics.Collector { return e.collector }

// API returns the API handler.
func (e *Extension) API() *api.API { return e.apiHandler }

// Register implements [forge.Extension]. It builds the gate, registers it
// in the DI container, and optionally registers HTTP routes.
func (e *Extension) Register(fapp forge.App) error {
	// WithStore wins, then a store in the container, then a grove.DB.
	if e.store == nil {
		if s, err := forge.Inject[store.Store](fapp.Container()); err == nil {
			e.store = s
		}
	}
	if e.store == nil && e.config.GroveDriver != "" {
		db, err := forge.Inject[*grove.DB](fapp.Container())
		if err != nil {
			return fmt.Errorf("gate: resolve grove database: %w", err)
		}
		s, err := storeFor(e.config.GroveDriver, db)
		if err != nil {
			return err
		}
		e.store = s
	}

	if err := e.build(); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*gate.Gate, error) {
		return e.g, nil
	}); err != nil {
		return fmt.Errorf("gate: register gate in container: %w", err)
	}

	e.apiHandler = api.New(e.g, e.store, fapp.Router())
	if !e.config.DisableRoutes {
		if err := e.apiHandler.RegisterRoutes(fapp.Router()); err != nil {
			return fmt.Errorf("gate: register routes: %w", err)
		}
	}
	return nil
}

// storeFor builds the grove-backed store for driver.
func storeFor(driver string, db *grove.DB) (store.Store, error) {
	switch driver {
	case "pg", "postgres":
		return postgres.New(db), nil
	case "sqlite":
		return sqlite.New(db), nil
	case "mongo", "mongodb":
		return mongo.New(db), nil
	}
	return nil, fmt.Errorf("gate: unknown grove driver %q", driver)
}

// build assembles the gate and its plugins without touching Forge.
func (e *Extension) build() error {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}
	zlog := e.zlog
	if zlog == nil {
		zlog = zap.NewNop()
	}

	opts := make([]gate.Option, 0, len(e.gateOpts)+len(e.plugins)+5)
	opts = append(opts, gate.WithLogger(logger), gate.WithConfig(e.config.Gate))

	if e.metricsOn {
		e.collector = metrics.New(e.metricsReg)
		opts = append(opts, gate.WithPlugin(e.collector))
	}
	if e.store != nil && !e.config.DisableAudit {
		e.recorder = audit.NewRecorder(e.store,
			audit.WithLogger(zlog),
			audit.WithConfig(e.config.Audit),
		)
		opts = append(opts, gate.WithPlugin(e.recorder))
	}
	if e.publisher != nil {
		opts = append(opts, gate.WithPlugin(publish.New(e.publisher,
			publish.WithLogger(zlog),
			publish.WithConfig(e.publishCfg),
		)))
	}
	for _, x := range e.plugins {
		opts = append(opts, gate.WithPlugin(x))
	}
	opts = append(opts, e.gateOpts...)

	g, err := gate.NewGate(opts...)
	if err != nil {
		return fmt.Errorf("gate: create gate: %w", err)
	}

	if e.config.ManifestPath != "" {
		m, err := manifest.Load(e.config.ManifestPath)
		if err != nil {
			return fmt.Errorf("gate: load manifest: %w", err)
		}
		if err := m.Apply(g); err != nil {
			return fmt.Errorf("gate: apply manifest: %w", err)
		}
	}

	e.g = g
	return nil
}

// Start runs migrations if enabled and starts the audit recorder.
func (e *Extension) Start(ctx context.Context) error {
	if e.g == nil {
		return errors.New("gate: extension not initialized")
	}

	if !e.config.DisableMigrate && e.store != nil {
		if err := e.store.Migrate(ctx); err != nil {
			return fmt.Errorf("gate: migration failed: %w", err)
		}
	}
	if e.recorder != nil {
		e.recorder.Start()
	}

	return e.g.Start(ctx)
}

// Stop notifies plugins, which drains the audit recorder.
func (e *Extension) Stop(ctx context.Context) error {
	if e.g == nil {
		return nil
	}
	return e.g.Stop(ctx)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.g == nil {
		return errors.New("gate: extension not initialized")
	}
	if e.store == nil {
		return nil
	}
	return e.store.Ping(ctx)
}

// Handler returns the HTTP handler for all API routes.
func (e *Extension) Handler() http.Handler {
	if e.apiHandler == nil {
		return http.NotFoundHandler()
	}
	return e.apiHandler.Handler()
}

// RegisterRoutes registers all gate API routes into a Forge router.
func (e *Extension) RegisterRoutes(router forge.Router) error {
	if e.apiHandler != nil {
		return e.apiHandler.RegisterRoutes(router)
	}
	return nil
}
