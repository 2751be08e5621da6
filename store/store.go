// Package store defines the aggregate persistence interface. The decision
// log is the only persisted subsystem; the composite Store adds lifecycle
// operations so every backend can be migrated, probed and closed the same
// way. Backends: Postgres, SQLite, MongoDB, and Memory.
package store

import (
	"context"

	"github.com/xraph/gate/decisionlog"
)

// Store is the aggregate persistence interface.
type Store interface {
	decisionlog.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
