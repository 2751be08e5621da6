package decisionlog

import (
	"context"
	"time"

	"github.com/xraph/gate/id"
)

// Store defines persistence operations for decision logs.
type Store interface {
	// CreateDecisionLog persists a new entry.
	CreateDecisionLog(ctx context.Context, e *Entry) error

	// CreateDecisionLogs persists a batch of entries atomically where the
	// backend supports it.
	CreateDecisionLogs(ctx context.Context, entries []*Entry) error

	// GetDecisionLog retrieves an entry by decision ID.
	GetDecisionLog(ctx context.Context, decisionID id.DecisionID) (*Entry, error)

	// ListDecisionLogs returns entries matching the filter, newest first.
	ListDecisionLogs(ctx context.Context, filter *QueryFilter) ([]*Entry, error)

	// CountDecisionLogs returns the number of entries matching the filter.
	CountDecisionLogs(ctx context.Context, filter *QueryFilter) (int64, error)

	// PurgeDecisionLogs removes entries created before the given time.
	PurgeDecisionLogs(ctx context.Context, before time.Time) (int64, error)

	// DeleteDecisionLogsByTenant removes all entries for a tenant.
	DeleteDecisionLogsByTenant(ctx context.Context, tenantID string) error
}
