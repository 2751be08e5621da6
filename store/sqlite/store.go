// Package sqlite provides a SQLite implementation of the gate
// composite store using grove ORM with Go-based migrations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/gate/decisionlog"
	"github.com/xraph/gate/id"
	"github.com/xraph/gate/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store is a SQLite implementation of the composite gate store.
type Store struct {
	db   *grove.DB
	sdb  *sqlitedriver.SqliteDB
}

// New creates a new SQLite store.
func New(db *grove.DB) *Store {
	return &Store{
		db:   db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// Migrate runs programmatic migrations via the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("gate/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("gate/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// ──────────────────────────────────────────────────
// Decision log operations
// ──────────────────────────────────────────────────

func (s *Store) CreateDecisionLog(ctx context.Context, e *decisionlog.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m, err := decisionLogToModel(e)
	if err != nil {
		return fmt.Errorf("gate: create decision log: %w", err)
	}
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("gate: create decision log: %w", err)
	}
	return nil
}

func (s *Store) CreateDecisionLogs(ctx context.Context, entries []*decisionlog.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	now := time.Now().UTC()
	models := make([]decisionLogModel, len(entries))
	for i, e := range entries {
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		m, err := decisionLogToModel(e)
		if err != nil {
			return fmt.Errorf("gate: create decision logs: %w", err)
		}
		models[i] = *m
	}

	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("gate: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on error is intentional

	if _, err := tx.NewInsert(&models).Exec(ctx); err != nil {
		return fmt.Errorf("gate: create decision logs: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("gate: commit tx: %w", err)
	}
	return nil
}

func (s *Store) GetDecisionLog(ctx context.Context, decisionID id.DecisionID) (*decisionlog.Entry, error) {
	m := new(decisionLogModel)
	err := s.sdb.NewSelect(m).Where("id = ?", decisionID.String()).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("decision %s: %w", decisionID, decisionlog.ErrNotFound)
		}
		return nil, fmt.Errorf("gate: get decision log: %w", err)
	}
	e, err := decisionLogFromModel(m)
	if err != nil {
		return nil, fmt.Errorf("gate: get decision log: %w", err)
	}
	return e, nil
}

func (s *Store) ListDecisionLogs(ctx context.Context, filter *decisionlog.QueryFilter) ([]*decisionlog.Entry, error) {
	var models []decisionLogModel
	q := s.sdb.NewSelect(&models).OrderExpr("created_at DESC, id DESC")
	for _, c := range whereClauses(filter) {
		q = q.Where(c.expr, c.arg)
	}
	if filter != nil {
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("gate: list decision logs: %w", err)
	}
	result := make([]*decisionlog.Entry, len(models))
	for i := range models {
		e, err := decisionLogFromModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("gate: list decision logs: %w", err)
		}
		result[i] = e
	}
	return result, nil
}

func (s *Store) CountDecisionLogs(ctx context.Context, filter *decisionlog.QueryFilter) (int64, error) {
	q := s.sdb.NewSelect((*decisionLogModel)(nil))
	for _, c := range whereClauses(filter) {
		q = q.Where(c.expr, c.arg)
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("gate: count decision logs: %w", err)
	}
	return count, nil
}

func (s *Store) PurgeDecisionLogs(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.sdb.NewDelete((*decisionLogModel)(nil)).
		Where("created_at < ?", before).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("gate: purge decision logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("gate: purge decision logs rows: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteDecisionLogsByTenant(ctx context.Context, tenantID string) error {
	_, err := s.sdb.NewDelete((*decisionLogModel)(nil)).
		Where("tenant_id = ?", tenantID).Exec(ctx)
	if err != nil {
		return fmt.Errorf("gate: delete decision logs by tenant: %w", err)
	}
	return nil
}

type whereClause struct {
	expr string
	arg  any
}

// whereClauses translates a filter into SQL predicates shared by list and count.
func whereClauses(filter *decisionlog.QueryFilter) []whereClause {
	if filter == nil {
		return nil
	}
	var out []whereClause
	add := func(expr string, arg any) { out = append(out, whereClause{expr, arg}) }
	if filter.TenantID != "" {
		add("tenant_id = ?", filter.TenantID)
	}
	if filter.Actor != "" {
		add("actor = ?", filter.Actor)
	}
	if filter.Policy != "" {
		add("policy = ?", filter.Policy)
	}
	if filter.Action != "" {
		add("action = ?", filter.Action)
	}
	if filter.Decision != "" {
		add("decision = ?", filter.Decision)
	}
	if filter.Message != "" {
		add("message = ?", filter.Message)
	}
	if filter.After != nil {
		add("created_at >= ?", *filter.After)
	}
	if filter.Before != nil {
		add("created_at <= ?", *filter.Before)
	}
	return out
}
