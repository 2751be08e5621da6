// Package memory provides an in-memory implementation of the gate
// composite store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xraph/gate/decisionlog"
	"github.com/xraph/gate/id"
	"github.com/xraph/gate/store"
)

// Compile-time interface checks.
var (
	_ decisionlog.Store = (*Store)(nil)
	_ store.Store       = (*Store)(nil)
)

// Store is a thread-safe in-memory decision log.
type Store struct {
	mu        sync.RWMutex
	decisions map[string]*decisionlog.Entry
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{decisions: make(map[string]*decisionlog.Entry)}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Decision log store
// ──────────────────────────────────────────────────

func (s *Store) CreateDecisionLog(_ context.Context, e *decisionlog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(e)
	return nil
}

func (s *Store) CreateDecisionLogs(_ context.Context, entries []*decisionlog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.put(e)
	}
	return nil
}

// put must be called with the write lock held.
func (s *Store) put(e *decisionlog.Entry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.decisions[e.ID.String()] = copyEntry(e)
}

func (s *Store) GetDecisionLog(_ context.Context, decisionID id.DecisionID) (*decisionlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.decisions[decisionID.String()]
	if !ok {
		return nil, fmt.Errorf("decision %s: %w", decisionID, decisionlog.ErrNotFound)
	}
	return copyEntry(e), nil
}

func (s *Store) ListDecisionLogs(_ context.Context, filter *decisionlog.QueryFilter) ([]*decisionlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*decisionlog.Entry, 0, len(s.decisions))
	for _, e := range s.decisions {
		if matches(e, filter) {
			result = append(result, copyEntry(e))
		}
	}
	// Newest first; IDs are time-ordered so they break ties.
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID.String() > result[j].ID.String()
	})
	return applyPagination(result, paginationOpts(filter)), nil
}

func (s *Store) CountDecisionLogs(_ context.Context, filter *decisionlog.QueryFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, e := range s.decisions {
		if matches(e, filter) {
			n++
		}
	}
	return n, nil
}

func (s *Store) PurgeDecisionLogs(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for k, e := range s.decisions {
		if e.CreatedAt.Before(before) {
			delete(s.decisions, k)
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteDecisionLogsByTenant(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.decisions {
		if e.TenantID == tenantID {
			delete(s.decisions, k)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func matches(e *decisionlog.Entry, f *decisionlog.QueryFilter) bool {
	if f == nil {
		return true
	}
	switch {
	case f.TenantID != "" && e.TenantID != f.TenantID:
		return false
	case f.Actor != "" && e.Actor != f.Actor:
		return false
	case f.Policy != "" && e.Policy != f.Policy:
		return false
	case f.Action != "" && e.Action != f.Action:
		return false
	case f.Decision != "" && e.Decision != f.Decision:
		return false
	case f.Message != "" && e.Message != f.Message:
		return false
	case f.After != nil && e.CreatedAt.Before(*f.After):
		return false
	case f.Before != nil && e.CreatedAt.After(*f.Before):
		return false
	}
	return true
}

func copyEntry(e *decisionlog.Entry) *decisionlog.Entry {
	c := *e
	if e.Params != nil {
		c.Params = make([]string, len(e.Params))
		copy(c.Params, e.Params)
	}
	if e.Metadata != nil {
		c.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

type pagOpts struct{ limit, offset int }

func paginationOpts(f *decisionlog.QueryFilter) pagOpts {
	if f == nil {
		return pagOpts{}
	}
	return pagOpts{limit: f.Limit, offset: f.Offset}
}

func applyPagination[T any](items []*T, p pagOpts) []*T {
	if p.offset > 0 && p.offset < len(items) {
		items = items[p.offset:]
	} else if p.offset >= len(items) && p.offset > 0 {
		return nil
	}
	if p.limit > 0 && p.limit < len(items) {
		items = items[:p.limit]
	}
	return items
}
