// Package decisionlog defines the decision audit log Entry entity.
package decisionlog

import (
	"errors"
	"time"

	"github.com/xraph/gate/id"
)

// Outcome values stored in Entry.Decision.
const (
	Allow = "allow"
	Deny  = "deny"
)

// ErrNotFound is returned by stores when an entry does not exist.
var ErrNotFound = errors.New("decisionlog: entry not found")

// Entry is a single recorded authorization decision.
type Entry struct {
	ID         id.DecisionID  `json:"id" db:"id"`
	TenantID   string         `json:"tenant_id" db:"tenant_id"`
	AppID      string         `json:"app_id" db:"app_id"`
	Actor      string         `json:"actor" db:"actor"`
	Ability    string         `json:"ability" db:"ability"`
	Policy     string         `json:"policy" db:"policy"`
	Action     string         `json:"action" db:"action"`
	Subject    string         `json:"subject,omitempty" db:"subject"`
	Decision   string         `json:"decision" db:"decision"`
	Complete   bool           `json:"complete" db:"complete"`
	Message    string         `json:"message" db:"message"`
	Params     []string       `json:"params,omitempty" db:"params"`
	Error      string         `json:"error,omitempty" db:"error"`
	EvalTimeNs int64          `json:"eval_time_ns" db:"eval_time_ns"`
	Metadata   map[string]any `json:"metadata,omitempty" db:"metadata"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// Passed reports whether the recorded decision allowed the actor.
func (e *Entry) Passed() bool { return e.Decision == Allow }

// QueryFilter contains filters for querying decision logs.
type QueryFilter struct {
	TenantID string     `json:"tenant_id,omitempty"`
	Actor    string     `json:"actor,omitempty"`
	Policy   string     `json:"policy,omitempty"`
	Action   string     `json:"action,omitempty"`
	Decision string     `json:"decision,omitempty"`
	Message  string     `json:"message,omitempty"`
	After    *time.Time `json:"after,omitempty"`
	Before   *time.Time `json:"before,omitempty"`
	Limit    int        `json:"limit,omitempty"`
	Offset   int        `json:"offset,omitempty"`
}
