package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/gate/decisionlog"
	"github.com/xraph/gate/id"
)

type decisionLogModel struct {
	grove.BaseModel `grove:"table:gate_decision_logs"`
	ID              string         `grove:"id,pk"`
	TenantID        string         `grove:"tenant_id,notnull"`
	AppID           string         `grove:"app_id,notnull"`
	Actor           string         `grove:"actor,notnull"`
	Ability         string         `grove:"ability,notnull"`
	Policy          string         `grove:"policy,notnull"`
	Action          string         `grove:"action,notnull"`
	Subject         string         `grove:"subject"`
	Decision        string         `grove:"decision,notnull"`
	Complete        bool           `grove:"complete,notnull"`
	Message         string         `grove:"message,notnull"`
	Params          []string       `grove:"params,type:jsonb"`
	Error           string         `grove:"error"`
	EvalTimeNs      int64          `grove:"eval_time_ns,notnull"`
	Metadata        map[string]any `grove:"metadata,type:jsonb"`
	CreatedAt       time.Time      `grove:"created_at,notnull"`
}

func decisionLogToModel(e *decisionlog.Entry) *decisionLogModel {
	return &decisionLogModel{
		ID:         e.ID.String(),
		TenantID:   e.TenantID,
		AppID:      e.AppID,
		Actor:      e.Actor,
		Ability:    e.Ability,
		Policy:     e.Policy,
		Action:     e.Action,
		Subject:    e.Subject,
		Decision:   e.Decision,
		Complete:   e.Complete,
		Message:    e.Message,
		Params:     e.Params,
		Error:      e.Error,
		EvalTimeNs: e.EvalTimeNs,
		Metadata:   e.Metadata,
		CreatedAt:  e.CreatedAt,
	}
}

func decisionLogFromModel(m *decisionLogModel) *decisionlog.Entry {
	did, _ := id.ParseDecisionID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &decisionlog.Entry{
		ID:         did,
		TenantID:   m.TenantID,
		AppID:      m.AppID,
		Actor:      m.Actor,
		Ability:    m.Ability,
		Policy:     m.Policy,
		Action:     m.Action,
		Subject:    m.Subject,
		Decision:   m.Decision,
		Complete:   m.Complete,
		Message:    m.Message,
		Params:     m.Params,
		Error:      m.Error,
		EvalTimeNs: m.EvalTimeNs,
		Metadata:   m.Metadata,
		CreatedAt:  m.CreatedAt,
	}
}
