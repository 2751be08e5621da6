package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/gate/decisionlog"
	"github.com/xraph/gate/id"
)

type decisionLogModel struct {
	grove.BaseModel `grove:"table:gate_decision_logs"`
	ID              string    `grove:"id,pk"`
	TenantID        string    `grove:"tenant_id,notnull"`
	AppID           string    `grove:"app_id,notnull"`
	Actor           string    `grove:"actor,notnull"`
	Ability         string    `grove:"ability,notnull"`
	Policy          string    `grove:"policy,notnull"`
	Action          string    `grove:"action,notnull"`
	Subject         string    `grove:"subject"`
	Decision        string    `grove:"decision,notnull"`
	Complete        bool      `grove:"complete,notnull"`
	Message         string    `grove:"message,notnull"`
	Params          string    `grove:"params"` // JSON text
	Error           string    `grove:"error"`
	EvalTimeNs      int64     `grove:"eval_time_ns,notnull"`
	Metadata        string    `grove:"metadata"` // JSON text
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func decisionLogToModel(e *decisionlog.Entry) (*decisionLogModel, error) {
	params, err := json.Marshal(e.Params)
	if err != nil {
		return nil, fmt.Errorf("marshal decision params: %w", err)
	}
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal decision metadata: %w", err)
	}
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
		Params:     string(params),
		Error:      e.Error,
		EvalTimeNs: e.EvalTimeNs,
		Metadata:   string(metadata),
		CreatedAt:  e.CreatedAt,
	}, nil
}

func decisionLogFromModel(m *decisionLogModel) (*decisionlog.Entry, error) {
	did, _ := id.ParseDecisionID(m.ID) //nolint:errcheck // stored IDs are always valid
	var params []string
	if m.Params != "" && m.Params != "null" {
		if err := json.Unmarshal([]byte(m.Params), &params); err != nil {
			return nil, fmt.Errorf("unmarshal decision params: %w", err)
		}
	}
	var metadata map[string]any
	if m.Metadata != "" && m.Metadata != "null" {
		if err := json.Unmarshal([]byte(m.Metadata), &metadata); err != nil {
			return nil, fmt.Errorf("unmarshal decision metadata: %w", err)
		}
	}
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
		Params:     params,
		Error:      m.Error,
		EvalTimeNs: m.EvalTimeNs,
		Metadata:   metadata,
		CreatedAt:  m.CreatedAt,
	}, nil
}
