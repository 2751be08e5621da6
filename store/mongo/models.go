package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/gate/decisionlog"
	"github.com/xraph/gate/id"
)

type decisionLogModel struct {
	grove.BaseModel `grove:"table:gate_decision_logs"`
	ID              string         `grove:"id,pk"        bson:"_id"`
	TenantID        string         `grove:"tenant_id"    bson:"tenant_id"`
	AppID           string         `grove:"app_id"       bson:"app_id"`
	Actor           string         `grove:"actor"        bson:"actor"`
	Ability         string         `grove:"ability"      bson:"ability"`
	Policy          string         `grove:"policy"       bson:"policy"`
	Action          string         `grove:"action"       bson:"action"`
	Subject         string         `grove:"subject"      bson:"subject,omitempty"`
	Decision        string         `grove:"decision"     bson:"decision"`
	Complete        bool           `grove:"complete"     bson:"complete"`
	Message         string         `grove:"message"      bson:"message"`
	Params          []string       `grove:"params"       bson:"params,omitempty"`
	Error           string         `grove:"error"        bson:"error,omitempty"`
	EvalTimeNs      int64          `grove:"eval_time_ns" bson:"eval_time_ns"`
	Metadata        map[string]any `grove:"metadata"     bson:"metadata,omitempty"`
	CreatedAt       time.Time      `grove:"created_at"   bson:"created_at"`
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
