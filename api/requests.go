package api

import (
	"github.com/xraph/forge"

	"github.com/xraph/gate"
)

const maxBatch = 100

// ──────────────────────────────────────────────────
// Gate requests
// ──────────────────────────────────────────────────

// AllowsRequest is the request body for a single evaluation.
type AllowsRequest struct {
	Actor   ActorRequest    `json:"actor" description:"Actor to evaluate"`
	Ability string          `json:"ability" description:"Ability as policy or policy.action"`
	Subject *SubjectRequest `json:"subject,omitempty" description:"Object acted upon"`
}

// ActorRequest describes the actor of an evaluation.
type ActorRequest struct {
	ID         string         `json:"id" description:"Actor identifier"`
	Kind       string         `json:"kind,omitempty" description:"Actor kind (user, service, ...)"`
	Roles      []string       `json:"roles,omitempty" description:"Roles held by the actor"`
	Attributes map[string]any `json:"attributes,omitempty" description:"Additional actor attributes"`
}

// SubjectRequest describes the object acted upon.
type SubjectRequest struct {
	Type       string         `json:"type" description:"Subject type"`
	ID         string         `json:"id,omitempty" description:"Subject identifier"`
	Attributes map[string]any `json:"attributes,omitempty" description:"Additional subject attributes"`
}

// BatchAllowsRequest contains multiple evaluations.
type BatchAllowsRequest struct {
	Checks []AllowsRequest `json:"checks" description:"Evaluations to run, at most 100"`
}

func (r *AllowsRequest) validate() error {
	if r.Ability == "" {
		return forge.BadRequest("ability is required")
	}
	if r.Subject != nil && r.Subject.Type == "" {
		return forge.BadRequest("subject.type is required when subject is set")
	}
	return nil
}

// principal returns nil for an anonymous request so policies see no actor.
func (r *AllowsRequest) principal() any {
	if r.Actor.ID == "" {
		return nil
	}
	return &gate.Principal{
		ID:         r.Actor.ID,
		Kind:       r.Actor.Kind,
		Roles:      r.Actor.Roles,
		Attributes: r.Actor.Attributes,
	}
}

func (r *AllowsRequest) resource() any {
	if r.Subject == nil {
		return nil
	}
	return &gate.Resource{
		Type:       r.Subject.Type,
		ID:         r.Subject.ID,
		Attributes: r.Subject.Attributes,
	}
}

// ListPoliciesRequest takes no parameters.
type ListPoliciesRequest struct{}

// ──────────────────────────────────────────────────
// Decision log requests
// ──────────────────────────────────────────────────

// ListDecisionsRequest holds query parameters for querying decision logs.
type ListDecisionsRequest struct {
	TenantID string `query:"tenant_id" description:"Filter by tenant"`
	Actor    string `query:"actor" description:"Filter by actor identity"`
	Policy   string `query:"policy" description:"Filter by policy"`
	Action   string `query:"action" description:"Filter by action"`
	Decision string `query:"decision" description:"Filter by decision (allow, deny)"`
	Message  string `query:"message" description:"Filter by message key"`
	After    string `query:"after" description:"After timestamp (RFC3339)"`
	Before   string `query:"before" description:"Before timestamp (RFC3339)"`
	Limit    int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset   int    `query:"offset" description:"Results to skip"`
}

// GetDecisionRequest is the path parameter for getting a decision log.
type GetDecisionRequest struct {
	DecisionID string `path:"decisionId" description:"Decision ID"`
}
