package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xraph/forge"

	"github.com/xraph/gate/decisionlog"
	"github.com/xraph/gate/id"
)

func (a *API) registerDecisionRoutes(router forge.Router) error {
	g := router.Group("/v1/gate", forge.WithGroupTags("decision-logs"))

	if err := g.GET("/decisions", a.listDecisions,
		forge.WithSummary("Query decision logs"),
		forge.WithDescription("Returns recorded decisions, newest first, with optional filters."),
		forge.WithOperationID("listDecisionLogs"),
		forge.WithRequestSchema(ListDecisionsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Decision log list", ListResponse[*decisionlog.Entry]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/decisions/:decisionId", a.getDecision,
		forge.WithSummary("Get decision log"),
		forge.WithDescription("Returns a single recorded decision."),
		forge.WithOperationID("getDecisionLog"),
		forge.WithRequestSchema(GetDecisionRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Decision log entry", decisionlog.Entry{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) listDecisions(ctx forge.Context, req *ListDecisionsRequest) (*ListResponse[*decisionlog.Entry], error) {
	filter, err := req.filter()
	if err != nil {
		return nil, err
	}

	logs, err := a.logs.ListDecisionLogs(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := a.logs.CountDecisionLogs(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListResponse[*decisionlog.Entry]{
		Items:  logs,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) getDecision(ctx forge.Context, _ *GetDecisionRequest) (*decisionlog.Entry, error) {
	decID, err := id.ParseDecisionID(ctx.Param("decisionId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid decision ID: %v", err))
	}

	e, err := a.logs.GetDecisionLog(ctx.Context(), decID)
	if err != nil {
		return nil, mapError(err)
	}

	return e, ctx.JSON(http.StatusOK, e)
}

func (r *ListDecisionsRequest) filter() (*decisionlog.QueryFilter, error) {
	f := &decisionlog.QueryFilter{
		TenantID: r.TenantID,
		Actor:    r.Actor,
		Policy:   r.Policy,
		Action:   r.Action,
		Decision: r.Decision,
		Message:  r.Message,
		Limit:    defaultLimit(r.Limit),
		Offset:   r.Offset,
	}
	if f.Offset < 0 {
		return nil, forge.BadRequest("offset must not be negative")
	}
	switch f.Decision {
	case "", decisionlog.Allow, decisionlog.Deny:
	default:
		return nil, forge.BadRequest("decision must be allow or deny")
	}

	if r.After != "" {
		t, err := time.Parse(time.RFC3339, r.After)
		if err != nil {
			return nil, forge.BadRequest("invalid after timestamp")
		}
		f.After = &t
	}
	if r.Before != "" {
		t, err := time.Parse(time.RFC3339, r.Before)
		if err != nil {
			return nil, forge.BadRequest("invalid before timestamp")
		}
		f.Before = &t
	}
	return f, nil
}
