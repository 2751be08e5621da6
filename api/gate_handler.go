package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/gate"
)

func (a *API) registerGateRoutes(router forge.Router) error {
	g := router.Group("/v1/gate", forge.WithGroupTags("gate"))

	if err := g.POST("/allows", a.allows,
		forge.WithSummary("Evaluate an ability"),
		forge.WithDescription("Evaluates whether the actor may exercise the ability on the subject."),
		forge.WithOperationID("gateAllows"),
		forge.WithRequestSchema(AllowsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Decision", DecisionResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/batch-allows", a.batchAllows,
		forge.WithSummary("Evaluate several abilities"),
		forge.WithDescription("Evaluates multiple abilities in one request. Results keep request order."),
		forge.WithOperationID("gateBatchAllows"),
		forge.WithRequestSchema(BatchAllowsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Decisions", BatchAllowsResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/policies", a.listPolicies,
		forge.WithSummary("List policies"),
		forge.WithDescription("Returns registered policy names in registration order."),
		forge.WithOperationID("gateListPolicies"),
		forge.WithResponseSchema(http.StatusOK, "Policy names", PoliciesResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) allows(ctx forge.Context, req *AllowsRequest) (*DecisionResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	d, err := a.g.Allows(ctx.Context(), req.principal(), req.Ability, req.resource())
	if err != nil {
		return nil, mapError(err)
	}

	resp := toDecisionResponse(d)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) batchAllows(ctx forge.Context, req *BatchAllowsRequest) (*BatchAllowsResponse, error) {
	if len(req.Checks) == 0 {
		return nil, forge.BadRequest("checks cannot be empty")
	}
	if len(req.Checks) > maxBatch {
		return nil, forge.BadRequest("too many checks")
	}

	results := make([]DecisionResponse, len(req.Checks))
	for i := range req.Checks {
		c := &req.Checks[i]
		if err := c.validate(); err != nil {
			return nil, err
		}
		d, err := a.g.Allows(ctx.Context(), c.principal(), c.Ability, c.resource())
		results[i] = *toDecisionResponse(d)
		// A failing check does not abort the batch.
		if err != nil {
			results[i].Error = err.Error()
		}
	}

	resp := &BatchAllowsResponse{Results: results}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) listPolicies(ctx forge.Context, _ *struct{}) (*PoliciesResponse, error) {
	resp := &PoliciesResponse{Policies: a.g.Policies()}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func toDecisionResponse(d *gate.Decision) *DecisionResponse {
	resp := &DecisionResponse{
		ID:         d.ID().String(),
		Ability:    d.Ability(),
		Policy:     d.Policy(),
		Action:     d.Action(),
		Passed:     d.Passed(),
		Complete:   d.Complete(),
		Message:    d.Message(),
		EvalTimeNs: d.EvalTime().Nanoseconds(),
	}
	resp.Params = append(resp.Params, d.Params()...)
	return resp
}
